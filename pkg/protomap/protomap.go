// Package protomap converts protobuf messages returned by cloud clients into
// plain map[string]any values that encode/json can serialize. It is the only
// place where external message types cross into client-facing payloads.
package protomap

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Normalize returns msg as a nested mapping with lowerCamelCase keys, matching
// the canonical proto3 JSON mapping. A nil message yields an empty map.
func Normalize(msg proto.Message) (map[string]any, error) {
	if msg == nil {
		return map[string]any{}, nil
	}
	b, err := protojson.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("protomap: marshal %T: %w", msg, err)
	}
	var s structpb.Struct
	if err := protojson.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("protomap: decode %T: %w", msg, err)
	}
	return s.AsMap(), nil
}

// NormalizeAll normalizes each message, preserving order.
func NormalizeAll[M proto.Message](msgs []M) ([]map[string]any, error) {
	out := make([]map[string]any, 0, len(msgs))
	for i, m := range msgs {
		v, err := Normalize(m)
		if err != nil {
			return nil, fmt.Errorf("protomap: item %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}
