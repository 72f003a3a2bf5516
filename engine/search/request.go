package search

import (
	"cloud.google.com/go/discoveryengine/apiv1/discoveryenginepb"

	"github.com/docsift/docsift/engine/domain"
)

// summaryModelVersion pins the summarization model to the stable channel.
const summaryModelVersion = "stable"

// Params is the client supplied search body. Nil fields take the server
// defaults.
type Params struct {
	Query                     string `json:"query"`
	PageSize                  *int32 `json:"page_size,omitempty"`
	PageSizeAlias             *int32 `json:"pageSize,omitempty"`
	SummaryResultCount        *int32 `json:"summary_result_count,omitempty"`
	MaxSnippetCount           *int32 `json:"max_snippet_count,omitempty"`
	IncludeCitations          *bool  `json:"include_citations,omitempty"`
	UseSemanticChunks         *bool  `json:"use_semantic_chunks,omitempty"`
	MaxExtractiveAnswerCount  *int32 `json:"max_extractive_answer_count,omitempty"`
	MaxExtractiveSegmentCount *int32 `json:"max_extractive_segment_count,omitempty"`
}

// Resolve fills unset fields from defaults. page_size wins over pageSize
// when both are sent.
func (p Params) Resolve(defaults domain.SearchConfiguration) domain.SearchConfiguration {
	c := defaults
	c.Query = p.Query
	pick(&c.PageSize, p.PageSizeAlias)
	pick(&c.PageSize, p.PageSize)
	pick(&c.SummaryResultCount, p.SummaryResultCount)
	pick(&c.MaxSnippetCount, p.MaxSnippetCount)
	pick(&c.IncludeCitations, p.IncludeCitations)
	pick(&c.UseSemanticChunks, p.UseSemanticChunks)
	pick(&c.MaxExtractiveAnswerCount, p.MaxExtractiveAnswerCount)
	pick(&c.MaxExtractiveSegmentCount, p.MaxExtractiveSegmentCount)
	return c
}

func pick[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// BuildRequest shapes a SearchRequest against servingConfig.
func BuildRequest(servingConfig, preamble string, c domain.SearchConfiguration) *discoveryenginepb.SearchRequest {
	cs := &discoveryenginepb.SearchRequest_ContentSearchSpec{
		SummarySpec: &discoveryenginepb.SearchRequest_ContentSearchSpec_SummarySpec{
			SummaryResultCount: c.SummaryResultCount,
			IncludeCitations:   c.IncludeCitations,
			ModelPromptSpec: &discoveryenginepb.SearchRequest_ContentSearchSpec_SummarySpec_ModelPromptSpec{
				Preamble: preamble,
			},
			UseSemanticChunks: c.UseSemanticChunks,
			ModelSpec: &discoveryenginepb.SearchRequest_ContentSearchSpec_SummarySpec_ModelSpec{
				Version: summaryModelVersion,
			},
		},
	}
	if c.MaxSnippetCount > 0 {
		cs.SnippetSpec = &discoveryenginepb.SearchRequest_ContentSearchSpec_SnippetSpec{
			ReturnSnippet:   true,
			MaxSnippetCount: c.MaxSnippetCount,
		}
	}
	if c.MaxExtractiveAnswerCount > 0 || c.MaxExtractiveSegmentCount > 0 {
		cs.ExtractiveContentSpec = &discoveryenginepb.SearchRequest_ContentSearchSpec_ExtractiveContentSpec{
			MaxExtractiveAnswerCount:     c.MaxExtractiveAnswerCount,
			MaxExtractiveSegmentCount:    c.MaxExtractiveSegmentCount,
			ReturnExtractiveSegmentScore: true,
		}
	}

	return &discoveryenginepb.SearchRequest{
		ServingConfig:     servingConfig,
		Query:             c.Query,
		PageSize:          c.PageSize,
		ContentSearchSpec: cs,
		QueryExpansionSpec: &discoveryenginepb.SearchRequest_QueryExpansionSpec{
			Condition: discoveryenginepb.SearchRequest_QueryExpansionSpec_AUTO,
		},
		SpellCorrectionSpec: &discoveryenginepb.SearchRequest_SpellCorrectionSpec{
			Mode: discoveryenginepb.SearchRequest_SpellCorrectionSpec_AUTO,
		},
	}
}
