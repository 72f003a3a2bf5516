package fn

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResult(t *testing.T) {
	v, err := Ok(42).Unwrap()
	assert.Equal(t, 42, v)
	assert.NoError(t, err)

	_, err = Err[int](errors.New("fail")).Unwrap()
	assert.EqualError(t, err, "fail")

	s, err := FromPair("x", nil).Unwrap()
	assert.NoError(t, err)
	assert.Equal(t, "x", s)
	_, err = FromPair("", errors.New("e")).Unwrap()
	assert.EqualError(t, err, "e")
}

func TestParMapResult_OrderAndIsolation(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6}
	out := ParMapResult(items, 2, func(n int) Result[int] {
		// later items finish first
		time.Sleep(time.Duration(10-n) * time.Millisecond)
		if n == 3 {
			return Err[int](errors.New("three"))
		}
		return Ok(n * 10)
	})
	require.Len(t, out, len(items))
	for i, r := range out {
		v, err := r.Unwrap()
		if items[i] == 3 {
			assert.EqualError(t, err, "three")
			continue
		}
		assert.NoError(t, err)
		assert.Equal(t, items[i]*10, v)
	}
}

func TestParMapResult_BoundsConcurrency(t *testing.T) {
	var running, peak atomic.Int32
	items := make([]int, 20)
	ParMapResult(items, 3, func(int) Result[struct{}] {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		running.Add(-1)
		return Ok(struct{}{})
	})
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestParMapResult_Empty(t *testing.T) {
	out := ParMapResult([]int{}, 4, func(int) Result[int] { return Ok(1) })
	assert.Empty(t, out)
}

func TestMapAndFilterMap(t *testing.T) {
	assert.Equal(t, []string{"a!", "b!"}, Map([]string{"a", "b"}, func(s string) string { return s + "!" }))
	evens := FilterMap([]int{1, 2, 3, 4}, func(n int) (int, bool) { return n * n, n%2 == 0 })
	assert.Equal(t, []int{4, 16}, evens)
}
