// Package timeline indexes time-windowed zoom effects for per-frame lookup.
package timeline

import (
	"fmt"
	"sort"

	"github.com/nevaubi/snappy-cam-zoom-magic-sub001/pkg/pipeline"
)

// FirstMatch returns the first effect in list order whose [StartSec, EndSec]
// window contains t (inclusive on both ends), or false if none matches.
//
// This linear scan is the documented reference behavior for lists that may
// contain overlapping windows: the first match in list order wins. Effect
// lists are small (a handful per recording), so O(n) is acceptable here;
// Index provides the O(log n) path for validated lists.
func FirstMatch(effects []pipeline.ZoomEffect, t float64) (pipeline.ZoomEffect, bool) {
	for _, e := range effects {
		if t >= e.StartSec && t <= e.EndSec {
			return e, true
		}
	}
	return pipeline.ZoomEffect{}, false
}

// Validate checks that effects are ordered by start time and that no two
// windows overlap. Touching endpoints (one window ending exactly where the
// next starts) are rejected too, since both would claim the shared instant.
func Validate(effects []pipeline.ZoomEffect) error {
	for i, e := range effects {
		if e.StartSec >= e.EndSec {
			return fmt.Errorf("zoom effect %d: start %.3f must be before end %.3f", i, e.StartSec, e.EndSec)
		}
		if i > 0 {
			prev := effects[i-1]
			if e.StartSec < prev.StartSec {
				return fmt.Errorf("zoom effect %d starts at %.3f before effect %d at %.3f", i, e.StartSec, i-1, prev.StartSec)
			}
			if e.StartSec <= prev.EndSec {
				return fmt.Errorf("zoom effects %d and %d overlap ([%.3f, %.3f] and [%.3f, %.3f])",
					i-1, i, prev.StartSec, prev.EndSec, e.StartSec, e.EndSec)
			}
		}
	}
	return nil
}

// Index answers active-effect queries in O(log n) for a validated,
// non-overlapping effect list. The constructor copies and sorts the list by
// start time, so the caller's slice is never touched.
//
// Zoom is a step function: a window's effect applies uniformly over
// [StartSec, EndSec] with no easing in or out.
type Index struct {
	effects []pipeline.ZoomEffect
}

// NewIndex builds an index over the given effects.
func NewIndex(effects []pipeline.ZoomEffect) *Index {
	sorted := make([]pipeline.ZoomEffect, len(effects))
	copy(sorted, effects)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartSec < sorted[j].StartSec
	})
	return &Index{effects: sorted}
}

// Len returns the number of indexed effects.
func (idx *Index) Len() int {
	return len(idx.effects)
}

// ActiveAt returns the effect whose window contains t (inclusive), or false
// if no effect is active at t. Queries are idempotent: the same t against an
// unchanged index always yields the same result.
func (idx *Index) ActiveAt(t float64) (pipeline.ZoomEffect, bool) {
	// First effect starting after t; the candidate is its predecessor.
	i := sort.Search(len(idx.effects), func(i int) bool {
		return idx.effects[i].StartSec > t
	})
	if i == 0 {
		return pipeline.ZoomEffect{}, false
	}
	e := idx.effects[i-1]
	if t <= e.EndSec {
		return e, true
	}
	return pipeline.ZoomEffect{}, false
}
