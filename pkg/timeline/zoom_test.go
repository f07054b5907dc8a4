package timeline

import (
	"testing"

	"github.com/nevaubi/snappy-cam-zoom-magic-sub001/pkg/pipeline"
)

func twoEffects() []pipeline.ZoomEffect {
	return []pipeline.ZoomEffect{
		{StartSec: 0, EndSec: 2, Zoom: 2, TargetX: 3, TargetY: 3},
		{StartSec: 3, EndSec: 5, Zoom: 1.5, TargetX: 0, TargetY: 0},
	}
}

func TestActiveAt_WindowSelection(t *testing.T) {
	idx := NewIndex(twoEffects())

	tests := []struct {
		name     string
		t        float64
		wantHit  bool
		wantZoom float64
	}{
		{"inside first window", 1.0, true, 2},
		{"first window start inclusive", 0.0, true, 2},
		{"first window end inclusive", 2.0, true, 2},
		{"gap between windows", 2.5, false, 0},
		{"inside second window", 4.0, true, 1.5},
		{"second window end inclusive", 5.0, true, 1.5},
		{"after all windows", 6.0, false, 0},
		{"before all windows", -0.5, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t2 *testing.T) {
			got, ok := idx.ActiveAt(tt.t)
			if ok != tt.wantHit {
				t2.Fatalf("ActiveAt(%.2f): expected hit=%v, got %v", tt.t, tt.wantHit, ok)
			}
			if ok && got.Zoom != tt.wantZoom {
				t2.Errorf("ActiveAt(%.2f): expected zoom %.2f, got %.2f", tt.t, tt.wantZoom, got.Zoom)
			}
		})
	}
}

func TestActiveAt_Idempotent(t *testing.T) {
	idx := NewIndex(twoEffects())

	first, ok1 := idx.ActiveAt(1.25)
	second, ok2 := idx.ActiveAt(1.25)

	if ok1 != ok2 || first != second {
		t.Errorf("repeated queries diverged: (%+v, %v) vs (%+v, %v)", first, ok1, second, ok2)
	}
}

func TestActiveAt_ExactlyOneEffectInsideWindow(t *testing.T) {
	effects := twoEffects()
	idx := NewIndex(effects)

	// Strictly inside each window, exactly that window's effect is returned.
	for i, e := range effects {
		mid := (e.StartSec + e.EndSec) / 2
		got, ok := idx.ActiveAt(mid)
		if !ok {
			t.Fatalf("effect %d: no hit at midpoint %.2f", i, mid)
		}
		if got != e {
			t.Errorf("effect %d: expected %+v, got %+v", i, e, got)
		}
	}
}

func TestActiveAt_EmptyList(t *testing.T) {
	idx := NewIndex(nil)

	if _, ok := idx.ActiveAt(1.0); ok {
		t.Error("expected no hit for empty index")
	}
}

func TestNewIndex_SortsUnorderedInput(t *testing.T) {
	effects := []pipeline.ZoomEffect{
		{StartSec: 3, EndSec: 5, Zoom: 1.5},
		{StartSec: 0, EndSec: 2, Zoom: 2},
	}
	idx := NewIndex(effects)

	got, ok := idx.ActiveAt(1.0)
	if !ok || got.Zoom != 2 {
		t.Errorf("expected first window (zoom 2), got %+v hit=%v", got, ok)
	}

	// Caller's slice stays untouched.
	if effects[0].StartSec != 3 {
		t.Error("NewIndex mutated the input slice")
	}
}

func TestFirstMatch_OverlapFirstInListOrderWins(t *testing.T) {
	effects := []pipeline.ZoomEffect{
		{StartSec: 1, EndSec: 4, Zoom: 2},
		{StartSec: 2, EndSec: 6, Zoom: 3},
	}

	got, ok := FirstMatch(effects, 3.0)
	if !ok || got.Zoom != 2 {
		t.Errorf("expected first listed effect (zoom 2), got %+v hit=%v", got, ok)
	}

	got, ok = FirstMatch(effects, 5.0)
	if !ok || got.Zoom != 3 {
		t.Errorf("expected second effect (zoom 3), got %+v hit=%v", got, ok)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		effects []pipeline.ZoomEffect
		wantErr bool
	}{
		{"empty", nil, false},
		{"single", []pipeline.ZoomEffect{{StartSec: 0, EndSec: 1}}, false},
		{"ordered non-overlapping", twoEffects(), false},
		{
			"overlapping windows",
			[]pipeline.ZoomEffect{{StartSec: 0, EndSec: 3}, {StartSec: 2, EndSec: 5}},
			true,
		},
		{
			"touching endpoints",
			[]pipeline.ZoomEffect{{StartSec: 0, EndSec: 2}, {StartSec: 2, EndSec: 4}},
			true,
		},
		{
			"out of order",
			[]pipeline.ZoomEffect{{StartSec: 3, EndSec: 5}, {StartSec: 0, EndSec: 2}},
			true,
		},
		{
			"inverted window",
			[]pipeline.ZoomEffect{{StartSec: 2, EndSec: 1}},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t2 *testing.T) {
			err := Validate(tt.effects)
			if (err != nil) != tt.wantErr {
				t2.Errorf("Validate: expected error=%v, got %v", tt.wantErr, err)
			}
		})
	}
}
