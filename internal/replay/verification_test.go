package replay

import (
	"errors"
	"testing"
)

func TestVerifyLeaders(t *testing.T) {
	tests := []struct {
		name    string
		leaders []Entry
		ok      bool
	}{
		{"empty", nil, true},
		{"sorted", []Entry{{Rank: 1, Country: "A", Latest: 3}, {Rank: 2, Country: "B", Latest: 2}}, true},
		{"ties share a rank", []Entry{{Rank: 1, Country: "A", Latest: 3}, {Rank: 1, Country: "B", Latest: 3}, {Rank: 3, Country: "C", Latest: 1}}, true},
		{"unsorted", []Entry{{Rank: 1, Country: "A", Latest: 1}, {Rank: 2, Country: "B", Latest: 2}}, false},
		{"dense ranks", []Entry{{Rank: 1, Country: "A", Latest: 3}, {Rank: 1, Country: "B", Latest: 3}, {Rank: 2, Country: "C", Latest: 1}}, false},
		{"first not one", []Entry{{Rank: 2, Country: "A", Latest: 3}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := verifyLeaders(tt.leaders)
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrVerification) {
				t.Fatalf("expected a verification error, got %v", err)
			}
		})
	}
}

func TestVerifyHighlight(t *testing.T) {
	codes := map[string]bool{"IL": true, "US": true}
	base := HighlightResult{
		PlotID:  "p1",
		Default: State{PlotID: "p1", Phase: "default", ActiveCountry: "IL"},
		State:   State{PlotID: "p1", Phase: "active", ActiveCountry: "US", Tooltip: &Tooltip{Text: "United States 300"}},
		Changed: true,
	}
	again := base
	again.State.PlotID = "p2"
	again.State.Tooltip = &Tooltip{Text: "United States 300"}

	if err := verifyHighlight(base, again, codes); err != nil {
		t.Fatalf("identical answers from different draws should pass: %v", err)
	}

	unknown := base
	unknown.State.ActiveCountry = "XX"
	if err := verifyHighlight(unknown, unknown, codes); !errors.Is(err, ErrVerification) {
		t.Fatalf("unknown country should fail, got %v", err)
	}

	drift := again
	drift.State.ActiveCountry = "IL"
	if err := verifyHighlight(base, drift, codes); !errors.Is(err, ErrVerification) {
		t.Fatalf("differing repeat should fail, got %v", err)
	}
}

func TestVerifyLeave(t *testing.T) {
	s := State{PlotID: "p", Phase: "default", ActiveCountry: "IL"}
	if err := verifyLeave(HighlightResult{Default: s, State: s}); err != nil {
		t.Fatalf("unchanged leave should pass: %v", err)
	}
	moved := s
	moved.ActiveCountry = "US"
	if err := verifyLeave(HighlightResult{Default: s, State: moved, Changed: true}); !errors.Is(err, ErrVerification) {
		t.Fatalf("changed leave should fail, got %v", err)
	}
}
