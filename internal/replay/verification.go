package replay

import (
	"fmt"
	"reflect"
)

// verifyHighlight checks one swept point: the answer names an uploaded
// country and repeating the query gives the same state.
func verifyHighlight(first, again HighlightResult, codes map[string]bool) error {
	if c := first.State.ActiveCountry; c != "" && !codes[c] {
		return fmt.Errorf("%w: highlight names unknown country %q", ErrVerification, c)
	}
	if c := first.Default.ActiveCountry; c != "" && !codes[c] {
		return fmt.Errorf("%w: default highlight names unknown country %q", ErrVerification, c)
	}
	if first.State.ActiveCountry == "" && len(codes) > 0 && first.Default.ActiveCountry != "" {
		return fmt.Errorf("%w: highlight cleared on a move", ErrVerification)
	}
	// Plot ids are fresh per draw, so compare everything else.
	a, b := first.State, again.State
	a.PlotID, b.PlotID = "", ""
	if !reflect.DeepEqual(a, b) || first.Changed != again.Changed {
		return fmt.Errorf("%w: repeated query differs: %+v vs %+v", ErrVerification, a, b)
	}
	return nil
}

// verifyLeave checks that a leave kept the default highlight.
func verifyLeave(left HighlightResult) error {
	if left.Changed || !reflect.DeepEqual(left.State, left.Default) {
		return fmt.Errorf("%w: leave changed the highlight", ErrVerification)
	}
	return nil
}

// verifyLeaders checks ordering and competition ranks.
func verifyLeaders(leaders []Entry) error {
	for i := 1; i < len(leaders); i++ {
		prev, cur := leaders[i-1], leaders[i]
		switch {
		case cur.Latest > prev.Latest:
			return fmt.Errorf("%w: entry %d (%s) is above entry %d (%s)", ErrVerification, i, cur.Country, i-1, prev.Country)
		case cur.Latest == prev.Latest && cur.Rank != prev.Rank:
			return fmt.Errorf("%w: tied entries %s and %s have different ranks", ErrVerification, prev.Country, cur.Country)
		case cur.Latest < prev.Latest && cur.Rank != i+1:
			return fmt.Errorf("%w: entry %s has rank %d, want %d", ErrVerification, cur.Country, cur.Rank, i+1)
		}
	}
	if len(leaders) > 0 && leaders[0].Rank != 1 {
		return fmt.Errorf("%w: first leader has rank %d", ErrVerification, leaders[0].Rank)
	}
	return nil
}
