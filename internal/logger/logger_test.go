package logger

import "testing"

func TestNew(t *testing.T) {
	for _, tc := range []struct{ json, debug bool }{{false, false}, {true, false}, {false, true}, {true, true}} {
		l, err := New(tc.json, tc.debug)
		if err != nil {
			t.Fatalf("New(%v, %v): %v", tc.json, tc.debug, err)
		}
		if got := l.Core().Enabled(-1); got != tc.debug {
			t.Fatalf("debug enabled = %v, want %v", got, tc.debug)
		}
	}
}
