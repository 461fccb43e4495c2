package domain

import (
	"math"
	"strings"
	"testing"
	"time"
)

func TestNewRoomID(t *testing.T) {
	for _, n := range []int{0, 4, 8} {
		id, err := NewRoomID(n)
		if err != nil {
			t.Fatal(err)
		}
		want := n
		if n == 0 {
			want = DefaultRoomIDLen
		}
		if len(id) != want {
			t.Fatalf("len(%q) = %d, want %d", id, len(id), want)
		}
		for _, c := range id {
			if !strings.ContainsRune(RoomIDAlphabet, c) {
				t.Fatalf("id %q has char %q outside alphabet", id, c)
			}
		}
	}
}

func TestNormalizeSpeed(t *testing.T) {
	for name, tc := range map[string]struct{ in, want float64 }{
		"known":    {1.5, 1.5},
		"unknown":  {3, 3},
		"zero":     {0, 1},
		"negative": {-2, 1},
		"nan":      {math.NaN(), 1},
		"inf":      {math.Inf(1), 1},
	} {
		t.Run(name, func(t *testing.T) {
			if got := NormalizeSpeed(tc.in); got != tc.want {
				t.Fatalf("NormalizeSpeed(%v) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
	if KnownSpeed(3) || !KnownSpeed(0.5) {
		t.Fatal("KnownSpeed mismatch")
	}
}

func TestPositionAt(t *testing.T) {
	base := time.Unix(1000, 0)
	paused := PlaybackState{Position: 10, Speed: 2, UpdatedAt: base}
	if got := paused.PositionAt(base.Add(5 * time.Second)); got != 10 {
		t.Fatalf("paused position moved: %v", got)
	}
	playing := PlaybackState{Position: 10, Speed: 2, Playing: true, UpdatedAt: base}
	if got := playing.PositionAt(base.Add(5 * time.Second)); got != 20 {
		t.Fatalf("playing position = %v, want 20", got)
	}
	if got := playing.PositionAt(base.Add(-time.Second)); got != 10 {
		t.Fatalf("clock skew should not rewind: %v", got)
	}
	var unknown PlaybackState
	if unknown.Known() {
		t.Fatal("zero state must not be known")
	}
}
