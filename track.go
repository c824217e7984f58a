package loopaudio

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"
)

type (
	// TrackState couples a track's source handle with its current gain.
	// The source handle identifies which part of the underlying audio
	// backs the track: a channel pair ordinal for a single interleaved
	// file, or a file ordinal when every track has its own file. Tracks
	// are allocated once when a part is opened and never removed; only
	// the gain changes during playback.
	//
	// Gains are written by the control thread and read by the real-time
	// mix, so they go through atomics. A gain that is stale by one block
	// is acceptable; a torn read is not.
	TrackState struct {
		Source int
		gain   atomic.Uint32
	}

	// TrackID addresses a variant or a layer, either by ordinal position
	// within its group (int) or by name (string). Both schemes resolve
	// to the same track table.
	TrackID = any

	// TrackSet declares one group of tracks (the variants or the layers)
	// when constructing a Part. Sources holds one source handle per
	// track. Names, if non-nil, runs parallel to Sources and enables
	// addressing the group by name; an empty name is a legal,
	// non-unique key.
	TrackSet struct {
		Names   []string
		Sources []int
	}

	// trackGroup resolves TrackIDs to indices into a part's track table.
	trackGroup struct {
		kind   string // "variant" or "layer", for error messages
		names  []string
		tracks []int
	}
)

// ErrNoSuchTrack is wrapped by every variant or layer lookup that is
// given an id not present in the group.
var ErrNoSuchTrack = errors.New("no such track")

// Gain returns the track's current linear gain multiplier.
func (t *TrackState) Gain() float32 {
	return math.Float32frombits(t.gain.Load())
}

// SetGain sets the track's linear gain multiplier. The engine does not
// clamp it; nominal values are in [0, 1].
func (t *TrackState) SetGain(gain float32) {
	t.gain.Store(math.Float32bits(gain))
}

func (g *trackGroup) len() int { return len(g.tracks) }

// lookup resolves id to a track table index and the canonical id used
// for active-set bookkeeping (the name when the group is named, the
// ordinal otherwise).
func (g *trackGroup) lookup(id TrackID) (track int, canon TrackID, err error) {
	switch key := id.(type) {
	case int:
		if key < 0 || key >= len(g.tracks) {
			return 0, nil, fmt.Errorf("%s %v: %w", g.kind, key, ErrNoSuchTrack)
		}
		if g.names != nil {
			return g.tracks[key], g.names[key], nil
		}
		return g.tracks[key], key, nil
	case string:
		for i, name := range g.names {
			if name == key {
				return g.tracks[i], name, nil
			}
		}
		return 0, nil, fmt.Errorf("%s %q: %w", g.kind, key, ErrNoSuchTrack)
	}
	return 0, nil, fmt.Errorf("%s id must be an ordinal or a name, got %T", g.kind, id)
}

// ids lists the group's addressable identifiers: names when the group
// is named, ordinals otherwise.
func (g *trackGroup) ids() []TrackID {
	ids := make([]TrackID, len(g.tracks))
	for i := range g.tracks {
		if g.names != nil {
			ids[i] = g.names[i]
		} else {
			ids[i] = i
		}
	}
	return ids
}
