package loopaudio

import (
	"sync"
)

// Part is one independently playable, independently looping section of
// a song. It owns the position cursor, the loop points, the track table
// and the variant/layer bookkeeping, and produces loop-spliced blocks
// from its source backend.
//
// Variants are mutually exclusive renditions: at most one has nonzero
// gain at any time. Layers are freely combinable: any subset may be
// active. Control-thread mutations take effect on the next mixed block,
// never mid-block.
type Part struct {
	Name string
	Tags SongTags

	src      SourceBackend
	loop     *LoopPoints
	looping  bool
	position int64

	tracks   []*TrackState
	variants trackGroup
	layers   trackGroup

	mu            sync.Mutex // guards the active variant/layer bookkeeping
	activeVariant TrackID
	activeLayers  map[TrackID]struct{}
}

// NewPart builds a part over src. The variant and layer sets declare
// the track table; loop may be nil for one-shot playback. Loop points
// that do not fit the source are a configuration error; a source that
// cannot seek silently disables looping instead. When the part has
// variants, the first one starts active at full gain.
func NewPart(name string, tags SongTags, src SourceBackend, variants, layers TrackSet, loop *LoopPoints) (*Part, error) {
	p := &Part{
		Name:         name,
		Tags:         tags,
		src:          src,
		activeLayers: map[TrackID]struct{}{},
	}
	p.variants = p.register("variant", variants)
	p.layers = p.register("layer", layers)
	if loop != nil {
		if err := loop.Validate(src.FrameCount()); err != nil {
			return nil, err
		}
		if src.Seekable() {
			l := *loop
			p.loop = &l
			p.looping = true
		}
	}
	if p.variants.len() > 0 {
		if err := p.SetVariant(p.variants.ids()[0]); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Part) register(kind string, set TrackSet) trackGroup {
	group := trackGroup{kind: kind, names: set.Names}
	for _, source := range set.Sources {
		group.tracks = append(group.tracks, len(p.tracks))
		p.tracks = append(p.tracks, &TrackState{Source: source})
	}
	return group
}

// SampleRate returns the part's sample rate in hertz.
func (p *Part) SampleRate() int { return p.src.SampleRate() }

// Channels returns the number of output channels the part mixes down to.
func (p *Part) Channels() int { return p.src.Channels() }

// Position returns the playhead position in frames from the start of
// the source.
func (p *Part) Position() int64 { return p.position }

// Length returns the playable length in frames: the loop end when the
// part loops, the whole source otherwise.
func (p *Part) Length() int64 {
	if p.looping {
		return p.loop.End
	}
	return p.src.FrameCount()
}

// Looping reports whether the part repeats its looping section.
func (p *Part) Looping() bool { return p.looping }

// Loop returns the effective loop points, or nil when the part plays
// one-shot.
func (p *Part) Loop() *LoopPoints {
	if !p.looping {
		return nil
	}
	l := *p.loop
	return &l
}

// SeekFrame sets the playhead position.
func (p *Part) SeekFrame(frame int64) error {
	pos, err := p.src.SeekFrame(frame)
	p.position = pos
	return err
}

// ReadBlock reads the next n frames and advances the playhead. When the
// loop seam falls inside the block, the read is spliced: the tail up to
// the loop end is concatenated with frames starting at the loop start,
// so every block has exactly n frames except the terminal block of a
// non-looping part.
func (p *Part) ReadBlock(n int) (Block, error) {
	if !p.looping {
		return p.readFrames(n)
	}
	remaining := p.loop.End - p.position
	if remaining >= int64(n) {
		return p.readFrames(n)
	}
	alpha, err := p.readFrames(int(remaining))
	if err != nil {
		return nil, err
	}
	if err := p.SeekFrame(p.loop.Start); err != nil {
		return nil, err
	}
	bravo, err := p.readFrames(n - p.src.Frames(alpha))
	if err != nil {
		return nil, err
	}
	return p.src.Concat(alpha, bravo), nil
}

func (p *Part) readFrames(n int) (Block, error) {
	if n < 0 {
		n = 0
	}
	block, err := p.src.ReadFrames(n)
	if err != nil {
		return nil, err
	}
	p.position += int64(p.src.Frames(block))
	return block, nil
}

// Frames returns the number of frames held by a block read from this
// part.
func (p *Part) Frames(b Block) int { return p.src.Frames(b) }

// Mix scales every track by its gain, sums them and clips to [-1, 1].
// dst must hold Frames(b)*Channels() samples. This is the only place
// track gains are consulted; it runs once per block on the real-time
// path.
func (p *Part) Mix(dst []float32, b Block) {
	p.src.Mix(dst, b, p.tracks)
}

// Variants lists the part's variant identifiers.
func (p *Part) Variants() []TrackID { return p.variants.ids() }

// Layers lists the part's layer identifiers.
func (p *Part) Layers() []TrackID { return p.layers.ids() }

// Variant returns the identifier of the active variant, or nil if none
// is active.
func (p *Part) Variant() TrackID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.activeVariant
}

// SetVariant makes the given variant the audible one at full gain.
func (p *Part) SetVariant(id TrackID) error {
	return p.SetVariantGain(id, 1)
}

// SetVariantGain makes the given variant the audible one: the
// previously active variant is zeroed first, so at most one variant
// ever has nonzero gain. A nil id clears the active variant without
// touching track gains. An unknown id is an error and leaves the
// previous variant playing.
func (p *Part) SetVariantGain(id TrackID, gain float32) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if id == nil {
		p.activeVariant = nil
		return nil
	}
	track, canon, err := p.variants.lookup(id)
	if err != nil {
		return err
	}
	if p.activeVariant != nil {
		if prev, _, err := p.variants.lookup(p.activeVariant); err == nil {
			p.tracks[prev].SetGain(0)
		}
	}
	p.activeVariant = canon
	p.tracks[track].SetGain(gain)
	return nil
}

// ActiveLayers returns the identifiers of the currently audible layers.
func (p *Part) ActiveLayers() []TrackID {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]TrackID, 0, len(p.activeLayers))
	for id := range p.activeLayers {
		ids = append(ids, id)
	}
	return ids
}

// AddLayer enables a layer at full gain.
func (p *Part) AddLayer(id TrackID) error {
	return p.SetLayerGain(id, 1)
}

// RemoveLayer disables a layer.
func (p *Part) RemoveLayer(id TrackID) error {
	return p.SetLayerGain(id, 0)
}

// SetLayerGain sets a layer's gain; the layer counts as active exactly
// when the gain is nonzero.
func (p *Part) SetLayerGain(id TrackID, gain float32) error {
	track, canon, err := p.layers.lookup(id)
	if err != nil {
		return err
	}
	p.tracks[track].SetGain(gain)
	p.mu.Lock()
	if gain != 0 {
		p.activeLayers[canon] = struct{}{}
	} else {
		delete(p.activeLayers, canon)
	}
	p.mu.Unlock()
	return nil
}

// SetLayers disables every layer and then enables exactly the given
// ones. Unknown ids are a configuration error reported before any
// layer is touched.
func (p *Part) SetLayers(ids []TrackID) error {
	for _, id := range ids {
		if _, _, err := p.layers.lookup(id); err != nil {
			return err
		}
	}
	for _, id := range p.layers.ids() {
		if err := p.SetLayerGain(id, 0); err != nil {
			return err
		}
	}
	for _, id := range ids {
		if err := p.SetLayerGain(id, 1); err != nil {
			return err
		}
	}
	return nil
}

// SetLayerBits enables and disables layers from a bitmask read least
// significant bit first, one bit per layer in group order. Bits beyond
// the mask's width disable the remaining layers.
func (p *Part) SetLayerBits(mask uint64) error {
	for i, on := range Bits(mask, p.layers.len()) {
		gain := float32(0)
		if on {
			gain = 1
		}
		if err := p.SetLayerGain(i, gain); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the part's source.
func (p *Part) Close() error {
	return p.src.Close()
}
