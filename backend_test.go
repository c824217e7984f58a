package loopaudio_test

import (
	"fmt"
	"testing"

	"github.com/loopaudio/loopaudio"
	"github.com/loopaudio/loopaudio/internal/sndfile"
)

// memFile is an in-memory sndfile.File, so engine tests do not depend
// on decoding real audio files.
type memFile struct {
	rate       int
	channels   int
	data       []float32 // interleaved
	pos        int64
	tags       map[string]string
	unseekable bool
}

func (f *memFile) SampleRate() int { return f.rate }
func (f *memFile) Channels() int   { return f.channels }
func (f *memFile) Frames() int64   { return int64(len(f.data) / f.channels) }
func (f *memFile) Seekable() bool  { return !f.unseekable }

func (f *memFile) Tags() map[string]string {
	if f.tags == nil {
		return map[string]string{}
	}
	return f.tags
}

func (f *memFile) SeekFrame(frame int64) (int64, error) {
	if f.unseekable {
		return f.pos, fmt.Errorf("source is not seekable")
	}
	if frame < 0 || frame > f.Frames() {
		return f.pos, fmt.Errorf("seek to frame %v out of range", frame)
	}
	f.pos = frame
	return f.pos, nil
}

func (f *memFile) Read(n int) ([]float32, error) {
	if remaining := f.Frames() - f.pos; int64(n) > remaining {
		n = int(remaining)
	}
	if n <= 0 {
		return nil, nil
	}
	out := make([]float32, n*f.channels)
	copy(out, f.data[f.pos*int64(f.channels):])
	f.pos += int64(n)
	return out, nil
}

func (f *memFile) Close() error { return nil }

var _ sndfile.File = (*memFile)(nil)

// rampFile encodes the frame number into every sample, so tests can
// check exactly which frames a block holds.
func rampFile(rate, channels int, frames int64) *memFile {
	data := make([]float32, frames*int64(channels))
	for f := int64(0); f < frames; f++ {
		for c := 0; c < channels; c++ {
			data[f*int64(channels)+int64(c)] = float32(f)
		}
	}
	return &memFile{rate: rate, channels: channels, data: data}
}

// constFile holds the same value in every sample.
func constFile(rate, channels int, frames int64, value float32) *memFile {
	data := make([]float32, frames*int64(channels))
	for i := range data {
		data[i] = value
	}
	return &memFile{rate: rate, channels: channels, data: data}
}

// constPart builds a multi-file part from constant-valued tracks, one
// file per variant and layer value, all stereo at 44100 Hz.
func constPart(t *testing.T, frames int64, variants, layers map[string]float32, variantOrder, layerOrder []string, loop *loopaudio.LoopPoints) *loopaudio.Part {
	t.Helper()
	var files []sndfile.File
	variantSet := loopaudio.TrackSet{}
	for _, name := range variantOrder {
		variantSet.Names = append(variantSet.Names, name)
		variantSet.Sources = append(variantSet.Sources, len(files))
		files = append(files, constFile(44100, 2, frames, variants[name]))
	}
	layerSet := loopaudio.TrackSet{}
	for _, name := range layerOrder {
		layerSet.Names = append(layerSet.Names, name)
		layerSet.Sources = append(layerSet.Sources, len(files))
		files = append(files, constFile(44100, 2, frames, layers[name]))
	}
	src, err := loopaudio.NewMultiFileSource(files)
	if err != nil {
		t.Fatalf("NewMultiFileSource error: %v", err)
	}
	part, err := loopaudio.NewPart("test", loopaudio.SongTags{}, src, variantSet, layerSet, loop)
	if err != nil {
		t.Fatalf("NewPart error: %v", err)
	}
	return part
}

// mixFirstSample rewinds the part, mixes one block and returns its
// first output sample.
func mixFirstSample(t *testing.T, part *loopaudio.Part) float32 {
	t.Helper()
	if err := part.SeekFrame(0); err != nil {
		t.Fatalf("SeekFrame error: %v", err)
	}
	block, err := part.ReadBlock(16)
	if err != nil {
		t.Fatalf("ReadBlock error: %v", err)
	}
	out := make([]float32, part.Frames(block)*part.Channels())
	part.Mix(out, block)
	return out[0]
}
