package loopaudio

import (
	"errors"
	"fmt"

	"github.com/viterin/vek/vek32"

	"github.com/loopaudio/loopaudio/internal/sndfile"
)

// multiFileSource backs every track of a part with its own file. The
// files play in lockstep: every read pulls the same frame range from
// each of them, every seek repositions all of them identically.
type multiFileSource struct {
	files   []sndfile.File
	scratch []float32
}

// NewMultiFileSource wraps one file per track as a source backend. The
// files must agree on sample rate, channel count and frame count;
// tolerating a mismatch would silently produce a misaligned mix.
func NewMultiFileSource(files []sndfile.File) (SourceBackend, error) {
	if len(files) == 0 {
		return nil, errors.New("a multi-file source needs at least one file")
	}
	first := files[0]
	for _, f := range files[1:] {
		if f.SampleRate() != first.SampleRate() || f.Channels() != first.Channels() || f.Frames() != first.Frames() {
			return nil, fmt.Errorf("track files do not match: %v Hz/%v ch/%v frames vs %v Hz/%v ch/%v frames",
				f.SampleRate(), f.Channels(), f.Frames(),
				first.SampleRate(), first.Channels(), first.Frames())
		}
	}
	return &multiFileSource{files: files}, nil
}

func (s *multiFileSource) SampleRate() int   { return s.files[0].SampleRate() }
func (s *multiFileSource) Channels() int     { return s.files[0].Channels() }
func (s *multiFileSource) FrameCount() int64 { return s.files[0].Frames() }

func (s *multiFileSource) Seekable() bool {
	for _, f := range s.files {
		if !f.Seekable() {
			return false
		}
	}
	return true
}

func (s *multiFileSource) SeekFrame(frame int64) (int64, error) {
	if frame < 0 {
		frame += s.FrameCount()
	}
	pos := int64(0)
	for _, f := range s.files {
		var err error
		if pos, err = f.SeekFrame(frame); err != nil {
			return pos, err
		}
	}
	return pos, nil
}

func (s *multiFileSource) ReadFrames(n int) (Block, error) {
	block := make(Block, len(s.files))
	for i, f := range s.files {
		data, err := f.Read(n)
		if err != nil {
			return nil, err
		}
		block[i] = data
	}
	return block, nil
}

func (s *multiFileSource) Frames(b Block) int {
	return len(b[0]) / s.Channels()
}

func (s *multiFileSource) Concat(a, b Block) Block {
	joined := make(Block, len(a))
	for i := range a {
		joined[i] = append(a[i], b[i]...)
	}
	return joined
}

func (s *multiFileSource) Mix(dst []float32, b Block, tracks []*TrackState) {
	samples := s.Frames(b) * s.Channels()
	dst = vek32.Zeros_Into(dst, samples)
	s.scratch = ensureLen(s.scratch, samples)
	for _, t := range tracks {
		gain := t.Gain()
		if gain == 0 {
			continue
		}
		vek32.MulNumber_Into(s.scratch, b[t.Source][:samples], gain)
		vek32.Add_Inplace(dst, s.scratch)
	}
	clip(dst)
}

func (s *multiFileSource) Close() error {
	var first error
	for _, f := range s.files {
		if err := f.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
