package loopaudio

import (
	"fmt"

	"github.com/loopaudio/loopaudio/internal/sndfile"
)

// interleavedSource backs every track of a part with a fixed, disjoint
// run of channels inside one interleaved file: track t owns channels
// [t*channelsPerTrack, (t+1)*channelsPerTrack).
type interleavedSource struct {
	file             sndfile.File
	channelsPerTrack int
	mixed            []float32
}

// NewInterleavedSource wraps a single multi-channel file as a source
// backend. channelsPerTrack defaults to stereo pairs when zero. The
// file's channel count must be an exact multiple of channelsPerTrack.
func NewInterleavedSource(file sndfile.File, channelsPerTrack int) (SourceBackend, error) {
	if channelsPerTrack <= 0 {
		channelsPerTrack = 2
	}
	if file.Channels()%channelsPerTrack != 0 {
		return nil, fmt.Errorf("%v channels cannot be split into tracks of %v", file.Channels(), channelsPerTrack)
	}
	return &interleavedSource{file: file, channelsPerTrack: channelsPerTrack}, nil
}

// TrackCount returns the number of channel groups the file holds.
func (s *interleavedSource) TrackCount() int {
	return s.file.Channels() / s.channelsPerTrack
}

func (s *interleavedSource) SampleRate() int   { return s.file.SampleRate() }
func (s *interleavedSource) Channels() int     { return s.channelsPerTrack }
func (s *interleavedSource) FrameCount() int64 { return s.file.Frames() }
func (s *interleavedSource) Seekable() bool    { return s.file.Seekable() }

func (s *interleavedSource) SeekFrame(frame int64) (int64, error) {
	if frame < 0 {
		frame += s.file.Frames()
	}
	return s.file.SeekFrame(frame)
}

func (s *interleavedSource) ReadFrames(n int) (Block, error) {
	data, err := s.file.Read(n)
	if err != nil {
		return nil, err
	}
	return Block{data}, nil
}

func (s *interleavedSource) Frames(b Block) int {
	return len(b[0]) / s.file.Channels()
}

func (s *interleavedSource) Concat(a, b Block) Block {
	return Block{append(a[0], b[0]...)}
}

func (s *interleavedSource) Mix(dst []float32, b Block, tracks []*TrackState) {
	data := b[0]
	in := s.file.Channels()
	out := s.channelsPerTrack
	frames := len(data) / in
	for i := range dst[:frames*out] {
		dst[i] = 0
	}
	for _, t := range tracks {
		gain := t.Gain()
		if gain == 0 {
			continue
		}
		base := t.Source * out
		for f := 0; f < frames; f++ {
			src := data[f*in+base:]
			sum := dst[f*out:]
			for c := 0; c < out; c++ {
				sum[c] += src[c] * gain
			}
		}
	}
	clip(dst[:frames*out])
}

func (s *interleavedSource) Close() error {
	return s.file.Close()
}
