package sndfile

import (
	"fmt"
	"io"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/meta"
)

// flacFile decodes FLAC via mewkiz/flac. The decoder yields whole FLAC
// frames, so decoded-but-unconsumed samples are buffered between Read
// calls, and a SeekFrame lands on a frame boundary and skips forward to the
// exact target frame.
type flacFile struct {
	stream *flac.Stream
	tags   map[string]string
	scale  float32
	pos    int64
	buf    []float32 // decoded interleaved samples not yet consumed
}

func newFlacFile(r io.ReadSeeker) (File, error) {
	stream, err := flac.NewSeek(r)
	if err != nil {
		return nil, fmt.Errorf("flac: %w", err)
	}
	f := &flacFile{
		stream: stream,
		tags:   map[string]string{},
		scale:  1 / float32(int64(1)<<(stream.Info.BitsPerSample-1)),
	}
	for _, block := range stream.Blocks {
		if comment, ok := block.Body.(*meta.VorbisComment); ok {
			comments := make([]string, 0, len(comment.Tags))
			for _, tag := range comment.Tags {
				comments = append(comments, tag[0]+"="+tag[1])
			}
			f.tags = parseComments(comments)
		}
	}
	return f, nil
}

func (f *flacFile) SampleRate() int { return int(f.stream.Info.SampleRate) }
func (f *flacFile) Channels() int   { return int(f.stream.Info.NChannels) }
func (f *flacFile) Frames() int64   { return int64(f.stream.Info.NSamples) }
func (f *flacFile) Seekable() bool  { return true }

func (f *flacFile) Tags() map[string]string { return f.tags }

func (f *flacFile) SeekFrame(frame int64) (int64, error) {
	if frame < 0 {
		frame = 0
	}
	if frame > f.Frames() {
		frame = f.Frames()
	}
	landed, err := f.stream.Seek(uint64(frame))
	if err != nil {
		return f.pos, fmt.Errorf("flac: seek to frame %v: %w", frame, err)
	}
	f.buf = f.buf[:0]
	f.pos = int64(landed)
	// The decoder lands on the start of a FLAC frame at or before the
	// target; discard up to the exact frame.
	if skip := frame - f.pos; skip > 0 {
		if _, err := f.Read(int(skip)); err != nil {
			return f.pos, err
		}
	}
	return f.pos, nil
}

func (f *flacFile) Read(n int) ([]float32, error) {
	channels := f.Channels()
	want := n * channels
	for len(f.buf) < want {
		frame, err := f.stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("flac: cannot decode frame: %w", err)
		}
		frames := len(frame.Subframes[0].Samples)
		for i := 0; i < frames; i++ {
			for ch := 0; ch < channels; ch++ {
				f.buf = append(f.buf, float32(frame.Subframes[ch].Samples[i])*f.scale)
			}
		}
	}
	if want > len(f.buf) {
		want = len(f.buf) / channels * channels
	}
	out := make([]float32, want)
	copy(out, f.buf[:want])
	f.buf = f.buf[:copy(f.buf, f.buf[want:])]
	f.pos += int64(want / channels)
	return out, nil
}

func (f *flacFile) Close() error {
	return f.stream.Close()
}
