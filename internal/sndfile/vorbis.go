package sndfile

import (
	"fmt"
	"io"

	"github.com/jfreymuth/oggvorbis"
)

// vorbisFile decodes Ogg Vorbis via jfreymuth/oggvorbis, which already
// yields interleaved float32. Vorbis is the one format the engine can
// consume from a non-seekable stream; doing so disables looping
// upstream instead of failing.
type vorbisFile struct {
	src      io.Reader
	r        *oggvorbis.Reader
	tags     map[string]string
	seekable bool
}

func newVorbisFile(r io.Reader) (File, error) {
	dec, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("vorbis: %w", err)
	}
	_, seekable := r.(io.Seeker)
	return &vorbisFile{
		src:      r,
		r:        dec,
		tags:     parseComments(dec.CommentHeader().Comments),
		seekable: seekable,
	}, nil
}

func (v *vorbisFile) SampleRate() int { return v.r.SampleRate() }
func (v *vorbisFile) Channels() int   { return v.r.Channels() }
func (v *vorbisFile) Frames() int64   { return v.r.Length() }
func (v *vorbisFile) Seekable() bool  { return v.seekable }

func (v *vorbisFile) Tags() map[string]string { return v.tags }

func (v *vorbisFile) SeekFrame(frame int64) (int64, error) {
	if !v.seekable {
		return v.r.Position(), fmt.Errorf("vorbis: source is not seekable")
	}
	if frame < 0 {
		frame = 0
	}
	if frame > v.r.Length() {
		frame = v.r.Length()
	}
	if err := v.r.SetPosition(frame); err != nil {
		return v.r.Position(), fmt.Errorf("vorbis: seek to frame %v: %w", frame, err)
	}
	return frame, nil
}

func (v *vorbisFile) Read(n int) ([]float32, error) {
	out := make([]float32, n*v.r.Channels())
	read := 0
	for read < len(out) {
		m, err := v.r.Read(out[read:])
		read += m
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("vorbis: cannot decode: %w", err)
		}
	}
	return out[:read/v.r.Channels()*v.r.Channels()], nil
}

func (v *vorbisFile) Close() error {
	return closeIfCloser(v.src)
}
