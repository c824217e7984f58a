// Package sndfile reads audio files as interleaved float32 frames.
//
// It supports WAV (integer and float PCM), FLAC and Ogg Vorbis, picked
// by magic bytes. All readers present the same File contract: frame
// counts and positions are in frames (one sample per channel), reads
// past the end return short slices, a read exactly at the end returns
// an empty slice, and neither is an error.
package sndfile

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// File is one opened audio source.
type File interface {
	// SampleRate returns the sample rate in hertz.
	SampleRate() int
	// Channels returns the number of interleaved channels per frame.
	Channels() int
	// Frames returns the total length of the file in frames.
	Frames() int64
	// Seekable reports whether SeekFrame works on this file.
	Seekable() bool
	// SeekFrame sets the read position to the given frame and returns
	// the resulting position.
	SeekFrame(frame int64) (int64, error)
	// Read decodes up to n frames from the current position into a
	// freshly sliced interleaved buffer.
	Read(n int) ([]float32, error)
	// Tags returns the file's vorbis-comment style metadata with
	// lowercased keys. Formats without comment metadata return an
	// empty map.
	Tags() map[string]string
	// Close releases the file.
	Close() error
}

// Open opens the audio file at path, sniffing the format from its
// first bytes.
func Open(path string) (File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	file, err := Decode(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%v: %w", path, err)
	}
	return file, nil
}

// Decode reads an audio stream from r. WAV and FLAC require r to be an
// io.ReadSeeker; Ogg Vorbis accepts a plain reader, in which case the
// resulting File is not seekable. If r is an io.Closer it is closed
// along with the File.
func Decode(r io.Reader) (File, error) {
	magic, r, err := peekMagic(r)
	if err != nil {
		return nil, fmt.Errorf("cannot read magic bytes: %w", err)
	}
	switch magic {
	case "RIFF":
		rs, ok := r.(io.ReadSeeker)
		if !ok {
			return nil, fmt.Errorf("wav: source is not seekable")
		}
		return newWavFile(rs)
	case "fLaC":
		rs, ok := r.(io.ReadSeeker)
		if !ok {
			return nil, fmt.Errorf("flac: source is not seekable")
		}
		return newFlacFile(rs)
	case "OggS":
		return newVorbisFile(r)
	}
	return nil, fmt.Errorf("unsupported audio format (magic %q)", magic)
}

// peekMagic reads the first four bytes and rewinds. A non-seekable
// reader is wrapped so the magic bytes are replayed.
func peekMagic(r io.Reader) (string, io.Reader, error) {
	var magic [4]byte
	if rs, ok := r.(io.ReadSeeker); ok {
		if _, err := io.ReadFull(rs, magic[:]); err != nil {
			return "", r, err
		}
		if _, err := rs.Seek(0, io.SeekStart); err != nil {
			return "", r, err
		}
		return string(magic[:]), rs, nil
	}
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return "", r, err
	}
	return string(magic[:]), &replayReader{head: magic[:], tail: r}, nil
}

type replayReader struct {
	head []byte
	tail io.Reader
}

func (r *replayReader) Read(p []byte) (int, error) {
	if len(r.head) > 0 {
		n := copy(p, r.head)
		r.head = r.head[n:]
		return n, nil
	}
	return r.tail.Read(p)
}

// parseComments turns "KEY=value" vorbis comments into a lowercase-key
// map. Later duplicates win; multi-valued tags are rare enough that the
// engine does not model them.
func parseComments(comments []string) map[string]string {
	tags := make(map[string]string, len(comments))
	for _, c := range comments {
		key, value, ok := strings.Cut(c, "=")
		if !ok {
			continue
		}
		tags[strings.ToLower(key)] = value
	}
	return tags
}

func closeIfCloser(r io.Reader) error {
	if c, ok := r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
