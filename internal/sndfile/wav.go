package sndfile

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// wavFile is a hand-rolled RIFF/WAVE reader. A library decoder is of no
// use here: the loop splice needs frame-accurate seeks, and WAV data is
// just a flat array of fixed-size frames, so the reader is a mirror
// image of the header writer in audioexport.go.
type wavFile struct {
	r          io.ReadSeeker
	channels   int
	sampleRate int
	bitDepth   int
	float      bool
	dataStart  int64 // byte offset of the data chunk's payload
	frames     int64
	pos        int64 // current position in frames
	raw        []byte
}

const (
	waveFormatPCM        = 1
	waveFormatIEEEFloat  = 3
	waveFormatExtensible = 0xFFFE
)

func newWavFile(r io.ReadSeeker) (File, error) {
	var riff struct {
		ID     [4]byte
		Size   uint32
		Format [4]byte
	}
	if err := binary.Read(r, binary.LittleEndian, &riff); err != nil {
		return nil, fmt.Errorf("wav: cannot read RIFF header: %w", err)
	}
	if string(riff.ID[:]) != "RIFF" || string(riff.Format[:]) != "WAVE" {
		return nil, fmt.Errorf("wav: not a RIFF/WAVE file")
	}
	w := &wavFile{r: r}
	// Walk the chunk list; only "fmt " and "data" matter. Chunks are
	// word-aligned, so odd sizes carry one padding byte.
	for {
		var chunk struct {
			ID   [4]byte
			Size uint32
		}
		if err := binary.Read(r, binary.LittleEndian, &chunk); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				break
			}
			return nil, fmt.Errorf("wav: cannot read chunk header: %w", err)
		}
		size := int64(chunk.Size)
		switch string(chunk.ID[:]) {
		case "fmt ":
			if err := w.readFormatChunk(size); err != nil {
				return nil, err
			}
		case "data":
			pos, err := r.Seek(0, io.SeekCurrent)
			if err != nil {
				return nil, fmt.Errorf("wav: %w", err)
			}
			w.dataStart = pos
			if w.channels == 0 {
				return nil, fmt.Errorf("wav: data chunk before fmt chunk")
			}
			w.frames = size / int64(w.frameBytes())
			if _, err := r.Seek(size+size%2, io.SeekCurrent); err != nil {
				return nil, fmt.Errorf("wav: %w", err)
			}
		default:
			if _, err := r.Seek(size+size%2, io.SeekCurrent); err != nil {
				return nil, fmt.Errorf("wav: %w", err)
			}
		}
		if w.dataStart != 0 && w.channels != 0 {
			break
		}
	}
	if w.dataStart == 0 || w.channels == 0 {
		return nil, fmt.Errorf("wav: missing fmt or data chunk")
	}
	if _, err := w.r.Seek(w.dataStart, io.SeekStart); err != nil {
		return nil, fmt.Errorf("wav: %w", err)
	}
	return w, nil
}

func (w *wavFile) readFormatChunk(size int64) error {
	var f struct {
		Format        uint16
		Channels      uint16
		SampleRate    uint32
		ByteRate      uint32
		BlockAlign    uint16
		BitsPerSample uint16
	}
	if err := binary.Read(w.r, binary.LittleEndian, &f); err != nil {
		return fmt.Errorf("wav: cannot read fmt chunk: %w", err)
	}
	format := f.Format
	rest := size - 16
	if format == waveFormatExtensible && rest >= 24 {
		// cbSize, valid bits, channel mask, then the subformat GUID
		// whose first two bytes are the actual format code.
		var ext struct {
			CbSize      uint16
			ValidBits   uint16
			ChannelMask uint32
			SubFormat   uint16
		}
		if err := binary.Read(w.r, binary.LittleEndian, &ext); err != nil {
			return fmt.Errorf("wav: cannot read extensible fmt chunk: %w", err)
		}
		format = ext.SubFormat
		rest -= 10
	}
	if rest > 0 {
		if _, err := w.r.Seek(rest+rest%2, io.SeekCurrent); err != nil {
			return fmt.Errorf("wav: %w", err)
		}
	}
	switch format {
	case waveFormatPCM:
	case waveFormatIEEEFloat:
		w.float = true
	default:
		return fmt.Errorf("wav: unsupported wave format %v", format)
	}
	w.channels = int(f.Channels)
	w.sampleRate = int(f.SampleRate)
	w.bitDepth = int(f.BitsPerSample)
	switch w.bitDepth {
	case 8, 16, 24, 32:
	default:
		return fmt.Errorf("wav: unsupported bit depth %v", w.bitDepth)
	}
	if w.float && w.bitDepth != 32 {
		return fmt.Errorf("wav: unsupported float bit depth %v", w.bitDepth)
	}
	return nil
}

func (w *wavFile) frameBytes() int { return w.channels * w.bitDepth / 8 }

func (w *wavFile) SampleRate() int { return w.sampleRate }
func (w *wavFile) Channels() int   { return w.channels }
func (w *wavFile) Frames() int64   { return w.frames }
func (w *wavFile) Seekable() bool  { return true }

func (w *wavFile) Tags() map[string]string {
	// RIFF has no vorbis comments; loop tags only ever arrive via the
	// sidecar for WAV sources.
	return map[string]string{}
}

func (w *wavFile) SeekFrame(frame int64) (int64, error) {
	if frame < 0 {
		frame = 0
	}
	if frame > w.frames {
		frame = w.frames
	}
	if _, err := w.r.Seek(w.dataStart+frame*int64(w.frameBytes()), io.SeekStart); err != nil {
		return w.pos, fmt.Errorf("wav: %w", err)
	}
	w.pos = frame
	return w.pos, nil
}

func (w *wavFile) Read(n int) ([]float32, error) {
	if remaining := w.frames - w.pos; int64(n) > remaining {
		n = int(remaining)
	}
	if n <= 0 {
		return nil, nil
	}
	nbytes := n * w.frameBytes()
	if cap(w.raw) < nbytes {
		w.raw = make([]byte, nbytes)
	}
	raw := w.raw[:nbytes]
	if _, err := io.ReadFull(w.r, raw); err != nil {
		return nil, fmt.Errorf("wav: cannot read frames: %w", err)
	}
	out := make([]float32, n*w.channels)
	switch {
	case w.float:
		for i := range out {
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:]))
		}
	case w.bitDepth == 8:
		// 8-bit wav is unsigned
		for i := range out {
			out[i] = (float32(raw[i]) - 128) / 128
		}
	case w.bitDepth == 16:
		for i := range out {
			out[i] = float32(int16(binary.LittleEndian.Uint16(raw[2*i:]))) / (1 << 15)
		}
	case w.bitDepth == 24:
		for i := range out {
			v := int32(raw[3*i]) | int32(raw[3*i+1])<<8 | int32(raw[3*i+2])<<16
			out[i] = float32(v<<8>>8) / (1 << 23)
		}
	case w.bitDepth == 32:
		for i := range out {
			out[i] = float32(int32(binary.LittleEndian.Uint32(raw[4*i:]))) / (1 << 31)
		}
	}
	w.pos += int64(n)
	return out, nil
}

func (w *wavFile) Close() error {
	return closeIfCloser(w.r)
}
