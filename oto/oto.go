// Package oto wraps the ebitengine/oto output device behind the
// loopaudio.AudioContext interface. The device pulls bytes from its own
// real-time thread; this package turns those pulls into float32
// AudioSource reads.
package oto

import (
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/loopaudio/loopaudio"
)

type (
	// Context wraps an oto device context at a fixed sample rate and
	// channel count.
	Context struct {
		context    *oto.Context
		sampleRate int
		channels   int
	}

	// Player streams one AudioSource through the device. It implements
	// loopaudio.CloserWaiter.
	Player struct {
		player *oto.Player
		reader *sourceReader
	}

	// sourceReader adapts an AudioSource to the io.Reader the device
	// pulls, converting float32 samples to little-endian bytes. The
	// device reads from a single goroutine, so no locking.
	sourceReader struct {
		source loopaudio.AudioSource
		buf    []float32
		err    error // source error held until buffered samples are delivered
		once   sync.Once
		done   chan struct{}
	}
)

// NewContext opens the audio device at the given sample rate and
// channel count, blocking until the device is ready.
func NewContext(sampleRate, channels int) (*Context, error) {
	context, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatFloat32LE,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot create oto context: %w", err)
	}
	<-ready
	return &Context{context: context, sampleRate: sampleRate, channels: channels}, nil
}

// SampleRate returns the device sample rate.
func (c *Context) SampleRate() int { return c.sampleRate }

// Channels returns the device channel count.
func (c *Context) Channels() int { return c.channels }

// Close suspends the device. The underlying oto context cannot be torn
// down, so a Context can be reused by calling Play again after Close.
func (c *Context) Close() error {
	return c.context.Suspend()
}

// Play starts pulling the source from the device's real-time thread.
func (c *Context) Play(source loopaudio.AudioSource) loopaudio.CloserWaiter {
	c.context.Resume()
	r := &sourceReader{source: source, done: make(chan struct{})}
	p := c.context.NewPlayer(r)
	p.Play()
	return &Player{player: p, reader: r}
}

func (r *sourceReader) Read(p []byte) (int, error) {
	if r.err != nil {
		r.once.Do(func() { close(r.done) })
		return 0, r.err
	}
	n := len(p) / 4
	if n == 0 {
		return 0, nil
	}
	if cap(r.buf) < n {
		r.buf = make([]float32, n)
	}
	got, err := r.source.ReadAudio(r.buf[:n])
	written := floatBufferToLEBytes(r.buf[:got], p)
	if err != nil {
		if got > 0 {
			// deliver what we have, report the error on the next pull
			r.err = err
			return written, nil
		}
		r.once.Do(func() { close(r.done) })
		return 0, err
	}
	return written, nil
}

// Wait blocks until the source has ended and the device has drained the
// samples it buffered.
func (p *Player) Wait() {
	<-p.reader.done
	for p.player.IsPlaying() && p.player.BufferedSize() > 0 {
		time.Sleep(time.Millisecond)
	}
}

// Close stops playback and releases the device player.
func (p *Player) Close() error {
	p.reader.once.Do(func() { close(p.reader.done) })
	return p.player.Close()
}
