package loopaudio

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

const (
	// DefaultBlockSize is the number of frames moved through the
	// pipeline at one time.
	DefaultBlockSize = 2048
	// DefaultBufferDepth is the bounded queue's capacity in blocks.
	DefaultBufferDepth = 20
)

// Music owns a song's parts and plays at most one of them at a time.
// The pause flag and master volume live here and apply to whichever
// part is streaming; they are written by the control thread and read by
// the real-time callback, so they go through atomics. A value that is
// stale by one block only delays the change audibly, it cannot corrupt
// anything.
type Music struct {
	parts []*Part

	blockSize   int
	bufferDepth int
	log         zerolog.Logger

	mu         sync.Mutex
	nowPlaying *playback

	paused atomic.Bool
	volume atomic.Uint32 // float32 bits
}

// New builds a Music over the given parts. bufferDepth is the bounded
// queue capacity in blocks; zero means DefaultBufferDepth.
func New(parts []*Part, bufferDepth int) *Music {
	if bufferDepth <= 0 {
		bufferDepth = DefaultBufferDepth
	}
	m := &Music{
		parts:       parts,
		blockSize:   DefaultBlockSize,
		bufferDepth: bufferDepth,
		log:         zerolog.Nop(),
	}
	m.SetVolume(1)
	return m
}

// SetLogger directs the engine's stream lifecycle logging; the default
// is a no-op logger.
func (m *Music) SetLogger(log zerolog.Logger) { m.log = log }

// Parts returns the song's parts in order.
func (m *Music) Parts() []*Part { return m.parts }

// PartNames returns the parts' names in order. Names may be empty and
// need not be unique.
func (m *Music) PartNames() []string {
	names := make([]string, len(m.parts))
	for i, p := range m.parts {
		names[i] = p.Name
	}
	return names
}

// Find resolves a part by ordinal position (int) or by name (string).
// Name lookup returns the first part with that name, so lookups by name
// and by ordinal agree when several parts share one.
func (m *Music) Find(key any) (*Part, error) {
	switch k := key.(type) {
	case int:
		if k < 0 || k >= len(m.parts) {
			return nil, fmt.Errorf("part %v: no such part", k)
		}
		return m.parts[k], nil
	case string:
		for _, p := range m.parts {
			if p.Name == k {
				return p, nil
			}
		}
		return nil, fmt.Errorf("part %q: no such part", k)
	}
	return nil, fmt.Errorf("part key must be an ordinal or a name, got %T", key)
}

// Play streams the given part to the output device, blocking until the
// stream ends. Whatever was playing before is stopped first, and its
// producer has exited before the part is reseeked, so restarting a part
// never leaves two producers on one cursor. start is the initial
// playhead position in frames. progress, if non-nil, is invoked once
// per produced block from the producer goroutine; it must not call
// Stop or Play, which wait for that goroutine.
func (m *Music) Play(ctx AudioContext, key any, start int64, progress func()) error {
	part, err := m.Find(key)
	if err != nil {
		return err
	}
	if rate := ctx.SampleRate(); rate != part.SampleRate() {
		return fmt.Errorf("part plays at %v Hz but the output device runs at %v Hz", part.SampleRate(), rate)
	}
	m.Stop()
	if err := part.SeekFrame(start); err != nil {
		return err
	}
	pb := newPlayback(m, part, newBlockQueue(m.bufferDepth), m.blockSize)
	if err := pb.prefill(); err != nil {
		return err
	}
	m.mu.Lock()
	m.nowPlaying = pb
	m.mu.Unlock()
	pb.log.Info().Int64("start", start).Msg("stream starting")
	go pb.produce(progress)
	waiter := ctx.Play(pb)
	defer waiter.Close()
	err = pb.Wait()
	waiter.Wait()
	<-pb.producerDone
	m.mu.Lock()
	if m.nowPlaying == pb {
		m.nowPlaying = nil
	}
	m.mu.Unlock()
	return err
}

// PlayAsync is Play on a background goroutine. The returned channel
// receives the stream's final error (possibly nil) exactly once.
func (m *Music) PlayAsync(ctx AudioContext, key any, start int64, progress func()) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- m.Play(ctx, key, start, progress)
	}()
	return done
}

// NowPlaying returns the part currently streaming, or nil.
func (m *Music) NowPlaying() *Part {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.nowPlaying == nil {
		return nil
	}
	return m.nowPlaying.part
}

// Stop ends the current stream, if any, discarding whatever is queued.
// It returns only after the stream's producer goroutine has exited, so
// the part can be reseeked and restarted immediately.
func (m *Music) Stop() {
	m.mu.Lock()
	pb := m.nowPlaying
	m.nowPlaying = nil
	m.mu.Unlock()
	if pb != nil {
		pb.Stop()
		<-pb.producerDone
	}
}

// Paused reports whether playback is paused.
func (m *Music) Paused() bool { return m.paused.Load() }

// SetPaused pauses or resumes playback. A paused stream keeps running
// and emits silence; the queue contents are preserved.
func (m *Music) SetPaused(paused bool) { m.paused.Store(paused) }

// Volume returns the master volume multiplier.
func (m *Music) Volume() float32 {
	return math.Float32frombits(m.volume.Load())
}

// SetVolume sets the master volume multiplier applied after the mix.
func (m *Music) SetVolume(volume float32) {
	m.volume.Store(math.Float32bits(volume))
}

// Close stops playback and releases every part.
func (m *Music) Close() error {
	m.Stop()
	var first error
	for _, p := range m.parts {
		if err := p.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
