package loopaudio

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/viterin/vek/vek32"
)

// ErrUnderflow is returned by a stream whose real-time consumer found
// the queue empty before the producer pushed its end-of-stream
// sentinel. It is fatal to that stream only: retrying would already
// have missed the real-time deadline, so the stream aborts and the
// control thread decides whether to restart playback.
var ErrUnderflow = errors.New("audio buffer underflow: increase the buffer depth?")

// playback is one streaming session of one part: a producer goroutine
// computing loop-spliced blocks into the bounded queue, and a consumer
// (ReadAudio, pulled by the output device from its real-time thread)
// mixing them down. Exactly one of each per session.
type playback struct {
	music     *Music
	part      *Part
	queue     *blockQueue
	blockSize int
	channels  int

	stopped  atomic.Bool
	draining bool      // consumer-side: short block delivered, end on next pull
	scratch  []float32 // mixed output for one block
	pending  []float32 // mixed samples the device has not pulled yet

	err          error
	finishOnce   sync.Once
	finished     chan struct{}
	producerDone chan struct{}
	log          zerolog.Logger
}

func newPlayback(m *Music, part *Part, queue *blockQueue, blockSize int) *playback {
	return &playback{
		music:        m,
		part:         part,
		queue:        queue,
		blockSize:    blockSize,
		channels:     part.Channels(),
		scratch:      make([]float32, blockSize*part.Channels()),
		finished:     make(chan struct{}),
		producerDone: make(chan struct{}),
		log:          m.log.With().Str("part", part.Name).Logger(),
	}
}

// prefill loads the queue synchronously up to its capacity, stopping
// early when the source runs out, so the real-time consumer starts
// against a full buffer.
func (pb *playback) prefill() error {
	for i := 0; i < pb.queue.Cap(); i++ {
		block, err := pb.part.ReadBlock(pb.blockSize)
		if err != nil {
			return err
		}
		frames := pb.part.Frames(block)
		if frames == 0 {
			break
		}
		pb.queue.Push(block)
		if frames < pb.blockSize {
			break
		}
	}
	return nil
}

// produce computes blocks until the part ends or the stream is stopped,
// blocking on the queue under backpressure. One empty sentinel block
// always terminates the queue contents: pushed in place of everything
// buffered on stop, appended after the last short block on natural end.
// producerDone closes when produce returns; the part's cursor must not
// be touched again until it has.
func (pb *playback) produce(progress func()) {
	defer close(pb.producerDone)
	for !pb.stopped.Load() {
		if progress != nil {
			progress()
		}
		block, err := pb.part.ReadBlock(pb.blockSize)
		if err != nil {
			pb.log.Error().Err(err).Msg("stream producer failed")
			pb.setErr(err)
			pb.queue.Flush(pb.emptyBlock())
			return
		}
		if !pb.queue.Push(block) {
			return // consumer is gone
		}
		if pb.part.Frames(block) == 0 {
			pb.log.Debug().Msg("source exhausted")
			return
		}
	}
	pb.queue.Flush(pb.emptyBlock())
}

// emptyBlock returns a zero-frame block shaped like the part's backend
// produces, used as the end-of-stream sentinel.
func (pb *playback) emptyBlock() Block {
	block, err := pb.part.ReadBlock(0)
	if err != nil {
		return Block{nil}
	}
	return block
}

// ReadAudio is the real-time consumer, pulled by the output device. It
// never blocks: pausing emits silence without touching the queue, and
// an empty queue without a sentinel aborts the stream with
// ErrUnderflow.
func (pb *playback) ReadAudio(buffer []float32) (int, error) {
	if pb.stopped.Load() {
		pb.finish(nil)
		return 0, io.EOF
	}
	if pb.music.Paused() {
		vek32.Zeros_Into(buffer, len(buffer))
		return len(buffer), nil
	}
	if len(pb.pending) == 0 {
		if pb.draining {
			pb.finish(nil)
			return 0, io.EOF
		}
		block, ok := pb.queue.TryPop()
		if !ok {
			pb.finish(ErrUnderflow)
			return 0, ErrUnderflow
		}
		frames := pb.part.Frames(block)
		if frames == 0 {
			pb.finish(nil)
			return 0, io.EOF
		}
		out := pb.scratch[:frames*pb.channels]
		pb.part.Mix(out, block)
		if volume := pb.music.Volume(); volume != 1 {
			vek32.MulNumber_Inplace(out, volume)
		}
		if frames < pb.blockSize {
			pb.draining = true
		}
		pb.pending = out
	}
	n := copy(buffer, pb.pending)
	pb.pending = pb.pending[n:]
	return n, nil
}

// Stop requests the stream to end. The consumer observes the flag on
// its next pull; finishing the stream here also closes the queue, so a
// producer blocked under backpressure exits without waiting for the
// device.
func (pb *playback) Stop() {
	pb.stopped.Store(true)
	pb.setErr(nil)
}

func (pb *playback) setErr(err error) {
	pb.finishOnce.Do(func() {
		pb.err = err
		close(pb.finished)
		pb.queue.Close()
	})
}

func (pb *playback) finish(err error) {
	pb.setErr(err)
	if err != nil {
		pb.log.Error().Err(err).Msg("stream aborted")
	}
}

// Wait blocks until the stream has ended and returns the error that
// ended it, if any.
func (pb *playback) Wait() error {
	<-pb.finished
	return pb.err
}
