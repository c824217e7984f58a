package loopaudio

// Block is one engine block of audio: one interleaved float32 buffer
// per source file. The single-interleaved backend always produces a
// one-element Block holding 2*trackCount channels per frame; the
// multi-file backend produces one element per track file. Blocks are
// produced on the producer thread and consumed, via Mix, on the
// real-time thread; they are never shared after handoff.
type Block [][]float32

// SourceBackend is the capability contract the streaming engine is
// parameterized over: "read N frames starting at the current position"
// over either one multi-channel file or several synchronized files.
// The backend is chosen once at construction; the engine never switches
// data shapes mid-stream.
//
// Reading past the end of the source returns a block shorter than
// requested, and reading exactly at the end returns an empty block;
// neither is an error.
type SourceBackend interface {
	// SampleRate returns the source's sample rate in hertz.
	SampleRate() int
	// Channels returns the number of channels per track.
	Channels() int
	// FrameCount returns the length of the source in frames.
	FrameCount() int64
	// Seekable reports whether SeekFrame works. A non-seekable source
	// cannot loop.
	Seekable() bool
	// SeekFrame repositions the source. A negative frame seeks from the
	// end of the source. Returns the resulting position.
	SeekFrame(frame int64) (int64, error)
	// ReadFrames reads up to n frames from the current position.
	ReadFrames(n int) (Block, error)
	// Frames returns the number of frames held by a block previously
	// read from this backend.
	Frames(b Block) int
	// Concat joins two blocks read from this backend into one.
	Concat(a, b Block) Block
	// Mix scales every track by its current gain, sums them sample-wise
	// into dst and clips the result to [-1, 1]. dst must hold
	// Frames(b)*Channels() samples. This is the only consumer of track
	// gains and runs once per block on the real-time path, so it must
	// not allocate beyond its pre-sized scratch.
	Mix(dst []float32, b Block, tracks []*TrackState)
	// Close releases the underlying file(s).
	Close() error
}

// clip limits every sample to [-1, 1]. Summing tracks can exceed full
// scale; the output device expects it not to.
func clip(buf []float32) {
	for i, v := range buf {
		if v > 1 {
			buf[i] = 1
		} else if v < -1 {
			buf[i] = -1
		}
	}
}

func ensureLen(buf []float32, n int) []float32 {
	if cap(buf) < n {
		return make([]float32, n)
	}
	return buf[:n]
}
