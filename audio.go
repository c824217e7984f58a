package loopaudio

// AudioSource is a pull-style source of interleaved float32 audio. The
// output device calls ReadAudio from its own real-time thread; the call
// must not block. It returns the number of samples written, io.EOF when
// the stream has ended, or another error when the stream has failed
// (an underflow aborts the stream rather than retrying).
type AudioSource interface {
	ReadAudio(buffer []float32) (n int, err error)
}

// AudioContext is the audio output device. Play attaches a source to
// the device and starts pulling from it.
type AudioContext interface {
	Play(source AudioSource) CloserWaiter
	SampleRate() int
	Close() error
}

// CloserWaiter is a handle to audio that is playing out. Wait blocks
// until the device has finished with the source; Close releases the
// device-side player.
type CloserWaiter interface {
	Close() error
	Wait()
}
