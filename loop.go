package loopaudio

import "fmt"

type (
	// LoopPoints delimit the looping section of a song part, in frames
	// from the start of the source. Playback proceeds from the beginning
	// to End and then repeats the section from Start to End indefinitely.
	// A part without loop points plays once to the end of the source.
	LoopPoints struct {
		Start int64
		End   int64
	}
)

// Validate checks the loop points against the length of the source in
// frames. The looping section must be non-empty and lie within the
// source.
func (l LoopPoints) Validate(frames int64) error {
	if l.Start < 0 || l.Start >= l.End || l.End > frames {
		return fmt.Errorf("loop points %v..%v do not fit a source of %v frames", l.Start, l.End, frames)
	}
	return nil
}

// Bits returns the n least significant bits of mask, least significant
// first. Bits beyond the width of the mask read as false, so a short
// mask simply leaves the remaining layers disabled.
func Bits(mask uint64, n int) []bool {
	bits := make([]bool, n)
	for i := range bits {
		bits[i] = mask&1 != 0
		mask >>= 1
	}
	return bits
}
