package loopaudio_test

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/loopaudio/loopaudio"
)

func TestBits(t *testing.T) {
	var tests = []struct {
		mask uint64
		n    int
		want []bool
	}{
		{0, 0, []bool{}},
		{0, 3, []bool{false, false, false}},
		{0b1, 3, []bool{true, false, false}},
		{0b101, 3, []bool{true, false, true}},
		{0b101, 5, []bool{true, false, true, false, false}},
		{0b111111, 2, []bool{true, true}},
	}
	for i, tt := range tests {
		t.Run(fmt.Sprintf("TestBits %d", i), func(t *testing.T) {
			got := loopaudio.Bits(tt.mask, tt.n)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Bits(%b, %v) got %v, want %v", tt.mask, tt.n, got, tt.want)
			}
		})
	}
}

func TestLoopPointsValidate(t *testing.T) {
	var tests = []struct {
		loop    loopaudio.LoopPoints
		frames  int64
		wantErr bool
	}{
		{loopaudio.LoopPoints{Start: 0, End: 10}, 10, false},
		{loopaudio.LoopPoints{Start: 9, End: 10}, 10, false},
		{loopaudio.LoopPoints{Start: -1, End: 10}, 10, true},
		{loopaudio.LoopPoints{Start: 5, End: 5}, 10, true},
		{loopaudio.LoopPoints{Start: 6, End: 5}, 10, true},
		{loopaudio.LoopPoints{Start: 0, End: 11}, 10, true},
	}
	for i, tt := range tests {
		t.Run(fmt.Sprintf("TestLoopPointsValidate %d", i), func(t *testing.T) {
			err := tt.loop.Validate(tt.frames)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate(%v) over %v frames: got error %v, wantErr %v", tt.loop, tt.frames, err, tt.wantErr)
			}
		})
	}
}
