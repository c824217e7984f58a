package loopaudio_test

import (
	"errors"
	"reflect"
	"sort"
	"testing"

	"github.com/loopaudio/loopaudio"
	"github.com/loopaudio/loopaudio/internal/sndfile"
)

func rampPart(t *testing.T, frames int64, loop *loopaudio.LoopPoints) *loopaudio.Part {
	t.Helper()
	src, err := loopaudio.NewInterleavedSource(rampFile(44100, 2, frames), 2)
	if err != nil {
		t.Fatalf("NewInterleavedSource error: %v", err)
	}
	part, err := loopaudio.NewPart("ramp", loopaudio.SongTags{}, src,
		loopaudio.TrackSet{Sources: []int{0}}, loopaudio.TrackSet{}, loop)
	if err != nil {
		t.Fatalf("NewPart error: %v", err)
	}
	return part
}

// frameAt returns the frame number encoded into sample f of a stereo
// ramp block.
func frameAt(block loopaudio.Block, f int) float32 {
	return block[0][2*f]
}

func TestReadBlockLoopSplice(t *testing.T) {
	part := rampPart(t, 6000, &loopaudio.LoopPoints{Start: 1000, End: 5000})
	var blocks []loopaudio.Block
	for i := 0; i < 3; i++ {
		block, err := part.ReadBlock(2048)
		if err != nil {
			t.Fatalf("ReadBlock %v error: %v", i, err)
		}
		if got := part.Frames(block); got != 2048 {
			t.Fatalf("block %v holds %v frames, want 2048", i, got)
		}
		blocks = append(blocks, block)
	}
	// the third block crosses the loop seam at frame 5000
	third := blocks[2]
	if got := frameAt(third, 0); got != 4096 {
		t.Errorf("third block starts at frame %v, want 4096", got)
	}
	if got := frameAt(third, 903); got != 4999 {
		t.Errorf("last frame before the seam is %v, want 4999", got)
	}
	if got := frameAt(third, 904); got != 1000 {
		t.Errorf("first frame after the seam is %v, want 1000", got)
	}
	if got := frameAt(third, 2047); got != 2143 {
		t.Errorf("third block ends at frame %v, want 2143", got)
	}
	if got := part.Position(); got != 2144 {
		t.Errorf("position after the splice is %v, want 2144", got)
	}
}

func TestReadBlockSeamAtBlockBoundary(t *testing.T) {
	part := rampPart(t, 4096, &loopaudio.LoopPoints{Start: 0, End: 4096})
	for i := 0; i < 2; i++ {
		if _, err := part.ReadBlock(2048); err != nil {
			t.Fatalf("ReadBlock %v error: %v", i, err)
		}
	}
	// remaining == 0: the next block comes entirely from the loop start
	block, err := part.ReadBlock(2048)
	if err != nil {
		t.Fatalf("ReadBlock error: %v", err)
	}
	if got := part.Frames(block); got != 2048 {
		t.Fatalf("block holds %v frames, want 2048", got)
	}
	if got := frameAt(block, 0); got != 0 {
		t.Errorf("block after the seam starts at frame %v, want 0", got)
	}
}

func TestReadBlockNonLoopingEnd(t *testing.T) {
	part := rampPart(t, 6000, nil)
	wantFrames := []int{2048, 2048, 1904, 0}
	for i, want := range wantFrames {
		block, err := part.ReadBlock(2048)
		if err != nil {
			t.Fatalf("ReadBlock %v error: %v", i, err)
		}
		if got := part.Frames(block); got != want {
			t.Fatalf("block %v holds %v frames, want %v", i, got, want)
		}
	}
	if got := part.Position(); got != 6000 {
		t.Errorf("position after the end is %v, want 6000", got)
	}
}

func TestLoopPointsOutsideSource(t *testing.T) {
	src, err := loopaudio.NewInterleavedSource(rampFile(44100, 2, 100), 2)
	if err != nil {
		t.Fatalf("NewInterleavedSource error: %v", err)
	}
	_, err = loopaudio.NewPart("bad", loopaudio.SongTags{}, src,
		loopaudio.TrackSet{Sources: []int{0}}, loopaudio.TrackSet{},
		&loopaudio.LoopPoints{Start: 0, End: 101})
	if err == nil {
		t.Fatalf("expected an error for loop points outside the source")
	}
}

func TestUnseekableSourceDisablesLooping(t *testing.T) {
	file := rampFile(44100, 2, 100)
	file.unseekable = true
	src, err := loopaudio.NewInterleavedSource(file, 2)
	if err != nil {
		t.Fatalf("NewInterleavedSource error: %v", err)
	}
	part, err := loopaudio.NewPart("stream", loopaudio.SongTags{}, src,
		loopaudio.TrackSet{Sources: []int{0}}, loopaudio.TrackSet{},
		&loopaudio.LoopPoints{Start: 10, End: 90})
	if err != nil {
		t.Fatalf("NewPart error: %v", err)
	}
	if part.Looping() || part.Loop() != nil {
		t.Errorf("an unseekable source must not loop")
	}
	if got := part.Length(); got != 100 {
		t.Errorf("Length() got %v, want the full source length 100", got)
	}
}

func TestVariantExclusivity(t *testing.T) {
	part := constPart(t, 100,
		map[string]float32{"calm": 0.25, "battle": 0.5},
		map[string]float32{"drums": 0.125},
		[]string{"calm", "battle"}, []string{"drums"}, nil)
	if got := part.Variant(); got != "calm" {
		t.Fatalf("initial variant is %v, want calm", got)
	}
	if got := mixFirstSample(t, part); got != 0.25 {
		t.Errorf("initial mix got %v, want 0.25", got)
	}
	if err := part.SetVariant("battle"); err != nil {
		t.Fatalf("SetVariant error: %v", err)
	}
	if got := mixFirstSample(t, part); got != 0.5 {
		t.Errorf("mix after switching variants got %v, want 0.5: the previous variant must be silenced", got)
	}
	// variants are also addressable by ordinal
	if err := part.SetVariant(0); err != nil {
		t.Fatalf("SetVariant by ordinal error: %v", err)
	}
	if got := part.Variant(); got != "calm" {
		t.Errorf("variant after ordinal switch is %v, want calm", got)
	}
}

func TestSetVariantUnknown(t *testing.T) {
	part := constPart(t, 100,
		map[string]float32{"calm": 0.25, "battle": 0.5}, nil,
		[]string{"calm", "battle"}, nil, nil)
	err := part.SetVariant("nonexistent")
	if !errors.Is(err, loopaudio.ErrNoSuchTrack) {
		t.Fatalf("SetVariant(nonexistent) got %v, want ErrNoSuchTrack", err)
	}
	if got := part.Variant(); got != "calm" {
		t.Errorf("variant after a failed switch is %v, want calm", got)
	}
	if got := mixFirstSample(t, part); got != 0.25 {
		t.Errorf("mix after a failed switch got %v, want 0.25: the previous variant must keep playing", got)
	}
}

func TestLayers(t *testing.T) {
	part := constPart(t, 100, nil,
		map[string]float32{"x": 0.1, "y": 0.2, "z": 0.4},
		nil, []string{"x", "y", "z"}, nil)
	if got := mixFirstSample(t, part); got != 0 {
		t.Fatalf("mix with no layers got %v, want 0", got)
	}
	if err := part.AddLayer("x"); err != nil {
		t.Fatalf("AddLayer error: %v", err)
	}
	if err := part.AddLayer("z"); err != nil {
		t.Fatalf("AddLayer error: %v", err)
	}
	if got := mixFirstSample(t, part); got != 0.5 {
		t.Errorf("mix with layers x+z got %v, want 0.5", got)
	}
	if err := part.RemoveLayer("z"); err != nil {
		t.Fatalf("RemoveLayer error: %v", err)
	}
	if got := mixFirstSample(t, part); got != 0.1 {
		t.Errorf("mix with layer x got %v, want 0.1", got)
	}
	if err := part.SetLayerGain("x", 0.5); err != nil {
		t.Fatalf("SetLayerGain error: %v", err)
	}
	if got := mixFirstSample(t, part); got != 0.05 {
		t.Errorf("mix with layer x at half gain got %v, want 0.05", got)
	}
}

func activeLayerNames(part *loopaudio.Part) []string {
	var names []string
	for _, id := range part.ActiveLayers() {
		names = append(names, id.(string))
	}
	sort.Strings(names)
	return names
}

func TestSetLayerBits(t *testing.T) {
	part := constPart(t, 100, nil,
		map[string]float32{"x": 0.1, "y": 0.2, "z": 0.4},
		nil, []string{"x", "y", "z"}, nil)
	if err := part.SetLayerBits(0b101); err != nil {
		t.Fatalf("SetLayerBits error: %v", err)
	}
	if got := activeLayerNames(part); !reflect.DeepEqual(got, []string{"x", "z"}) {
		t.Errorf("active layers got %v, want [x z]", got)
	}
	if got := mixFirstSample(t, part); got != 0.5 {
		t.Errorf("mix got %v, want 0.5", got)
	}
	// a short mask disables the layers beyond it
	if err := part.SetLayerBits(0b010); err != nil {
		t.Fatalf("SetLayerBits error: %v", err)
	}
	if got := activeLayerNames(part); !reflect.DeepEqual(got, []string{"y"}) {
		t.Errorf("active layers got %v, want [y]", got)
	}
}

func TestSetLayers(t *testing.T) {
	part := constPart(t, 100, nil,
		map[string]float32{"x": 0.1, "y": 0.2, "z": 0.4},
		nil, []string{"x", "y", "z"}, nil)
	if err := part.SetLayers([]loopaudio.TrackID{"y", "z"}); err != nil {
		t.Fatalf("SetLayers error: %v", err)
	}
	if got := activeLayerNames(part); !reflect.DeepEqual(got, []string{"y", "z"}) {
		t.Errorf("active layers got %v, want [y z]", got)
	}
	// an unknown id is reported before any layer is touched
	if err := part.SetLayers([]loopaudio.TrackID{"x", "nonexistent"}); !errors.Is(err, loopaudio.ErrNoSuchTrack) {
		t.Fatalf("SetLayers with an unknown layer got %v, want ErrNoSuchTrack", err)
	}
	if got := activeLayerNames(part); !reflect.DeepEqual(got, []string{"y", "z"}) {
		t.Errorf("active layers after a failed SetLayers got %v, want [y z]", got)
	}
}

func TestMixClipping(t *testing.T) {
	part := constPart(t, 100, nil,
		map[string]float32{"a": 0.6, "b": 0.6},
		nil, []string{"a", "b"}, nil)
	if err := part.SetLayerBits(0b11); err != nil {
		t.Fatalf("SetLayerBits error: %v", err)
	}
	if got := mixFirstSample(t, part); got != 1 {
		t.Errorf("mix of 0.6+0.6 got %v, want it clipped to 1", got)
	}
}

func TestMultiFileSourceMismatch(t *testing.T) {
	files := []sndfile.File{
		constFile(44100, 2, 100, 0),
		constFile(44100, 2, 99, 0),
	}
	if _, err := loopaudio.NewMultiFileSource(files); err == nil {
		t.Fatalf("expected an error for track files of different lengths")
	}
	files = []sndfile.File{
		constFile(44100, 2, 100, 0),
		constFile(48000, 2, 100, 0),
	}
	if _, err := loopaudio.NewMultiFileSource(files); err == nil {
		t.Fatalf("expected an error for track files of different sample rates")
	}
}

func TestInterleavedSourceChannelSplit(t *testing.T) {
	if _, err := loopaudio.NewInterleavedSource(constFile(44100, 5, 10, 0), 2); err == nil {
		t.Fatalf("expected an error for 5 channels split into stereo tracks")
	}
}

func TestNegativeSeek(t *testing.T) {
	part := rampPart(t, 1000, nil)
	if err := part.SeekFrame(-100); err != nil {
		t.Fatalf("SeekFrame error: %v", err)
	}
	if got := part.Position(); got != 900 {
		t.Errorf("position after SeekFrame(-100) is %v, want 900", got)
	}
}
