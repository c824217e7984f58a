package loopaudio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Render mixes one full pass of the part offline: from frame zero up to
// the loop end when the part loops, or to the end of the source
// otherwise. Track gains apply as during playback; the master volume
// does not. The part's cursor is left where the render ends.
func Render(part *Part, blockSize int) ([]float32, error) {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	if err := part.SeekFrame(0); err != nil {
		return nil, fmt.Errorf("Render failed: %w", err)
	}
	total := part.Length()
	channels := part.Channels()
	out := make([]float32, 0, total*int64(channels))
	scratch := make([]float32, blockSize*channels)
	for remaining := total; remaining > 0; {
		n := blockSize
		if remaining < int64(n) {
			n = int(remaining)
		}
		block, err := part.ReadBlock(n)
		if err != nil {
			return nil, fmt.Errorf("Render failed: %w", err)
		}
		frames := part.Frames(block)
		if frames == 0 {
			break
		}
		mixed := scratch[:frames*channels]
		part.Mix(mixed, block)
		out = append(out, mixed...)
		remaining -= int64(frames)
	}
	return out, nil
}

// Wav encodes an interleaved buffer as a WAV file, as float32 samples
// or as 16-bit signed PCM.
func Wav(buffer []float32, channels, sampleRate int, pcm16 bool) ([]byte, error) {
	buf := new(bytes.Buffer)
	wavHeader(len(buffer), channels, sampleRate, pcm16, buf)
	err := rawToBuffer(buffer, pcm16, buf)
	if err != nil {
		return nil, fmt.Errorf("Wav failed: %v", err)
	}
	return buf.Bytes(), nil
}

// Raw encodes an interleaved buffer as headerless samples, float32 or
// 16-bit signed PCM.
func Raw(buffer []float32, pcm16 bool) ([]byte, error) {
	buf := new(bytes.Buffer)
	err := rawToBuffer(buffer, pcm16, buf)
	if err != nil {
		return nil, fmt.Errorf("Raw failed: %v", err)
	}
	return buf.Bytes(), nil
}

func rawToBuffer(data []float32, pcm16 bool, buf *bytes.Buffer) error {
	var err error
	if pcm16 {
		int16data := make([]int16, len(data))
		for i, v := range data {
			int16data[i] = int16(clamp(int(v*math.MaxInt16), math.MinInt16, math.MaxInt16))
		}
		err = binary.Write(buf, binary.LittleEndian, int16data)
	} else {
		err = binary.Write(buf, binary.LittleEndian, data)
	}
	if err != nil {
		return fmt.Errorf("could not binary write data to binary buffer: %v", err)
	}
	return nil
}

// wavHeader writes a wave header for either float32 or int16 samples.
// bufferLength counts individual samples, not frames.
func wavHeader(bufferLength, numChannels, sampleRate int, pcm16 bool, buf *bytes.Buffer) {
	// Refer to: http://www-mmsp.ece.mcgill.ca/Documents/AudioFormats/WAVE/WAVE.html
	var bytesPerSample, chunkSize, fmtChunkSize, waveFormat int
	var factChunk bool
	if pcm16 {
		bytesPerSample = 2
		chunkSize = 36 + bytesPerSample*bufferLength
		fmtChunkSize = 16
		waveFormat = 1 // PCM
		factChunk = false
	} else {
		bytesPerSample = 4
		chunkSize = 50 + bytesPerSample*bufferLength
		fmtChunkSize = 18
		waveFormat = 3 // IEEE float
		factChunk = true
	}
	buf.Write([]byte("RIFF"))
	binary.Write(buf, binary.LittleEndian, uint32(chunkSize))
	buf.Write([]byte("WAVE"))
	buf.Write([]byte("fmt "))
	binary.Write(buf, binary.LittleEndian, uint32(fmtChunkSize))
	binary.Write(buf, binary.LittleEndian, uint16(waveFormat))
	binary.Write(buf, binary.LittleEndian, uint16(numChannels))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate*numChannels*bytesPerSample)) // avgBytesPerSec
	binary.Write(buf, binary.LittleEndian, uint16(numChannels*bytesPerSample))           // blockAlign
	binary.Write(buf, binary.LittleEndian, uint16(8*bytesPerSample))                     // bits per sample
	if fmtChunkSize > 16 {
		binary.Write(buf, binary.LittleEndian, uint16(0)) // size of extension
	}
	if factChunk {
		buf.Write([]byte("fact"))
		binary.Write(buf, binary.LittleEndian, uint32(4))                        // fact chunk size
		binary.Write(buf, binary.LittleEndian, uint32(bufferLength/numChannels)) // sample length
	}
	buf.Write([]byte("data"))
	binary.Write(buf, binary.LittleEndian, uint32(bytesPerSample*bufferLength))
}

func clamp(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
