package audio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"

	"whisperscribe/internal/transcript"
)

// WriteWAV writes float32 samples to path as a canonical mono 16 kHz PCM16
// WAV file. Exec-based engines consume their audio through files, so sample
// slices are spilled to a temporary WAV before invocation.
func WriteWAV(path string, samples []float32) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create wav file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	dataSize := uint32(len(samples) * 2)
	const (
		channels      = 1
		bitsPerSample = 16
	)
	byteRate := uint32(transcript.SampleRate * channels * bitsPerSample / 8)

	// RIFF header
	writer.WriteString("RIFF")
	binary.Write(writer, binary.LittleEndian, uint32(36+dataSize))
	writer.WriteString("WAVE")

	// fmt chunk
	writer.WriteString("fmt ")
	binary.Write(writer, binary.LittleEndian, uint32(16))
	binary.Write(writer, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(writer, binary.LittleEndian, uint16(channels))
	binary.Write(writer, binary.LittleEndian, uint32(transcript.SampleRate))
	binary.Write(writer, binary.LittleEndian, byteRate)
	binary.Write(writer, binary.LittleEndian, uint16(channels*bitsPerSample/8))
	binary.Write(writer, binary.LittleEndian, uint16(bitsPerSample))

	// data chunk
	writer.WriteString("data")
	binary.Write(writer, binary.LittleEndian, dataSize)

	for _, sample := range samples {
		scaled := sample
		if scaled > 1 {
			scaled = 1
		} else if scaled < -1 {
			scaled = -1
		}
		binary.Write(writer, binary.LittleEndian, int16(scaled*32767))
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush wav data: %w", err)
	}

	return nil
}
