package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrNotWAV is returned by DecodeWAV when the input does not start with a
// RIFF/WAVE header.
var ErrNotWAV = errors.New("audio: not a RIFF/WAVE file")

// DecodeWAV parses a WAV container holding 16-bit signed PCM and returns a
// mono Signal. Stereo input is downmixed. Non-PCM encodings and bit depths
// other than 16 are rejected — the upload layer is expected to transcode
// anything exotic before it reaches the pipeline.
func DecodeWAV(data []byte) (Signal, error) {
	if len(data) < 12 || !bytes.Equal(data[0:4], []byte("RIFF")) || !bytes.Equal(data[8:12], []byte("WAVE")) {
		return Signal{}, ErrNotWAV
	}

	var (
		sampleRate    int
		channels      int
		bitsPerSample int
		audioFormat   int
		pcm           []byte
		sawFmt        bool
	)

	// Walk the chunk list. Chunks are word-aligned; a trailing pad byte
	// follows odd-sized chunks.
	off := 12
	for off+8 <= len(data) {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8
		if size < 0 || body+size > len(data) {
			return Signal{}, fmt.Errorf("audio: truncated %q chunk", id)
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return Signal{}, fmt.Errorf("audio: fmt chunk too short (%d bytes)", size)
			}
			audioFormat = int(binary.LittleEndian.Uint16(data[body : body+2]))
			channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bitsPerSample = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
			sawFmt = true
		case "data":
			pcm = data[body : body+size]
		}

		off = body + size
		if size%2 == 1 {
			off++
		}
	}

	if !sawFmt || pcm == nil {
		return Signal{}, errors.New("audio: missing fmt or data chunk")
	}
	if audioFormat != 1 {
		return Signal{}, fmt.Errorf("audio: unsupported WAV encoding %d (want PCM)", audioFormat)
	}
	if bitsPerSample != 16 {
		return Signal{}, fmt.Errorf("audio: unsupported bit depth %d (want 16)", bitsPerSample)
	}
	if sampleRate <= 0 {
		return Signal{}, fmt.Errorf("audio: invalid sample rate %d", sampleRate)
	}

	switch channels {
	case 1:
		// keep as-is
	case 2:
		pcm = StereoToMono(pcm)
	default:
		return Signal{}, fmt.Errorf("audio: unsupported channel count %d", channels)
	}

	return Signal{Data: pcm, SampleRate: sampleRate}, nil
}

// EncodeWAV wraps a mono Signal in a minimal 16-bit PCM WAV container.
func EncodeWAV(s Signal) []byte {
	const headerSize = 44
	dataLen := len(s.Data)

	buf := make([]byte, headerSize+dataLen)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataLen))
	copy(buf[8:12], "WAVE")

	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], 1) // mono
	binary.LittleEndian.PutUint32(buf[24:28], uint32(s.SampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(s.SampleRate*2)) // byte rate
	binary.LittleEndian.PutUint16(buf[32:34], 2)                      // block align
	binary.LittleEndian.PutUint16(buf[34:36], 16)                     // bits per sample

	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataLen))
	copy(buf[44:], s.Data)
	return buf
}
