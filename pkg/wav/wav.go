// Package wav wraps headerless PCM streams into minimal RIFF/WAVE containers.
package wav

import "encoding/binary"

const (
	// HeaderSize is the length of the canonical PCM WAVE header.
	HeaderSize = 44

	// SampleRate matches the 16-bit mono output of the speech endpoint.
	SampleRate = 24000
)

// EncodePCM prefixes raw 16-bit mono 24 kHz PCM samples with a 44-byte WAVE
// header, yielding a self-describing, playable container. The output is
// always len(pcm)+44 bytes.
func EncodePCM(pcm []byte) []byte {
	n := uint32(len(pcm))
	out := make([]byte, HeaderSize+len(pcm))

	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], 36+n)
	copy(out[8:12], "WAVE")

	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], 16) // PCM chunk size
	binary.LittleEndian.PutUint16(out[20:22], 1)  // PCM format
	binary.LittleEndian.PutUint16(out[22:24], 1)  // mono
	binary.LittleEndian.PutUint32(out[24:28], SampleRate)
	binary.LittleEndian.PutUint32(out[28:32], SampleRate*2) // byte rate
	binary.LittleEndian.PutUint16(out[32:34], 2)            // block align
	binary.LittleEndian.PutUint16(out[34:36], 16)           // bits per sample

	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], n)

	copy(out[HeaderSize:], pcm)
	return out
}
