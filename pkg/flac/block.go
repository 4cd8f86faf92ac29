// ABOUTME: Decoded output block type
// ABOUTME: One sample slice per channel, exclusively owned by the caller
package flac

// Block is the decoded output of one frame: one sample sequence per
// channel, all of equal length. Samples are signed integers in the range
// of the stream's bit depth. Each Block is an independent allocation; the
// session retains no reference to it after NextBlock returns.
type Block struct {
	// Number of channels.
	Channels int
	// Bits per sample, resolved against the stream parameters.
	BitsPerSample int
	// Sample rate in Hz, resolved against the stream parameters.
	SampleRate int
	// Samples per channel (the frame's block size).
	N int
	// Number of the first sample covered by the block.
	SampleNumber uint64
	// Samples[ch][i] is sample i of channel ch, in the stream's channel
	// order (left, right, ... for independent assignments).
	Samples [][]int32
}
