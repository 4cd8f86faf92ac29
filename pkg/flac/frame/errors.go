// ABOUTME: Typed decode errors surfaced by frame parsing
// ABOUTME: All are recoverable by the caller; none indicate engine state corruption
package frame

import "errors"

var (
	// ErrSyncLost is returned when the byte-aligned 14-bit frame
	// synchronization pattern is not found at the current position.
	ErrSyncLost = errors.New("flac: frame sync lost")

	// ErrReservedBit is returned when a reserved bit is set or a reserved
	// bit pattern is encountered in a frame or subframe header.
	ErrReservedBit = errors.New("flac: reserved bit pattern")

	// ErrInvalidPartitionOrder is returned when a declared Rice partition
	// order does not evenly divide the residuals of a subframe.
	ErrInvalidPartitionOrder = errors.New("flac: invalid partition order")

	// ErrChecksumMismatch is returned when a frame header CRC-8, a frame
	// CRC-16 or the stream MD5 signature disagrees with the decoded data.
	ErrChecksumMismatch = errors.New("flac: checksum mismatch")

	// ErrArithmeticOverflow is returned when prediction or decorrelation
	// arithmetic would exceed the sample range. Treated as corruption,
	// never silently wrapped.
	ErrArithmeticOverflow = errors.New("flac: sample arithmetic overflow")
)
