// ABOUTME: Decode error taxonomy re-exported at the API surface
// ABOUTME: All errors are matchable with errors.Is; none abort the process
package flac

import (
	"errors"

	"github.com/Resonate-Protocol/flac-go/internal/bits"
	"github.com/Resonate-Protocol/flac-go/pkg/flac/frame"
	"github.com/Resonate-Protocol/flac-go/pkg/flac/meta"
)

// Errors defined by this package.
var (
	// ErrDesyncRecoveryFailed is returned when Resync exhausts its byte
	// budget without finding a frame sync pattern. Terminal.
	ErrDesyncRecoveryFailed = errors.New("flac: desync recovery failed")

	// ErrInconsistentFrameParameters is returned when a frame disagrees
	// with the declared stream parameters in an unrecoverable way.
	ErrInconsistentFrameParameters = errors.New("flac: frame inconsistent with stream parameters")
)

// Errors surfaced from the lower layers, re-exported so callers need a
// single import to match every decode error kind.
var (
	ErrUnexpectedEnd         = bits.ErrUnexpectedEnd
	ErrInvalidStreamInfo     = meta.ErrInvalidStreamInfo
	ErrSyncLost              = frame.ErrSyncLost
	ErrReservedBit           = frame.ErrReservedBit
	ErrInvalidPartitionOrder = frame.ErrInvalidPartitionOrder
	ErrChecksumMismatch      = frame.ErrChecksumMismatch
	ErrArithmeticOverflow    = frame.ErrArithmeticOverflow
)
