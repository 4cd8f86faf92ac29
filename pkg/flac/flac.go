// ABOUTME: FLAC decode session: signature, metadata, lazy block sequence
// ABOUTME: Public entry point wiring meta and frame parsing together
package flac

import (
	"bufio"
	"bytes"
	"crypto/md5"
	"errors"
	"fmt"
	"hash"
	"io"

	"github.com/Resonate-Protocol/flac-go/pkg/flac/frame"
	"github.com/Resonate-Protocol/flac-go/pkg/flac/meta"
)

// flacSignature marks the beginning of a FLAC stream.
var flacSignature = []byte("fLaC")

// maxResyncBytes bounds how far Resync advances, one byte at a time,
// looking for the next frame sync pattern before giving up.
const maxResyncBytes = 65536

// Stream is a decode session: the stream parameters plus a lazy,
// forward-only sequence of decoded blocks. It is not restartable in
// place; rewind the byte source and open a new session instead. A Stream
// must not be shared between goroutines.
type Stream struct {
	// Stream parameters from the mandatory STREAMINFO block. Immutable
	// for the lifetime of the session.
	Info *meta.StreamInfo
	// Headers of the remaining metadata blocks, in stream order. Their
	// bodies are skipped, not interpreted.
	Blocks []*meta.BlockHeader

	r *bufio.Reader
	// Running MD5 of the decoded samples, compared against
	// Info.MD5sum at end of stream; nil when verification is off.
	md5sum hash.Hash
	// Inter-channel samples decoded so far.
	decoded uint64
	// First error encountered; the session refuses further progress
	// until Resync clears a recoverable one.
	err error
}

// New opens a decode session over r. It verifies the stream signature,
// decodes the STREAMINFO block and skips the remaining metadata blocks,
// leaving the cursor on the first audio frame.
func New(r io.Reader) (*Stream, error) {
	br := bufio.NewReader(r)
	s := &Stream{r: br}

	var sig [4]byte
	if _, err := io.ReadFull(br, sig[:]); err != nil {
		return nil, ErrUnexpectedEnd
	}
	if !bytes.Equal(sig[:], flacSignature) {
		return nil, fmt.Errorf("flac: invalid signature %q", sig)
	}

	// The first metadata block must be STREAMINFO.
	h, err := meta.ParseBlockHeader(br)
	if err != nil {
		return nil, err
	}
	if h.Type != meta.TypeStreamInfo {
		return nil, fmt.Errorf("%w: first metadata block has type %s",
			meta.ErrInvalidStreamInfo, h.TypeName())
	}
	info, err := meta.ParseStreamInfo(&io.LimitedReader{R: br, N: int64(h.Length)})
	if err != nil {
		return nil, err
	}
	s.Info = info

	// Remaining metadata blocks are opaque records; consume exactly
	// Length bytes each.
	isLast := h.IsLast
	for !isLast {
		h, err := meta.ParseBlockHeader(br)
		if err != nil {
			return nil, err
		}
		if err := h.Skip(br); err != nil {
			return nil, err
		}
		s.Blocks = append(s.Blocks, h)
		isLast = h.IsLast
	}

	// Signature verification needs the full sample count and a byte
	// packing the reference encoder also uses.
	if info.NSamples > 0 && info.BitsPerSample <= 24 && info.MD5sum != [16]byte{} {
		s.md5sum = md5.New()
	}
	return s, nil
}

// NextBlock decodes exactly one frame and returns its samples. It returns
// io.EOF when the byte source is exhausted at a frame boundary, and
// ErrUnexpectedEnd when exhaustion occurs mid-frame. The first error is
// latched: subsequent calls return it unchanged. See Resync for the
// explicit best-effort recovery path.
func (s *Stream) NextBlock() (*Block, error) {
	if s.err != nil {
		return nil, s.err
	}

	buf, err := s.r.Peek(2)
	if err != nil {
		if len(buf) == 0 {
			s.err = s.finish()
			return nil, s.err
		}
		s.err = ErrUnexpectedEnd
		return nil, s.err
	}
	if !isSync(buf) {
		s.err = fmt.Errorf("%w: got % X at frame boundary", ErrSyncLost, buf)
		return nil, s.err
	}

	f, err := frame.New(s.r)
	if err != nil {
		s.err = err
		return nil, err
	}
	if err := s.resolveHeader(f); err != nil {
		s.err = err
		return nil, err
	}
	if err := f.Parse(); err != nil {
		s.err = err
		return nil, err
	}

	s.decoded += uint64(f.BlockSize)
	if s.Info.NSamples > 0 && s.decoded > s.Info.NSamples {
		s.err = fmt.Errorf("%w: decoded %d samples, stream declares %d",
			ErrInconsistentFrameParameters, s.decoded, s.Info.NSamples)
		return nil, s.err
	}
	if s.md5sum != nil {
		f.Hash(s.md5sum)
	}

	block := &Block{
		Channels:      f.Channels.Count(),
		BitsPerSample: int(f.BitsPerSample),
		SampleRate:    int(f.SampleRate),
		N:             int(f.BlockSize),
		SampleNumber:  f.SampleNumber(),
		Samples:       make([][]int32, len(f.Subframes)),
	}
	for ch, sf := range f.Subframes {
		block.Samples[ch] = sf.Samples
	}
	return block, nil
}

// resolveHeader fills in parameters the frame inherits from STREAMINFO and
// rejects frames that contradict the declared stream parameters.
func (s *Stream) resolveHeader(f *frame.Frame) error {
	info := s.Info
	if n := f.Channels.Count(); n != int(info.NChannels) {
		return fmt.Errorf("%w: frame has %d channels, stream declares %d",
			ErrInconsistentFrameParameters, n, info.NChannels)
	}
	if f.BitsPerSample == 0 {
		f.BitsPerSample = info.BitsPerSample
	} else if f.BitsPerSample != info.BitsPerSample {
		return fmt.Errorf("%w: frame bit depth %d, stream declares %d",
			ErrInconsistentFrameParameters, f.BitsPerSample, info.BitsPerSample)
	}
	if f.SampleRate == 0 {
		f.SampleRate = info.SampleRate
	}
	if f.BlockSize > info.BlockSizeMax {
		return fmt.Errorf("%w: frame block size %d exceeds declared maximum %d",
			ErrInconsistentFrameParameters, f.BlockSize, info.BlockSizeMax)
	}
	return nil
}

// finish runs end-of-stream checks and returns the terminal error, io.EOF
// on a clean end.
func (s *Stream) finish() error {
	if s.md5sum != nil && s.decoded == s.Info.NSamples {
		var got [16]byte
		s.md5sum.Sum(got[:0])
		if got != s.Info.MD5sum {
			return fmt.Errorf("%w: decoded audio MD5 %x, stream declares %x",
				ErrChecksumMismatch, got, s.Info.MD5sum)
		}
	}
	return io.EOF
}

// Resync advances the cursor one byte at a time until the next frame sync
// pattern, clearing a latched recoverable error so decoding can continue.
// After maxResyncBytes advances without a match it fails with
// ErrDesyncRecoveryFailed, which is terminal. io.EOF and ErrUnexpectedEnd
// are also terminal: there are no further bytes to scan.
func (s *Stream) Resync() error {
	if s.err == io.EOF || errors.Is(s.err, ErrUnexpectedEnd) || errors.Is(s.err, ErrDesyncRecoveryFailed) {
		return s.err
	}

	for n := 0; n < maxResyncBytes; n++ {
		buf, err := s.r.Peek(2)
		if err != nil {
			if len(buf) == 0 {
				s.err = io.EOF
			} else {
				s.err = ErrUnexpectedEnd
			}
			return s.err
		}
		if isSync(buf) {
			s.err = nil
			return nil
		}
		if _, err := s.r.Discard(1); err != nil {
			s.err = ErrUnexpectedEnd
			return s.err
		}
	}
	s.err = ErrDesyncRecoveryFailed
	return s.err
}

// isSync reports whether b starts with the byte-aligned 14-bit frame sync
// pattern 0b11111111111110.
func isSync(b []byte) bool {
	return len(b) >= 2 && b[0] == 0xFF && b[1]&0xFC == 0xF8
}
