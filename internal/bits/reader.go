// ABOUTME: Bit-granular reader over an io.Reader, MSB first
// ABOUTME: Foundation for FLAC frame and subframe parsing
package bits

import (
	"errors"
	"io"

	"github.com/icza/bitio"
)

// ErrUnexpectedEnd is returned when the underlying byte source is exhausted
// in the middle of a structure. No read ever returns a partial value.
var ErrUnexpectedEnd = errors.New("flac: unexpected end of stream")

// Reader provides bit-level reads from an io.Reader, most significant bit
// first. All cursor state lives in the Reader instance; bytes are pulled
// from the source one at a time, so a checksum writer behind an
// io.TeeReader observes exactly the bytes consumed.
type Reader struct {
	br *bitio.Reader
}

// NewReader creates a Reader for the given byte source.
func NewReader(r io.Reader) *Reader {
	// bitio falls back to its own bufio wrapper unless the source is also
	// an io.ByteReader. That read-ahead would pull bytes past the bits
	// actually consumed, so feed it a strict byte-at-a-time adapter.
	return &Reader{br: bitio.NewReader(byteReader{r: r})}
}

// Read reads n bits (0-64) as an unsigned integer. Reading zero bits
// returns zero without touching the source.
func (r *Reader) Read(n uint) (uint64, error) {
	if n == 0 {
		return 0, nil
	}
	x, err := r.br.ReadBits(uint8(n))
	if err != nil {
		return 0, unexpected(err)
	}
	return x, nil
}

// ReadSigned reads n bits (1-64) as a two's complement signed integer.
func (r *Reader) ReadSigned(n uint) (int64, error) {
	x, err := r.Read(n)
	if err != nil {
		return 0, err
	}
	return IntN(x, n), nil
}

// ReadUnary reads a unary-coded value: the count of zero bits before the
// terminating one bit. Used as the Rice quotient.
func (r *Reader) ReadUnary() (uint64, error) {
	var x uint64
	for {
		bit, err := r.br.ReadBool()
		if err != nil {
			return 0, unexpected(err)
		}
		if bit {
			return x, nil
		}
		x++
	}
}

// Align skips to the next byte boundary, discarding any buffered bits of
// the current byte. The byte itself was already consumed from the source.
func (r *Reader) Align() {
	r.br.Align()
}

// IntN interprets the low n bits of x as a two's complement signed integer
// and sign extends it to 64 bits.
func IntN(x uint64, n uint) int64 {
	if x&(1<<(n-1)) != 0 {
		return int64(x | ^uint64(0)<<n)
	}
	return int64(x)
}

// DecodeZigZag maps an unsigned zig-zag folded value back onto a signed
// integer; even values map to non-negative, odd to negative.
func DecodeZigZag(x uint32) int32 {
	return int32(x>>1) ^ -int32(x&1)
}

// byteReader satisfies both io.Reader and io.ByteReader so bitio uses the
// source directly instead of inserting a read-ahead buffer.
type byteReader struct {
	r io.Reader
}

func (b byteReader) Read(p []byte) (int, error) {
	return b.r.Read(p)
}

func (b byteReader) ReadByte() (byte, error) {
	var buf [1]byte
	if _, err := io.ReadFull(b.r, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// unexpected maps source exhaustion onto ErrUnexpectedEnd. Mid-structure
// there is no legitimate end of stream.
func unexpected(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return ErrUnexpectedEnd
	}
	return err
}
