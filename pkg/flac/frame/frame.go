// ABOUTME: FLAC audio frame assembly
// ABOUTME: Parses subframes, undoes stereo decorrelation, verifies the frame CRC-16
package frame

import (
	"encoding/binary"
	"fmt"
	"hash"
	"io"
	"math"

	"github.com/Resonate-Protocol/flac-go/internal/bits"
	"github.com/Resonate-Protocol/flac-go/internal/crc"
)

// Frame holds one self-contained, synchronizable unit of encoded audio: a
// header and one subframe per channel. Every byte of the frame since the
// first sync byte feeds the running CRC-16.
type Frame struct {
	Header
	// One subframe per channel. Populated by Parse.
	Subframes []*Subframe

	// Running CRC-16 over every byte consumed through hr.
	crc *crc.CRC16
	// Checksummed view of r.
	hr io.Reader
	// Underlying reader; used only for the trailing checksum bytes, which
	// the CRC-16 does not cover.
	r io.Reader
}

// New reads and parses a frame header from r. The reader must be
// positioned on the first sync byte. Call Frame.Parse to decode the
// subframes and verify the frame checksum.
func New(r io.Reader) (*Frame, error) {
	c := crc.NewCRC16()
	f := &Frame{crc: c, hr: io.TeeReader(r, c), r: r}
	return f, f.parseHeader()
}

// Parse reads and fully decodes the next frame from r.
func Parse(r io.Reader) (*Frame, error) {
	f, err := New(r)
	if err != nil {
		return f, err
	}
	return f, f.Parse()
}

// Parse decodes the samples of each subframe, undoes stereo decorrelation
// and verifies the frame CRC-16. The header's BitsPerSample must be
// resolved (non-zero) before calling; the session fills it in from the
// stream parameters when the frame header inherits it.
func (f *Frame) Parse() error {
	if f.BitsPerSample == 0 {
		return fmt.Errorf("flac: frame bit depth unresolved")
	}

	br := bits.NewReader(f.hr)
	f.Subframes = make([]*Subframe, f.Channels.Count())
	for ch := range f.Subframes {
		// The difference of two n-bit channels needs n+1 bits, so the
		// side channel of a decorrelated pair is one bit wider.
		bps := uint(f.BitsPerSample)
		switch f.Channels {
		case ChannelsSideRight:
			if ch == 0 {
				bps++
			}
		case ChannelsLeftSide, ChannelsMidSide:
			if ch == 1 {
				bps++
			}
		}
		if bps > 32 {
			return fmt.Errorf("flac: %d-bit side channel samples not supported", bps)
		}

		sf, err := f.parseSubframe(br, bps)
		if err != nil {
			return err
		}
		f.Subframes[ch] = sf
	}

	// Zero padding up to the next byte boundary; the padded byte has
	// already been consumed and checksummed.
	br.Align()

	if err := f.correlate(); err != nil {
		return err
	}

	// 2 bytes: CRC-16 of the whole frame, read outside the checksummed
	// region.
	var want [2]byte
	if _, err := io.ReadFull(f.r, want[:]); err != nil {
		return bits.ErrUnexpectedEnd
	}
	if got, expect := f.crc.Sum16(), binary.BigEndian.Uint16(want[:]); got != expect {
		return fmt.Errorf("%w: frame CRC-16 expected 0x%04X, got 0x%04X",
			ErrChecksumMismatch, expect, got)
	}
	return nil
}

// correlate undoes the stereo decorrelation of the frame's channel
// assignment, recovering independent left/right samples. All arithmetic is
// integer-exact; intermediate values are widened to avoid wraparound on
// corrupt input.
func (f *Frame) correlate() error {
	switch f.Channels {
	case ChannelsLeftSide:
		left := f.Subframes[0].Samples
		side := f.Subframes[1].Samples
		for i := range side {
			// right = left - side
			right := int64(left[i]) - int64(side[i])
			if right < math.MinInt32 || right > math.MaxInt32 {
				return fmt.Errorf("%w: left/side reconstruction", ErrArithmeticOverflow)
			}
			side[i] = int32(right)
		}
	case ChannelsSideRight:
		side := f.Subframes[0].Samples
		right := f.Subframes[1].Samples
		for i := range side {
			// left = right + side
			left := int64(right[i]) + int64(side[i])
			if left < math.MinInt32 || left > math.MaxInt32 {
				return fmt.Errorf("%w: right/side reconstruction", ErrArithmeticOverflow)
			}
			side[i] = int32(left)
		}
	case ChannelsMidSide:
		mid := f.Subframes[0].Samples
		side := f.Subframes[1].Samples
		for i := range mid {
			// mid lost its low bit to the encoder's >>1; the sum and the
			// difference of two integers share parity, so the side
			// channel's low bit restores it.
			m := int64(mid[i])<<1 | int64(side[i])&1
			s := int64(side[i])
			left := (m + s) >> 1
			right := (m - s) >> 1
			if left < math.MinInt32 || left > math.MaxInt32 ||
				right < math.MinInt32 || right > math.MaxInt32 {
				return fmt.Errorf("%w: mid/side reconstruction", ErrArithmeticOverflow)
			}
			mid[i] = int32(left)
			side[i] = int32(right)
		}
	}
	return nil
}

// Hash folds the decoded audio samples of the frame into a running MD5
// hash for comparison against the stream's reference signature. Samples
// are packed little-endian at byte granularity. Supported up to 24 bits
// per sample; the session skips signature verification beyond that.
func (f *Frame) Hash(md5sum hash.Hash) {
	var buf [3]byte
	bps := f.BitsPerSample
	for i := 0; i < int(f.BlockSize); i++ {
		for _, sf := range f.Subframes {
			sample := sf.Samples[i]
			switch {
			case bps <= 8:
				buf[0] = uint8(sample)
				md5sum.Write(buf[:1])
			case bps <= 16:
				buf[0] = uint8(sample)
				buf[1] = uint8(sample >> 8)
				md5sum.Write(buf[:2])
			case bps <= 24:
				buf[0] = uint8(sample)
				buf[1] = uint8(sample >> 8)
				buf[2] = uint8(sample >> 16)
				md5sum.Write(buf[:3])
			}
		}
	}
}
