// ABOUTME: FLAC frame header parsing
// ABOUTME: Sync pattern, per-frame parameters, UTF-8 position field, CRC-8 check
package frame

import (
	"fmt"
	"io"

	"github.com/Resonate-Protocol/flac-go/internal/bits"
	"github.com/Resonate-Protocol/flac-go/internal/crc"
)

// SyncCode is the 14-bit pattern that starts every frame header.
const SyncCode = 0x3FFE

// Channels specifies the number of channels (subframes) of a frame, their
// order and a possible stereo decorrelation mode.
type Channels uint8

// Channel assignments. The first eight are independent channels in
// SMPTE/ITU-R order; the last three trade one stereo channel for a
// sum/difference transform.
const (
	ChannelsMono           Channels = iota // 1 channel: mono
	ChannelsLR                             // 2 channels: left, right
	ChannelsLRC                            // 3 channels: left, right, center
	ChannelsLRLsRs                         // 4 channels: left, right, left surround, right surround
	ChannelsLRCLsRs                        // 5 channels
	ChannelsLRCLfeLsRs                     // 6 channels
	ChannelsLRCLfeCsSlSr                   // 7 channels
	ChannelsLRCLfeLsRsSlSr                 // 8 channels
	ChannelsLeftSide                       // 2 channels: left, side
	ChannelsSideRight                      // 2 channels: side, right
	ChannelsMidSide                        // 2 channels: mid, side
)

var nChannels = [...]int{
	ChannelsMono:           1,
	ChannelsLR:             2,
	ChannelsLRC:            3,
	ChannelsLRLsRs:         4,
	ChannelsLRCLsRs:        5,
	ChannelsLRCLfeLsRs:     6,
	ChannelsLRCLfeCsSlSr:   7,
	ChannelsLRCLfeLsRsSlSr: 8,
	ChannelsLeftSide:       2,
	ChannelsSideRight:      2,
	ChannelsMidSide:        2,
}

// Count returns the number of channels (subframes) used by the assignment.
func (ch Channels) Count() int {
	return nChannels[ch]
}

// Decorrelated reports whether the assignment uses stereo decorrelation.
func (ch Channels) Decorrelated() bool {
	return ch >= ChannelsLeftSide
}

// Header contains the per-frame parameters. BitsPerSample and SampleRate
// are zero when the frame inherits them from the stream parameters; the
// session resolves them before the subframes are parsed.
type Header struct {
	// Blocking strategy: fixed block size (Num is a frame number) or
	// variable (Num is the absolute number of the first sample).
	HasFixedBlockSize bool
	// Block size in inter-channel samples, 1-65535.
	BlockSize uint16
	// Sample rate in Hz; 0 means inherit from the stream parameters.
	SampleRate uint32
	// Channel assignment of the frame.
	Channels Channels
	// Bits per sample; 0 means inherit from the stream parameters.
	BitsPerSample uint8
	// Frame number under fixed blocking, else first sample number.
	Num uint64
}

// SampleNumber returns the number of the first sample covered by the frame.
func (h *Header) SampleNumber() uint64 {
	if h.HasFixedBlockSize {
		return h.Num * uint64(h.BlockSize)
	}
	return h.Num
}

// parseHeader reads and parses a frame header, verifying its CRC-8. The
// reader must be positioned on the first sync byte.
func (f *Frame) parseHeader() error {
	// The CRC-8 covers every header byte before the checksum itself.
	crc8 := crc.NewCRC8()
	hr := io.TeeReader(f.hr, crc8)
	br := bits.NewReader(hr)

	// 14 bits: sync pattern.
	x, err := br.Read(14)
	if err != nil {
		return err
	}
	if x != SyncCode {
		return ErrSyncLost
	}

	// 1 bit: reserved, must be zero.
	if x, err = br.Read(1); err != nil {
		return err
	}
	if x != 0 {
		return fmt.Errorf("%w: non-zero reserved bit in frame header", ErrReservedBit)
	}

	// 1 bit: blocking strategy.
	if x, err = br.Read(1); err != nil {
		return err
	}
	f.HasFixedBlockSize = x == 0

	// 4 bits: block size code; decoding of the "read following byte(s)"
	// forms is deferred past the position field.
	blockSize, err := br.Read(4)
	if err != nil {
		return err
	}

	// 4 bits: sample rate code, also deferred.
	sampleRate, err := br.Read(4)
	if err != nil {
		return err
	}

	// 4 bits: channel assignment.
	if x, err = br.Read(4); err != nil {
		return err
	}
	if x > uint64(ChannelsMidSide) {
		return fmt.Errorf("%w: channel assignment %04b", ErrReservedBit, x)
	}
	f.Channels = Channels(x)

	// 3 bits: bits per sample.
	//    000: inherit from stream parameters
	//    001: 8, 010: 12, 100: 16, 101: 20, 110: 24
	//    011, 111: reserved
	if x, err = br.Read(3); err != nil {
		return err
	}
	switch x {
	case 0x0:
		f.BitsPerSample = 0
	case 0x1:
		f.BitsPerSample = 8
	case 0x2:
		f.BitsPerSample = 12
	case 0x4:
		f.BitsPerSample = 16
	case 0x5:
		f.BitsPerSample = 20
	case 0x6:
		f.BitsPerSample = 24
	default:
		return fmt.Errorf("%w: sample size %03b", ErrReservedBit, x)
	}

	// 1 bit: reserved, must be zero.
	if x, err = br.Read(1); err != nil {
		return err
	}
	if x != 0 {
		return fmt.Errorf("%w: non-zero trailing reserved bit in frame header", ErrReservedBit)
	}

	// 1-7 bytes: UTF-8 style coded frame or sample number.
	if f.Num, err = decodeUTF8Int(br); err != nil {
		return err
	}

	// Resolve the block size code.
	//    0000: reserved
	//    0001: 192
	//    0010-0101: 576 * 2^(n-2)
	//    0110: 8-bit (size-1) follows
	//    0111: 16-bit (size-1) follows
	//    1000-1111: 256 * 2^(n-8)
	switch n := blockSize; {
	case n == 0x0:
		return fmt.Errorf("%w: block size 0000", ErrReservedBit)
	case n == 0x1:
		f.BlockSize = 192
	case n <= 0x5:
		f.BlockSize = 576 << (n - 2)
	case n == 0x6:
		if x, err = br.Read(8); err != nil {
			return err
		}
		f.BlockSize = uint16(x) + 1
	case n == 0x7:
		if x, err = br.Read(16); err != nil {
			return err
		}
		f.BlockSize = uint16(x) + 1
	default:
		f.BlockSize = 256 << (n - 8)
	}

	// Resolve the sample rate code.
	switch sampleRate {
	case 0x0:
		f.SampleRate = 0 // inherit from stream parameters
	case 0x1:
		f.SampleRate = 88200
	case 0x2:
		f.SampleRate = 176400
	case 0x3:
		f.SampleRate = 192000
	case 0x4:
		f.SampleRate = 8000
	case 0x5:
		f.SampleRate = 16000
	case 0x6:
		f.SampleRate = 22050
	case 0x7:
		f.SampleRate = 24000
	case 0x8:
		f.SampleRate = 32000
	case 0x9:
		f.SampleRate = 44100
	case 0xA:
		f.SampleRate = 48000
	case 0xB:
		f.SampleRate = 96000
	case 0xC:
		// 8-bit rate in kHz follows.
		if x, err = br.Read(8); err != nil {
			return err
		}
		f.SampleRate = uint32(x) * 1000
	case 0xD:
		// 16-bit rate in Hz follows.
		if x, err = br.Read(16); err != nil {
			return err
		}
		f.SampleRate = uint32(x)
	case 0xE:
		// 16-bit rate in daHz follows.
		if x, err = br.Read(16); err != nil {
			return err
		}
		f.SampleRate = uint32(x) * 10
	default:
		return fmt.Errorf("%w: sample rate 1111", ErrReservedBit)
	}

	// 1 byte: CRC-8 of the header, read outside the checksummed region.
	var want [1]byte
	if _, err := io.ReadFull(f.hr, want[:]); err != nil {
		return bits.ErrUnexpectedEnd
	}
	if got := crc8.Sum8(); got != want[0] {
		return fmt.Errorf("%w: frame header CRC-8 expected 0x%02X, got 0x%02X",
			ErrChecksumMismatch, want[0], got)
	}
	return nil
}

// decodeUTF8Int reads the variable-length frame/sample position field. The
// encoding mirrors UTF-8: the count of leading one bits in the first byte
// selects the total byte count, continuation bytes carry 6 payload bits
// each. Up to 7 bytes encode a 36-bit value.
func decodeUTF8Int(br *bits.Reader) (uint64, error) {
	b, err := br.Read(8)
	if err != nil {
		return 0, err
	}
	if b < 0x80 {
		return b, nil
	}

	// Count leading one bits; 10xxxxxx is a bare continuation byte and
	// invalid as a first byte.
	var n uint
	for mask := uint64(0x80); b&mask != 0 && n < 8; mask >>= 1 {
		n++
	}
	if n < 2 || n > 7 {
		return 0, fmt.Errorf("flac: invalid position field leading byte 0x%02X", b)
	}

	x := b & (0x7F >> n)
	for i := uint(1); i < n; i++ {
		c, err := br.Read(8)
		if err != nil {
			return 0, err
		}
		if c&0xC0 != 0x80 {
			return 0, fmt.Errorf("flac: invalid position field continuation byte 0x%02X", c)
		}
		x = x<<6 | c&0x3F
	}
	return x, nil
}
