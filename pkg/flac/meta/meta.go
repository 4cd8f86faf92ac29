// ABOUTME: FLAC metadata block access
// ABOUTME: Decodes STREAMINFO and skips all other block types opaquely
package meta

import (
	"errors"
	"fmt"
	"io"

	"github.com/Resonate-Protocol/flac-go/internal/bits"
)

// ErrInvalidStreamInfo is returned when the mandatory stream-parameter
// block declares values outside their legal ranges.
var ErrInvalidStreamInfo = errors.New("flac: invalid STREAMINFO block")

// Block types. Everything except STREAMINFO is opaque to the decoder.
const (
	TypeStreamInfo    = 0
	TypePadding       = 1
	TypeApplication   = 2
	TypeSeekTable     = 3
	TypeVorbisComment = 4
	TypeCueSheet      = 5
	TypePicture       = 6
	typeInvalid       = 127
)

var typeNames = map[uint8]string{
	TypeStreamInfo:    "STREAMINFO",
	TypePadding:       "PADDING",
	TypeApplication:   "APPLICATION",
	TypeSeekTable:     "SEEKTABLE",
	TypeVorbisComment: "VORBIS_COMMENT",
	TypeCueSheet:      "CUESHEET",
	TypePicture:       "PICTURE",
}

// BlockHeader describes one metadata block: whether it is the last block
// before the audio frames, its type and the byte length of its body.
type BlockHeader struct {
	IsLast bool
	Type   uint8
	Length uint32
}

// TypeName returns a human-readable name for the block type.
func (h BlockHeader) TypeName() string {
	if name, ok := typeNames[h.Type]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", h.Type)
}

// ParseBlockHeader reads one 32-bit metadata block header.
func ParseBlockHeader(r io.Reader) (*BlockHeader, error) {
	br := bits.NewReader(r)
	isLast, err := br.Read(1)
	if err != nil {
		return nil, err
	}
	blockType, err := br.Read(7)
	if err != nil {
		return nil, err
	}
	length, err := br.Read(24)
	if err != nil {
		return nil, err
	}
	if blockType == typeInvalid {
		return nil, fmt.Errorf("flac: invalid metadata block type %d", typeInvalid)
	}
	return &BlockHeader{
		IsLast: isLast == 1,
		Type:   uint8(blockType),
		Length: uint32(length),
	}, nil
}

// Skip consumes exactly the block body from r without interpreting it.
func (h *BlockHeader) Skip(r io.Reader) error {
	n, err := io.CopyN(io.Discard, r, int64(h.Length))
	if err != nil || n != int64(h.Length) {
		return bits.ErrUnexpectedEnd
	}
	return nil
}

// StreamInfo holds the stream parameters of the mandatory first metadata
// block. It is immutable once parsed and validates every subsequent frame.
type StreamInfo struct {
	// Minimum and maximum block size (in samples) used in the stream.
	// Equal values imply a fixed-blocksize stream.
	BlockSizeMin uint16
	BlockSizeMax uint16
	// Minimum and maximum frame size in bytes; 0 means unknown.
	FrameSizeMin uint32
	FrameSizeMax uint32
	// Sample rate in Hz. Zero is invalid.
	SampleRate uint32
	// Number of channels, 1 through 8.
	NChannels uint8
	// Bits per sample, 4 through 32.
	BitsPerSample uint8
	// Total number of inter-channel samples; 0 means unknown.
	NSamples uint64
	// MD5 signature of the unencoded audio data. Lets the decoder detect
	// corruption even when the damaged bitstream still parses.
	MD5sum [16]byte
}

// ParseStreamInfo decodes the fixed-layout STREAMINFO block body.
func ParseStreamInfo(r io.Reader) (*StreamInfo, error) {
	br := bits.NewReader(r)
	si := new(StreamInfo)

	blockSizeMin, err := br.Read(16)
	if err != nil {
		return nil, err
	}
	blockSizeMax, err := br.Read(16)
	if err != nil {
		return nil, err
	}
	frameSizeMin, err := br.Read(24)
	if err != nil {
		return nil, err
	}
	frameSizeMax, err := br.Read(24)
	if err != nil {
		return nil, err
	}
	sampleRate, err := br.Read(20)
	if err != nil {
		return nil, err
	}
	nChannels, err := br.Read(3)
	if err != nil {
		return nil, err
	}
	bps, err := br.Read(5)
	if err != nil {
		return nil, err
	}
	nSamples, err := br.Read(36)
	if err != nil {
		return nil, err
	}

	si.BlockSizeMin = uint16(blockSizeMin)
	si.BlockSizeMax = uint16(blockSizeMax)
	si.FrameSizeMin = uint32(frameSizeMin)
	si.FrameSizeMax = uint32(frameSizeMax)
	si.SampleRate = uint32(sampleRate)
	si.NChannels = uint8(nChannels) + 1
	si.BitsPerSample = uint8(bps) + 1
	si.NSamples = nSamples

	if _, err := io.ReadFull(r, si.MD5sum[:]); err != nil {
		return nil, bits.ErrUnexpectedEnd
	}

	if si.BlockSizeMin < 16 {
		return nil, fmt.Errorf("%w: min block size %d below 16", ErrInvalidStreamInfo, si.BlockSizeMin)
	}
	if si.BlockSizeMax < si.BlockSizeMin {
		return nil, fmt.Errorf("%w: max block size %d below min block size %d",
			ErrInvalidStreamInfo, si.BlockSizeMax, si.BlockSizeMin)
	}
	if si.SampleRate == 0 {
		return nil, fmt.Errorf("%w: sample rate is zero", ErrInvalidStreamInfo)
	}
	if si.NChannels < 1 || si.NChannels > 8 {
		return nil, fmt.Errorf("%w: channel count %d outside 1-8", ErrInvalidStreamInfo, si.NChannels)
	}
	if si.BitsPerSample < 4 || si.BitsPerSample > 32 {
		return nil, fmt.Errorf("%w: bit depth %d outside 4-32", ErrInvalidStreamInfo, si.BitsPerSample)
	}
	return si, nil
}
