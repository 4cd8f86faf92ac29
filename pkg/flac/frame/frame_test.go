// ABOUTME: Tests for frame parsing and stereo decorrelation
// ABOUTME: Synthesizes bit-exact frames with bitio and the CRC tables
package frame

import (
	"bytes"
	"errors"
	"testing"

	"github.com/Resonate-Protocol/flac-go/internal/bits"
	"github.com/Resonate-Protocol/flac-go/internal/crc"
	"github.com/icza/bitio"
)

// bw builds bit streams for frame fixtures.
type bw struct {
	buf bytes.Buffer
	w   *bitio.Writer
}

func newBW() *bw {
	b := &bw{}
	b.w = bitio.NewWriter(&b.buf)
	return b
}

func (b *bw) bits(v uint64, n uint8) {
	if n == 0 {
		return
	}
	b.w.WriteBits(v, n)
}

func (b *bw) signed(v int64, n uint8) {
	mask := uint64(1)<<n - 1
	b.w.WriteBits(uint64(v)&mask, n)
}

func (b *bw) unary(v uint64) {
	for i := uint64(0); i < v; i++ {
		b.w.WriteBool(false)
	}
	b.w.WriteBool(true)
}

// rice writes one zig-zag folded, Rice-coded residual with parameter k.
func (b *bw) rice(v int32, k uint8) {
	z := uint32(v<<1) ^ uint32(v>>31)
	b.unary(uint64(z >> k))
	b.bits(uint64(z)&(uint64(1)<<k-1), k)
}

func (b *bw) align() {
	b.w.Align()
}

// bytes aligns and returns everything written so far.
func (b *bw) bytes() []byte {
	b.w.Align()
	return b.buf.Bytes()
}

// frameSpec drives buildFrame. Block size is encoded with the 8-bit
// "size-1 follows" form, so it must be at most 256.
type frameSpec struct {
	blockSize uint16
	srCode    uint64 // 4-bit sample rate code, 0 = inherit
	chCode    uint64 // 4-bit channel assignment
	bpsCode   uint64 // 3-bit bit depth code, non-zero in frame-level tests
	num       uint64 // frame number, single position byte (< 128)
	variable  bool
	sub       func(b *bw) // subframe bits for all channels
}

// buildFrame synthesizes a complete frame with valid CRC-8 and CRC-16.
func buildFrame(t *testing.T, fs frameSpec) []byte {
	t.Helper()
	if fs.blockSize == 0 || fs.blockSize > 256 {
		t.Fatalf("fixture block size %d out of range", fs.blockSize)
	}

	b := newBW()
	b.bits(SyncCode, 14)
	b.bits(0, 1)
	if fs.variable {
		b.bits(1, 1)
	} else {
		b.bits(0, 1)
	}
	b.bits(0x6, 4) // 8-bit block size minus one at end of header
	b.bits(fs.srCode, 4)
	b.bits(fs.chCode, 4)
	b.bits(fs.bpsCode, 3)
	b.bits(0, 1)
	b.bits(fs.num, 8)
	b.bits(uint64(fs.blockSize-1), 8)

	header := b.bytes()
	c8 := crc.NewCRC8()
	c8.Write(header)
	b.bits(uint64(c8.Sum8()), 8)

	fs.sub(b)
	b.align()

	body := b.bytes()
	c16 := crc.NewCRC16()
	c16.Write(body)
	b.bits(uint64(c16.Sum16()), 16)
	return b.bytes()
}

// subframe header helpers

func constantSub(v int64, bps uint8) func(*bw) {
	return func(b *bw) {
		b.bits(0, 1)
		b.bits(0, 6)
		b.bits(0, 1)
		b.signed(v, bps)
	}
}

func verbatimSub(vals []int64, bps uint8) func(*bw) {
	return func(b *bw) {
		b.bits(0, 1)
		b.bits(1, 6)
		b.bits(0, 1)
		for _, v := range vals {
			b.signed(v, bps)
		}
	}
}

func parseOne(t *testing.T, data []byte) *Frame {
	t.Helper()
	f, err := Parse(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return f
}

func checkSamples(t *testing.T, got []int32, want []int32) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("decoded %d samples, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d = %d; want %d", i, got[i], want[i])
		}
	}
}

func TestConstantSubframe(t *testing.T) {
	// Value -1 at 8-bit depth over a block of 4 must decode to four
	// copies of -1 exactly.
	data := buildFrame(t, frameSpec{
		blockSize: 4,
		srCode:    0x9, // 44.1 kHz
		chCode:    uint64(ChannelsMono),
		bpsCode:   0x1, // 8 bits
		sub:       constantSub(-1, 8),
	})
	f := parseOne(t, data)
	if f.SampleRate != 44100 {
		t.Errorf("sample rate = %d; want 44100", f.SampleRate)
	}
	checkSamples(t, f.Subframes[0].Samples, []int32{-1, -1, -1, -1})
}

func TestVerbatimSubframe(t *testing.T) {
	data := buildFrame(t, frameSpec{
		blockSize: 3,
		chCode:    uint64(ChannelsMono),
		bpsCode:   0x1,
		sub:       verbatimSub([]int64{1, -2, 127}, 8),
	})
	f := parseOne(t, data)
	checkSamples(t, f.Subframes[0].Samples, []int32{1, -2, 127})
}

func TestFixedSubframeOrder1(t *testing.T) {
	// Order-1 predictor: each sample is the previous sample plus the
	// residual. Warm-up 10, residuals [1, -1, 2] -> [10, 11, 10, 12].
	data := buildFrame(t, frameSpec{
		blockSize: 4,
		chCode:    uint64(ChannelsMono),
		bpsCode:   0x4, // 16 bits
		sub: func(b *bw) {
			b.bits(0, 1)
			b.bits(8|1, 6) // fixed, order 1
			b.bits(0, 1)
			b.signed(10, 16)
			b.bits(0, 2) // Rice method with 4-bit parameters
			b.bits(0, 4) // partition order 0
			b.bits(2, 4) // Rice parameter 2
			for _, r := range []int32{1, -1, 2} {
				b.rice(r, 2)
			}
		},
	})
	f := parseOne(t, data)
	checkSamples(t, f.Subframes[0].Samples, []int32{10, 11, 10, 12})
}

func TestFixedSubframeOrder2(t *testing.T) {
	// Order-2 predictor: 2*prev - prev2. Warm-up [0, 3], residuals
	// [1, 0]: s2 = 2*3-0+1 = 7, s3 = 2*7-3+0 = 11.
	data := buildFrame(t, frameSpec{
		blockSize: 4,
		chCode:    uint64(ChannelsMono),
		bpsCode:   0x4,
		sub: func(b *bw) {
			b.bits(0, 1)
			b.bits(8|2, 6)
			b.bits(0, 1)
			b.signed(0, 16)
			b.signed(3, 16)
			b.bits(0, 2)
			b.bits(0, 4)
			b.bits(1, 4)
			b.rice(1, 1)
			b.rice(0, 1)
		},
	})
	f := parseOne(t, data)
	checkSamples(t, f.Subframes[0].Samples, []int32{0, 3, 7, 11})
}

func TestLPCSubframe(t *testing.T) {
	// Order 2, coefficients [1, 1], shift 1: prediction is the mean of
	// the two preceding samples. Warm-up [4, 6], residuals [0, 1]:
	// s2 = (6+4)>>1 + 0 = 5, s3 = (5+6)>>1 + 1 = 6.
	data := buildFrame(t, frameSpec{
		blockSize: 4,
		chCode:    uint64(ChannelsMono),
		bpsCode:   0x4,
		sub: func(b *bw) {
			b.bits(0, 1)
			b.bits(32|(2-1), 6) // LPC, order 2
			b.bits(0, 1)
			b.signed(4, 16)
			b.signed(6, 16)
			b.bits(4-1, 4) // coefficient precision 4
			b.signed(1, 5) // shift 1
			b.signed(1, 4) // c0
			b.signed(1, 4) // c1
			b.bits(0, 2)
			b.bits(0, 4)
			b.bits(1, 4)
			b.rice(0, 1)
			b.rice(1, 1)
		},
	})
	f := parseOne(t, data)
	checkSamples(t, f.Subframes[0].Samples, []int32{4, 6, 5, 6})
}

func TestRicePartitions(t *testing.T) {
	// Partition order 1 splits 8 residuals of an order-0 fixed subframe
	// into two partitions of 4, each with its own parameter.
	want := []int32{3, -3, 0, 1, -100, 100, -50, 50}
	data := buildFrame(t, frameSpec{
		blockSize: 8,
		chCode:    uint64(ChannelsMono),
		bpsCode:   0x1,
		sub: func(b *bw) {
			b.bits(0, 1)
			b.bits(8|0, 6) // fixed, order 0
			b.bits(0, 1)
			b.bits(0, 2)
			b.bits(1, 4) // partition order 1
			b.bits(1, 4) // first partition: parameter 1
			for _, r := range want[:4] {
				b.rice(r, 1)
			}
			b.bits(6, 4) // second partition: parameter 6
			for _, r := range want[4:] {
				b.rice(r, 6)
			}
		},
	})
	f := parseOne(t, data)
	checkSamples(t, f.Subframes[0].Samples, want)
}

func TestEscapedPartition(t *testing.T) {
	// Escape parameter 1111: residuals are raw 6-bit two's complement.
	want := []int32{-1, -32, 31, 0}
	data := buildFrame(t, frameSpec{
		blockSize: 4,
		chCode:    uint64(ChannelsMono),
		bpsCode:   0x1,
		sub: func(b *bw) {
			b.bits(0, 1)
			b.bits(8|0, 6)
			b.bits(0, 1)
			b.bits(0, 2)
			b.bits(0, 4)
			b.bits(0xF, 4) // escape
			b.bits(6, 5)   // 6 bits per residual
			for _, r := range want {
				b.signed(int64(r), 6)
			}
		},
	})
	f := parseOne(t, data)
	checkSamples(t, f.Subframes[0].Samples, want)
}

func TestWastedBits(t *testing.T) {
	// One wasted bit: the constant is stored in 7 bits and restored by a
	// left shift, so 21 decodes as 42.
	data := buildFrame(t, frameSpec{
		blockSize: 2,
		chCode:    uint64(ChannelsMono),
		bpsCode:   0x1,
		sub: func(b *bw) {
			b.bits(0, 1)
			b.bits(0, 6)
			b.bits(1, 1) // wasted bits flag
			b.unary(0)   // k-1 = 0, so k = 1
			b.signed(21, 7)
		},
	})
	f := parseOne(t, data)
	if f.Subframes[0].Wasted != 1 {
		t.Errorf("wasted = %d; want 1", f.Subframes[0].Wasted)
	}
	checkSamples(t, f.Subframes[0].Samples, []int32{42, 42})
}

func TestMidSideExact(t *testing.T) {
	// left = [3, -4], right = [2, -1]
	// mid = (l+r)>>1 = [2, -3], side = l-r = [1, -3]; the mid channel's
	// lost low bit comes back from the side channel's parity.
	data := buildFrame(t, frameSpec{
		blockSize: 2,
		chCode:    uint64(ChannelsMidSide),
		bpsCode:   0x1,
		sub: func(b *bw) {
			verbatimSub([]int64{2, -3}, 8)(b)
			verbatimSub([]int64{1, -3}, 9)(b) // side channel is 9 bits
		},
	})
	f := parseOne(t, data)
	checkSamples(t, f.Subframes[0].Samples, []int32{3, -4})
	checkSamples(t, f.Subframes[1].Samples, []int32{2, -1})
}

func TestLeftSide(t *testing.T) {
	// left = [100, -100], right = [75, -50], side = l-r = [25, -50].
	data := buildFrame(t, frameSpec{
		blockSize: 2,
		chCode:    uint64(ChannelsLeftSide),
		bpsCode:   0x1,
		sub: func(b *bw) {
			verbatimSub([]int64{100, -100}, 8)(b)
			verbatimSub([]int64{25, -50}, 9)(b)
		},
	})
	f := parseOne(t, data)
	checkSamples(t, f.Subframes[0].Samples, []int32{100, -100})
	checkSamples(t, f.Subframes[1].Samples, []int32{75, -50})
}

func TestRightSide(t *testing.T) {
	// right = [75, -50], side = l-r = [25, -50], left = r+side.
	data := buildFrame(t, frameSpec{
		blockSize: 2,
		chCode:    uint64(ChannelsSideRight),
		bpsCode:   0x1,
		sub: func(b *bw) {
			verbatimSub([]int64{25, -50}, 9)(b)
			verbatimSub([]int64{75, -50}, 8)(b)
		},
	})
	f := parseOne(t, data)
	checkSamples(t, f.Subframes[0].Samples, []int32{100, -100})
	checkSamples(t, f.Subframes[1].Samples, []int32{75, -50})
}

func TestFrameCRC16Mismatch(t *testing.T) {
	data := buildFrame(t, frameSpec{
		blockSize: 4,
		chCode:    uint64(ChannelsMono),
		bpsCode:   0x1,
		sub:       constantSub(7, 8),
	})
	data[len(data)-1] ^= 0x01
	if _, err := Parse(bytes.NewReader(data)); !errors.Is(err, ErrChecksumMismatch) {
		t.Fatalf("expected ErrChecksumMismatch, got %v", err)
	}
}

func TestHeaderCRC8Mismatch(t *testing.T) {
	data := buildFrame(t, frameSpec{
		blockSize: 4,
		chCode:    uint64(ChannelsMono),
		bpsCode:   0x1,
		sub:       constantSub(7, 8),
	})
	// Flip a bit in the position byte; the header CRC-8 must catch it.
	data[4] ^= 0x01
	_, err := Parse(bytes.NewReader(data))
	if err == nil {
		t.Fatal("expected an error after header corruption")
	}
	if !errors.Is(err, ErrChecksumMismatch) && !errors.Is(err, ErrReservedBit) {
		t.Fatalf("expected a parse or checksum error, got %v", err)
	}
}

func TestInvalidPartitionOrder(t *testing.T) {
	// Block size 5 cannot split into 2 partitions.
	data := buildFrame(t, frameSpec{
		blockSize: 5,
		chCode:    uint64(ChannelsMono),
		bpsCode:   0x1,
		sub: func(b *bw) {
			b.bits(0, 1)
			b.bits(8|0, 6)
			b.bits(0, 1)
			b.bits(0, 2)
			b.bits(1, 4) // partition order 1: 5 % 2 != 0
			b.bits(0, 4)
			for i := 0; i < 5; i++ {
				b.rice(0, 0)
			}
		},
	})
	if _, err := Parse(bytes.NewReader(data)); !errors.Is(err, ErrInvalidPartitionOrder) {
		t.Fatalf("expected ErrInvalidPartitionOrder, got %v", err)
	}
}

func TestPartitionShorterThanOrder(t *testing.T) {
	// 8 samples in 4 partitions of 2 cannot hold an order-2 predictor's
	// warm-up offset in the first partition.
	data := buildFrame(t, frameSpec{
		blockSize: 8,
		chCode:    uint64(ChannelsMono),
		bpsCode:   0x1,
		sub: func(b *bw) {
			b.bits(0, 1)
			b.bits(8|2, 6)
			b.bits(0, 1)
			b.signed(0, 8)
			b.signed(0, 8)
			b.bits(0, 2)
			b.bits(2, 4) // partition order 2
		},
	})
	if _, err := Parse(bytes.NewReader(data)); !errors.Is(err, ErrInvalidPartitionOrder) {
		t.Fatalf("expected ErrInvalidPartitionOrder, got %v", err)
	}
}

func TestReservedChannelAssignment(t *testing.T) {
	data := buildFrame(t, frameSpec{
		blockSize: 4,
		chCode:    0xB, // reserved
		bpsCode:   0x1,
		sub:       constantSub(0, 8),
	})
	if _, err := Parse(bytes.NewReader(data)); !errors.Is(err, ErrReservedBit) {
		t.Fatalf("expected ErrReservedBit, got %v", err)
	}
}

func TestSyncLost(t *testing.T) {
	if _, err := Parse(bytes.NewReader([]byte{0x00, 0x00, 0x00, 0x00})); !errors.Is(err, ErrSyncLost) {
		t.Fatalf("expected ErrSyncLost, got %v", err)
	}
}

func TestTruncatedFrame(t *testing.T) {
	data := buildFrame(t, frameSpec{
		blockSize: 4,
		chCode:    uint64(ChannelsMono),
		bpsCode:   0x4,
		sub:       verbatimSub([]int64{1, 2, 3, 4}, 16),
	})
	for cut := 1; cut < len(data); cut++ {
		if _, err := Parse(bytes.NewReader(data[:cut])); !errors.Is(err, bits.ErrUnexpectedEnd) {
			t.Fatalf("cut at %d: expected ErrUnexpectedEnd, got %v", cut, err)
		}
	}
}

func TestPredictorOverflowGuard(t *testing.T) {
	// An order-1 fixed predictor pushed past the int32 range by a
	// maximal residual must fail the overflow guard, not wrap.
	data := buildFrame(t, frameSpec{
		blockSize: 2,
		chCode:    uint64(ChannelsMono),
		bpsCode:   0x6, // 24 bits
		sub: func(b *bw) {
			b.bits(0, 1)
			b.bits(8|1, 6)
			b.bits(0, 1)
			b.signed(8388607, 24)
			b.bits(1, 2)  // 5-bit Rice parameters
			b.bits(0, 4)  // partition order 0
			b.bits(30, 5) // Rice parameter 30
			b.rice(2147483647, 30)
		},
	})
	if _, err := Parse(bytes.NewReader(data)); !errors.Is(err, ErrArithmeticOverflow) {
		t.Fatalf("expected ErrArithmeticOverflow, got %v", err)
	}
}

func TestSampleNumber(t *testing.T) {
	fixed := &Header{HasFixedBlockSize: true, BlockSize: 4096, Num: 3}
	if got := fixed.SampleNumber(); got != 3*4096 {
		t.Errorf("fixed blocking sample number = %d; want %d", got, 3*4096)
	}
	variable := &Header{HasFixedBlockSize: false, BlockSize: 4096, Num: 12345}
	if got := variable.SampleNumber(); got != 12345 {
		t.Errorf("variable blocking sample number = %d; want 12345", got)
	}
}

func TestDecodeUTF8Int(t *testing.T) {
	cases := []struct {
		data []byte
		want uint64
	}{
		{[]byte{0x00}, 0},
		{[]byte{0x7F}, 0x7F},
		{[]byte{0xC2, 0x80}, 0x80},
		{[]byte{0xC3, 0x88}, 200},
		{[]byte{0xE0, 0xA0, 0x80}, 0x800},
		{[]byte{0xFE, 0xBF, 0xBF, 0xBF, 0xBF, 0xBF, 0xBF}, 1<<36 - 1},
	}
	for _, c := range cases {
		br := bits.NewReader(bytes.NewReader(c.data))
		got, err := decodeUTF8Int(br)
		if err != nil {
			t.Errorf("decodeUTF8Int(% X) failed: %v", c.data, err)
			continue
		}
		if got != c.want {
			t.Errorf("decodeUTF8Int(% X) = %d; want %d", c.data, got, c.want)
		}
	}

	invalid := [][]byte{
		{0x80},       // bare continuation byte
		{0xC2, 0x00}, // bad continuation byte
		{0xFF},       // too many leading ones
	}
	for _, data := range invalid {
		br := bits.NewReader(bytes.NewReader(data))
		if _, err := decodeUTF8Int(br); err == nil {
			t.Errorf("decodeUTF8Int(% X) succeeded; want error", data)
		}
	}
}
