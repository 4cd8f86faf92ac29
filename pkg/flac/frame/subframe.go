// ABOUTME: Subframe decoding for one channel of a frame
// ABOUTME: Constant, verbatim, fixed and LPC subframes with partitioned Rice residuals
package frame

import (
	"fmt"
	"math"

	"github.com/Resonate-Protocol/flac-go/internal/bits"
)

// Pred identifies the prediction method of a subframe.
type Pred uint8

// Prediction methods.
const (
	// PredConstant stores a single sample replicated across the block.
	PredConstant Pred = iota
	// PredVerbatim stores every sample unencoded.
	PredVerbatim
	// PredFixed predicts with one of five fixed polynomial predictors
	// (order 0-4) and stores Rice-coded residuals.
	PredFixed
	// PredLPC predicts with quantized linear-predictor coefficients
	// (order 1-32) carried in the subframe.
	PredLPC
)

// SubHeader describes how one channel's samples are encoded.
type SubHeader struct {
	// Prediction method.
	Pred Pred
	// Predictor order; meaningful for PredFixed (0-4) and PredLPC (1-32).
	Order int
	// Number of low-order zero bits shared by every sample of the
	// subframe. Samples are stored right-shifted by this amount and
	// restored before decorrelation.
	Wasted uint
}

// Subframe holds the decoded samples of one channel.
type Subframe struct {
	SubHeader
	// Decoded samples; residuals live here temporarily until the
	// predictor reconstructs the signal in place.
	Samples []int32
	// Number of samples in the subframe (the frame's block size).
	NSamples int
}

// parseSubframe decodes one channel's worth of samples. bps is the sample
// width in bits, already adjusted for side channels.
func (f *Frame) parseSubframe(br *bits.Reader, bps uint) (*Subframe, error) {
	sf := &Subframe{NSamples: int(f.BlockSize)}
	if err := sf.parseHeader(br); err != nil {
		return nil, err
	}

	if sf.Wasted >= bps {
		return nil, fmt.Errorf("flac: %d wasted bits leave no sample bits (bit depth %d)", sf.Wasted, bps)
	}
	bps -= sf.Wasted

	if sf.Order > sf.NSamples {
		return nil, fmt.Errorf("flac: predictor order %d exceeds block size %d", sf.Order, sf.NSamples)
	}

	sf.Samples = make([]int32, 0, sf.NSamples)
	var err error
	switch sf.Pred {
	case PredConstant:
		err = sf.decodeConstant(br, bps)
	case PredVerbatim:
		err = sf.decodeVerbatim(br, bps)
	case PredFixed:
		err = sf.decodeFixed(br, bps)
	case PredLPC:
		err = sf.decodeLPC(br, bps)
	}
	if err != nil {
		return nil, err
	}

	// Restore the wasted low-order zero bits of every sample.
	if sf.Wasted > 0 {
		for i, s := range sf.Samples {
			v := int64(s) << sf.Wasted
			if v < math.MinInt32 || v > math.MaxInt32 {
				return nil, fmt.Errorf("%w: wasted-bit restoration", ErrArithmeticOverflow)
			}
			sf.Samples[i] = int32(v)
		}
	}
	return sf, nil
}

// parseHeader reads the subframe header: a reserved bit, a 6-bit type code
// and an optional unary-coded wasted-bits count.
func (sf *Subframe) parseHeader(br *bits.Reader) error {
	// 1 bit: zero padding, guards against sync-fooling.
	x, err := br.Read(1)
	if err != nil {
		return err
	}
	if x != 0 {
		return fmt.Errorf("%w: non-zero padding bit in subframe header", ErrReservedBit)
	}

	// 6 bits: type code.
	//    000000: constant
	//    000001: verbatim
	//    00001x, 0001xx: reserved
	//    001xxx: fixed, xxx = order if <= 4, else reserved
	//    01xxxx: reserved
	//    1xxxxx: LPC, xxxxx = order-1
	if x, err = br.Read(6); err != nil {
		return err
	}
	switch {
	case x == 0:
		sf.Pred = PredConstant
	case x == 1:
		sf.Pred = PredVerbatim
	case x < 8:
		return fmt.Errorf("%w: subframe type %06b", ErrReservedBit, x)
	case x < 16:
		order := int(x & 0x07)
		if order > 4 {
			return fmt.Errorf("%w: subframe type %06b", ErrReservedBit, x)
		}
		sf.Pred = PredFixed
		sf.Order = order
	case x < 32:
		return fmt.Errorf("%w: subframe type %06b", ErrReservedBit, x)
	default:
		sf.Pred = PredLPC
		sf.Order = int(x&0x1F) + 1
	}

	// 1 bit: wasted-bits flag; if set, k-1 follows unary coded.
	if x, err = br.Read(1); err != nil {
		return err
	}
	if x != 0 {
		k, err := br.ReadUnary()
		if err != nil {
			return err
		}
		if k >= 32 {
			return fmt.Errorf("flac: wasted bits count %d out of range", k+1)
		}
		sf.Wasted = uint(k) + 1
	}
	return nil
}

// readSample reads one signed sample of bps bits, rejecting values that do
// not fit the output sample type.
func (sf *Subframe) readSample(br *bits.Reader, bps uint) (int32, error) {
	x, err := br.ReadSigned(bps)
	if err != nil {
		return 0, err
	}
	if x < math.MinInt32 || x > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %d-bit sample out of range", ErrArithmeticOverflow, bps)
	}
	return int32(x), nil
}

// decodeConstant reads a single sample and replicates it across the block.
func (sf *Subframe) decodeConstant(br *bits.Reader, bps uint) error {
	sample, err := sf.readSample(br, bps)
	if err != nil {
		return err
	}
	for i := 0; i < sf.NSamples; i++ {
		sf.Samples = append(sf.Samples, sample)
	}
	return nil
}

// decodeVerbatim reads every sample of the subframe unencoded.
func (sf *Subframe) decodeVerbatim(br *bits.Reader, bps uint) error {
	for i := 0; i < sf.NSamples; i++ {
		sample, err := sf.readSample(br, bps)
		if err != nil {
			return err
		}
		sf.Samples = append(sf.Samples, sample)
	}
	return nil
}

// decodeFixed reads the warm-up samples and residuals of a fixed-predictor
// subframe and reconstructs the signal with the binomial-difference
// coefficients of the declared order.
func (sf *Subframe) decodeFixed(br *bits.Reader, bps uint) error {
	for i := 0; i < sf.Order; i++ {
		sample, err := sf.readSample(br, bps)
		if err != nil {
			return err
		}
		sf.Samples = append(sf.Samples, sample)
	}
	if err := sf.decodeResidual(br); err != nil {
		return err
	}
	return reconstruct(sf.Samples, fixedCoeffs[sf.Order], 0)
}

// decodeLPC reads the warm-up samples, quantized coefficients and
// residuals of an LPC subframe and reconstructs the signal.
func (sf *Subframe) decodeLPC(br *bits.Reader, bps uint) error {
	for i := 0; i < sf.Order; i++ {
		sample, err := sf.readSample(br, bps)
		if err != nil {
			return err
		}
		sf.Samples = append(sf.Samples, sample)
	}

	// 4 bits: coefficient precision minus one; 1111 is invalid.
	x, err := br.Read(4)
	if err != nil {
		return err
	}
	if x == 0xF {
		return fmt.Errorf("%w: LPC coefficient precision 1111", ErrReservedBit)
	}
	prec := uint(x) + 1

	// 5 bits: signed coefficient shift applied after the dot product.
	shift, err := br.ReadSigned(5)
	if err != nil {
		return err
	}
	if shift < 0 {
		return fmt.Errorf("flac: negative LPC coefficient shift %d", shift)
	}

	coeffs := make([]int32, sf.Order)
	for i := range coeffs {
		c, err := br.ReadSigned(prec)
		if err != nil {
			return err
		}
		coeffs[i] = int32(c)
	}

	if err := sf.decodeResidual(br); err != nil {
		return err
	}
	return reconstruct(sf.Samples, coeffs, uint(shift))
}

// decodeResidual decodes the partitioned Rice residuals that follow the
// warm-up samples, appending them to sf.Samples.
func (sf *Subframe) decodeResidual(br *bits.Reader) error {
	// 2 bits: residual coding method.
	//    00: Rice with 4-bit parameters, escape 1111
	//    01: Rice with 5-bit parameters, escape 11111
	method, err := br.Read(2)
	if err != nil {
		return err
	}
	switch method {
	case 0:
		return sf.decodeRicePart(br, 4)
	case 1:
		return sf.decodeRicePart(br, 5)
	default:
		return fmt.Errorf("%w: residual coding method %02b", ErrReservedBit, method)
	}
}

// decodeRicePart decodes 2^order equal-size Rice partitions, each with its
// own parameter or a fixed-width escape.
func (sf *Subframe) decodeRicePart(br *bits.Reader, paramSize uint) error {
	// 4 bits: partition order.
	x, err := br.Read(4)
	if err != nil {
		return err
	}
	partOrder := uint(x)
	nparts := 1 << partOrder

	if partOrder > 0 {
		if sf.NSamples%nparts != 0 {
			return fmt.Errorf("%w: %d samples do not split into %d partitions",
				ErrInvalidPartitionOrder, sf.NSamples, nparts)
		}
		if sf.NSamples/nparts <= sf.Order {
			return fmt.Errorf("%w: first partition shorter than predictor order %d",
				ErrInvalidPartitionOrder, sf.Order)
		}
	}

	escape := uint64(1)<<paramSize - 1
	for i := 0; i < nparts; i++ {
		// 4 or 5 bits: Rice parameter.
		p, err := br.Read(paramSize)
		if err != nil {
			return err
		}

		nsamples := sf.NSamples / nparts
		if i == 0 {
			nsamples -= sf.Order
		}

		if p == escape {
			// Escaped partition: 5-bit width, then fixed-width signed
			// residuals (two's complement). Width zero means all zero.
			w, err := br.Read(5)
			if err != nil {
				return err
			}
			width := uint(w)
			for j := 0; j < nsamples; j++ {
				if width == 0 {
					sf.Samples = append(sf.Samples, 0)
					continue
				}
				v, err := br.ReadSigned(width)
				if err != nil {
					return err
				}
				sf.Samples = append(sf.Samples, int32(v))
			}
			continue
		}

		k := uint(p)
		for j := 0; j < nsamples; j++ {
			residual, err := decodeRiceResidual(br, k)
			if err != nil {
				return err
			}
			sf.Samples = append(sf.Samples, residual)
		}
	}
	return nil
}

// decodeRiceResidual reads one Rice-coded residual: a unary quotient, k
// remainder bits, then a zig-zag mapping back to a signed value.
func decodeRiceResidual(br *bits.Reader, k uint) (int32, error) {
	high, err := br.ReadUnary()
	if err != nil {
		return 0, err
	}
	low, err := br.Read(k)
	if err != nil {
		return 0, err
	}
	if high > math.MaxUint32>>k {
		return 0, fmt.Errorf("%w: Rice quotient %d exceeds residual range", ErrArithmeticOverflow, high)
	}
	return bits.DecodeZigZag(uint32(high<<k | low)), nil
}
