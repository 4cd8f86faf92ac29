// ABOUTME: Package documentation for the FLAC decode session API
// ABOUTME: Describes the open/next-block protocol and error latching
// Package flac implements a lossless FLAC audio decoder.
//
// A decode session turns a sequential byte source into the exact original
// integer PCM samples:
//
//	stream, err := flac.New(r)
//	// stream.Info holds the stream parameters
//	for {
//		block, err := stream.NextBlock()
//		if err == io.EOF {
//			break
//		}
//		if err != nil {
//			// typed decode error; see errors.go
//		}
//		// block.Samples[ch][i]
//	}
//
// Decoding is synchronous and pull-based: each NextBlock call decodes
// exactly one frame. Malformed or adversarial input never panics or reads
// out of bounds; it surfaces a typed error instead. The first error is
// latched and the session refuses further progress, except that callers
// may attempt explicit best-effort recovery with Stream.Resync after a
// sync loss or checksum mismatch.
//
// The decoder verifies frame header CRC-8, whole-frame CRC-16 and, when
// the stream declares its total length and a signature, the MD5 of all
// decoded samples.
package flac
