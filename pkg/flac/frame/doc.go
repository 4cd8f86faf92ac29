// ABOUTME: Package documentation for FLAC frame decoding
// ABOUTME: Explains frames, subframes and stereo decorrelation
// Package frame implements access to FLAC audio frames.
//
// Encoders split the audio stream into blocks of samples and store each
// block as one frame; within a frame, each channel's samples become one
// subframe, encoded as a constant, verbatim, fixed-predictor or
// LPC-predictor signal with partitioned Rice residuals. Stereo frames may
// trade one channel for a sum/difference transform (left/side, right/side
// or mid/side), undone here after the subframes are decoded.
//
// Parsing is strict: reserved bit patterns, impossible partition layouts
// and checksum disagreements surface as typed errors, never as panics or
// out-of-bounds reads, regardless of input.
package frame
