// ABOUTME: Package documentation for FLAC metadata parsing
// ABOUTME: Describes STREAMINFO decoding and opaque block skipping
// Package meta provides access to FLAC metadata blocks.
//
// Only the mandatory STREAMINFO block is decoded; every other block type
// (padding, tags, pictures, seek tables, ...) is exposed as an opaque
// (IsLast, Type, Length) record whose body is skipped byte-exactly.
package meta
