// ABOUTME: FLAC stream inspector CLI
// ABOUTME: Prints stream parameters and metadata, optionally verifying the audio
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/Resonate-Protocol/flac-go/pkg/flac"
)

func main() {
	verify := flag.Bool("verify", false, "Decode every frame and verify checksums")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <file.flac>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	path := flag.Arg(0)

	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("Failed to open %s: %v", path, err)
	}
	defer f.Close()

	stream, err := flac.New(f)
	if err != nil {
		log.Fatalf("Failed to open FLAC stream: %v", err)
	}

	info := stream.Info
	fmt.Printf("%s\n", path)
	fmt.Printf("  sample rate:     %d Hz\n", info.SampleRate)
	fmt.Printf("  channels:        %d\n", info.NChannels)
	fmt.Printf("  bits per sample: %d\n", info.BitsPerSample)
	if info.NSamples > 0 {
		seconds := float64(info.NSamples) / float64(info.SampleRate)
		fmt.Printf("  total samples:   %d (%.1fs)\n", info.NSamples, seconds)
	} else {
		fmt.Printf("  total samples:   unknown\n")
	}
	fmt.Printf("  block size:      %d-%d\n", info.BlockSizeMin, info.BlockSizeMax)
	fmt.Printf("  audio MD5:       %x\n", info.MD5sum)

	if len(stream.Blocks) > 0 {
		fmt.Printf("  metadata blocks:\n")
		for _, b := range stream.Blocks {
			fmt.Printf("    %-14s %d bytes\n", b.TypeName(), b.Length)
		}
	}

	if !*verify {
		return
	}

	var frames, samples uint64
	for {
		block, err := stream.NextBlock()
		if err == io.EOF {
			break
		}
		if err != nil {
			if errors.Is(err, flac.ErrChecksumMismatch) {
				log.Fatalf("Verification FAILED after %d frames: %v", frames, err)
			}
			log.Fatalf("Decode failed after %d frames: %v", frames, err)
		}
		frames++
		samples += uint64(block.N)
	}
	fmt.Printf("  verified:        %d frames, %d samples, all checksums OK\n", frames, samples)
}
