// ABOUTME: FLAC playback CLI with a terminal UI
// ABOUTME: Decodes a file and streams it to the default audio device
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/Resonate-Protocol/flac-go/internal/player"
	"github.com/Resonate-Protocol/flac-go/internal/ui"
	"github.com/Resonate-Protocol/flac-go/pkg/flac"
)

func main() {
	volume := flag.Int("volume", 100, "Initial volume (0-100)")
	noUI := flag.Bool("no-ui", false, "Log progress instead of showing the TUI")
	logFile := flag.String("log", "", "Write logs to this file (discarded while the TUI runs)")
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

	// Logging to the terminal would tear the TUI; send it to a file or away.
	if !*noUI {
		if *logFile != "" {
			lf, err := os.Create(*logFile)
			if err != nil {
				log.Fatalf("Failed to create log file: %v", err)
			}
			defer lf.Close()
			log.SetOutput(lf)
		} else {
			log.SetOutput(io.Discard)
		}
	}

	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("Failed to open %s: %v", path, err)
	}
	defer f.Close()

	stream, err := flac.New(f)
	if err != nil {
		log.Fatalf("Failed to open FLAC stream: %v", err)
	}

	out := player.NewOto()
	defer out.Close()
	out.SetVolume(*volume)

	pl := player.New(stream, out)

	if *noUI {
		runPlain(pl, stream)
		return
	}

	volCtrl := ui.NewVolumeControl()
	prog, err := ui.Run(volCtrl)
	if err != nil {
		log.Fatalf("Failed to start UI: %v", err)
	}

	// Forward volume changes from the TUI to the output.
	go func() {
		for {
			select {
			case change := <-volCtrl.Changes:
				out.SetVolume(change.Volume)
				out.SetMuted(change.Muted)
			case <-volCtrl.Quit:
				return
			}
		}
	}()

	// Decode in the background, feeding progress into the TUI.
	go func() {
		info := stream.Info
		prog.Send(ui.StatusMsg{
			FileName:     filepath.Base(path),
			SampleRate:   int(info.SampleRate),
			Channels:     int(info.NChannels),
			BitDepth:     int(info.BitsPerSample),
			TotalSamples: info.NSamples,
			State:        "playing",
			Volume:       *volume,
		})

		pl.OnProgress = func(pr player.Progress) {
			msg := ui.StatusMsg{Decoded: &pr.Decoded}
			if pr.Err != nil {
				msg.Err = pr.Err.Error()
			} else if pr.Done {
				msg.State = "done"
			}
			prog.Send(msg)
		}

		if err := pl.Run(); err != nil {
			prog.Send(ui.StatusMsg{Err: err.Error()})
		}
	}()

	if _, err := prog.Run(); err != nil {
		log.Fatalf("UI error: %v", err)
	}
}

// runPlain plays without the TUI, logging progress every few seconds.
func runPlain(pl *player.Player, stream *flac.Stream) {
	rate := stream.Info.SampleRate
	var lastLogged uint64
	pl.OnProgress = func(pr player.Progress) {
		if pr.Done || pr.Decoded-lastLogged >= uint64(rate)*5 {
			lastLogged = pr.Decoded
			log.Printf("Played %d/%d samples", pr.Decoded, pr.Total)
		}
	}
	if err := pl.Run(); err != nil {
		log.Fatalf("Playback failed: %v", err)
	}
	log.Printf("Done")
}
