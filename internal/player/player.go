// ABOUTME: Decode-and-play loop
// ABOUTME: Pulls blocks from a decode session, interleaves them and feeds the output
package player

import (
	"errors"
	"fmt"
	"io"

	"github.com/Resonate-Protocol/flac-go/pkg/flac"
)

// Progress reports playback state to an observer after each decoded block
// and once more when playback ends.
type Progress struct {
	// Inter-channel samples decoded so far.
	Decoded uint64
	// Total samples declared by the stream; 0 when unknown.
	Total uint64
	// Terminal decode error, nil on a clean end.
	Err error
	// Set on the final report.
	Done bool
}

// Player drives a decode session into an audio output.
type Player struct {
	stream *flac.Stream
	out    Output

	// OnProgress, when set, is called after every block and at the end of
	// playback. Called from the goroutine running Run.
	OnProgress func(Progress)

	decoded uint64
}

// New creates a player for an opened decode session.
func New(stream *flac.Stream, out Output) *Player {
	return &Player{stream: stream, out: out}
}

// Run opens the output with the stream parameters and plays blocks until
// the stream ends or decoding fails. Lost synchronization is recovered
// in place when possible; playback resumes at the next frame.
func (p *Player) Run() error {
	info := p.stream.Info
	if err := p.out.Open(int(info.SampleRate), int(info.NChannels), int(info.BitsPerSample)); err != nil {
		return fmt.Errorf("open audio output: %w", err)
	}

	for {
		block, err := p.stream.NextBlock()
		if err == io.EOF {
			p.report(Progress{Decoded: p.decoded, Total: info.NSamples, Done: true})
			return nil
		}
		if errors.Is(err, flac.ErrSyncLost) {
			if rerr := p.stream.Resync(); rerr == nil {
				continue
			}
			p.report(Progress{Decoded: p.decoded, Total: info.NSamples, Err: err, Done: true})
			return err
		}
		if err != nil {
			p.report(Progress{Decoded: p.decoded, Total: info.NSamples, Err: err, Done: true})
			return err
		}

		if err := p.out.Write(Interleave(block)); err != nil {
			return err
		}
		p.decoded += uint64(block.N)
		p.report(Progress{Decoded: p.decoded, Total: info.NSamples})
	}
}

func (p *Player) report(pr Progress) {
	if p.OnProgress != nil {
		p.OnProgress(pr)
	}
}

// Interleave flattens a block's per-channel samples into the
// channel-interleaved order audio outputs consume.
func Interleave(b *flac.Block) []int32 {
	out := make([]int32, 0, b.N*b.Channels)
	for i := 0; i < b.N; i++ {
		for ch := 0; ch < b.Channels; ch++ {
			out = append(out, b.Samples[ch][i])
		}
	}
	return out
}
