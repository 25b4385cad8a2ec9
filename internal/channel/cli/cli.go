// Package cli implements channel.FullAdapter over stdin/stdout, for local
// interactive use and the seed end-to-end test scenarios.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/nexus-agent/core/internal/channel"
	"github.com/nexus-agent/core/internal/task"
)

// Type is the channel.type this adapter reports.
const Type = "cli"

// ChannelID is the single synthetic channel id every cli-originated
// message and reply is addressed to; a terminal session has no concept
// of multiple channels.
const ChannelID = "stdin"

// Adapter is a channel.FullAdapter reading lines from in and writing
// replies to out.
type Adapter struct {
	in       io.Reader
	out      io.Writer
	messages chan channel.Inbound
	cancel   context.CancelFunc
}

// New builds an Adapter over stdin/stdout.
func New() *Adapter {
	return NewWithIO(os.Stdin, os.Stdout)
}

// NewWithIO builds an Adapter over arbitrary readers/writers, for tests.
func NewWithIO(in io.Reader, out io.Writer) *Adapter {
	return &Adapter{in: in, out: out, messages: make(chan channel.Inbound, 16)}
}

// Type returns "cli".
func (a *Adapter) Type() string { return Type }

// Start launches a goroutine scanning lines from in, one Inbound per
// non-empty line.
func (a *Adapter) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	go func() {
		scanner := bufio.NewScanner(a.in)
		for scanner.Scan() {
			select {
			case <-runCtx.Done():
				return
			default:
			}
			line := scanner.Text()
			if line == "" {
				continue
			}
			a.messages <- channel.Inbound{
				Text: line,
				Channel: task.ChannelCoordinate{
					Type:      Type,
					ChannelID: ChannelID,
				},
			}
		}
	}()
	return nil
}

// Stop cancels the scanning goroutine.
func (a *Adapter) Stop(ctx context.Context) error {
	if a.cancel != nil {
		a.cancel()
	}
	return nil
}

// Messages returns the channel of inbound lines.
func (a *Adapter) Messages() <-chan channel.Inbound { return a.messages }

// Deliver writes out.Text followed by a newline to the adapter's writer.
func (a *Adapter) Deliver(ctx context.Context, out channel.Outbound) error {
	_, err := fmt.Fprintln(a.out, out.Text)
	return err
}
