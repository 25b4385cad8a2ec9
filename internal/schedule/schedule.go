// Package schedule implements a cron-expression trigger source: each
// registered entry synthesizes a channel.Inbound message on its schedule,
// making scheduled/recurring tasks flow through the exact same
// MESSAGE_RECEIVED -> TaskFSM pipeline as any other channel. It is kept
// distinct from the teacher's per-message TaskFSM concept: a schedule
// entry's job is solely to produce input text on a timer, not to track
// task executions itself.
package schedule

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/nexus-agent/core/internal/channel"
	"github.com/nexus-agent/core/internal/task"
)

// Type is the channel.type this source reports.
const Type = "schedule"

// Entry is one cron-triggered input.
type Entry struct {
	// Name identifies the entry for logging/registration errors.
	Name string
	// Spec is a standard 5-field cron expression ("*/5 * * * *") or a
	// cron.Descriptor ("@hourly", "@every 1h").
	Spec string
	// Text is the input text synthesized on each firing.
	Text string
}

// Source is a channel.Adapter that fires registered Entry values on
// their cron schedule, each producing one channel.Inbound.
type Source struct {
	cron     *cron.Cron
	entries  []Entry
	messages chan channel.Inbound
}

// New builds a Source with the given entries. Entries must be added
// before Start; adding more after Start has no effect.
func New(entries ...Entry) *Source {
	return &Source{
		cron:     cron.New(),
		entries:  entries,
		messages: make(chan channel.Inbound, 16),
	}
}

// Type returns "schedule".
func (s *Source) Type() string { return Type }

// Start registers every entry's cron job and starts the scheduler.
func (s *Source) Start(ctx context.Context) error {
	for _, entry := range s.entries {
		e := entry
		if _, err := s.cron.AddFunc(e.Spec, func() { s.fire(e) }); err != nil {
			return fmt.Errorf("schedule: invalid cron spec %q for entry %q: %w", e.Spec, e.Name, err)
		}
	}
	s.cron.Start()
	return nil
}

// Stop stops the scheduler, waiting for any in-flight job to finish.
func (s *Source) Stop(ctx context.Context) error {
	<-s.cron.Stop().Done()
	return nil
}

// Messages returns the channel of inbound messages synthesized by firing
// entries.
func (s *Source) Messages() <-chan channel.Inbound { return s.messages }

func (s *Source) fire(entry Entry) {
	s.messages <- channel.Inbound{
		Text: entry.Text,
		Channel: task.ChannelCoordinate{
			Type:      Type,
			ChannelID: entry.Name,
		},
		Metadata: map[string]any{"cronSpec": entry.Spec},
	}
}
