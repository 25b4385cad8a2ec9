// Package channel implements the ChannelMux: the bridge between external
// channel adapters (cli, telegram, discord, ...) and the event bus. It owns
// the registered adapter set, forwards inbound messages onto the bus as
// MESSAGE_RECEIVED events, and routes outbound "reply" tool calls to the
// adapter matching the originating task's channel type.
package channel

import (
	"context"
	"log/slog"

	"github.com/nexus-agent/core/internal/bus"
	"github.com/nexus-agent/core/internal/task"
)

// Inbound is what an adapter hands to the mux for a message it received.
type Inbound struct {
	Text     string
	Channel  task.ChannelCoordinate
	Metadata map[string]any
}

// Outbound is what the mux hands to an adapter to deliver.
type Outbound struct {
	Text    string
	Channel task.ChannelCoordinate
}

// Adapter is the minimal contract every channel connector satisfies.
type Adapter interface {
	// Type returns the stable channel type ("cli", "telegram", "discord", ...).
	Type() string
}

// LifecycleAdapter represents adapters that start/stop with the process.
type LifecycleAdapter interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// InboundAdapter represents adapters that emit inbound messages.
type InboundAdapter interface {
	Messages() <-chan Inbound
}

// OutboundAdapter represents adapters that can deliver a reply.
type OutboundAdapter interface {
	Deliver(ctx context.Context, out Outbound) error
}

// FullAdapter aggregates every adapter capability for convenience.
type FullAdapter interface {
	Adapter
	LifecycleAdapter
	InboundAdapter
	OutboundAdapter
}

// ToolCaller is the minimal contract Mux needs from the tool-execution
// plane to decorate calls to the "reply" tool; satisfied structurally by
// cognition.ToolCaller (in turn satisfied by *toolkit.Executor).
type ToolCaller interface {
	Execute(ctx context.Context, toolCallID, name string, args map[string]any, tc *task.Context) task.StepResult
}

// Mux owns the registered channel adapters, pumps inbound messages onto
// the bus, and decorates tool execution so a "reply" tool call is routed
// to the adapter matching the originating task's channel type instead of
// the general tool registry. Two adapters registered under the same type
// is undefined upstream; the last Register call wins.
type Mux struct {
	bus   *bus.EventBus
	inner ToolCaller

	adapters  map[string]Adapter
	lifecycle map[string]LifecycleAdapter
	inbound   map[string]InboundAdapter
	outbound  map[string]OutboundAdapter

	onReply func(Outbound)
	log     *slog.Logger
}

// Option configures a Mux.
type Option func(*Mux)

// WithLogger overrides the mux's logger.
func WithLogger(log *slog.Logger) Option {
	return func(m *Mux) { m.log = log }
}

// WithOnReply registers a direct callback invoked on every reply, in
// addition to (not instead of) adapter delivery. Used by test scenarios
// that have no adapters registered at all.
func WithOnReply(fn func(Outbound)) Option {
	return func(m *Mux) { m.onReply = fn }
}

// NewMux constructs a Mux. b is the event bus inbound messages are
// published onto. inner is the underlying tool caller for every tool call
// not named "reply" (typically *toolkit.Executor).
func NewMux(b *bus.EventBus, inner ToolCaller, opts ...Option) *Mux {
	m := &Mux{
		bus:       b,
		inner:     inner,
		adapters:  make(map[string]Adapter),
		lifecycle: make(map[string]LifecycleAdapter),
		inbound:   make(map[string]InboundAdapter),
		outbound:  make(map[string]OutboundAdapter),
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Register adds (or replaces) an adapter under its Type().
func (m *Mux) Register(adapter Adapter) {
	typ := adapter.Type()
	m.adapters[typ] = adapter

	if a, ok := adapter.(LifecycleAdapter); ok {
		m.lifecycle[typ] = a
	} else {
		delete(m.lifecycle, typ)
	}
	if a, ok := adapter.(InboundAdapter); ok {
		m.inbound[typ] = a
	} else {
		delete(m.inbound, typ)
	}
	if a, ok := adapter.(OutboundAdapter); ok {
		m.outbound[typ] = a
	} else {
		delete(m.outbound, typ)
	}
}

// Get returns the adapter registered for typ, if any.
func (m *Mux) Get(typ string) (Adapter, bool) {
	a, ok := m.adapters[typ]
	return a, ok
}

// Start starts every lifecycle adapter, then launches one pump goroutine
// per inbound adapter forwarding its messages onto the bus as
// MESSAGE_RECEIVED events.
func (m *Mux) Start(ctx context.Context) error {
	for _, a := range m.lifecycle {
		if err := a.Start(ctx); err != nil {
			return err
		}
	}
	for typ, a := range m.inbound {
		go m.pump(ctx, typ, a)
	}
	return nil
}

func (m *Mux) pump(ctx context.Context, typ string, adapter InboundAdapter) {
	for {
		select {
		case <-ctx.Done():
			return
		case in, ok := <-adapter.Messages():
			if !ok {
				return
			}
			m.bus.Emit(bus.New(bus.EventMessageReceived, "", typ, map[string]any{
				"text":     in.Text,
				"channel":  in.Channel,
				"metadata": in.Metadata,
			}))
		}
	}
}

// Stop stops every lifecycle adapter, returning the last error seen.
func (m *Mux) Stop(ctx context.Context) error {
	var lastErr error
	for _, a := range m.lifecycle {
		if err := a.Stop(ctx); err != nil {
			lastErr = err
		}
	}
	return lastErr
}
