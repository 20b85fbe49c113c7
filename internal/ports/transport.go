package ports

import (
	"context"
	"errors"

	"kitchencoop/internal/app"
)

// ErrDisconnected is returned when a participant's link to the authority is gone.
var ErrDisconnected = errors.New("participant disconnected")

// InvokerPort carries one participant's commands to the authority.
type InvokerPort interface {
	// InvokeOnAuthority delivers cmd to the authority exactly once.
	// The transport fills in the sender; cmd.Sender is ignored.
	InvokeOnAuthority(ctx context.Context, cmd app.Command) error
}

// BroadcastPort carries authority events to participants.
type BroadcastPort interface {
	// Broadcast delivers ev to every connected participant in issue order, or
	// only to ev.Recipients when set.
	Broadcast(ctx context.Context, ev app.Event) error
}

// Transport is the replication shim between participants and the authority.
type Transport interface {
	InvokerPort
	BroadcastPort
}

// CommandSink receives commands on the authority side.
type CommandSink interface {
	Submit(ctx context.Context, cmd app.Command) error
}

// EventSink receives events on the participant side.
type EventSink interface {
	Deliver(ev app.Event)
}

// Fanout broadcasts to several transports, for example sockets and a bus.
type Fanout []BroadcastPort

// Broadcast sends ev to every port and joins their errors.
func (f Fanout) Broadcast(ctx context.Context, ev app.Event) error {
	var errs []error
	for _, p := range f {
		if err := p.Broadcast(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
