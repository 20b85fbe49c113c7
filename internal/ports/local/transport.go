// Package local is the in-process transport: commands go straight to the
// authority's sink and events are delivered synchronously in issue order.
package local

import (
	"context"
	"fmt"
	"sync"

	"kitchencoop/internal/app"
	"kitchencoop/internal/ports"
)

// Transport connects in-process participants to one authority.
type Transport struct {
	sink ports.CommandSink

	mu    sync.RWMutex
	peers map[string]ports.EventSink
	order []string
}

// New returns a transport submitting commands to sink.
func New(sink ports.CommandSink) *Transport {
	return &Transport{sink: sink, peers: make(map[string]ports.EventSink)}
}

// SetSink replaces the authority sink. It exists so the authority and the
// transport can be built in either order.
func (t *Transport) SetSink(sink ports.CommandSink) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sink = sink
}

// Attach connects participantID and returns its invoker.
func (t *Transport) Attach(participantID string, peer ports.EventSink) ports.InvokerPort {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.peers[participantID]; !ok {
		t.order = append(t.order, participantID)
	}
	t.peers[participantID] = peer
	return &endpoint{t: t, id: participantID}
}

// Detach disconnects participantID. Later deliveries skip it and its
// invoker fails with ports.ErrDisconnected.
func (t *Transport) Detach(participantID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.peers, participantID)
	for i, id := range t.order {
		if id == participantID {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

// Connected reports whether participantID is attached.
func (t *Transport) Connected(participantID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.peers[participantID]
	return ok
}

type target struct {
	id   string
	sink ports.EventSink
}

// Broadcast delivers ev to its recipients, or to every attached peer, in attach order.
func (t *Transport) Broadcast(ctx context.Context, ev app.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.mu.RLock()
	targets := make([]target, 0, len(t.order))
	if len(ev.Recipients) > 0 {
		for _, id := range ev.Recipients {
			if sink, ok := t.peers[id]; ok {
				targets = append(targets, target{id: id, sink: sink})
			}
		}
	} else {
		for _, id := range t.order {
			targets = append(targets, target{id: id, sink: t.peers[id]})
		}
	}
	t.mu.RUnlock()

	for _, tg := range targets {
		tg.sink.Deliver(ev)
	}
	return nil
}

type endpoint struct {
	t  *Transport
	id string
}

func (e *endpoint) InvokeOnAuthority(ctx context.Context, cmd app.Command) error {
	e.t.mu.RLock()
	_, ok := e.t.peers[e.id]
	sink := e.t.sink
	e.t.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%s: %w", e.id, ports.ErrDisconnected)
	}
	if sink == nil {
		return fmt.Errorf("%s: no authority attached", e.id)
	}
	cmd.Sender = e.id
	return sink.Submit(ctx, cmd)
}
