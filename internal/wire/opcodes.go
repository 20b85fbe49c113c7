// Package wire maps commands and events to numeric op codes and JSON bodies
// shared by every transport.
package wire

import "kitchencoop/internal/app"

// Op codes for client messages and server events.
const (
	// Client -> Server
	OpJoin              int64 = 1
	OpLeave             int64 = 2
	OpInteract          int64 = 3
	OpInteractAlternate int64 = 4
	OpSetReady          int64 = 5
	OpSetPaused         int64 = 6
	OpRequestTransfer   int64 = 7
	OpSelectColor       int64 = 8

	// Server -> Client events
	OpSnapshot          int64 = 100 // sent privately
	OpParticipantJoined int64 = 101
	OpParticipantLeft   int64 = 102
	OpColorChanged      int64 = 103
	OpPhaseChanged      int64 = 104
	OpSessionTimers     int64 = 105
	OpReadyChanged      int64 = 106
	OpPauseChanged      int64 = 107
	OpPropSpawned       int64 = 108
	OpPropTransferred   int64 = 109
	OpPropDestroyed     int64 = 110
	OpIngredientAdded   int64 = 111
	OpStationState      int64 = 112
	OpProgressChanged   int64 = 113
	OpPlateStock        int64 = 114
	OpOrderSpawned      int64 = 115
	OpOrderSucceeded    int64 = 116
	OpOrderFailed       int64 = 117
)

var commandOps = map[app.CommandKind]int64{
	app.CommandJoin:              OpJoin,
	app.CommandLeave:             OpLeave,
	app.CommandInteract:          OpInteract,
	app.CommandInteractAlternate: OpInteractAlternate,
	app.CommandSetReady:          OpSetReady,
	app.CommandSetPaused:         OpSetPaused,
	app.CommandRequestTransfer:   OpRequestTransfer,
	app.CommandSelectColor:       OpSelectColor,
}

var eventOps = map[app.EventKind]int64{
	app.EventSnapshot:          OpSnapshot,
	app.EventParticipantJoined: OpParticipantJoined,
	app.EventParticipantLeft:   OpParticipantLeft,
	app.EventColorChanged:      OpColorChanged,
	app.EventPhaseChanged:      OpPhaseChanged,
	app.EventSessionTimers:     OpSessionTimers,
	app.EventReadyChanged:      OpReadyChanged,
	app.EventPauseChanged:      OpPauseChanged,
	app.EventPropSpawned:       OpPropSpawned,
	app.EventPropTransferred:   OpPropTransferred,
	app.EventPropDestroyed:     OpPropDestroyed,
	app.EventIngredientAdded:   OpIngredientAdded,
	app.EventStationState:      OpStationState,
	app.EventProgressChanged:   OpProgressChanged,
	app.EventPlateStock:        OpPlateStock,
	app.EventOrderSpawned:      OpOrderSpawned,
	app.EventOrderSucceeded:    OpOrderSucceeded,
	app.EventOrderFailed:       OpOrderFailed,
}

var (
	commandKinds = invert(commandOps)
	eventKinds   = invert(eventOps)
)

func invert[K comparable](m map[K]int64) map[int64]K {
	out := make(map[int64]K, len(m))
	for k, op := range m {
		out[op] = k
	}
	return out
}

// CommandOp returns the op code for a command kind.
func CommandOp(kind app.CommandKind) (int64, bool) {
	op, ok := commandOps[kind]
	return op, ok
}

// EventOp returns the op code for an event kind.
func EventOp(kind app.EventKind) (int64, bool) {
	op, ok := eventOps[kind]
	return op, ok
}

// IsCommand reports whether op is a client op code.
func IsCommand(op int64) bool {
	_, ok := commandKinds[op]
	return ok
}
