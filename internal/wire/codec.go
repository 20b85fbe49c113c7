package wire

import (
	"encoding/json"
	"errors"
	"fmt"

	"kitchencoop/internal/app"
)

var (
	ErrUnknownOp   = errors.New("unknown op code")
	ErrUnknownKind = errors.New("kind has no op code")
)

// Frame is the envelope used by socket and bus transports. Nakama carries
// Op and Data natively and never sees a Frame.
type Frame struct {
	Op         int64           `json:"op"`
	Sender     string          `json:"sender,omitempty"`
	Recipients []string        `json:"recipients,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
}

type decoder func([]byte) (any, error)

func decodeAs[T any](data []byte) (any, error) {
	var v T
	if len(data) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func decodeNothing([]byte) (any, error) {
	return nil, nil
}

var commandDecoders = map[app.CommandKind]decoder{
	app.CommandJoin:              decodeAs[app.JoinPayload],
	app.CommandLeave:             decodeNothing,
	app.CommandInteract:          decodeAs[app.InteractPayload],
	app.CommandInteractAlternate: decodeAs[app.InteractPayload],
	app.CommandSetReady:          decodeAs[app.ReadyPayload],
	app.CommandSetPaused:         decodeAs[app.PausePayload],
	app.CommandRequestTransfer:   decodeAs[app.TransferPayload],
	app.CommandSelectColor:       decodeAs[app.ColorPayload],
}

var eventDecoders = map[app.EventKind]decoder{
	app.EventSnapshot:          decodeAs[app.SnapshotPayload],
	app.EventParticipantJoined: decodeAs[app.ParticipantPayload],
	app.EventParticipantLeft:   decodeAs[app.ParticipantPayload],
	app.EventColorChanged:      decodeAs[app.ParticipantPayload],
	app.EventPhaseChanged:      decodeAs[app.PhaseChangedPayload],
	app.EventSessionTimers:     decodeAs[app.SessionTimersPayload],
	app.EventReadyChanged:      decodeAs[app.ReadyChangedPayload],
	app.EventPauseChanged:      decodeAs[app.PauseChangedPayload],
	app.EventPropSpawned:       decodeAs[app.PropSpawnedPayload],
	app.EventPropTransferred:   decodeAs[app.PropTransferredPayload],
	app.EventPropDestroyed:     decodeAs[app.PropDestroyedPayload],
	app.EventIngredientAdded:   decodeAs[app.IngredientAddedPayload],
	app.EventStationState:      decodeAs[app.StationStatePayload],
	app.EventProgressChanged:   decodeAs[app.ProgressChangedPayload],
	app.EventPlateStock:        decodeAs[app.PlateStockPayload],
	app.EventOrderSpawned:      decodeAs[app.OrderSpawnedPayload],
	app.EventOrderSucceeded:    decodeAs[app.DeliveryPayload],
	app.EventOrderFailed:       decodeAs[app.DeliveryPayload],
}

func encodeBody(payload any) ([]byte, error) {
	if payload == nil {
		return nil, nil
	}
	return json.Marshal(payload)
}

// EncodeCommand returns the op code and body for cmd. The sender is not encoded.
func EncodeCommand(cmd app.Command) (int64, []byte, error) {
	op, ok := CommandOp(cmd.Kind)
	if !ok {
		return 0, nil, fmt.Errorf("command %q: %w", cmd.Kind, ErrUnknownKind)
	}
	data, err := encodeBody(cmd.Payload)
	if err != nil {
		return 0, nil, fmt.Errorf("encode %s: %w", cmd.Kind, err)
	}
	return op, data, nil
}

// DecodeCommand parses a client message. sender comes from the transport's
// authenticated identity.
func DecodeCommand(op int64, sender string, data []byte) (app.Command, error) {
	kind, ok := commandKinds[op]
	if !ok {
		return app.Command{}, fmt.Errorf("command op %d: %w", op, ErrUnknownOp)
	}
	payload, err := commandDecoders[kind](data)
	if err != nil {
		return app.Command{}, fmt.Errorf("decode %s: %w", kind, err)
	}
	return app.Command{Kind: kind, Sender: sender, Payload: payload}, nil
}

// EncodeEvent returns the op code and body for ev.
func EncodeEvent(ev app.Event) (int64, []byte, error) {
	op, ok := EventOp(ev.Kind)
	if !ok {
		return 0, nil, fmt.Errorf("event %q: %w", ev.Kind, ErrUnknownKind)
	}
	data, err := encodeBody(ev.Payload)
	if err != nil {
		return 0, nil, fmt.Errorf("encode %s: %w", ev.Kind, err)
	}
	return op, data, nil
}

// DecodeEvent parses a server event. Recipients are not part of the body.
func DecodeEvent(op int64, data []byte) (app.Event, error) {
	kind, ok := eventKinds[op]
	if !ok {
		return app.Event{}, fmt.Errorf("event op %d: %w", op, ErrUnknownOp)
	}
	payload, err := eventDecoders[kind](data)
	if err != nil {
		return app.Event{}, fmt.Errorf("decode %s: %w", kind, err)
	}
	return app.Event{Kind: kind, Payload: payload}, nil
}

// EventFrame wraps ev, recipients included.
func EventFrame(ev app.Event) (Frame, error) {
	op, data, err := EncodeEvent(ev)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Op: op, Recipients: ev.Recipients, Data: data}, nil
}

// CommandFrame wraps cmd, sender included.
func CommandFrame(cmd app.Command) (Frame, error) {
	op, data, err := EncodeCommand(cmd)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Op: op, Sender: cmd.Sender, Data: data}, nil
}

// Event unwraps an event frame.
func (f Frame) Event() (app.Event, error) {
	ev, err := DecodeEvent(f.Op, f.Data)
	if err != nil {
		return app.Event{}, err
	}
	ev.Recipients = f.Recipients
	return ev, nil
}

// Command unwraps a command frame.
func (f Frame) Command() (app.Command, error) {
	return DecodeCommand(f.Op, f.Sender, f.Data)
}
