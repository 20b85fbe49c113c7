package app

import "kitchencoop/internal/domain"

// CommandKind identifies a participant intent sent to the authority.
type CommandKind string

const (
	CommandJoin              CommandKind = "join"
	CommandLeave             CommandKind = "leave"
	CommandInteract          CommandKind = "interact"
	CommandInteractAlternate CommandKind = "interact_alternate"
	CommandSetReady          CommandKind = "set_ready"
	CommandSetPaused         CommandKind = "set_paused"
	CommandRequestTransfer   CommandKind = "request_transfer"
	CommandSelectColor       CommandKind = "select_color"
)

// Command is one intent. Sender is filled in by the transport, never by the payload.
type Command struct {
	Kind    CommandKind
	Sender  string
	Payload any
}

type JoinPayload struct {
	Name string `json:"name"`
}

type InteractPayload struct {
	StationID string `json:"station_id"`
}

type ReadyPayload struct {
	Ready bool `json:"ready"`
}

type PausePayload struct {
	Paused bool `json:"paused"`
}

type TransferPayload struct {
	PropID domain.PropID   `json:"prop_id"`
	Holder domain.HolderID `json:"holder"`
}

type ColorPayload struct {
	ColorID int `json:"color_id"`
}
