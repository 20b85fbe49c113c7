package app

import (
	"time"

	"kitchencoop/internal/domain"
)

// EventKind identifies emitted state deltas for dispatch to participants.
type EventKind string

const (
	EventSnapshot          EventKind = "snapshot"
	EventParticipantJoined EventKind = "participant_joined"
	EventParticipantLeft   EventKind = "participant_left"
	EventColorChanged      EventKind = "color_changed"
	EventPhaseChanged      EventKind = "phase_changed"
	EventSessionTimers     EventKind = "session_timers"
	EventReadyChanged      EventKind = "ready_changed"
	EventPauseChanged      EventKind = "pause_changed"
	EventPropSpawned       EventKind = "prop_spawned"
	EventPropTransferred   EventKind = "prop_transferred"
	EventPropDestroyed     EventKind = "prop_destroyed"
	EventIngredientAdded   EventKind = "ingredient_added"
	EventStationState      EventKind = "station_state"
	EventProgressChanged   EventKind = "progress_changed"
	EventPlateStock        EventKind = "plate_stock"
	EventOrderSpawned      EventKind = "order_spawned"
	EventOrderSucceeded    EventKind = "order_succeeded"
	EventOrderFailed       EventKind = "order_failed"
)

// Event is an app event with optional targeted recipients.
type Event struct {
	Kind       EventKind
	Payload    any
	Recipients []string // participant IDs; empty means broadcast
}

type ParticipantPayload struct {
	Participant domain.Participant `json:"participant"`
}

type PhaseChangedPayload struct {
	Phase domain.Phase `json:"phase"`
}

type SessionTimersPayload struct {
	CountdownRemaining time.Duration `json:"countdown_remaining"`
	ActiveRemaining    time.Duration `json:"active_remaining"`
	ActiveProgress     float64       `json:"active_progress"`
}

// Gate names used in ReadyChangedPayload.
const (
	GateLobby = "lobby"
	GateMatch = "match"
)

type ReadyChangedPayload struct {
	Gate          string `json:"gate"`
	ParticipantID string `json:"participant_id,omitempty"`
	Ready         bool   `json:"ready"`
	AllReady      bool   `json:"all_ready"`
}

type PauseChangedPayload struct {
	ParticipantID string `json:"participant_id,omitempty"`
	Paused        bool   `json:"paused"`
	SessionPaused bool   `json:"session_paused"`
}

type PropSpawnedPayload struct {
	PropID  domain.PropID      `json:"prop_id"`
	Kind    domain.ItemKind    `json:"kind"`
	Variant domain.PropVariant `json:"variant"`
	Holder  domain.HolderID    `json:"holder"`
}

type PropTransferredPayload struct {
	PropID domain.PropID   `json:"prop_id"`
	From   domain.HolderID `json:"from"`
	To     domain.HolderID `json:"to"`
	Anchor domain.Anchor   `json:"anchor"`
}

type PropDestroyedPayload struct {
	PropID domain.PropID   `json:"prop_id"`
	Holder domain.HolderID `json:"holder,omitempty"`
}

type IngredientAddedPayload struct {
	PropID domain.PropID   `json:"prop_id"`
	Kind   domain.ItemKind `json:"kind"`
}

type StationStatePayload struct {
	StationID string               `json:"station_id"`
	State     domain.ProgressState `json:"state"`
}

type ProgressChangedPayload struct {
	StationID string  `json:"station_id"`
	Progress  float64 `json:"progress"`
}

type PlateStockPayload struct {
	StationID string `json:"station_id"`
	Count     int    `json:"count"`
}

type OrderSpawnedPayload struct {
	Order domain.Order `json:"order"`
}

type DeliveryPayload struct {
	StationID string        `json:"station_id"`
	PropID    domain.PropID `json:"prop_id"`
	OrderID   string        `json:"order_id,omitempty"`
	Successes int           `json:"successes"`
	Failures  int           `json:"failures"`
}

type GateSnapshot struct {
	Entries map[string]bool `json:"entries"`
	Value   bool            `json:"value"`
}

type PropSnapshot struct {
	ID          domain.PropID      `json:"id"`
	Kind        domain.ItemKind    `json:"kind"`
	Variant     domain.PropVariant `json:"variant"`
	Holder      domain.HolderID    `json:"holder"`
	Ingredients []domain.ItemKind  `json:"ingredients,omitempty"`
}

type StationSnapshot struct {
	ID     string               `json:"id"`
	Status domain.StationStatus `json:"status"`
}

// SnapshotPayload is the full replicated state sent to a joining participant.
type SnapshotPayload struct {
	Tick               int64                `json:"tick"`
	Phase              domain.Phase         `json:"phase"`
	CountdownRemaining time.Duration        `json:"countdown_remaining"`
	ActiveRemaining    time.Duration        `json:"active_remaining"`
	LobbyReady         GateSnapshot         `json:"lobby_ready"`
	MatchReady         GateSnapshot         `json:"match_ready"`
	Pause              GateSnapshot         `json:"pause"`
	Participants       []domain.Participant `json:"participants"`
	Props              []PropSnapshot       `json:"props"`
	Stations           []StationSnapshot    `json:"stations"`
	Orders             []domain.Order       `json:"orders"`
	Successes          int                  `json:"successes"`
	Failures           int                  `json:"failures"`
}
