package domain

import "strings"

// HolderID identifies anything that can hold a prop: "player:<id>" or "station:<id>".
type HolderID string

const (
	playerHolderPrefix  = "player:"
	stationHolderPrefix = "station:"
)

// PlayerHolderID returns the holder id for a participant's hands.
func PlayerHolderID(participantID string) HolderID {
	return HolderID(playerHolderPrefix + participantID)
}

// StationHolderID returns the holder id for a station's counter top.
func StationHolderID(stationID string) HolderID {
	return HolderID(stationHolderPrefix + stationID)
}

// Participant returns the participant id when h names a player holder.
func (h HolderID) Participant() (string, bool) {
	return strings.CutPrefix(string(h), playerHolderPrefix)
}

// Station returns the station id when h names a station holder.
func (h HolderID) Station() (string, bool) {
	return strings.CutPrefix(string(h), stationHolderPrefix)
}

// Anchor is where a held prop is positioned: the holder's named attach point.
type Anchor struct {
	Holder HolderID `json:"holder"`
	Point  string   `json:"point"`
}

// Holder is the capability shared by players and stations.
type Holder interface {
	HolderID() HolderID
	AttachPoint() Anchor
	Prop() PropID
	SetProp(PropID)
	ClearProp()
}

// slot is the single-prop storage embedded by every holder.
type slot struct {
	id    HolderID
	point string
	prop  PropID
}

func (s *slot) HolderID() HolderID  { return s.id }
func (s *slot) AttachPoint() Anchor { return Anchor{Holder: s.id, Point: s.point} }
func (s *slot) Prop() PropID        { return s.prop }
func (s *slot) SetProp(id PropID)   { s.prop = id }
func (s *slot) ClearProp()          { s.prop = "" }

// HasProp reports whether the holder currently lists a prop.
func HasProp(h Holder) bool {
	return h.Prop() != ""
}

// PlayerHolder is a participant's hands.
type PlayerHolder struct {
	slot
	ParticipantID string
}

// NewPlayerHolder creates the hands of participantID.
func NewPlayerHolder(participantID string) *PlayerHolder {
	return &PlayerHolder{
		slot:          slot{id: PlayerHolderID(participantID), point: "hands"},
		ParticipantID: participantID,
	}
}
