package domain

import "time"

// StationKind selects the interaction rules of a station.
type StationKind string

const (
	StationClear     StationKind = "clear"
	StationCutting   StationKind = "cutting"
	StationStove     StationKind = "stove"
	StationTrash     StationKind = "trash"
	StationContainer StationKind = "container"
	StationPlates    StationKind = "plates"
	StationDelivery  StationKind = "delivery"
)

// StationStatus is the replicated view of a station.
type StationStatus struct {
	State    ProgressState `json:"state"`
	Progress float64       `json:"progress"`
	Plates   int           `json:"plates,omitempty"`
}

// PlateStock accumulates plates on a plates station.
type PlateStock struct {
	Count    int
	Max      int
	Interval time.Duration
	timer    time.Duration
}

// Advance runs the refill timer and reports whether a plate was added.
func (p *PlateStock) Advance(dt time.Duration) bool {
	p.timer += dt
	if p.timer <= p.Interval {
		return false
	}
	p.timer = 0
	if p.Count >= p.Max {
		return false
	}
	p.Count++
	return true
}

// Take removes one plate from the stock.
func (p *PlateStock) Take() bool {
	if p.Count <= 0 {
		return false
	}
	p.Count--
	return true
}

// Station is a fixed kitchen fixture that can hold one prop.
type Station struct {
	slot
	ID   string
	Kind StationKind
	// Item is what a container station dispenses.
	Item   ItemKind
	Timed  *ProgressMachine
	Steps  *StepMachine
	Plates *PlateStock

	status StationStatus
}

// NewStation builds a station of kind wired to the catalog's recipe tables.
func NewStation(id string, kind StationKind, cat *Catalog) *Station {
	s := &Station{
		slot:   slot{id: StationHolderID(id), point: "top"},
		ID:     id,
		Kind:   kind,
		status: StationStatus{State: ProgressIdle},
	}
	switch kind {
	case StationStove:
		s.Timed = NewProgressMachine(ProgressSpoiled,
			Stage{State: ProgressProcessing, Recipes: cat.Frying},
			Stage{State: ProgressDone, Recipes: cat.Burning},
		)
	case StationCutting:
		s.Steps = NewStepMachine(cat.Cutting)
	case StationPlates:
		s.Plates = &PlateStock{}
	}
	return s
}

// Attached runs the station's machine hook for a prop of kind arriving.
func (s *Station) Attached(kind ItemKind) {
	switch {
	case s.Timed != nil:
		s.Timed.Attach(kind)
	case s.Steps != nil:
		s.Steps.Attach(kind)
	}
}

// Detached runs the station's machine hook for its prop leaving.
func (s *Station) Detached() {
	switch {
	case s.Timed != nil:
		s.Timed.Detach()
	case s.Steps != nil:
		s.Steps.Detach()
	}
}

// Status returns the last replicated status.
func (s *Station) Status() StationStatus {
	return s.status
}

// Refresh recomputes the status from the machines and reports whether it changed.
func (s *Station) Refresh() (StationStatus, bool) {
	next := StationStatus{State: ProgressIdle}
	switch {
	case s.Timed != nil:
		next.State = s.Timed.State()
		next.Progress = s.Timed.Progress()
	case s.Steps != nil:
		next.State = s.Steps.State()
		next.Progress = s.Steps.Progress()
	case s.Plates != nil:
		next.Plates = s.Plates.Count
	}
	changed := next != s.status
	s.status = next
	return next, changed
}

// ApplyStatus overwrites the replicated status on mirrors.
func (s *Station) ApplyStatus(st StationStatus) {
	s.status = st
	if s.Plates != nil {
		s.Plates.Count = st.Plates
	}
}
