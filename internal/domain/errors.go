package domain

import "errors"

var (
	ErrUnknownProp        = errors.New("prop not found")
	ErrUnknownHolder      = errors.New("holder not found")
	ErrUnknownStation     = errors.New("station not found")
	ErrUnknownParticipant = errors.New("participant not found")
	ErrHolderOccupied     = errors.New("holder already holds a prop")
	ErrPropExists         = errors.New("prop id already in use")
	ErrNotComposite       = errors.New("prop cannot hold ingredients")
	ErrIngredientRejected = errors.New("ingredient rejected by composite")
	ErrPhaseRegression    = errors.New("session phase cannot move backwards")
	ErrRosterFull         = errors.New("session is full")
	ErrColorTaken         = errors.New("color already taken")
	ErrUnknownColor       = errors.New("color not in palette")
	ErrOwnership          = errors.New("ownership invariant violated")
)
