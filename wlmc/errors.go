package wlmc

import "errors"

// Errors
var (
	ErrBadSubtype       = errors.New("bond subtype outside 1..8")
	ErrBadBond          = errors.New("bad bond description")
	ErrBadFamily        = errors.New("inconsistent bond family")
	ErrBadModel         = errors.New("bad model")
	ErrBadParams        = errors.New("bad model params")
	ErrBadLattice       = errors.New("bad lattice")
	ErrBadInitialState  = errors.New("initial states do not match the site count")
	ErrBadSequence      = errors.New("bad vertex sequence")
	ErrSequenceOverflow = errors.New("vertex sequence exceeds MaxVertices")
	ErrStaleClusters    = errors.New("cluster arrays do not describe the active sequence")
	ErrUnknownStore     = errors.New("unsupported statistics store")
	ErrStoreClosed      = errors.New("statistics store is closed")
	ErrBadRecord        = errors.New("bad statistics record encoding")
)
