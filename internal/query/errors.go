package query

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a requested entity does not exist. A filter
// matching nothing is not an error.
var ErrNotFound = errors.New("not found")

// InputError indicates a missing or invalid request parameter.
// Transport layers map this to 400.
type InputError string

func (e InputError) Error() string { return string(e) }

// Stage names a step of the listing pipeline.
type Stage string

const (
	StageFetch Stage = "fetch"
	StageStats Stage = "stats"
)

// StageError is a store failure inside a pipeline stage. It is fatal for the
// request and never turned into an empty result.
type StageError struct {
	Listing string
	Stage   Stage
	Err     error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Listing, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
