package store

import (
	"errors"
	"fmt"
)

// Status is the load state of a journey collection.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusLoading   Status = "loading"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

type Event string

const (
	EventFetch   Event = "fetch"
	EventSucceed Event = "succeed"
	EventFail    Event = "fail"
)

var ErrInvalidTransition = errors.New("invalid status transition")

var transitions = map[Status]map[Event]Status{
	StatusIdle:      {EventFetch: StatusLoading},
	StatusLoading:   {EventSucceed: StatusSucceeded, EventFail: StatusFailed},
	StatusSucceeded: {EventFetch: StatusLoading},
	StatusFailed:    {EventFetch: StatusLoading},
}

// Transition returns the status reached from `from` on ev.
func Transition(from Status, ev Event) (Status, error) {
	if to, ok := transitions[from][ev]; ok {
		return to, nil
	}
	return from, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, from, ev)
}
