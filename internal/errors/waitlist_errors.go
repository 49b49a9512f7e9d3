package errors

import "errors"

var (
	ErrTicketsAvailable   = errors.New("tickets are available, waitlist not needed")
	ErrWaitlistNotWaiting = errors.New("waitlist entry is no longer waiting")
	ErrSweepInProgress    = errors.New("another sweep is in progress")
)
