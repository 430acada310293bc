package delivery

import "errors"

// Errors returned when claiming a notification delivery. A claim fails when the
// notification already went out or another worker is sending it right now.
var (
	ErrAlreadySent = errors.New("notification already sent")
	ErrInProgress  = errors.New("notification delivery in progress")
)
