package agent

import "errors"

var (
	ErrSessionUnavailable = errors.New("browser session unavailable")
	ErrNoBaseURL          = errors.New("no URL available")
	ErrNavigation         = errors.New("navigation to base URL failed")
	ErrRunDirectory       = errors.New("run directory could not be created")
	ErrInitialCapture     = errors.New("initial state capture failed")
	ErrBudgetExhausted    = errors.New("iteration budget exhausted")
)
