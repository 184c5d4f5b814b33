package main

import (
	"os"
	"os/signal"
	"sync/atomic"
)

// SignalController latches the first interrupt so the batch command can stop
// scheduling new runs while in-flight ones finish and save their results.
type SignalController struct {
	ch          chan os.Signal
	interrupted atomic.Bool
}

func NewSignalController() *SignalController {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt)
	return &SignalController{ch: ch}
}

func (s *SignalController) Interrupted() bool {
	if s.interrupted.Load() {
		return true
	}
	select {
	case <-s.ch:
		s.interrupted.Store(true)
		return true
	default:
		return false
	}
}

func (s *SignalController) Close() {
	signal.Stop(s.ch)
}
