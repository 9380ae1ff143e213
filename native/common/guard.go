package common

import (
	"errors"
	"sync/atomic"
)

var (
	ErrModulePaused  = errors.New("module paused")
	ErrReentrantCall = errors.New("reentrant call")
)

// PauseView reports whether a named module has been halted by governance.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard rejects the call when the module is paused. A nil view disables the
// check entirely so callers do not need to wire pauses in tests.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}

// Latch is a non-blocking gate placed around entry points that invoke
// external capabilities mid-mutation. Enter fails while another latched call
// is in flight, which covers both same-goroutine reentrancy from inside a
// capability callback and cross-goroutine interleaving during the external
// call window.
type Latch struct {
	engaged atomic.Bool
}

// Enter engages the latch or fails with ErrReentrantCall.
func (l *Latch) Enter() error {
	if l == nil {
		return nil
	}
	if !l.engaged.CompareAndSwap(false, true) {
		return ErrReentrantCall
	}
	return nil
}

// Exit releases the latch. Safe to call on all exit paths via defer.
func (l *Latch) Exit() {
	if l == nil {
		return
	}
	l.engaged.Store(false)
}

// Check fails when the latch is currently engaged without engaging it. Used
// by entry points that must not run from inside a latched call but do not
// themselves invoke external capabilities.
func (l *Latch) Check() error {
	if l == nil {
		return nil
	}
	if l.engaged.Load() {
		return ErrReentrantCall
	}
	return nil
}
