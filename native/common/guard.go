package common

import (
	"errors"
	"sync"
)

var ErrModulePaused = errors.New("module paused")

type PauseView interface {
	IsPaused(module string) bool
}

func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}

// StaticPauseView is a concrete, mutation-safe PauseView backed by a set of
// paused module names. It is the reference PauseView a standalone process
// wires into an Engine in the absence of the on-chain governance module
// that would otherwise own pause state.
type StaticPauseView struct {
	mu     sync.RWMutex
	paused map[string]bool
}

// NewStaticPauseView constructs a PauseView with no modules paused.
func NewStaticPauseView() *StaticPauseView {
	return &StaticPauseView{paused: make(map[string]bool)}
}

// IsPaused implements PauseView.
func (v *StaticPauseView) IsPaused(module string) bool {
	if v == nil {
		return false
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.paused[module]
}

// Pause marks module as paused.
func (v *StaticPauseView) Pause(module string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.paused[module] = true
}

// Unpause clears module's paused state.
func (v *StaticPauseView) Unpause(module string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.paused, module)
}
