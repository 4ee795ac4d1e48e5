package favorites

import "sync"

// Button is a favorite toggle control bound to a space.
type Button interface {
	SpaceID() string
	Active() bool
	SetActive(active bool)
	SetDisabled(disabled bool)
	// SetPressed toggles the transient pressed affordance shown while a
	// toggle is in flight.
	SetPressed(pressed bool)
}

// Registry tracks every bound Button by space so that a toggle outcome can
// be fanned out to all controls showing the same space.
type Registry struct {
	mu      sync.RWMutex
	buttons map[string][]Button
}

func NewRegistry() *Registry {
	return &Registry{buttons: make(map[string][]Button)}
}

// Bind registers the button under its space ID. Binding the same button
// again is a no-op.
func (r *Registry) Bind(btn Button) {
	spaceID := btn.SpaceID()
	if spaceID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, bound := range r.buttons[spaceID] {
		if bound == btn {
			return
		}
	}
	r.buttons[spaceID] = append(r.buttons[spaceID], btn)
}

// Unbind removes the button from the registry.
func (r *Registry) Unbind(btn Button) {
	spaceID := btn.SpaceID()
	r.mu.Lock()
	defer r.mu.Unlock()
	bound := r.buttons[spaceID]
	for i, b := range bound {
		if b == btn {
			r.buttons[spaceID] = append(bound[:i], bound[i+1:]...)
			return
		}
	}
}

// Buttons returns the buttons bound to the space.
func (r *Registry) Buttons(spaceID string) []Button {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Button(nil), r.buttons[spaceID]...)
}

// SetActive fans the new state out to every button bound to the space.
// Concurrent toggles resolve last-write-wins.
func (r *Registry) SetActive(spaceID string, active bool) {
	for _, btn := range r.Buttons(spaceID) {
		btn.SetActive(active)
	}
}
