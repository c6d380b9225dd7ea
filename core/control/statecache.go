package control

import (
	"sync"

	"github.com/kilianp07/pvcharge/core/model"
)

// StateCache keeps the latest raw state string of each entity and answers
// Telemetry reads from it. Gateways feed it from their transport callbacks.
type StateCache struct {
	entities Entities

	mu     sync.RWMutex
	states map[string]string
}

var _ Telemetry = (*StateCache)(nil)

// NewStateCache returns an empty cache for the given entities.
func NewStateCache(e Entities) *StateCache {
	return &StateCache{entities: e, states: make(map[string]string)}
}

// Set stores the raw state of entity id.
func (c *StateCache) Set(id, raw string) {
	c.mu.Lock()
	c.states[id] = raw
	c.mu.Unlock()
}

// Get returns the raw state of entity id.
func (c *StateCache) Get(id string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.states[id]
	return v, ok
}

// CurrentSetpoint returns the charge current reported by the charger.
func (c *StateCache) CurrentSetpoint() (float64, bool) {
	raw, ok := c.Get(c.entities.ChargeCurrent)
	if !ok {
		return 0, false
	}
	return model.ParseReading(raw)
}

// CableConnected reports whether the cable entity is on.
func (c *StateCache) CableConnected() bool {
	raw, ok := c.Get(c.entities.CableConnected)
	if !ok {
		return false
	}
	on, ok := model.ParseSwitch(raw)
	return ok && on
}

// BatteryLevel returns the car's state of charge.
func (c *StateCache) BatteryLevel() (float64, bool) {
	raw, ok := c.Get(c.entities.Battery)
	if !ok {
		return 0, false
	}
	return model.ParseReading(raw)
}
