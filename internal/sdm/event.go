// Package sdm holds the Smart Device Management event model, the cycle-end
// classification rule, and the HTTP clients for the OAuth token and device
// command endpoints.
package sdm

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Trait and command names from the SDM API surface this service touches.
const (
	TraitThermostatHvac = "sdm.devices.traits.ThermostatHvac"
	TraitFan            = "sdm.devices.traits.Fan"

	CommandFanSetTimer = "sdm.devices.commands.Fan.SetTimer"

	// HvacStatusOff is the reported status once a heating or cooling run
	// has finished.
	HvacStatusOff = "OFF"
)

// ErrInvalidPayload marks decoded message text that is not valid JSON.
var ErrInvalidPayload = errors.New("event payload is not valid JSON")

// ResourceUpdate is the state-change portion of an SDM event. Traits are
// kept raw; only the traits this service acts on get decoded further.
type ResourceUpdate struct {
	Name   string                     `json:"name"`
	Traits map[string]json.RawMessage `json:"traits"`
}

// Event is a single SDM Pub/Sub event. ResourceUpdate is nil for event
// kinds this service does not handle (relation updates, camera events).
type Event struct {
	EventID        string          `json:"eventId,omitempty"`
	Timestamp      string          `json:"timestamp,omitempty"`
	ResourceUpdate *ResourceUpdate `json:"resourceUpdate,omitempty"`
	UserID         string          `json:"userId,omitempty"`
	ResourceGroup  []string        `json:"resourceGroup,omitempty"`
}

// hvacTrait is the decoded ThermostatHvac trait state.
type hvacTrait struct {
	Status string `json:"status"`
}

// ParseEvent decodes message text into an Event.
func ParseEvent(text string) (*Event, error) {
	var ev Event
	if err := json.Unmarshal([]byte(text), &ev); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return &ev, nil
}

// Decision is the outcome of classifying one event.
type Decision int

const (
	// DecisionIgnore: not a resource update, or no HVAC trait present
	// (covers Fan-only updates, which must never re-trigger the fan).
	DecisionIgnore Decision = iota
	// DecisionSkip: an HVAC trait is present but its status is not OFF.
	DecisionSkip
	// DecisionTrigger: the HVAC status is OFF, a cycle just ended.
	DecisionTrigger
)

func (d Decision) String() string {
	switch d {
	case DecisionIgnore:
		return "ignore"
	case DecisionSkip:
		return "skip"
	case DecisionTrigger:
		return "trigger"
	}
	return fmt.Sprintf("decision(%d)", int(d))
}

// Classify applies the single business rule: act exactly when an update
// carries a ThermostatHvac trait whose status is OFF. Each event is judged
// on its own reported status; there is no prior-state tracking. The
// returned status is the reported HVAC status, empty when absent.
func Classify(ev *Event) (Decision, string) {
	if ev.ResourceUpdate == nil {
		return DecisionIgnore, ""
	}
	raw, ok := ev.ResourceUpdate.Traits[TraitThermostatHvac]
	if !ok {
		return DecisionIgnore, ""
	}
	var hvac hvacTrait
	if err := json.Unmarshal(raw, &hvac); err != nil {
		return DecisionSkip, ""
	}
	if hvac.Status == HvacStatusOff {
		return DecisionTrigger, hvac.Status
	}
	return DecisionSkip, hvac.Status
}
