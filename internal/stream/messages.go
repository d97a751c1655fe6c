package stream

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Wire field names. Stream payloads are flat string maps; they are parsed into
// the typed messages below exactly once, at the consumer boundary.
const (
	fieldTask      = "task"
	fieldEvent     = "event"
	fieldVehicleID = "vehicleId"
	fieldRoute     = "route"
	fieldTS        = "ts"

	// TaskSave tags a message on the save stream as a persist-now command.
	TaskSave = "save"

	// EventOptimizeRoute tags a message on the events stream as an optimize
	// command. Other tags are acknowledged and skipped.
	EventOptimizeRoute = "events:optimize_route"
)

// Event is a parsed events-stream message.
type Event struct {
	Kind      string
	VehicleID string
	TS        time.Time
}

// Result is a parsed results-stream message: the optimizer's proposed route
// for one vehicle.
type Result struct {
	VehicleID string
	Route     []string
	TS        time.Time
}

// SaveTaskFields builds the wire form of a save command.
func SaveTaskFields() map[string]any {
	return map[string]any{
		fieldTask: TaskSave,
		fieldTS:   nowMillis(),
	}
}

// OptimizeEventFields builds the wire form of an optimize command.
func OptimizeEventFields(vehicleID string) map[string]any {
	return map[string]any{
		fieldEvent:     EventOptimizeRoute,
		fieldVehicleID: vehicleID,
		fieldTS:        nowMillis(),
	}
}

// ResultFields builds the wire form of an optimization outcome.
func ResultFields(vehicleID string, route []string) (map[string]any, error) {
	raw, err := json.Marshal(route)
	if err != nil {
		return nil, fmt.Errorf("encode route: %w", err)
	}
	return map[string]any{
		fieldVehicleID: vehicleID,
		fieldRoute:     string(raw),
		fieldTS:        nowMillis(),
	}, nil
}

// ParseSaveTask validates a save-stream message.
func ParseSaveTask(m Message) error {
	task, ok := m.Fields[fieldTask]
	if !ok {
		return fmt.Errorf("message %s: missing %q field", m.ID, fieldTask)
	}
	if task != TaskSave {
		return fmt.Errorf("message %s: unknown task %q", m.ID, task)
	}
	return nil
}

// ParseEvent decodes an events-stream message. The kind is always returned
// when present so consumers can skip foreign event types; an optimize event
// without a vehicle id is malformed.
func ParseEvent(m Message) (Event, error) {
	kind, ok := m.Fields[fieldEvent]
	if !ok {
		return Event{}, fmt.Errorf("message %s: missing %q field", m.ID, fieldEvent)
	}
	evt := Event{Kind: kind, TS: parseMillis(m.Fields[fieldTS])}
	if kind != EventOptimizeRoute {
		return evt, nil
	}
	evt.VehicleID = m.Fields[fieldVehicleID]
	if evt.VehicleID == "" {
		return Event{}, fmt.Errorf("message %s: optimize event without vehicleId", m.ID)
	}
	return evt, nil
}

// ParseResult decodes a results-stream message.
func ParseResult(m Message) (Result, error) {
	vehicleID := m.Fields[fieldVehicleID]
	if vehicleID == "" {
		return Result{}, fmt.Errorf("message %s: missing vehicleId", m.ID)
	}
	var route []string
	if err := json.Unmarshal([]byte(m.Fields[fieldRoute]), &route); err != nil {
		return Result{}, fmt.Errorf("message %s: decode route: %w", m.ID, err)
	}
	return Result{VehicleID: vehicleID, Route: route, TS: parseMillis(m.Fields[fieldTS])}, nil
}

func nowMillis() string {
	return strconv.FormatInt(time.Now().UnixMilli(), 10)
}

func parseMillis(s string) time.Time {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
