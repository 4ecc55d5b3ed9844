package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

type (
	Entity string
	Action string
)

const (
	EntityExpense     Entity = "expense"
	EntityCategory    Entity = "category"
	EntityPreferences Entity = "preferences"

	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
	ActionCleared Action = "cleared"
)

// ChangeEvent announces that something changed. It carries only the
// identifier; consumers re-read current state from their own store.
type ChangeEvent struct {
	Entity    Entity    `json:"entity"`
	Action    Action    `json:"action"`
	ID        string    `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewChangeEvent(entity Entity, action Action, id string) ChangeEvent {
	return ChangeEvent{
		Entity:    entity,
		Action:    action,
		ID:        id,
		Timestamp: time.Now().UTC(),
	}
}

// RoutingKey is "<entity>.<action>", e.g. "expense.created".
func (e ChangeEvent) RoutingKey() string {
	return string(e.Entity) + "." + string(e.Action)
}

func (e ChangeEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func ChangeEventFromJSON(data []byte) (ChangeEvent, error) {
	var e ChangeEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return ChangeEvent{}, err
	}
	if e.Entity == "" || e.Action == "" {
		return ChangeEvent{}, fmt.Errorf("change event missing entity or action")
	}
	return e, nil
}
