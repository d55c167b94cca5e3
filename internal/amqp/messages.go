package amqp

import (
	"encoding/json"
	"time"
)

// Operations carried by a ChangeMessage.
const (
	OpCreate     = "create"
	OpDelete     = "delete"
	OpReallocate = "reallocate"
	OpImport     = "import"
)

// Entities a ChangeMessage refers to.
const (
	EntityTransaction = "transaction"
	EntityBudget      = "budget"
	EntityDocument    = "document"
)

// ChangeMessage announces a store mutation. It carries no record data; a
// consumer that needs the records reads them from the store.
type ChangeMessage struct {
	Op        string    `json:"op"`
	Entity    string    `json:"entity"`
	ID        string    `json:"id,omitempty"`
	Count     int       `json:"count"`
	Timestamp time.Time `json:"timestamp"`
}

// NewChangeMessage creates a message stamped with the current time.
func NewChangeMessage(op, entity, id string, count int) *ChangeMessage {
	return &ChangeMessage{
		Op:        op,
		Entity:    entity,
		ID:        id,
		Count:     count,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChangeMessageFromJSON parses a message body.
func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
