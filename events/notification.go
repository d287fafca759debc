// Package events carries the named business events the commerce API
// reports in its responses ("Cart.Item.Added", "Cart.Emptied", ...) to
// interested code: in process through a Bus, or to other processes through
// NATS.
package events

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Namespace prefixes every notification name.
const Namespace = "commerce."

// Notification is a single emitted event. Notifications never bubble and
// cannot be canceled; they carry no payload beyond the event name.
type Notification struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Event      string    `json:"event"`
	Bubbles    bool      `json:"bubbles"`
	Cancelable bool      `json:"cancelable"`
	Timestamp  time.Time `json:"timestamp"`
	Source     string    `json:"source,omitempty"`
}

// NewNotification creates a notification for the given event name.
func NewNotification(event string) *Notification {
	return &Notification{
		ID:         uuid.NewString(),
		Name:       Namespace + event,
		Event:      event,
		Bubbles:    false,
		Cancelable: false,
		Timestamp:  time.Now().UTC(),
	}
}

// Marshal converts the notification to JSON
func (n *Notification) Marshal() ([]byte, error) {
	return json.Marshal(n)
}

// UnmarshalNotification parses a notification from JSON
func UnmarshalNotification(data []byte) (*Notification, error) {
	var n Notification
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, err
	}
	if n.Name == "" && n.Event != "" {
		n.Name = Namespace + n.Event
	}
	return &n, nil
}

// Match reports whether a notification name matches a subscription pattern.
// "*" and "" match everything, a trailing ">" matches any suffix, anything
// else must be equal.
func Match(pattern, name string) bool {
	switch {
	case pattern == "" || pattern == "*":
		return true
	case strings.HasSuffix(pattern, ">"):
		return strings.HasPrefix(name, strings.TrimSuffix(pattern, ">"))
	default:
		return pattern == name
	}
}
