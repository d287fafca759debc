package relay

import (
	"github.com/nats-io/nats.go"
)

// Message is a delivered notification awaiting acknowledgment
type Message interface {
	Subject() string
	Data() []byte
	// Ack confirms the message was stored
	Ack() error
	// Nak asks for redelivery
	Nak() error
	// Term stops redelivery of a message that can never be stored
	Term() error
}

type natsMessage struct {
	msg *nats.Msg
}

// FromNATS wraps JetStream messages
func FromNATS(msgs []*nats.Msg) []Message {
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = natsMessage{msg: m}
	}
	return out
}

func (m natsMessage) Subject() string { return m.msg.Subject }
func (m natsMessage) Data() []byte    { return m.msg.Data }
func (m natsMessage) Ack() error      { return m.msg.Ack() }
func (m natsMessage) Nak() error      { return m.msg.Nak() }
func (m natsMessage) Term() error     { return m.msg.Term() }
