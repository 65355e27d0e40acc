package websocket

import (
	"encoding/json"
)

// Message is the envelope every client receives. Type is the topic the event
// was published on and Payload is the event itself.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// NewMessage wraps a bus payload for the wire. Payloads that are not valid
// JSON are sent as a JSON string so the envelope always decodes.
func NewMessage(msgType string, payload []byte) Message {
	if len(payload) == 0 {
		return Message{Type: msgType, Payload: json.RawMessage("null")}
	}
	if json.Valid(payload) {
		return Message{Type: msgType, Payload: json.RawMessage(payload)}
	}
	quoted, _ := json.Marshal(string(payload))
	return Message{Type: msgType, Payload: quoted}
}

// Encode returns the JSON text frame for m.
func (m Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}
