package domain

import (
	"encoding/json"
	"fmt"
)

// MessageType discriminates wire envelopes exchanged with clients.
type MessageType string

// Outbound envelope types (server → client).
const (
	MessageTypeConfiguration MessageType = "configuration"
	MessageTypeAllRooms      MessageType = "allRooms"
	MessageTypeRoom          MessageType = "room"
	MessageTypeAllFunctions  MessageType = "allFunctions"
	MessageTypeFunction      MessageType = "function"
	MessageTypeAllStates     MessageType = "allStates"
	MessageTypeState         MessageType = "state"
	MessageTypeAllValues     MessageType = "allValues"
	MessageTypeValue         MessageType = "value"
)

// Inbound envelope types (client → server).
const (
	MessageTypeSetValues MessageType = "setValues"
)

// Envelope is a type-tagged wire message. One JSON object per frame.
type Envelope struct {
	Type MessageType `json:"type"`
	Data any         `json:"data"`
}

// Encode serializes the envelope to its wire form.
func (e Envelope) Encode() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encoding %s envelope: %w", e.Type, err)
	}
	return data, nil
}

// ConfigurationPayload carries client-relevant settings on connect.
type ConfigurationPayload struct {
	Language string `json:"language"`
}

// NewConfigurationEnvelope builds the envelope sent once on client connect.
func NewConfigurationEnvelope(language string) Envelope {
	return Envelope{Type: MessageTypeConfiguration, Data: ConfigurationPayload{Language: language}}
}

// NewAllRoomsEnvelope builds a full-snapshot rooms envelope.
func NewAllRoomsEnvelope(rooms []Room) Envelope {
	return Envelope{Type: MessageTypeAllRooms, Data: rooms}
}

// NewRoomEnvelope builds a single-room delta envelope.
func NewRoomEnvelope(room Room) Envelope {
	return Envelope{Type: MessageTypeRoom, Data: room}
}

// NewAllFunctionsEnvelope builds a full-snapshot functions envelope.
func NewAllFunctionsEnvelope(functions []Function) Envelope {
	return Envelope{Type: MessageTypeAllFunctions, Data: functions}
}

// NewFunctionEnvelope builds a single-function delta envelope.
func NewFunctionEnvelope(function Function) Envelope {
	return Envelope{Type: MessageTypeFunction, Data: function}
}

// NewAllStatesEnvelope builds a full-snapshot state-objects envelope.
func NewAllStatesEnvelope(objects []StateObject) Envelope {
	return Envelope{Type: MessageTypeAllStates, Data: objects}
}

// NewStateEnvelope builds a single state-object delta envelope.
func NewStateEnvelope(object StateObject) Envelope {
	return Envelope{Type: MessageTypeState, Data: object}
}

// NewAllValuesEnvelope builds a full-snapshot state-values envelope.
func NewAllValuesEnvelope(values []StateValue) Envelope {
	return Envelope{Type: MessageTypeAllValues, Data: values}
}

// NewValueEnvelope builds a single state-value delta envelope.
func NewValueEnvelope(value StateValue) Envelope {
	return Envelope{Type: MessageTypeValue, Data: value}
}

// ClientMessage is an inbound envelope before payload decoding. The payload
// is kept raw because its shape depends on the type tag, and the tag comes
// off the wire unchecked.
type ClientMessage struct {
	Type MessageType     `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ValueUpdate is one id/value pair of a setValues action.
type ValueUpdate struct {
	ID    string `json:"id"`
	Value any    `json:"value"`
}

// DecodeClientMessage parses an inbound wire frame.
func DecodeClientMessage(data []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return ClientMessage{}, fmt.Errorf("decoding client message: %w", err)
	}
	if msg.Type == "" {
		return ClientMessage{}, fmt.Errorf("decoding client message: %w", ErrMissingType)
	}
	return msg, nil
}

// SetValues decodes the payload of a setValues message.
func (m ClientMessage) SetValues() ([]ValueUpdate, error) {
	if m.Type != MessageTypeSetValues {
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedType, m.Type)
	}
	var updates []ValueUpdate
	if err := json.Unmarshal(m.Data, &updates); err != nil {
		return nil, fmt.Errorf("decoding setValues payload: %w", err)
	}
	return updates, nil
}
