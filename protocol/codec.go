package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

var (
	ErrEmptyMessage = errors.New("empty message")
	ErrMissingType  = errors.New("message has no type")
)

// Encode marshals a typed JSON envelope
func Encode(t string, payload any) ([]byte, error) {
	if t == "" {
		return nil, ErrMissingType
	}
	b, err := json.Marshal(Envelope{T: t, Data: payload})
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", t, err)
	}
	return b, nil
}

// EncodeState marshals a game state for a binary frame
func EncodeState(state any) ([]byte, error) {
	b, err := msgpack.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	return b, nil
}

// DecodeState unmarshals a binary state frame into out
func DecodeState(b []byte, out any) error {
	return msgpack.Unmarshal(b, out)
}

// Decode parses an inbound envelope
func Decode(raw []byte) (InEnvelope, error) {
	if len(raw) == 0 {
		return InEnvelope{}, ErrEmptyMessage
	}
	var env InEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return InEnvelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.T == "" {
		return InEnvelope{}, ErrMissingType
	}
	return env, nil
}

// DecodePayload unmarshals the envelope payload into T. A missing payload
// yields the zero value, since most control messages have optional fields.
func DecodePayload[T any](env InEnvelope) (T, error) {
	var out T
	if len(env.D) == 0 || string(env.D) == "null" {
		return out, nil
	}
	if err := json.Unmarshal(env.D, &out); err != nil {
		return out, fmt.Errorf("decode %s payload: %w", env.T, err)
	}
	return out, nil
}
