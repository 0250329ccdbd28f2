package wire

import (
	"encoding/json"
	"errors"
	"fmt"

	"blindrelay/internal/domain"
)

// ErrMalformedFrame is returned when a frame cannot be decoded.
var ErrMalformedFrame = errors.New("malformed frame")

// Encode builds a frame of type t. A nil payload is omitted.
func Encode(t domain.FrameType, payload any) ([]byte, error) {
	f := domain.Frame{Type: t}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", t, err)
		}
		f.Payload = raw
	}
	return json.Marshal(f)
}

// Decode parses a frame envelope. The payload is left raw.
func Decode(b []byte) (domain.Frame, error) {
	var f domain.Frame
	if err := json.Unmarshal(b, &f); err != nil {
		return f, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if f.Type == "" {
		return f, fmt.Errorf("%w: missing type", ErrMalformedFrame)
	}
	return f, nil
}

// Payload decodes the payload of f into T.
func Payload[T any](f domain.Frame) (T, error) {
	var out T
	if len(f.Payload) == 0 {
		return out, fmt.Errorf("%w: %s without payload", ErrMalformedFrame, f.Type)
	}
	if err := json.Unmarshal(f.Payload, &out); err != nil {
		return out, fmt.Errorf("%w: %s payload: %v", ErrMalformedFrame, f.Type, err)
	}
	return out, nil
}
