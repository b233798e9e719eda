package store

import (
	"encoding/json"
	"fmt"
)

// Kind tags every stored value so a read can reject foreign shapes.
type Kind string

const (
	KindBooking          Kind = "booking"
	KindSlotBlock        Kind = "slot_block"
	KindDayBlock         Kind = "day_block"
	KindSlotConfig       Kind = "slot_config"
	KindIntegrationToken Kind = "integration_token"
	KindJobPost          Kind = "job_post"
)

const schemaVersion = 1

type envelope struct {
	Kind    Kind            `json:"kind"`
	Version int             `json:"version"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func encode(kind Kind, v any) ([]byte, error) {
	var data json.RawMessage
	if v != nil {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", kind, err)
		}
		data = b
	}
	return json.Marshal(envelope{Kind: kind, Version: schemaVersion, Data: data})
}

// decode checks the envelope and unmarshals its payload into v (v may be nil
// for presence-only kinds).
func decode(raw []byte, kind Kind, v any) error {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	if env.Kind != kind {
		return fmt.Errorf("%w: expected %s, got %q", ErrCorruptRecord, kind, env.Kind)
	}
	if env.Version != schemaVersion {
		return fmt.Errorf("%w: unsupported %s version %d", ErrCorruptRecord, kind, env.Version)
	}
	if v == nil {
		return nil
	}
	if len(env.Data) == 0 {
		return fmt.Errorf("%w: empty %s payload", ErrCorruptRecord, kind)
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	return nil
}
