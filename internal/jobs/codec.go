package jobs

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/booali9/obe-comiler-backend/internal/domain/job"
)

func EncodePayload(t JobType, payload any) (json.RawMessage, error) {
	if !t.IsValid() {
		return nil, ErrInvalidJobType
	}

	switch t {
	case JobFormAlert:
		if _, ok := payload.(FormAlertPayload); !ok {
			if _, ok := payload.(*FormAlertPayload); !ok {
				return nil, ErrPayloadTypeMismatch
			}
		}

	case JobFormExport:
		if _, ok := payload.(FormExportPayload); !ok {
			if _, ok := payload.(*FormExportPayload); !ok {
				return nil, ErrPayloadTypeMismatch
			}
		}
	}

	b, err := json.Marshal(payload)

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJobPayload, err)
	}
	return b, nil
}

// DecodePayload unmarshals j.Payload into the typed payload for its job type.
func DecodePayload(j job.Job) (any, error) {
	t := JobType(j.Type)

	if !t.IsValid() {
		return nil, ErrInvalidJobType
	}

	if len(j.Payload) == 0 {
		return nil, ErrInvalidJobPayload
	}

	switch t {
	case JobFormAlert:
		var p FormAlertPayload

		if err := json.Unmarshal(j.Payload, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJobPayload, err)
		}
		return p, nil

	case JobFormExport:
		var p FormExportPayload

		if err := json.Unmarshal(j.Payload, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJobPayload, err)
		}
		return p, nil

	default:
		return nil, ErrInvalidJobType
	}
}

func ValidatePayload(t JobType, payload any) error {
	if !t.IsValid() {
		return ErrInvalidJobType
	}

	switch t {
	case JobFormAlert:
		var p FormAlertPayload

		switch v := payload.(type) {
		case FormAlertPayload:
			p = v
		case *FormAlertPayload:
			p = *v
		default:
			return ErrPayloadTypeMismatch
		}

		if strings.TrimSpace(p.FormID) == "" {
			return ErrInvalidJobPayload
		}
		return nil

	case JobFormExport:
		var p FormExportPayload

		switch v := payload.(type) {
		case FormExportPayload:
			p = v
		case *FormExportPayload:
			p = *v
		default:
			return ErrPayloadTypeMismatch
		}

		if strings.TrimSpace(p.RequestedBy) == "" {
			return ErrInvalidJobPayload
		}
		return nil

	default:
		return ErrInvalidJobType
	}
}
