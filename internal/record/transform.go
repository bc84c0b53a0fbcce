package record

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// DecodeError reports a sample whose value could not be decoded into a SensorRecord.
type DecodeError struct {
	// CreatedAt identifies the offending sample.
	CreatedAt string

	// Field is the missing or invalid payload field, empty when the payload
	// itself is not a JSON object.
	Field string

	// Err is the underlying decode failure, if any.
	Err error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	switch {
	case e.Field != "" && e.Err != nil:
		return fmt.Sprintf("DECODE_ERROR: sample %s: field %q: %v", e.CreatedAt, e.Field, e.Err)
	case e.Field != "":
		return fmt.Sprintf("DECODE_ERROR: sample %s: missing field %q", e.CreatedAt, e.Field)
	default:
		return fmt.Sprintf("DECODE_ERROR: sample %s: %v", e.CreatedAt, e.Err)
	}
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// payload mirrors the fixed three-field sensor schema.
// Pointers distinguish a missing field from a zero reading.
type payload struct {
	Temperature *float64 `json:"temperature"`
	Humidity    *float64 `json:"humidity"`
	Soil        *float64 `json:"soil"`
}

// Transform decodes a RawSample into a SensorRecord.
//
// The sample's value must be a JSON object carrying numeric temperature,
// humidity and soil fields. Additional fields are ignored.
// Returns *DecodeError otherwise; the caller decides whether to abort or skip.
func Transform(sample RawSample) (SensorRecord, error) {
	if strings.TrimSpace(sample.CreatedAt) == "" {
		return SensorRecord{}, &DecodeError{Field: "created_at"}
	}

	var p payload
	if err := json.Unmarshal([]byte(sample.Value), &p); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return SensorRecord{}, &DecodeError{CreatedAt: sample.CreatedAt, Field: typeErr.Field, Err: err}
		}
		return SensorRecord{}, &DecodeError{CreatedAt: sample.CreatedAt, Err: err}
	}

	fields := []struct {
		name string
		val  *float64
	}{
		{"temperature", p.Temperature},
		{"humidity", p.Humidity},
		{"soil", p.Soil},
	}
	for _, f := range fields {
		if f.val == nil {
			return SensorRecord{}, &DecodeError{CreatedAt: sample.CreatedAt, Field: f.name}
		}
	}

	return SensorRecord{
		CreatedAt:   sample.CreatedAt,
		Temperature: *p.Temperature,
		Humidity:    *p.Humidity,
		Soil:        *p.Soil,
	}, nil
}

// TransformAll decodes samples in order, stopping at the first failure.
func TransformAll(samples []RawSample) ([]SensorRecord, error) {
	records := make([]SensorRecord, 0, len(samples))
	for _, s := range samples {
		rec, err := Transform(s)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}
