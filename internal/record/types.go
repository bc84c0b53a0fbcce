package record

import "strings"

// RawSample is one entry of a source page's data array.
// Value holds the sensor payload as an encoded JSON object.
type RawSample struct {
	CreatedAt string `json:"created_at" yaml:"created_at"`
	Value     string `json:"value" yaml:"value"`
}

// SensorRecord is the unit of storage.
type SensorRecord struct {
	CreatedAt   string  `json:"created_at" yaml:"created_at"`
	Temperature float64 `json:"temperature" yaml:"temperature"`
	Humidity    float64 `json:"humidity" yaml:"humidity"`
	Soil        float64 `json:"soil" yaml:"soil"`
}

// Key returns the store key for this record.
func (r SensorRecord) Key() RecordKey {
	return Key(r.CreatedAt)
}

// RecordKey is the store-safe idempotency key derived from created_at.
type RecordKey string

// keyReplacer maps characters that are unsafe in store keys to '-'.
var keyReplacer = strings.NewReplacer(":", "-", ".", "-")

// Key derives the RecordKey for a created_at timestamp.
//
// Example: "2025-10-01T12:30:00.123Z" -> "2025-10-01T12-30-00-123Z"
func Key(createdAt string) RecordKey {
	return RecordKey(keyReplacer.Replace(createdAt))
}

// Before reports whether timestamp a sorts strictly before b.
func Before(a, b string) bool {
	return a < b
}

// AtOrAfter reports whether timestamp a is equal to or later than b.
func AtOrAfter(a, b string) bool {
	return a >= b
}
