package record

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainRecord is the hash domain for record fingerprints.
// The version suffix allows a future algorithm migration.
const DomainRecord = "sensorsync/record/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint computes the content hash of a record.
// Two records fingerprint identically iff all four fields are equal.
func Fingerprint(r SensorRecord) (string, error) {
	canonical, err := MarshalCanonical(map[string]any{
		"created_at":  r.CreatedAt,
		"temperature": r.Temperature,
		"humidity":    r.Humidity,
		"soil":        r.Soil,
	})
	if err != nil {
		return "", fmt.Errorf("fingerprint %s: %w", r.CreatedAt, err)
	}
	return hashWithDomain(DomainRecord, canonical), nil
}

// MustFingerprint is like Fingerprint but panics on error.
// Use only in tests or when the record is known to be finite.
func MustFingerprint(r SensorRecord) string {
	fp, err := Fingerprint(r)
	if err != nil {
		panic(err)
	}
	return fp
}
