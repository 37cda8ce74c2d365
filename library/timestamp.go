package library

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// LocalDateTime is the layout the API uses for timestamps without a zone.
const LocalDateTime = "2006-01-02T15:04:05.999999999"

// Timestamp decodes API times with or without a zone offset. Zone-less
// values are read in the local zone.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	parsed, err := parseTimestamp(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// parseTimestamp accepts RFC 3339 or LocalDateTime. An empty string is the
// zero Timestamp.
func parseTimestamp(s string) (Timestamp, error) {
	if s == "" {
		return Timestamp{}, nil
	}
	if tm, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return Timestamp{tm}, nil
	}
	tm, err := time.ParseInLocation(LocalDateTime, s, time.Local)
	if err != nil {
		return Timestamp{}, fmt.Errorf("timestamp %q: unrecognised layout", s)
	}
	return Timestamp{tm}, nil
}
