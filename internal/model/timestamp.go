package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Timestamp is an ISO-8601 value as sent by the backend. The raw text is kept
// so values round-trip unchanged; Time is the parsed instant (UTC when the
// text carries no zone).
type Timestamp struct {
	Raw  string
	Time time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func ParseTimestamp(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Timestamp{Raw: s, Time: t}, nil
		}
	}
	return Timestamp{}, fmt.Errorf("invalid timestamp %q", s)
}

// Date returns the calendar date part (YYYY-MM-DD) of the raw value, which is
// what date-only inputs and list cells show.
func (ts Timestamp) Date() string {
	if i := strings.IndexAny(ts.Raw, "T "); i >= 0 {
		return ts.Raw[:i]
	}
	if len(ts.Raw) >= len("2006-01-02") {
		return ts.Raw[:len("2006-01-02")]
	}
	if ts.Time.IsZero() {
		return ""
	}
	return ts.Time.Format("2006-01-02")
}

func (ts Timestamp) String() string {
	if ts.Raw != "" {
		return ts.Raw
	}
	if ts.Time.IsZero() {
		return ""
	}
	return ts.Time.UTC().Format(time.RFC3339Nano)
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(ts.String())
}

func (ts *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if strings.TrimSpace(s) == "" {
		*ts = Timestamp{}
		return nil
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		// Keep unknown formats displayable rather than failing the whole payload.
		*ts = Timestamp{Raw: s}
		return nil
	}
	*ts = parsed
	return nil
}
