package config

import (
	"bytes"
	"encoding/json"
	"time"

	"golang.org/x/xerrors"
)

// Duration is a time.Duration written to JSON in its string form, such as
// "30s". Integer nanoseconds are accepted when decoding.
type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return d.Duration().String()
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return xerrors.Errorf("parsing duration: %w", err)
	}
	*d = Duration(parsed)
	return nil
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	if bytes.HasPrefix(b, []byte(`"`)) {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		return d.UnmarshalText([]byte(s))
	}
	return json.Unmarshal(b, (*time.Duration)(d))
}
