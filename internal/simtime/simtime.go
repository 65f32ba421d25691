// Package simtime provides the logical clock value used throughout the
// system. Time never advances on its own; callers move it forward
// explicitly.
package simtime

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/kazz187/taskman/pkg/cerr"
)

// Time is a non-negative point on the logical clock (equivalently a
// duration), stored as whole minutes.
type Time struct {
	minutes int
}

// New builds a Time from an hour/minute decomposition. The minute part must
// be a valid clock minute (0..59); both parts must be non-negative.
func New(hour, minute int) (Time, error) {
	if hour < 0 || minute < 0 || minute > 59 {
		return Time{}, cerr.Errorf(cerr.InvalidTimeValue, "invalid time components %d:%d", hour, minute)
	}
	return Time{minutes: hour*60 + minute}, nil
}

// FromMinutes builds a Time from a total minute count.
func FromMinutes(minutes int) (Time, error) {
	if minutes < 0 {
		return Time{}, cerr.Errorf(cerr.InvalidTimeValue, "negative minutes %d", minutes)
	}
	return Time{minutes: minutes}, nil
}

// MustFromMinutes is FromMinutes for statically known non-negative values.
// It panics on invalid input and is intended for tests and literals.
func MustFromMinutes(minutes int) Time {
	t, err := FromMinutes(minutes)
	if err != nil {
		panic(err)
	}
	return t
}

func (t Time) Minutes() int { return t.minutes }
func (t Time) Hour() int    { return t.minutes / 60 }
func (t Time) Minute() int  { return t.minutes % 60 }

func (t Time) Before(other Time) bool { return t.minutes < other.minutes }
func (t Time) After(other Time) bool  { return t.minutes > other.minutes }
func (t Time) Equal(other Time) bool  { return t.minutes == other.minutes }

// Add returns t shifted forward by d.
func (t Time) Add(d Time) Time {
	return Time{minutes: t.minutes + d.minutes}
}

// Sub returns the span from other to t. A negative span is rejected.
func (t Time) Sub(other Time) (Time, error) {
	if t.minutes < other.minutes {
		return Time{}, cerr.Errorf(cerr.InvalidTimeValue, "negative span %s - %s", t, other)
	}
	return Time{minutes: t.minutes - other.minutes}, nil
}

// Max returns the later of t and other.
func (t Time) Max(other Time) Time {
	if other.After(t) {
		return other
	}
	return t
}

func (t Time) String() string {
	return fmt.Sprintf("%d:%02d", t.Hour(), t.Minute())
}

// Parse reads the "h:mm" form produced by String, or a bare minute count.
func Parse(s string) (Time, error) {
	s = strings.TrimSpace(s)
	if h, m, ok := strings.Cut(s, ":"); ok {
		hour, err := strconv.Atoi(h)
		if err != nil {
			return Time{}, cerr.Errorf(cerr.InvalidTimeValue, "invalid time %q", s)
		}
		minute, err := strconv.Atoi(m)
		if err != nil {
			return Time{}, cerr.Errorf(cerr.InvalidTimeValue, "invalid time %q", s)
		}
		return New(hour, minute)
	}
	minutes, err := strconv.Atoi(s)
	if err != nil {
		return Time{}, cerr.Errorf(cerr.InvalidTimeValue, "invalid time %q", s)
	}
	return FromMinutes(minutes)
}

func (t Time) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *Time) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var minutes int
		if err := json.Unmarshal(data, &minutes); err != nil {
			return cerr.NewError(cerr.InvalidTimeValue, "invalid time value", err)
		}
		parsed, err := FromMinutes(minutes)
		if err != nil {
			return err
		}
		*t = parsed
		return nil
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
