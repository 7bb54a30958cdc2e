// Package timestamp captures transmissible points in time.
//
// The unit is whole seconds since the Unix epoch: an integer that survives
// serialization to text in one process and deserialization in another, which
// is the only way timing information crosses the build's process boundaries.
package timestamp

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrInvalid reports timestamp text that is not a non-negative integer.
var ErrInvalid = errors.New("timestamp: invalid timestamp")

// Timestamp is a point in time with one-second resolution.
type Timestamp int64

// Now captures the current time.
func Now() Timestamp {
	return Timestamp(time.Now().Unix())
}

// Parse decodes the text produced by String. Pre-epoch values are rejected:
// no build system hands out timestamps from before 1970, so a negative value
// is always caller corruption.
func Parse(s string) (Timestamp, error) {
	secs, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalid, s)
	}
	if secs < 0 {
		return 0, fmt.Errorf("%w: %q is before the epoch", ErrInvalid, s)
	}
	return Timestamp(secs), nil
}

// String encodes the timestamp as decimal seconds since the epoch.
func (t Timestamp) String() string {
	return strconv.FormatInt(int64(t), 10)
}

// Time converts to a time.Time for backends that want one.
func (t Timestamp) Time() time.Time {
	return time.Unix(int64(t), 0).UTC()
}
