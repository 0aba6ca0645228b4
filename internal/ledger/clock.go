package ledger

import "time"

// Clock supplies the ledger's notion of now
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads wall-clock time
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
