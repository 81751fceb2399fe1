package core

import "time"

// Clock supplies the current time to the service.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function into a Clock. A nil ClockFunc reports the
// current UTC time.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time {
	if f == nil {
		return time.Now().UTC()
	}
	return f().UTC()
}

type clockSetter interface {
	SetClock(func() time.Time)
}

// selectNowFunc hands the service clock to stores that stamp records, so
// CreatedAt/UpdatedAt agree with audit timestamps.
func selectNowFunc(store PersistentStore, clock Clock) {
	if clock == nil {
		return
	}
	if setter, ok := store.(clockSetter); ok {
		setter.SetClock(clock.Now)
	}
}
