package repositories

import "time"

// Clock supplies the current time to the stores.
type Clock func() time.Time

// stamp normalises a timestamp to the precision both supported databases keep.
func stamp(c Clock) time.Time {
	return c().UTC().Truncate(time.Microsecond)
}
