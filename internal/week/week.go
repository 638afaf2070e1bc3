// Package week maps calendar dates onto Monday-anchored week keys.
package week

import (
	"fmt"
	"time"
)

// Layout is the storage format of a week key.
const Layout = "2006-01-02"

// Key is the ISO date (YYYY-MM-DD) of the Monday that anchors a week.
type Key string

// KeyOf returns the key of the week containing t. The time of day is dropped
// first, in t's own location, so every instant of one calendar day maps to the
// same key.
func KeyOf(t time.Time) Key {
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	back := int(day.Weekday()) - 1
	if day.Weekday() == time.Sunday {
		back = 6
	}
	return Key(day.AddDate(0, 0, -back).Format(Layout))
}

// Parse validates s and re-anchors it to the Monday of its week.
func Parse(s string) (Key, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return "", fmt.Errorf("parse week %q: %w", s, err)
	}
	return KeyOf(t), nil
}

// Time returns the Monday of k at midnight UTC. Invalid keys yield the zero time.
func (k Key) Time() time.Time {
	t, err := time.Parse(Layout, string(k))
	if err != nil {
		return time.Time{}
	}
	return t
}

func (k Key) String() string { return string(k) }

// Valid reports whether k is a well-formed Monday key.
func (k Key) Valid() bool {
	t, err := time.Parse(Layout, string(k))
	return err == nil && t.Weekday() == time.Monday
}

func Next(k Key) Key { return shift(k, 7) }

func Prev(k Key) Key { return shift(k, -7) }

func shift(k Key, days int) Key {
	return Key(k.Time().AddDate(0, 0, days).Format(Layout))
}

// Last returns the n keys ending at k, oldest first.
func Last(k Key, n int) []Key {
	if n <= 0 {
		return nil
	}
	keys := make([]Key, n)
	cur := k
	for i := n - 1; i >= 0; i-- {
		keys[i] = cur
		cur = Prev(cur)
	}
	return keys
}

// Range returns the Monday and Sunday of k.
func Range(k Key) (time.Time, time.Time) {
	start := k.Time()
	return start, start.AddDate(0, 0, 6)
}

// Label formats the week as "M/D - M/D".
func Label(k Key) string {
	start, end := Range(k)
	return fmt.Sprintf("%d/%d - %d/%d", int(start.Month()), start.Day(), int(end.Month()), end.Day())
}

// Short formats the Monday as "M/D" for trend axes.
func Short(k Key) string {
	start := k.Time()
	return fmt.Sprintf("%d/%d", int(start.Month()), start.Day())
}
