package tle

import "time"

// Element is one satellite's two-line element set.
type Element struct {
	NORADID int
	Name    string
	Epoch   time.Time
	Line1   string
	Line2   string
}

// EpochRange is the span of element epochs in a set.
type EpochRange struct {
	Min time.Time
	Max time.Time
}

// Set is a parsed collection of element sets and where it came from.
type Set struct {
	Source     string
	LoadedAt   time.Time
	EpochRange EpochRange
	Elements   []Element
}

// NewSet builds a Set and computes its epoch range.
func NewSet(source string, loadedAt time.Time, elements []Element) *Set {
	s := &Set{Source: source, LoadedAt: loadedAt, Elements: elements}
	if len(elements) == 0 {
		return s
	}
	s.EpochRange = EpochRange{Min: elements[0].Epoch, Max: elements[0].Epoch}
	for _, e := range elements[1:] {
		if e.Epoch.Before(s.EpochRange.Min) {
			s.EpochRange.Min = e.Epoch
		}
		if e.Epoch.After(s.EpochRange.Max) {
			s.EpochRange.Max = e.Epoch
		}
	}
	return s
}
