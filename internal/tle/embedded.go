package tle

import (
	_ "embed"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// fleetElements holds the element sets of the monitored fleet.
//
//go:embed fleet.tle
var fleetElements string

// LoadFleet parses the embedded fleet element sets.
func LoadFleet(logger *slog.Logger) (*Set, error) {
	elements, err := Parse(strings.NewReader(fleetElements), logger)
	if err != nil {
		return nil, fmt.Errorf("parsing embedded fleet elements: %w", err)
	}
	if len(elements) == 0 {
		return nil, fmt.Errorf("embedded fleet elements are empty")
	}
	return NewSet("embedded", time.Now().UTC(), elements), nil
}
