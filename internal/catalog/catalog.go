// Package catalog loads the static list of monitored cities.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
)

// City is one monitored location from the catalog file.
type City struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// Load reads the catalog file and returns its cities. The catalog is
// configuration, not runtime data: callers treat any error as fatal.
func Load(path string) ([]City, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read city catalog: %w", err)
	}

	var cities []City
	if err := json.Unmarshal(data, &cities); err != nil {
		return nil, fmt.Errorf("parse city catalog %s: %w", path, err)
	}
	if len(cities) == 0 {
		return nil, fmt.Errorf("city catalog %s is empty", path)
	}
	for i, c := range cities {
		if c.Name == "" {
			return nil, fmt.Errorf("city catalog %s: entry %d has no name", path, i)
		}
	}
	return cities, nil
}
