package blogs

import (
	_ "embed"
	"encoding/json"
	"fmt"
)

//go:embed seed.json
var seedJSON []byte

// SeedData returns the fixed dataset written to an empty store on first run.
func SeedData() ([]Blog, error) {
	var records []Blog
	if err := json.Unmarshal(seedJSON, &records); err != nil {
		return nil, fmt.Errorf("decode seed data: %w", err)
	}
	return records, nil
}
