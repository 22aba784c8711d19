package rating

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"
)

// DefaultTiers is the ladder used when no tiers file is configured.
var DefaultTiers = []Tier{
	{Name: "Bronze", MinRating: 0, Color: "#CD7F32"},
	{Name: "Silver", MinRating: 500, Color: "#C0C0C0"},
	{Name: "Gold", MinRating: 1000, Color: "#FFD700"},
	{Name: "Platinum", MinRating: 1500, Color: "#E5E4E2"},
	{Name: "Diamond", MinRating: 2000, Color: "#B9F2FF"},
	{Name: "Master", MinRating: 2500, Color: "#9932CC"},
	{Name: "Grandmaster", MinRating: 3000, Color: "#FF0000"},
}

var ErrNoBaseTier = errors.New("tiers must include a tier with min_rating 0")

type tiersFile struct {
	Tiers []Tier `yaml:"tiers"`
}

// LoadTiers reads a YAML tiers file. An empty path returns DefaultTiers.
func LoadTiers(path string) ([]Tier, error) {
	if path == "" {
		return DefaultTiers, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tiers file: %w", err)
	}
	return ParseTiers(data)
}

// ParseTiers decodes and validates a YAML tiers document. Tiers are returned sorted by threshold.
func ParseTiers(data []byte) ([]Tier, error) {
	var f tiersFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse tiers: %w", err)
	}
	tiers := append([]Tier(nil), f.Tiers...)
	sort.SliceStable(tiers, func(i, j int) bool { return tiers[i].MinRating < tiers[j].MinRating })
	if len(tiers) == 0 || tiers[0].MinRating != 0 {
		return nil, ErrNoBaseTier
	}
	log.Info("Loaded rank tiers", "count", len(tiers))
	return tiers, nil
}
