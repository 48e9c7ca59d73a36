package models

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Catalog lists the values a filter may reference.
type Catalog struct {
	Maps       []string `yaml:"maps" json:"maps"`
	Regions    []string `yaml:"regions" json:"regions"`
	Gamemodes  []string `yaml:"gamemodes" json:"gamemodes"`
	MaxPlayers []int    `yaml:"max_players" json:"max_players"`
}

// DefaultCatalog returns the built-in BattleBit catalog.
func DefaultCatalog() *Catalog {
	return &Catalog{
		Maps: []string{
			"Azagor", "Basra", "Construction", "District", "DustyDew", "Eduardovo",
			"Frugis", "Isle", "Kodiak", "Lonovo", "MultuIslands", "Namak", "OilDunes",
			"Outskirts", "River", "Salhan", "SandySunset", "TensaTown", "Valley",
			"Wakistan", "WineParadise", "ZalfiBay",
		},
		Regions: []string{
			"America_Central", "Europe_Central", "Asia_Central",
			"Brazil_Central", "Australia_Central", "Japan_Central",
		},
		Gamemodes:  []string{"CONQ", "INFCONQ", "FRONTLINE", "DOMI", "RUSH", "CaptureTheFlag"},
		MaxPlayers: []int{16, 32, 64, 128, 254},
	}
}

// LoadCatalog reads a YAML catalog. Sections missing from the file keep the
// built-in values.
func LoadCatalog(path string) (*Catalog, error) {
	catalog := DefaultCatalog()
	if path == "" {
		return catalog, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}

	var override Catalog
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}

	if len(override.Maps) > 0 {
		catalog.Maps = override.Maps
	}
	if len(override.Regions) > 0 {
		catalog.Regions = override.Regions
	}
	if len(override.Gamemodes) > 0 {
		catalog.Gamemodes = override.Gamemodes
	}
	if len(override.MaxPlayers) > 0 {
		catalog.MaxPlayers = override.MaxPlayers
	}
	return catalog, nil
}
