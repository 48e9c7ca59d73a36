package models

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Filter is a subscriber's predicate over server records. A nil field is a
// wildcard. Filters are replaced, never edited, once registered.
//
// MaxPlayers is a capacity floor: the filter matches servers whose capacity is
// at least that bracket (a 64 filter matches 64, 128 and 254 slot servers).
type Filter struct {
	MinPlayers *int    `json:"min_players"`
	MaxPlayers *int    `json:"max_players"`
	Region     *string `json:"region"`
	Map        *string `json:"map"`
	Gamemode   *string `json:"game_mode"`
}

// Apply reports whether every set condition holds for server.
func (f Filter) Apply(server ServerRecord) bool {
	if f.MinPlayers != nil && server.Players < *f.MinPlayers {
		return false
	}
	if f.MaxPlayers != nil && server.MaxPlayers < *f.MaxPlayers {
		return false
	}
	if f.Region != nil && server.Region != *f.Region {
		return false
	}
	if f.Map != nil && server.Map != *f.Map {
		return false
	}
	if f.Gamemode != nil && server.Gamemode != *f.Gamemode {
		return false
	}
	return true
}

// IsWildcard reports whether the filter has no conditions at all.
func (f Filter) IsWildcard() bool {
	return f.MinPlayers == nil && f.MaxPlayers == nil && f.Region == nil && f.Map == nil && f.Gamemode == nil
}

// Validate checks the filter against the catalog of known values.
func (f Filter) Validate(catalog *Catalog) error {
	if f.MinPlayers != nil && *f.MinPlayers < 0 {
		return fmt.Errorf("%w: min_players must not be negative", ErrInvalidFilter)
	}
	if f.MaxPlayers != nil && *f.MaxPlayers < 0 {
		return fmt.Errorf("%w: max_players must not be negative", ErrInvalidFilter)
	}
	if catalog == nil {
		return nil
	}
	if f.Map != nil && !contains(catalog.Maps, *f.Map) {
		return fmt.Errorf("%w: unknown map %q", ErrInvalidFilter, *f.Map)
	}
	if f.Region != nil && !contains(catalog.Regions, *f.Region) {
		return fmt.Errorf("%w: unknown region %q", ErrInvalidFilter, *f.Region)
	}
	if f.Gamemode != nil && !contains(catalog.Gamemodes, *f.Gamemode) {
		return fmt.Errorf("%w: unknown gamemode %q", ErrInvalidFilter, *f.Gamemode)
	}
	return nil
}

// String renders the filter the way it is listed back to its owner.
func (f Filter) String() string {
	return fmt.Sprintf("Map: %s, Region: %s, Min players: %s, Max players: %s, Game mode: %s",
		anyString(f.Map), anyString(f.Region), anyInt(f.MinPlayers), anyInt(f.MaxPlayers), anyString(f.Gamemode))
}

// EncodeFilters serializes a filter list into the stored document format.
func EncodeFilters(filters []Filter) ([]byte, error) {
	if filters == nil {
		filters = []Filter{}
	}
	return json.Marshal(filters)
}

// DecodeFilters parses a stored filter list. An empty document is an empty list.
func DecodeFilters(data []byte) ([]Filter, error) {
	if len(data) == 0 || string(data) == "null" {
		return []Filter{}, nil
	}
	var filters []Filter
	if err := json.Unmarshal(data, &filters); err != nil {
		return nil, fmt.Errorf("decode filters: %w", err)
	}
	return filters, nil
}

// IntPtr and StringPtr build optional filter fields.
func IntPtr(v int) *int { return &v }

func StringPtr(v string) *string { return &v }

func anyString(v *string) string {
	if v == nil {
		return "Any"
	}
	return *v
}

func anyInt(v *int) string {
	if v == nil {
		return "Any"
	}
	return strconv.Itoa(*v)
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
