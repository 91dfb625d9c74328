// Package extraction defines the external extraction-signals table
// contract consumed by the Ground-Truth Difficulty Computer (spec §4.K,
// §6). The computer does not care which pattern family produced a
// characterized pair, only whether it's characterized or not.
package extraction

import (
	"encoding/json"
	"os"

	"github.com/rgonzalez12/posthist/internal/generrors"
)

// Key indexes one extraction record by the (source, soldier) pair it was
// extracted from.
type Key struct {
	SourceID  string
	SoldierID string
}

// Record is one (source, soldier) pair's extracted signals: zero or more
// characterized pattern families, each a list of "<level>:<value>"
// strings, plus the two uncharacterized token arrays.
type Record struct {
	Characterized          map[string][]string `json:"characterized"`
	UncharacterizedAlpha   []string             `json:"uncharacterized_alpha"`
	UncharacterizedNumeric []string             `json:"uncharacterized_numeric"`
}

// AllCharacterizedPairs flattens every pattern family's pairs into one
// list; the computer never distinguishes families.
func (r Record) AllCharacterizedPairs() []string {
	var out []string
	for _, pairs := range r.Characterized {
		out = append(out, pairs...)
	}
	return out
}

// AllUncharacterized returns both uncharacterized arrays concatenated.
func (r Record) AllUncharacterized() []string {
	out := make([]string, 0, len(r.UncharacterizedAlpha)+len(r.UncharacterizedNumeric))
	out = append(out, r.UncharacterizedAlpha...)
	out = append(out, r.UncharacterizedNumeric...)
	return out
}

// rawEntry is the on-disk shape: a flat list so the (source, soldier) key
// travels alongside the record rather than as a JSON object key.
type rawEntry struct {
	SourceID  string `json:"source_id"`
	SoldierID string `json:"soldier_id"`
	Record
}

// Table maps (source, soldier) to the extracted signals for that pairing.
type Table map[Key]Record

// ForSoldier collects every record extracted for a given soldier, across
// all the sources it appeared in.
func (t Table) ForSoldier(soldierID string) []Record {
	var out []Record
	for k, r := range t {
		if k.SoldierID == soldierID {
			out = append(out, r)
		}
	}
	return out
}

// LoadFile reads an extraction table from a JSON file (§6 "External
// extraction table").
func LoadFile(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, generrors.Wrap(generrors.InfeasibleTargets, "extraction", path, err)
	}
	var entries []rawEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, generrors.Wrap(generrors.InfeasibleTargets, "extraction", path, err)
	}
	table := make(Table, len(entries))
	for _, e := range entries {
		table[Key{SourceID: e.SourceID, SoldierID: e.SoldierID}] = e.Record
	}
	return table, nil
}
