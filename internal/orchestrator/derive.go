// internal/orchestrator/derive.go
package orchestrator

import (
	"pathfinder-checker/internal/model"
)

// Variations holds the distinct field values mined from a live footprint
// list, used to parameterize filter test cases. First-encountered values
// come first; no ordering normalization happens beyond de-duplication.
type Variations struct {
	Created    []string
	ProductIds [][]string
}

// deriveVariations walks the list in order collecting distinct created
// timestamps and distinct productIds combinations. A combination is a
// duplicate when every one of its product identifiers already appears
// together in a previously recorded combination.
func deriveVariations(records []model.FootprintRecord) Variations {
	var v Variations

	seenCreated := map[string]bool{}
	for _, rec := range records {
		if rec.Created == "" || seenCreated[rec.Created] {
			continue
		}
		seenCreated[rec.Created] = true
		v.Created = append(v.Created, rec.Created)
	}

	for _, rec := range records {
		if len(rec.ProductIds) == 0 {
			continue
		}
		if !containsCombination(v.ProductIds, rec.ProductIds) {
			v.ProductIds = append(v.ProductIds, rec.ProductIds)
		}
	}

	return v
}

// containsCombination reports whether ids is covered by one of the
// recorded combinations, i.e. every id appears together in it.
func containsCombination(recorded [][]string, ids []string) bool {
	for _, combo := range recorded {
		set := make(map[string]bool, len(combo))
		for _, id := range combo {
			set[id] = true
		}
		all := true
		for _, id := range ids {
			if !set[id] {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}
