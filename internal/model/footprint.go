// internal/model/footprint.go
package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// FootprintRecord is the checker's view of an opaque footprint document.
// Only the three fields used for deriving test inputs are inspected; the
// full document is kept as returned.
type FootprintRecord struct {
	ID         string
	Created    string
	ProductIds []string
	Raw        map[string]interface{}
}

// ParseFootprintList extracts footprint records from a decoded
// {data: [...]} response body. Records missing the inspected fields are
// kept with zero values; the document itself stays opaque.
func ParseFootprintList(body interface{}) ([]FootprintRecord, error) {
	obj, ok := body.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("response body is not a JSON object")
	}
	items, ok := obj["data"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("response body has no data array")
	}

	records := make([]FootprintRecord, 0, len(items))
	for _, item := range items {
		doc, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		rec := FootprintRecord{Raw: doc}
		if id, ok := doc["id"].(string); ok {
			rec.ID = id
		}
		if created, ok := doc["created"].(string); ok {
			rec.Created = created
		}
		if ids, ok := doc["productIds"].([]interface{}); ok {
			for _, v := range ids {
				if s, ok := v.(string); ok {
					rec.ProductIds = append(rec.ProductIds, s)
				}
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

// Generator synthesizes realistic footprint documents for stub responses.
// The id source and clock are injected so tests can substitute
// deterministic ones.
type Generator struct {
	NewID func() string
	Now   func() time.Time
}

// DefaultGenerator returns a Generator backed by random UUIDs and the
// system clock.
func DefaultGenerator() *Generator {
	return &Generator{NewID: uuid.NewString, Now: time.Now}
}

// Synthesize builds a footprint document, merging each override map over
// generated defaults in order. Later overrides win. A fresh document is
// created per call; nothing is persisted.
func (g *Generator) Synthesize(overrides ...map[string]interface{}) map[string]interface{} {
	now := g.Now().UTC().Format(time.RFC3339)

	doc := map[string]interface{}{
		"id":                 g.NewID(),
		"specVersion":        "2.0.0",
		"version":            1,
		"created":            now,
		"status":             "Active",
		"companyName":        "Stub Company",
		"companyIds":         []interface{}{"urn:uuid:" + g.NewID()},
		"productDescription": "Synthesized product footprint for conformance testing",
		"productIds":         []interface{}{"urn:uuid:" + g.NewID()},
		"productCategoryCpc": "3342",
		"productNameCompany": "Stub Product",
		"comment":            "",
		"pcf": map[string]interface{}{
			"declaredUnit":                 "kilogram",
			"unitaryProductAmount":         "100.0",
			"pCfExcludingBiogenic":         "0.5",
			"fossilGhgEmissions":           "0.5",
			"fossilCarbonContent":          "0.1",
			"biogenicCarbonContent":        "0.0",
			"characterizationFactors":      "AR5",
			"crossSectoralStandardsUsed":   []interface{}{"GHG Protocol Product standard"},
			"boundaryProcessesDescription": "Cradle-to-gate",
			"referencePeriodStart":         "2025-01-01T00:00:00Z",
			"referencePeriodEnd":           "2026-01-01T00:00:00Z",
			"exemptedEmissionsPercent":     0.0,
			"exemptedEmissionsDescription": "",
			"packagingEmissionsIncluded":   false,
		},
	}

	for _, override := range overrides {
		for k, v := range override {
			if v != nil {
				doc[k] = v
			}
		}
	}
	return doc
}

// TokenResponse holds the response from a client-credentials token endpoint.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}
