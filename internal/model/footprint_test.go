package model

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestGenerator() *Generator {
	counter := 0
	return &Generator{
		NewID: func() string {
			counter++
			return fmt.Sprintf("00000000-0000-0000-0000-%012d", counter)
		},
		Now: func() time.Time {
			return time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
		},
	}
}

// ==========================
// ParseFootprintList Tests
// ==========================

func TestParseFootprintList(t *testing.T) {
	body := map[string]interface{}{
		"data": []interface{}{
			map[string]interface{}{
				"id":         "pf-1",
				"created":    "2026-01-01T00:00:00Z",
				"productIds": []interface{}{"urn:uuid:a", "urn:uuid:b"},
				"extra":      "kept opaque",
			},
			map[string]interface{}{
				"id": "pf-2",
			},
		},
	}

	records, err := ParseFootprintList(body)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "pf-1", records[0].ID)
	assert.Equal(t, "2026-01-01T00:00:00Z", records[0].Created)
	assert.Equal(t, []string{"urn:uuid:a", "urn:uuid:b"}, records[0].ProductIds)
	assert.Equal(t, "kept opaque", records[0].Raw["extra"])

	assert.Equal(t, "pf-2", records[1].ID)
	assert.Empty(t, records[1].Created)
	assert.Empty(t, records[1].ProductIds)
}

func TestParseFootprintList_Malformed(t *testing.T) {
	tests := []struct {
		name string
		body interface{}
	}{
		{name: "not an object", body: []interface{}{"pf-1"}},
		{name: "missing data array", body: map[string]interface{}{"items": []interface{}{}}},
		{name: "data is not an array", body: map[string]interface{}{"data": "pf-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFootprintList(tt.body)
			assert.Error(t, err)
		})
	}
}

func TestParseFootprintList_Empty(t *testing.T) {
	records, err := ParseFootprintList(map[string]interface{}{"data": []interface{}{}})
	require.NoError(t, err)
	assert.Empty(t, records)
}

// ==========================
// Generator Tests
// ==========================

func TestGenerator_Synthesize_Defaults(t *testing.T) {
	gen := createTestGenerator()

	doc := gen.Synthesize()

	assert.Equal(t, "00000000-0000-0000-0000-000000000001", doc["id"])
	assert.Equal(t, "2026-03-15T12:00:00Z", doc["created"])
	assert.Equal(t, "Active", doc["status"])
	require.Contains(t, doc, "pcf")
	pcf, ok := doc["pcf"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "kilogram", pcf["declaredUnit"])
}

func TestGenerator_Synthesize_OverridesWin(t *testing.T) {
	gen := createTestGenerator()

	doc := gen.Synthesize(
		map[string]interface{}{"companyIds": []interface{}{"urn:uuid:fixed"}},
		map[string]interface{}{"id": "chosen-id", "companyIds": []interface{}{"urn:uuid:later"}},
	)

	// Later override maps take precedence over earlier ones.
	assert.Equal(t, "chosen-id", doc["id"])
	assert.Equal(t, []interface{}{"urn:uuid:later"}, doc["companyIds"])
}

func TestGenerator_Synthesize_NilValuesSkipped(t *testing.T) {
	gen := createTestGenerator()

	doc := gen.Synthesize(map[string]interface{}{"status": nil})

	assert.Equal(t, "Active", doc["status"])
}

func TestGenerator_Synthesize_FreshDocumentPerCall(t *testing.T) {
	gen := createTestGenerator()

	first := gen.Synthesize()
	second := gen.Synthesize()

	assert.NotEqual(t, first["id"], second["id"])

	first["status"] = "Deprecated"
	assert.Equal(t, "Active", second["status"])
}
