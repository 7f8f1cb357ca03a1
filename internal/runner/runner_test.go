package runner

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pathfinder-checker/internal/common/httpx"
	"pathfinder-checker/internal/common/logger"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestEngine(t *testing.T) *Engine {
	httpClient := httpx.NewClient(5*time.Second, "checker-test/1.0", logger.NewTestLogger(t))
	return NewEngine(httpClient, logger.NewTestLogger(t), nil)
}

func jsonHandler(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}
}

// ==========================
// Run Tests
// ==========================

func TestEngine_Run_StatusExpectations(t *testing.T) {
	server := httptest.NewServer(jsonHandler(http.StatusAccepted, `{"data":[]}`))
	defer server.Close()

	engine := createTestEngine(t)
	summary := engine.Run(context.Background(), []TestCase{
		{
			Name:   "accepted is fine",
			Method: http.MethodGet,
			URL:    server.URL,
			Expect: Expectation{Statuses: []int{http.StatusOK, http.StatusAccepted}},
		},
		{
			Name:   "only ok wanted",
			Method: http.MethodGet,
			URL:    server.URL,
			Expect: Expectation{Statuses: []int{http.StatusOK}},
		},
	})

	require.Len(t, summary.Results, 2)
	assert.True(t, summary.Results[0].Passed)
	assert.False(t, summary.Results[1].Passed)
	assert.Equal(t, 1, summary.Failed)
	assert.False(t, summary.Passed())
}

func TestEngine_Run_ContinuesAfterFailure(t *testing.T) {
	server := httptest.NewServer(jsonHandler(http.StatusOK, `{"data":[{"id":"pf-1"}]}`))
	defer server.Close()

	engine := createTestEngine(t)
	summary := engine.Run(context.Background(), []TestCase{
		{
			Name:   "fails on status",
			Method: http.MethodGet,
			URL:    server.URL,
			Expect: Expectation{Statuses: []int{http.StatusNoContent}},
		},
		{
			Name:   "still runs",
			Method: http.MethodGet,
			URL:    server.URL,
			Expect: Expectation{Statuses: []int{http.StatusOK}},
		},
	})

	require.Len(t, summary.Results, 2)
	assert.False(t, summary.Results[0].Passed)
	assert.True(t, summary.Results[1].Passed)
}

func TestEngine_Run_HeaderExpectation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Link", `<https://example.test/next>; rel="next"`)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	engine := createTestEngine(t)
	summary := engine.Run(context.Background(), []TestCase{
		{
			Name:   "link header present",
			Method: http.MethodGet,
			URL:    server.URL,
			Expect: Expectation{Statuses: []int{http.StatusOK}, HeaderPresent: []string{"Link"}},
		},
		{
			Name:   "missing header fails",
			Method: http.MethodGet,
			URL:    server.URL,
			Expect: Expectation{Statuses: []int{http.StatusOK}, HeaderPresent: []string{"Retry-After"}},
		},
	})

	assert.True(t, summary.Results[0].Passed)
	assert.False(t, summary.Results[1].Passed)
}

func TestEngine_Run_SchemaExpectation(t *testing.T) {
	const schema = `{
		"type": "object",
		"required": ["data"],
		"properties": {"data": {"type": "array"}}
	}`

	tests := []struct {
		name     string
		body     string
		wantPass bool
	}{
		{name: "matching body", body: `{"data":[]}`, wantPass: true},
		{name: "data wrong type", body: `{"data":"nope"}`, wantPass: false},
		{name: "data missing", body: `{"items":[]}`, wantPass: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(jsonHandler(http.StatusOK, tt.body))
			defer server.Close()

			engine := createTestEngine(t)
			summary := engine.Run(context.Background(), []TestCase{
				{
					Name:   tt.name,
					Method: http.MethodGet,
					URL:    server.URL,
					Expect: Expectation{Statuses: []int{http.StatusOK}, BodySchema: schema},
				},
			})
			assert.Equal(t, tt.wantPass, summary.Results[0].Passed)
		})
	}
}

func TestEngine_Run_BodyPredicate(t *testing.T) {
	server := httptest.NewServer(jsonHandler(http.StatusOK, `{"data":[{"id":"pf-1"}]}`))
	defer server.Close()

	engine := createTestEngine(t)
	summary := engine.Run(context.Background(), []TestCase{
		{
			Name:   "predicate passes",
			Method: http.MethodGet,
			URL:    server.URL,
			Expect: Expectation{
				Statuses: []int{http.StatusOK},
				BodyPredicate: func(body interface{}) error {
					if _, ok := body.(map[string]interface{}); !ok {
						return fmt.Errorf("not an object")
					}
					return nil
				},
			},
		},
		{
			Name:   "predicate rejects",
			Method: http.MethodGet,
			URL:    server.URL,
			Expect: Expectation{
				Statuses:      []int{http.StatusOK},
				BodyPredicate: func(body interface{}) error { return fmt.Errorf("no good") },
			},
		},
	})

	assert.True(t, summary.Results[0].Passed)
	assert.False(t, summary.Results[1].Passed)
	require.Error(t, summary.Results[1].Err)
	assert.Contains(t, summary.Results[1].Err.Error(), "no good")
}

func TestEngine_Run_TransportFailureFailsCase(t *testing.T) {
	engine := createTestEngine(t)
	summary := engine.Run(context.Background(), []TestCase{
		{
			Name:   "unreachable",
			Method: http.MethodGet,
			URL:    "http://127.0.0.1:1/none",
			Expect: Expectation{Statuses: []int{http.StatusOK}},
		},
	})

	assert.Equal(t, 1, summary.Failed)
}

// ==========================
// ValidateDocument Tests
// ==========================

func TestValidateDocument(t *testing.T) {
	const schema = `{
		"type": "object",
		"required": ["id"],
		"properties": {"id": {"type": "string", "minLength": 1}}
	}`

	assert.NoError(t, ValidateDocument(schema, map[string]interface{}{"id": "pf-1"}))

	err := ValidateDocument(schema, map[string]interface{}{"id": ""})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected shape")

	assert.Error(t, ValidateDocument(schema, map[string]interface{}{}))
}
