// Package runner executes declarative test cases: it performs the HTTP
// exchange for each case and judges the observed response against the
// expected shape. Cases run strictly in order with no retries.
package runner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"pathfinder-checker/internal/common/httpx"
	"pathfinder-checker/internal/common/logger"
	"pathfinder-checker/internal/common/metrics"
	"pathfinder-checker/internal/common/observability"
)

// Expectation is the expected-response predicate of a test case.
type Expectation struct {
	// Statuses lists acceptable response status codes.
	Statuses []int
	// HeaderPresent lists response headers that must be present.
	HeaderPresent []string
	// BodySchema, when non-empty, is a JSON schema the decoded body must
	// satisfy.
	BodySchema string
	// BodyPredicate, when non-nil, receives the decoded body and returns
	// an error describing the violation, if any.
	BodyPredicate func(body interface{}) error
}

// TestCase is one declarative unit: a request template plus the expected
// response shape.
type TestCase struct {
	Name    string
	Method  string
	URL     string
	Headers map[string]string
	Body    interface{}
	Expect  Expectation
}

// Result records the outcome of one executed case.
type Result struct {
	Name   string
	Passed bool
	Err    error
}

// Summary aggregates a full run.
type Summary struct {
	Results []Result
	Failed  int
}

// Passed reports whether every case passed.
func (s *Summary) Passed() bool {
	return s.Failed == 0
}

// Engine performs the exchanges and comparisons for an ordered plan.
type Engine struct {
	http   *httpx.Client
	logger logger.Logger
	obs    *observability.Observability
}

func NewEngine(httpClient *httpx.Client, log logger.Logger, obs *observability.Observability) *Engine {
	return &Engine{http: httpClient, logger: log, obs: obs}
}

// Run executes the plan in order and returns the summary. Individual case
// failures do not stop the run.
func (e *Engine) Run(ctx context.Context, cases []TestCase) *Summary {
	summary := &Summary{}

	for _, tc := range cases {
		start := time.Now()
		err := e.execute(ctx, tc)
		if e.obs != nil {
			e.obs.RecordCheckDuration(ctx, time.Since(start), tc.Name)
		}

		result := Result{Name: tc.Name, Passed: err == nil, Err: err}
		summary.Results = append(summary.Results, result)

		if err != nil {
			summary.Failed++
			metrics.ChecksTotal.WithLabelValues("fail").Inc()
			if e.obs != nil {
				e.obs.RecordCheck(ctx, tc.Name, "fail")
			}
			e.logger.Error("FAIL "+tc.Name, map[string]interface{}{"error": err.Error()})
		} else {
			metrics.ChecksTotal.WithLabelValues("pass").Inc()
			if e.obs != nil {
				e.obs.RecordCheck(ctx, tc.Name, "pass")
			}
			e.logger.Info("PASS "+tc.Name, nil)
		}
	}

	return summary
}

func (e *Engine) execute(ctx context.Context, tc TestCase) error {
	resp, err := e.http.Exchange(ctx, tc.Method, tc.URL, tc.Headers, tc.Body)
	if err != nil {
		return err
	}

	if err := expectStatus(resp.StatusCode, tc.Expect.Statuses); err != nil {
		return err
	}

	for _, header := range tc.Expect.HeaderPresent {
		if resp.Header.Get(header) == "" {
			return fmt.Errorf("expected response header %q is missing", header)
		}
	}

	if tc.Expect.BodySchema != "" {
		if err := validateSchema(tc.Expect.BodySchema, resp.Body); err != nil {
			return err
		}
	}

	if tc.Expect.BodyPredicate != nil {
		if err := tc.Expect.BodyPredicate(resp.Body); err != nil {
			return err
		}
	}

	return nil
}

func expectStatus(got int, want []int) error {
	for _, status := range want {
		if got == status {
			return nil
		}
	}
	return fmt.Errorf("unexpected status %d, want one of %v", got, want)
}

// validateSchema checks a decoded body against a JSON schema document and
// collects every violation into one error.
func validateSchema(schema string, body interface{}) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewGoLoader(body),
	)
	if err != nil {
		return fmt.Errorf("schema validation failed to run: %w", err)
	}
	if result.Valid() {
		return nil
	}

	violations := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		violations = append(violations, desc.String())
	}
	return fmt.Errorf("body does not match expected shape: %s", strings.Join(violations, "; "))
}

// ValidateDocument applies a JSON schema to any decoded document. Exposed
// for subscribers that schema-check payloads outside a test case.
func ValidateDocument(schema string, doc interface{}) error {
	return validateSchema(schema, doc)
}
