// internal/orchestrator/testcases.go
package orchestrator

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"pathfinder-checker/internal/common/errors"
	"pathfinder-checker/internal/common/httpx"
	"pathfinder-checker/internal/model"
	"pathfinder-checker/internal/runner"
)

// footprintListSchema is the minimal shape of a successful listing
// response: a data array of objects that each carry an id.
const footprintListSchema = `{
	"type": "object",
	"required": ["data"],
	"properties": {
		"data": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["id"],
				"properties": {
					"id": {"type": "string", "minLength": 1}
				}
			}
		}
	}
}`

// errorResponseSchema is the shape every error response must carry.
const errorResponseSchema = `{
	"type": "object",
	"required": ["code", "message"],
	"properties": {
		"code": {"type": "string", "minLength": 1},
		"message": {"type": "string"}
	}
}`

// fulfilledEnvelopeSchema checks RequestFulfilled envelopes delivered to
// the stub server's events endpoint.
const fulfilledEnvelopeSchema = `{
	"type": "object",
	"required": ["type", "specversion", "id", "source", "data"],
	"properties": {
		"type": {"enum": ["org.wbcsd.pathfinder.ProductFootprintRequest.Fulfilled.v1"]},
		"specversion": {"enum": ["1.0"]},
		"id": {"type": "string", "minLength": 1},
		"source": {"type": "string", "minLength": 1},
		"data": {
			"type": "object",
			"required": ["requestEventId", "pfs"],
			"properties": {
				"requestEventId": {"type": "string", "minLength": 1},
				"pfs": {
					"type": "array",
					"minItems": 1,
					"items": {"type": "object", "required": ["id", "created"]}
				}
			}
		}
	}
}`

// buildPlan assembles the ordered test plan from the configured capability
// flags and the variations mined from the baseline listing.
func (o *Orchestrator) buildPlan(prefix, accessToken string, records []model.FootprintRecord, v Variations) []runner.TestCase {
	listURL := o.footprintsURL(prefix)
	authHeaders := map[string]string{
		"Accept":        "application/json",
		"Authorization": "Bearer " + accessToken,
	}

	cases := []runner.TestCase{
		{
			Name:    "list footprints",
			Method:  http.MethodGet,
			URL:     listURL,
			Headers: authHeaders,
			Expect: runner.Expectation{
				Statuses:      []int{http.StatusOK, http.StatusAccepted},
				BodySchema:    footprintListSchema,
				BodyPredicate: nonEmptyData,
			},
		},
		{
			Name:    "get footprint by id",
			Method:  http.MethodGet,
			URL:     listURL + "/" + records[0].ID,
			Headers: authHeaders,
			Expect: runner.Expectation{
				Statuses:      []int{http.StatusOK},
				BodyPredicate: dataHasID(records[0].ID),
			},
		},
		{
			Name:   "reject invalid bearer token",
			Method: http.MethodGet,
			URL:    listURL,
			Headers: map[string]string{
				"Accept":        "application/json",
				"Authorization": "Bearer not-a-valid-token",
			},
			Expect: runner.Expectation{
				Statuses:      []int{http.StatusForbidden},
				BodySchema:    errorResponseSchema,
				BodyPredicate: errorCodeIs(errors.CodeAccessDenied),
			},
		},
	}

	if o.settings.FilterSupport {
		created := v.Created[0]
		cases = append(cases, runner.TestCase{
			Name:    "filter footprints by created",
			Method:  http.MethodGet,
			URL:     filterURL(listURL, fmt.Sprintf("created eq '%s'", created)),
			Headers: authHeaders,
			Expect: runner.Expectation{
				Statuses:      []int{http.StatusOK},
				BodySchema:    footprintListSchema,
				BodyPredicate: allCreatedEqual(created),
			},
		})

		productID := v.ProductIds[0][0]
		cases = append(cases, runner.TestCase{
			Name:    "filter footprints by product id",
			Method:  http.MethodGet,
			URL:     filterURL(listURL, fmt.Sprintf("productIds/any(productId:(productId eq '%s'))", productID)),
			Headers: authHeaders,
			Expect: runner.Expectation{
				Statuses:      []int{http.StatusOK},
				BodySchema:    footprintListSchema,
				BodyPredicate: allContainProductID(productID),
			},
		})
	}

	if o.settings.LimitSupport {
		cases = append(cases, runner.TestCase{
			Name:    "limit footprint listing",
			Method:  http.MethodGet,
			URL:     listURL + "?limit=1",
			Headers: authHeaders,
			Expect: runner.Expectation{
				Statuses:      []int{http.StatusOK},
				BodySchema:    footprintListSchema,
				BodyPredicate: dataLengthIs(1),
			},
		})
	}

	if o.settings.EventsSupport {
		cases = append(cases, o.eventCases(prefix, accessToken, records)...)
	}

	return cases
}

// eventCases covers the events endpoint: a Published notification the
// destination must accept, and a footprint request whose fulfillment is
// observed asynchronously by the stub server's data subscriber.
func (o *Orchestrator) eventCases(prefix, accessToken string, records []model.FootprintRecord) []runner.TestCase {
	eventsURL := strings.TrimSuffix(o.settings.DataContextPath, "/") + prefix + "/events"
	eventHeaders := map[string]string{
		"Content-Type":  httpx.ContentTypeCloudEvents,
		"Authorization": "Bearer " + accessToken,
	}
	now := time.Now().UTC().Format(time.RFC3339)
	source := strings.TrimSuffix(o.settings.StubContextPath, "/")

	published := map[string]interface{}{
		"type":        string(model.EventPublished),
		"specversion": model.SpecVersionCloudEvents,
		"id":          uuid.NewString(),
		"source":      source,
		"time":        now,
		"data": map[string]interface{}{
			"pfIds": []interface{}{records[0].ID},
		},
	}

	requestCreated := map[string]interface{}{
		"type":        string(model.EventRequestCreated),
		"specversion": model.SpecVersionCloudEvents,
		"id":          uuid.NewString(),
		"source":      source,
		"time":        now,
		"data": map[string]interface{}{
			"pf": map[string]interface{}{
				"companyIds": []interface{}{"urn:uuid:" + uuid.NewString()},
			},
			"comment": "conformance test footprint request",
		},
	}

	return []runner.TestCase{
		{
			Name:    "accept published event",
			Method:  http.MethodPost,
			URL:     eventsURL,
			Headers: eventHeaders,
			Body:    published,
			Expect:  runner.Expectation{Statuses: []int{http.StatusOK}},
		},
		{
			Name:    "accept footprint request event",
			Method:  http.MethodPost,
			URL:     eventsURL,
			Headers: eventHeaders,
			Body:    requestCreated,
			Expect:  runner.Expectation{Statuses: []int{http.StatusOK}},
		},
	}
}

func filterURL(base, filter string) string {
	q := url.Values{}
	q.Set("$filter", filter)
	return base + "?" + q.Encode()
}

func nonEmptyData(body interface{}) error {
	items, err := dataArray(body)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return fmt.Errorf("data array is empty")
	}
	return nil
}

func dataLengthIs(want int) func(interface{}) error {
	return func(body interface{}) error {
		items, err := dataArray(body)
		if err != nil {
			return err
		}
		if len(items) != want {
			return fmt.Errorf("data array has %d entries, want %d", len(items), want)
		}
		return nil
	}
}

func dataHasID(want string) func(interface{}) error {
	return func(body interface{}) error {
		obj, ok := body.(map[string]interface{})
		if !ok {
			return fmt.Errorf("response body is not a JSON object")
		}
		doc, ok := obj["data"].(map[string]interface{})
		if !ok {
			return fmt.Errorf("response body has no data object")
		}
		if id, _ := doc["id"].(string); id != want {
			return fmt.Errorf("returned footprint id %q, want %q", id, want)
		}
		return nil
	}
}

func errorCodeIs(want errors.ResponseCode) func(interface{}) error {
	return func(body interface{}) error {
		obj, ok := body.(map[string]interface{})
		if !ok {
			return fmt.Errorf("error response is not a JSON object")
		}
		if code, _ := obj["code"].(string); code != string(want) {
			return fmt.Errorf("error code %q, want %q", code, want)
		}
		return nil
	}
}

func allCreatedEqual(want string) func(interface{}) error {
	return func(body interface{}) error {
		records, err := parsedRecords(body)
		if err != nil {
			return err
		}
		for _, rec := range records {
			if rec.Created != want {
				return fmt.Errorf("footprint %s has created %q, want %q", rec.ID, rec.Created, want)
			}
		}
		return nil
	}
}

func allContainProductID(want string) func(interface{}) error {
	return func(body interface{}) error {
		records, err := parsedRecords(body)
		if err != nil {
			return err
		}
		for _, rec := range records {
			found := false
			for _, id := range rec.ProductIds {
				if id == want {
					found = true
					break
				}
			}
			if !found {
				return fmt.Errorf("footprint %s does not carry product id %q", rec.ID, want)
			}
		}
		return nil
	}
}

func dataArray(body interface{}) ([]interface{}, error) {
	obj, ok := body.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("response body is not a JSON object")
	}
	items, ok := obj["data"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("response body has no data array")
	}
	return items, nil
}

func parsedRecords(body interface{}) ([]model.FootprintRecord, error) {
	records, err := model.ParseFootprintList(body)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("filtered listing returned no footprints")
	}
	return records, nil
}
