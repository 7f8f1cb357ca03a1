// internal/common/httpx/client.go
package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"pathfinder-checker/internal/common/errors"
	"pathfinder-checker/internal/common/logger"
)

// ContentTypeCloudEvents is the CloudEvents JSON media type used for all
// event-notification traffic.
const ContentTypeCloudEvents = "application/cloudevents+json; charset=UTF-8"

// Response is the outcome of a single exchange. Body holds the decoded JSON
// value when the response declared a JSON content type, otherwise the raw
// bytes as a string.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       interface{}
	Raw        []byte
}

// Client performs single HTTP request/response round trips with
// content-type-aware body encoding and decoding. No retries happen at this
// layer; retry policy belongs to callers and this tool performs none.
type Client struct {
	httpClient *http.Client
	userAgent  string
	logger     logger.Logger
}

func NewClient(timeout time.Duration, userAgent string, log logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		userAgent: userAgent,
		logger:    log,
	}
}

// Exchange performs one request. headers may be nil; body may be nil.
// Network-level failures surface as a transport CheckError.
func (c *Client) Exchange(ctx context.Context, method, rawURL string, headers map[string]string, body interface{}) (*Response, error) {
	payload, err := encodeBody(headers, body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if c.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if payload != nil && req.Header.Get("Content-Length") == "" {
		req.Header.Set("Content-Length", strconv.Itoa(len(payload)))
		req.ContentLength = int64(len(payload))
	}

	c.logger.Debug("outbound request", map[string]interface{}{
		"method": method,
		"url":    rawURL,
		"body":   string(payload),
	})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewTransportError(rawURL, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewTransportError(rawURL, err)
	}

	c.logger.Debug("inbound response", map[string]interface{}{
		"status": resp.StatusCode,
		"url":    rawURL,
		"body":   string(raw),
	})

	out := &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Raw:        raw,
	}

	if isJSONContentType(resp.Header.Get("Content-Type")) && len(raw) > 0 {
		var decoded interface{}
		if err := json.Unmarshal(raw, &decoded); err != nil {
			// A parse failure never aborts the call; the caller gets the
			// raw bytes description instead.
			c.logger.Warn("response body is not valid JSON", map[string]interface{}{
				"url":   rawURL,
				"error": err.Error(),
			})
			out.Body = string(raw)
		} else {
			out.Body = decoded
		}
	} else {
		out.Body = string(raw)
	}

	return out, nil
}

// encodeBody serializes body according to the declared content type. A
// declared content type the encoder does not understand drops the body
// rather than sending bytes the server won't understand.
func encodeBody(headers map[string]string, body interface{}) ([]byte, error) {
	if body == nil {
		return nil, nil
	}

	ct := ""
	for k, v := range headers {
		if strings.EqualFold(k, "Content-Type") {
			ct = v
			break
		}
	}
	if ct == "" {
		return nil, nil
	}

	switch {
	case isJSONContentType(ct):
		return json.Marshal(body)
	case strings.HasPrefix(mediaType(ct), "application/x-www-form-urlencoded"):
		return encodeForm(body)
	default:
		return nil, nil
	}
}

func encodeForm(body interface{}) ([]byte, error) {
	switch v := body.(type) {
	case url.Values:
		return []byte(v.Encode()), nil
	case map[string]string:
		values := url.Values{}
		for k, val := range v {
			values.Set(k, val)
		}
		return []byte(values.Encode()), nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported form body type %T", body)
	}
}

func mediaType(ct string) string {
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(ct))
	}
	return mt
}

func isJSONContentType(ct string) bool {
	mt := mediaType(ct)
	return mt == "application/json" ||
		mt == "application/cloudevents+json" ||
		strings.HasSuffix(mt, "+json")
}
