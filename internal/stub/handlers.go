// internal/stub/handlers.go
package stub

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"pathfinder-checker/internal/common/auth"
	"pathfinder-checker/internal/common/errors"
	"pathfinder-checker/internal/common/httpx"
	"pathfinder-checker/internal/common/metrics"
	"pathfinder-checker/internal/model"
)

// eventSource identifies this tool in outbound CloudEvents envelopes.
const eventSource = "//pathfinder-checker/stub"

// handleToken hands the system under test a usable token. Any
// syntactically valid Basic pair is accepted: the endpoint exists solely
// to issue tokens for the callback flow, so there is no credential check
// against the configured settings.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	const route = "auth_token"

	if _, _, err := auth.ParseBasicAuth(r.Header.Get("Authorization")); err != nil {
		s.writeError(w, route, http.StatusBadRequest, errors.CodeBadRequest, err.Error())
		return
	}

	tok, err := s.cfg.Tokens.Issue()
	if err != nil {
		s.writeError(w, route, http.StatusInternalServerError, errors.CodeInternalError, "failed to issue token")
		return
	}

	s.writeJSON(w, route, http.StatusOK, map[string]string{
		"token_type":   "Bearer",
		"access_token": tok,
	})
}

func (s *Server) handleFootprintList(w http.ResponseWriter, r *http.Request) {
	const route = "footprints_list"
	if !s.requireBearer(w, r, route) {
		return
	}

	fp := s.synthesize(nil)
	s.writeJSON(w, route, http.StatusOK, map[string]interface{}{
		"data": []interface{}{fp},
	})
}

func (s *Server) handleFootprint(w http.ResponseWriter, r *http.Request, id string) {
	const route = "footprints_get"
	if !s.requireBearer(w, r, route) {
		return
	}

	fp := s.synthesize(map[string]interface{}{"id": id})
	s.writeJSON(w, route, http.StatusOK, map[string]interface{}{
		"data": fp,
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	const route = "events"
	if !s.requireBearer(w, r, route) {
		return
	}

	if !strings.HasPrefix(strings.ToLower(r.Header.Get("Content-Type")), "application/cloudevents+json") {
		s.rejectEvent(w, route, "content type must be "+httpx.ContentTypeCloudEvents, "")
		return
	}

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		s.rejectEvent(w, route, "failed to read request body", err.Error())
		return
	}

	event, err := model.ParseEvent(raw)
	if err != nil {
		s.emitter.emitError(err)
		s.writeError(w, route, http.StatusBadRequest, errors.CodeBadRequest, err.Error())
		return
	}

	metrics.StubEventsReceived.WithLabelValues(string(event.Envelope().Type)).Inc()

	switch ev := event.(type) {
	case *model.PublishedEvent:
		s.writeJSON(w, route, http.StatusOK, map[string]interface{}{})

	case *model.RequestCreatedEvent:
		// Acknowledge first; the fulfillment callback runs on its own and
		// reports failures through the error emitter only.
		s.writeJSON(w, route, http.StatusOK, map[string]interface{}{})
		go s.fulfillRequest(ev)

	case *model.RequestFulfilledEvent:
		s.writeJSON(w, route, http.StatusOK, map[string]interface{}{})
		s.emitter.emitData(ev.Envelope())

	case *model.RequestRejectedEvent:
		s.writeJSON(w, route, http.StatusOK, map[string]interface{}{})
	}
}

func (s *Server) rejectEvent(w http.ResponseWriter, route, message, details string) {
	s.emitter.emitError(errors.NewProtocolViolation(message, details))
	s.writeError(w, route, http.StatusBadRequest, errors.CodeBadRequest, message)
}

// synthesize builds a stub footprint merging the configured stub_data
// overrides and then the request-specific ones over generated defaults.
func (s *Server) synthesize(requestOverrides map[string]interface{}) map[string]interface{} {
	fixed := map[string]interface{}{}
	if sd := s.cfg.Settings.StubData; sd != nil {
		if len(sd.CompanyIds) > 0 {
			fixed["companyIds"] = toInterfaceSlice(sd.CompanyIds)
		}
		if len(sd.ProductIds) > 0 {
			fixed["productIds"] = toInterfaceSlice(sd.ProductIds)
		}
	}
	return s.cfg.Generator.Synthesize(fixed, requestOverrides)
}

// fulfillRequest performs the outbound half of RequestCreated handling:
// authenticate against the destination with a freshly obtained token,
// synthesize a footprint from the request's pf fragment, and post a
// RequestFulfilled event back. Failures are emitted, never retried.
func (s *Server) fulfillRequest(ev *model.RequestCreatedEvent) {
	ctx := context.Background()

	settings := s.cfg.Settings
	tok, resp, err := s.cfg.Auth.ClientCredentialsGrant(ctx, s.cfg.TokenEndpoint, settings.UserName, settings.Password)
	if err != nil {
		metrics.StubCallbacksTotal.WithLabelValues("auth_error").Inc()
		s.emitter.emitError(err)
		return
	}
	if resp.StatusCode != http.StatusOK || tok.AccessToken == "" {
		metrics.StubCallbacksTotal.WithLabelValues("auth_rejected").Inc()
		s.emitter.emitError(errors.NewAuthenticationFailure(
			"destination rejected client credentials during fulfillment",
			resp.Header.Get("Content-Type"),
		))
		return
	}

	fp := s.synthesize(ev.PF)

	envelope, err := model.NewEnvelope(
		model.EventRequestFulfilled,
		uuid.NewString(),
		eventSource,
		s.cfg.Generator.Now().UTC().Format(time.RFC3339),
		map[string]interface{}{
			"requestEventId": ev.Envelope().ID,
			"pfs":            []interface{}{fp},
		},
	)
	if err != nil {
		s.emitter.emitError(err)
		return
	}

	eventsURL := strings.TrimSuffix(settings.DataContextPath, "/") + s.cfg.PathPrefix + "/events"
	out, err := s.cfg.HTTP.Exchange(ctx, http.MethodPost, eventsURL, map[string]string{
		"Content-Type":  httpx.ContentTypeCloudEvents,
		"Authorization": "Bearer " + tok.AccessToken,
	}, envelope)
	if err != nil {
		metrics.StubCallbacksTotal.WithLabelValues("post_error").Inc()
		s.emitter.emitError(err)
		return
	}
	if out.StatusCode != http.StatusOK {
		metrics.StubCallbacksTotal.WithLabelValues("post_rejected").Inc()
		s.emitter.emitError(errors.NewProtocolViolation(
			"destination rejected fulfillment event",
			eventsURL,
		))
		return
	}

	metrics.StubCallbacksTotal.WithLabelValues("ok").Inc()
	s.logger.Info("fulfillment event delivered", map[string]interface{}{
		"requestEventId": ev.Envelope().ID,
		"url":            eventsURL,
	})
}

func toInterfaceSlice(in []string) []interface{} {
	out := make([]interface{}, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
