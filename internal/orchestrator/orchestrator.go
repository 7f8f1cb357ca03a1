// Package orchestrator drives the conformance run: authentication
// discovery, negative and positive auth checks, baseline data retrieval,
// derivation of dynamic test inputs, and assembly of the ordered test plan
// handed to the assertion engine.
package orchestrator

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"pathfinder-checker/internal/common/auth"
	"pathfinder-checker/internal/common/config"
	"pathfinder-checker/internal/common/errors"
	"pathfinder-checker/internal/common/httpx"
	"pathfinder-checker/internal/common/logger"
	"pathfinder-checker/internal/common/observability"
	"pathfinder-checker/internal/model"
	"pathfinder-checker/internal/runner"
	"pathfinder-checker/internal/stub"
	"pathfinder-checker/internal/token"
)

const defaultTimeout = 30 * time.Second

// Orchestrator owns one sequential, fail-fast conformance run. Each step's
// outbound call completes before the next begins; the only concurrency is
// the stub server listening alongside the outbound test sequence.
type Orchestrator struct {
	settings *config.Settings
	http     *httpx.Client
	auth     *auth.Client
	logger   logger.Logger
	obs      *observability.Observability

	// Rand feeds the negative-auth credential generator; tests substitute
	// a deterministic source.
	Rand io.Reader
}

func New(settings *config.Settings, log logger.Logger, obs *observability.Observability) *Orchestrator {
	httpClient := httpx.NewClient(defaultTimeout, settings.UserAgent, log)
	return &Orchestrator{
		settings: settings,
		http:     httpClient,
		auth:     auth.NewClient(httpClient, log),
		logger:   log.WithFields(map[string]interface{}{"component": "orchestrator"}),
		obs:      obs,
		Rand:     rand.Reader,
	}
}

// Run executes the full sequence and returns the assertion summary. A
// non-nil error means the run stopped before the plan was executed.
func (o *Orchestrator) Run(ctx context.Context) (*runner.Summary, error) {
	prefix, err := pathPrefix(o.settings.SpecVersion())
	if err != nil {
		return nil, err
	}

	tokenEndpoint := o.auth.DiscoverTokenEndpoint(ctx, o.settings.AuthContextPath)

	if err := o.checkNegativeAuth(ctx, tokenEndpoint); err != nil {
		return nil, err
	}

	accessToken, err := o.checkPositiveAuth(ctx, tokenEndpoint)
	if err != nil {
		return nil, err
	}

	records, err := o.listFootprints(ctx, prefix, accessToken)
	if err != nil {
		return nil, err
	}

	variations, err := o.deriveAndCheck(records)
	if err != nil {
		return nil, err
	}

	plan := o.buildPlan(prefix, accessToken, records, variations)

	if o.settings.EventsSupport {
		server, err := o.startStub(ctx, tokenEndpoint, prefix)
		if err != nil {
			return nil, err
		}
		if !o.settings.KeepStub {
			defer func() {
				stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = server.Stop(stopCtx)
			}()
		}
	}

	engine := runner.NewEngine(o.http, o.logger, o.obs)
	return engine.Run(ctx, plan), nil
}

// pathPrefix maps the declared specification version's major version to
// the footprint path prefix.
func pathPrefix(version string) (string, error) {
	switch {
	case strings.HasPrefix(version, "1"):
		return "/0", nil
	case strings.HasPrefix(version, "2"):
		return "/2", nil
	default:
		return "", errors.NewConfigurationError(
			"unsupported specification version",
			fmt.Sprintf("version %q does not start with 1 or 2", version),
		)
	}
}

// checkNegativeAuth attempts a client-credentials grant with random
// credentials. A 200 response is a conformance failure: the system under
// test must reject unknown credentials.
func (o *Orchestrator) checkNegativeAuth(ctx context.Context, tokenEndpoint string) error {
	user, err := randomString(o.Rand, 16)
	if err != nil {
		return fmt.Errorf("failed to generate random credentials: %w", err)
	}
	pass, err := randomString(o.Rand, 16)
	if err != nil {
		return fmt.Errorf("failed to generate random credentials: %w", err)
	}

	_, resp, err := o.auth.ClientCredentialsGrant(ctx, tokenEndpoint, user, pass)
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusOK {
		return errors.NewAuthenticationFailure(
			"token endpoint accepted random credentials",
			fmt.Sprintf("status 200 for invalid credential pair at %s", tokenEndpoint),
		)
	}

	o.logger.Info("PASS negative authentication check", nil)
	return nil
}

// checkPositiveAuth performs the configured-credentials grant and returns
// the bearer token used for the rest of the run.
func (o *Orchestrator) checkPositiveAuth(ctx context.Context, tokenEndpoint string) (string, error) {
	tok, resp, err := o.auth.ClientCredentialsGrant(ctx, tokenEndpoint, o.settings.UserName, o.settings.Password)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", errors.NewAuthenticationFailure(
			"token endpoint rejected configured credentials",
			fmt.Sprintf("status %d from %s", resp.StatusCode, tokenEndpoint),
		)
	}
	if tok.AccessToken == "" {
		return "", errors.NewAuthenticationFailure(
			"token response has no access_token",
			fmt.Sprintf("response from %s", tokenEndpoint),
		)
	}

	o.logger.Info("PASS positive authentication check", nil)
	return tok.AccessToken, nil
}

func (o *Orchestrator) listFootprints(ctx context.Context, prefix, accessToken string) ([]model.FootprintRecord, error) {
	url := o.footprintsURL(prefix)
	resp, err := o.http.Exchange(ctx, http.MethodGet, url, map[string]string{
		"Accept":        "application/json",
		"Authorization": "Bearer " + accessToken,
	}, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return nil, errors.NewProtocolViolation(
			"listing footprints failed",
			fmt.Sprintf("status %d from %s", resp.StatusCode, url),
		)
	}

	records, err := model.ParseFootprintList(resp.Body)
	if err != nil {
		return nil, errors.NewProtocolViolation("footprint list has unexpected shape", err.Error())
	}
	if len(records) == 0 {
		return nil, errors.NewDataInsufficiencyError("footprint list is empty", url)
	}

	o.logger.Info("fetched baseline footprint data", map[string]interface{}{"count": len(records)})
	return records, nil
}

// deriveAndCheck mines the dynamic test inputs and verifies the returned
// data carries enough variation to exercise every claimed capability.
func (o *Orchestrator) deriveAndCheck(records []model.FootprintRecord) (Variations, error) {
	v := deriveVariations(records)

	if len(records) == 1 && (o.settings.FilterSupport || o.settings.LimitSupport) {
		return v, errors.NewDataInsufficiencyError(
			"a single footprint cannot exercise the claimed filter/limit support",
			"need at least two records",
		)
	}
	if o.settings.FilterSupport {
		if len(v.Created) < 2 {
			return v, errors.NewDataInsufficiencyError(
				"filter support is claimed but created timestamps do not vary",
				fmt.Sprintf("distinct created values: %d", len(v.Created)),
			)
		}
		if len(v.ProductIds) < 2 {
			return v, errors.NewDataInsufficiencyError(
				"filter support is claimed but productIds combinations do not vary",
				fmt.Sprintf("distinct combinations: %d", len(v.ProductIds)),
			)
		}
	}

	return v, nil
}

// startStub launches the callback server with the data and error
// subscribers attached before it begins listening.
func (o *Orchestrator) startStub(ctx context.Context, tokenEndpoint, prefix string) (*stub.Server, error) {
	server := stub.NewServer(stub.Config{
		Settings:      o.settings,
		Tokens:        token.NewService(o.Rand, nil),
		Auth:          o.auth,
		HTTP:          o.http,
		Logger:        o.logger,
		TokenEndpoint: tokenEndpoint,
		PathPrefix:    prefix,
	})

	server.OnFootprintData(func(env model.Envelope) {
		if err := runner.ValidateDocument(fulfilledEnvelopeSchema, env); err != nil {
			o.logger.Error("FAIL received fulfillment payload", map[string]interface{}{"error": err.Error()})
			return
		}
		o.logger.Info("PASS received fulfillment payload", map[string]interface{}{"eventId": env.ID})
	})
	server.OnError(func(err error) {
		o.logger.Error("stub server reported an error", map[string]interface{}{"error": err.Error()})
	})

	if err := server.Start(ctx); err != nil {
		return nil, err
	}
	return server, nil
}

func (o *Orchestrator) footprintsURL(prefix string) string {
	return strings.TrimSuffix(o.settings.DataContextPath, "/") + prefix + "/footprints"
}

const credentialAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func randomString(source io.Reader, length int) (string, error) {
	buf := make([]byte, length)
	if _, err := io.ReadFull(source, buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = credentialAlphabet[int(b)%len(credentialAlphabet)]
	}
	return string(buf), nil
}
