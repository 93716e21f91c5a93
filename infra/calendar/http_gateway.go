// Package calendar provides the HTTP transport for the core/calendar.Gateway
// contract: a REST client against an external calendar provider, and an
// in-process mock server for local development and the gateway's tests.
package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/kilianp07/diaguru/auth"
	corecalendar "github.com/kilianp07/diaguru/core/calendar"
	"github.com/kilianp07/diaguru/core/model"
	"github.com/kilianp07/diaguru/infra/logger"
)

// Config configures the HTTPGateway's connection to the external provider.
type Config struct {
	BaseURL      string `json:"base_url"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	TokenURL     string `json:"token_url"`
	Timeout      time.Duration
}

// HTTPGateway implements core/calendar.Gateway against a REST calendar API,
// authenticating with an OAuth2 client-credentials grant.
type HTTPGateway struct {
	baseURL string
	client  *http.Client
	auth    *auth.ClientCred
	log     logger.Logger
}

// NewHTTPGateway builds a gateway from cfg.
func NewHTTPGateway(cfg Config) *HTTPGateway {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	gw := &HTTPGateway{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: timeout},
		log:     logger.New("calendar-gateway"),
	}
	if cfg.ClientID != "" {
		gw.auth = auth.NewClientCred(auth.Conf{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			AuthURL:      cfg.TokenURL,
		})
	}
	return gw
}

type eventEnvelope struct {
	ID         string            `json:"id"`
	Summary    string            `json:"summary,omitempty"`
	VersionTag string            `json:"version_tag,omitempty"`
	Start      time.Time         `json:"start"`
	End        time.Time         `json:"end"`
	AllDay     bool              `json:"all_day,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
}

func toEnvelope(ev model.CalendarEvent) eventEnvelope {
	return eventEnvelope{
		ID:         ev.ID,
		Summary:    ev.Summary,
		VersionTag: ev.VersionTag,
		Start:      ev.Start,
		End:        ev.End,
		AllDay:     ev.AllDay,
		Properties: ev.Properties,
	}
}

func fromEnvelope(e eventEnvelope) model.CalendarEvent {
	return model.CalendarEvent{
		ID:         e.ID,
		Summary:    e.Summary,
		VersionTag: e.VersionTag,
		Start:      e.Start,
		End:        e.End,
		AllDay:     e.AllDay,
		Properties: e.Properties,
	}
}

// List returns the owner's events overlapping [from, to).
func (g *HTTPGateway) List(ctx context.Context, owner string, from, to time.Time) ([]model.CalendarEvent, error) {
	q := url.Values{
		"owner": {owner},
		"from":  {from.Format(time.RFC3339)},
		"to":    {to.Format(time.RFC3339)},
	}
	var envs []eventEnvelope
	if err := g.do(ctx, http.MethodGet, "/events?"+q.Encode(), nil, &envs); err != nil {
		return nil, err
	}
	out := make([]model.CalendarEvent, 0, len(envs))
	for _, e := range envs {
		out = append(out, fromEnvelope(e))
	}
	return out, nil
}

// Create persists a new event and returns it with the provider-assigned id
// and version tag.
func (g *HTTPGateway) Create(ctx context.Context, owner string, ev model.CalendarEvent) (model.CalendarEvent, error) {
	q := url.Values{"owner": {owner}}
	var out eventEnvelope
	if err := g.do(ctx, http.MethodPost, "/events?"+q.Encode(), toEnvelope(ev), &out); err != nil {
		return model.CalendarEvent{}, err
	}
	return fromEnvelope(out), nil
}

// Get fetches a single event by id.
func (g *HTTPGateway) Get(ctx context.Context, owner, id string) (model.CalendarEvent, error) {
	q := url.Values{"owner": {owner}}
	var out eventEnvelope
	if err := g.do(ctx, http.MethodGet, "/events/"+url.PathEscape(id)+"?"+q.Encode(), nil, &out); err != nil {
		return model.CalendarEvent{}, err
	}
	return fromEnvelope(out), nil
}

// Delete removes an event, supplying versionTag for optimistic concurrency.
func (g *HTTPGateway) Delete(ctx context.Context, owner, id, versionTag string) error {
	q := url.Values{"owner": {owner}, "version_tag": {versionTag}}
	return g.do(ctx, http.MethodDelete, "/events/"+url.PathEscape(id)+"?"+q.Encode(), nil, nil)
}

func (g *HTTPGateway) do(ctx context.Context, method, path string, body any, out any) error {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		payload = b
	}

	resp, req, err := g.send(ctx, method, path, payload, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized && g.auth != nil {
		resp.Body.Close()
		if token, refreshErr := g.auth.ForceRefresh(); refreshErr == nil {
			resp, req, err = g.send(ctx, method, path, payload, token)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
		}
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
		if out == nil || resp.StatusCode == http.StatusNoContent {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	case http.StatusUnauthorized:
		return &corecalendar.ReconnectError{Owner: reqOwner(req)}
	case http.StatusPreconditionFailed:
		return &corecalendar.PreconditionFailedError{ID: idFromPath(path)}
	default:
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, b)
	}
}

// send builds and issues one request. A non-empty freshToken overrides the
// cached credential (used for the single post-refresh retry on a 401).
func (g *HTTPGateway) send(ctx context.Context, method, path string, payload []byte, freshToken string) (*http.Response, *http.Request, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return nil, nil, fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if freshToken != "" {
		req.Header.Set("Authorization", "Bearer "+freshToken)
	} else if g.auth != nil {
		if err := g.auth.SetAuthHeader(req); err != nil {
			return nil, nil, fmt.Errorf("set auth header: %w", err)
		}
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("send request: %w", err)
	}
	return resp, req, nil
}

func reqOwner(r *http.Request) string {
	return r.URL.Query().Get("owner")
}

func idFromPath(p string) string {
	u, err := url.Parse(p)
	if err != nil {
		return path.Base(p)
	}
	return path.Base(u.Path)
}
