// Package advisor provides the HTTP transport for core/advisor.Advisor: a
// thin client against an external LLM endpoint that turns a conflicted
// scheduling request into a structured Decision.
package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kilianp07/diaguru/auth"
	coreadvisor "github.com/kilianp07/diaguru/core/advisor"
	"github.com/kilianp07/diaguru/core/model"
)

// Config configures the HTTPClient's connection to the advisor endpoint.
type Config struct {
	BaseURL      string `json:"base_url"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	TokenURL     string `json:"token_url"`
	Timeout      time.Duration
}

// HTTPClient implements core/advisor.Advisor by posting the conflict
// context to an external endpoint and parsing its decision.
type HTTPClient struct {
	baseURL string
	client  *http.Client
	auth    *auth.ClientCred
}

// NewHTTPClient builds a client from cfg. ClientID being empty means the
// endpoint requires no auth (e.g. a local model server); requests are then
// sent unauthenticated.
func NewHTTPClient(cfg Config) *HTTPClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	c := &HTTPClient{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: timeout},
	}
	if cfg.ClientID != "" {
		c.auth = auth.NewClientCred(auth.Conf{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			AuthURL:      cfg.TokenURL,
		})
	}
	return c
}

type adviseRequest struct {
	TargetContent string          `json:"target_content"`
	Preferred     *model.Window   `json:"preferred,omitempty"`
	Conflicts     []conflictEntry `json:"conflicts,omitempty"`
	Suggestion    *model.Window   `json:"suggestion,omitempty"`
	Timezone      string          `json:"timezone"`
	BusySummary   string          `json:"busy_summary"`
	ReferenceNow  time.Time       `json:"reference_now"`
}

type conflictEntry struct {
	Content string `json:"content"`
}

type adviseResponse struct {
	Action  string       `json:"action"`
	Message string       `json:"message"`
	Slot    *model.Window `json:"slot,omitempty"`
}

// Advise posts in to the configured endpoint and returns its decision.
func (c *HTTPClient) Advise(ctx context.Context, in coreadvisor.Context) (coreadvisor.Decision, error) {
	req := adviseRequest{
		Preferred:    in.Preferred,
		Suggestion:   in.Suggestion,
		Timezone:     in.Timezone,
		BusySummary:  in.BusySummary,
		ReferenceNow: in.ReferenceNow,
	}
	if in.Target != nil {
		req.TargetContent = in.Target.Content
	}
	for _, conflict := range in.Conflicts {
		req.Conflicts = append(req.Conflicts, conflictEntry{Content: conflict.Content})
	}

	body, err := json.Marshal(req)
	if err != nil {
		return coreadvisor.Decision{}, fmt.Errorf("encode advisor request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/advise", bytes.NewReader(body))
	if err != nil {
		return coreadvisor.Decision{}, fmt.Errorf("build advisor request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.auth != nil {
		if err := c.auth.SetAuthHeader(httpReq); err != nil {
			return coreadvisor.Decision{}, fmt.Errorf("set auth header: %w", err)
		}
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return coreadvisor.Decision{}, fmt.Errorf("send advisor request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return coreadvisor.Decision{}, fmt.Errorf("advisor endpoint returned %d: %s", resp.StatusCode, b)
	}

	var out adviseResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return coreadvisor.Decision{}, fmt.Errorf("decode advisor response: %w", err)
	}

	return coreadvisor.Decision{
		Action:  coreadvisor.Action(out.Action),
		Message: out.Message,
		Slot:    out.Slot,
	}, nil
}
