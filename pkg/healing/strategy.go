package healing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"mercator-hq/warden/pkg/probe"
	"mercator-hq/warden/pkg/supervisor"
)

// Strategy names.
const (
	StrategyRecompute = "recompute"
	StrategyRefetch   = "refetch"
	StrategyRestart   = "restart"
	StrategyNone      = "none"
)

// ErrElevatedAccess marks a refetch refused by the provider's entitlement.
var ErrElevatedAccess = errors.New("feature may require elevated access")

// Strategy remediates one kind of issue. A nil error means success.
type Strategy interface {
	Name() string
	Heal(ctx context.Context, issue Issue) error
}

// RecomputeStrategy asks the compute hook to rebuild a derived signal for a
// bounded batch of entities.
type RecomputeStrategy struct {
	URL    string
	Batch  int
	Client *http.Client
}

// Name implements Strategy.
func (s *RecomputeStrategy) Name() string { return StrategyRecompute }

type recomputeRequest struct {
	Signal   string   `json:"signal"`
	Entities []string `json:"entities"`
}

// Heal implements Strategy.
func (s *RecomputeStrategy) Heal(ctx context.Context, issue Issue) error {
	if s.URL == "" {
		return errors.New("no recompute hook configured")
	}
	entities := issue.Entities
	if s.Batch > 0 && len(entities) > s.Batch {
		entities = entities[:s.Batch]
	}
	if entities == nil {
		entities = []string{}
	}

	body, err := json.Marshal(recomputeRequest{Signal: issue.ID, Entities: entities})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("invalid recompute request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("recompute request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("recompute hook returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// Refetcher probes a named endpoint.
type Refetcher interface {
	Probe(ctx context.Context, name string, params map[string]string) probe.EndpointHealth
}

// RefetchStrategy re-requests a signal from its source endpoint.
type RefetchStrategy struct {
	Prober Refetcher
}

// Name implements Strategy.
func (s *RefetchStrategy) Name() string { return StrategyRefetch }

// Heal implements Strategy.
func (s *RefetchStrategy) Heal(ctx context.Context, issue Issue) error {
	if issue.Target == "" {
		return errors.New("no endpoint configured for refetch")
	}
	h := s.Prober.Probe(ctx, issue.Target, issue.Params)
	switch {
	case h.Healthy():
		return nil
	case h.Status == probe.StatusAuthFailed || h.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%s returned HTTP %d: %w", issue.Target, h.StatusCode, ErrElevatedAccess)
	case h.LastError != "":
		return fmt.Errorf("refetch from %s failed: %s: %s", issue.Target, h.Status, h.LastError)
	default:
		return fmt.Errorf("refetch from %s failed: %s", issue.Target, h.Status)
	}
}

// RestartStrategy asks the supervisor to restart the issue's unit.
type RestartStrategy struct {
	Supervisor supervisor.Supervisor
}

// Name implements Strategy.
func (s *RestartStrategy) Name() string { return StrategyRestart }

// Heal implements Strategy.
func (s *RestartStrategy) Heal(ctx context.Context, issue Issue) error {
	if issue.Target == "" {
		return errors.New("no unit configured for restart")
	}
	return s.Supervisor.Restart(ctx, issue.Target)
}
