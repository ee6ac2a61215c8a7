package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"mercator-hq/warden/pkg/cli"
	"mercator-hq/warden/pkg/config"
	"mercator-hq/warden/pkg/failpoint"
	"mercator-hq/warden/pkg/healing"
	"mercator-hq/warden/pkg/readiness"
)

// writeConfig writes a self-contained configuration under a temp dir. The
// signal cache is not created, so the system is BLOCKED on cache_exists.
func writeConfig(t *testing.T) (path, dir string) {
	t.Helper()
	dir = t.TempDir()
	yaml := fmt.Sprintf(`cache:
  path: %[1]s/signal_cache.json
events:
  api_log: %[1]s/api.jsonl
  execution_log: %[1]s/executions.jsonl
  events_log: %[1]s/events.jsonl
  error_log: %[1]s/errors.jsonl
checks:
  adaptive_params_path: %[1]s/adaptive_params.json
  freeze_markers:
    - %[1]s/TRADING_FROZEN
supervisor:
  backend: noop
healing:
  ledger:
    backend: file
    path: %[1]s/healing_ledger.jsonl
snapshot:
  path: %[1]s/health_state.json
telemetry:
  logging:
    level: error
`, dir)
	path = filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	return path, dir
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cfgFile, verbose, output = "config.yaml", false, "json"
	checkFlags.heal = false
	ledgerPruneFlags.days = 0

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCheckCommand_BlockedExitsZero(t *testing.T) {
	cfg, dir := writeConfig(t)

	out, err := execute(t, "check", "-c", cfg)
	if err != nil {
		t.Fatalf("check returned error for a BLOCKED verdict: %v", err)
	}

	var resp readiness.Response
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("output is not a readiness document: %v\n%s", err, out)
	}
	if resp.Readiness != readiness.LevelBlocked {
		t.Errorf("readiness = %s, want BLOCKED", resp.Readiness)
	}
	found := false
	for _, id := range resp.CriticalFPs {
		if id == failpoint.IDCacheExists {
			found = true
		}
	}
	if !found {
		t.Errorf("critical_fps = %v, want it to contain %s", resp.CriticalFPs, failpoint.IDCacheExists)
	}

	if _, err := os.Stat(filepath.Join(dir, "health_state.json")); err != nil {
		t.Errorf("snapshot not persisted: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "healing_ledger.jsonl")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("check without --heal must not remediate, ledger stat err = %v", err)
	}
}

func TestCheckCommand_TextOutput(t *testing.T) {
	cfg, _ := writeConfig(t)

	out, err := execute(t, "check", "-c", cfg, "-o", "text")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "readiness: BLOCKED") {
		t.Errorf("text output = %q", out)
	}
	if !strings.Contains(out, failpoint.IDCacheExists) {
		t.Errorf("text output misses %s: %q", failpoint.IDCacheExists, out)
	}
}

func TestCheckCommand_Heal(t *testing.T) {
	cfg, _ := writeConfig(t)

	out, err := execute(t, "check", "-c", cfg, "--heal")
	if err != nil {
		t.Fatal(err)
	}
	var resp readiness.Response
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatal(err)
	}
	for _, fp := range resp.FailurePoints {
		if fp.ID == failpoint.IDCacheFreshness && !fp.SelfHealingAttempted {
			t.Errorf("%s not annotated after remediation", fp.ID)
		}
	}

	plainOut, err := execute(t, "check", "-c", cfg)
	if err != nil {
		t.Fatal(err)
	}
	var plain readiness.Response
	if err := json.Unmarshal([]byte(plainOut), &plain); err != nil {
		t.Fatal(err)
	}
	if len(plain.FailurePoints) != len(resp.FailurePoints) {
		t.Fatalf("plain check lists %d failure points, --heal lists %d", len(plain.FailurePoints), len(resp.FailurePoints))
	}
	for i := range plain.FailurePoints {
		if plain.FailurePoints[i].ID != resp.FailurePoints[i].ID {
			t.Errorf("failure_points[%d] = %s with --heal, %s without", i, resp.FailurePoints[i].ID, plain.FailurePoints[i].ID)
		}
	}
}

func TestHealCommands(t *testing.T) {
	cfg, _ := writeConfig(t)

	out, err := execute(t, "heal", "run", "-c", cfg)
	if err != nil {
		t.Fatalf("heal run: %v", err)
	}
	var run healRun
	if err := json.Unmarshal([]byte(out), &run); err != nil {
		t.Fatalf("heal run output: %v\n%s", err, out)
	}
	if run.Readiness != string(readiness.LevelBlocked) {
		t.Errorf("readiness = %s", run.Readiness)
	}
	if run.Result.Healed != 1 || len(run.Result.Outcomes) != 1 {
		t.Fatalf("result = %+v, want one healed restart", run.Result)
	}
	if got := run.Result.Outcomes[0]; got.Issue.ID != failpoint.IDCacheFreshness || got.Outcome != healing.OutcomeHealed {
		t.Errorf("outcome = %s %s", got.Issue.ID, got.Outcome)
	}

	out, err = execute(t, "heal", "status", "-c", cfg)
	if err != nil {
		t.Fatalf("heal status: %v", err)
	}
	var status healStatus
	if err := json.Unmarshal([]byte(out), &status); err != nil {
		t.Fatal(err)
	}
	if status.MaxPerHour != 3 {
		t.Errorf("max_per_hour = %d", status.MaxPerHour)
	}
	for _, is := range status.Issues {
		switch is.ID {
		case failpoint.IDCacheFreshness:
			if is.Allowed || is.Reason != healing.ReasonCooldown || is.InWindow != 1 {
				t.Errorf("cache_freshness gate = %+v, want cooldown with 1 in window", is)
			}
		default:
			if !is.Allowed || is.InWindow != 0 {
				t.Errorf("%s gate = %+v, want allowed", is.ID, is)
			}
		}
	}
}

func TestLedgerPrune(t *testing.T) {
	cfg, _ := writeConfig(t)

	out, err := execute(t, "ledger", "prune", "-c", cfg)
	if err != nil {
		t.Fatal(err)
	}
	var res pruneResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatal(err)
	}
	if res.Deleted != 0 || res.Days != 7 {
		t.Errorf("prune = %+v", res)
	}
}

func TestConfigErrors(t *testing.T) {
	_, err := execute(t, "check", "-c", filepath.Join(t.TempDir(), "missing.yaml"))
	var cfgErr *cli.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("missing explicit config: err = %v, want ConfigError", err)
	}

	cfg, _ := writeConfig(t)
	_, err = execute(t, "check", "-c", cfg, "-o", "csv")
	if !errors.As(err, &cfgErr) || cfgErr.Field != "output" {
		t.Errorf("bad output format: err = %v", err)
	}
	if code := cli.ExitCode(err); code != cli.ExitConfig {
		t.Errorf("ExitCode() = %d, want %d", code, cli.ExitConfig)
	}
}

func TestRunDryRun(t *testing.T) {
	cfg, _ := writeConfig(t)
	defer func() { runFlags.dryRun = false }()

	out, err := execute(t, "run", "-c", cfg, "--dry-run")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Configuration valid") {
		t.Errorf("output = %q", out)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Warden " + Version, runtime.Version()} {
		if !strings.Contains(out, want) {
			t.Errorf("version output misses %q:\n%s", want, out)
		}
	}
}

func TestNewMux(t *testing.T) {
	path, _ := writeConfig(t)
	cfg, err := config.LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatal(err)
	}
	a, err := newApp(cfg, appOptions{logs: io.Discard})
	if err != nil {
		t.Fatal(err)
	}
	defer a.close()
	mux := newMux(a)

	tests := []struct {
		path string
		want int
	}{
		{"/health", http.StatusOK},
		{"/ready", http.StatusServiceUnavailable},
		{"/readiness", http.StatusOK},
		{"/version", http.StatusOK},
		{"/metrics", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if w.Code != tt.want {
				t.Errorf("GET %s = %d, want %d", tt.path, w.Code, tt.want)
			}
		})
	}
}
