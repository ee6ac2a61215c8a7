package supervisor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"mercator-hq/warden/pkg/config"
)

// Systemd drives units through systemctl.
type Systemd struct {
	binary   string
	userMode bool
	timeout  time.Duration
}

// NewSystemd creates a Systemd supervisor.
func NewSystemd(cfg config.SupervisorConfig) *Systemd {
	binary := cfg.Systemctl
	if binary == "" {
		binary = config.DefaultSystemctl
	}
	timeout := cfg.CommandTimeout
	if timeout <= 0 {
		timeout = config.DefaultCommandTimeout
	}
	return &Systemd{binary: binary, userMode: cfg.UserMode, timeout: timeout}
}

// IsActive runs "systemctl is-active --quiet unit". A non-zero exit status
// means inactive rather than an error.
func (s *Systemd) IsActive(ctx context.Context, unit string) (bool, error) {
	_, err := s.run(ctx, "is-active", "--quiet", unit)
	if err == nil {
		return true, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return false, nil
	}
	return false, err
}

// Restart runs "systemctl restart unit".
func (s *Systemd) Restart(ctx context.Context, unit string) error {
	out, err := s.run(ctx, "restart", unit)
	if err != nil {
		if msg := strings.TrimSpace(out); msg != "" {
			return fmt.Errorf("systemctl restart %s: %w: %s", unit, err, msg)
		}
		return fmt.Errorf("systemctl restart %s: %w", unit, err)
	}
	return nil
}

func (s *Systemd) run(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	verb := args[0]
	if s.userMode {
		args = append([]string{"--user"}, args...)
	}
	cmd := exec.CommandContext(ctx, s.binary, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	if ctx.Err() != nil {
		return out.String(), fmt.Errorf("systemctl %s: %w", verb, ctx.Err())
	}
	return out.String(), err
}
