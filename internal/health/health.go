// Package health checks whether a taskbot configuration is ready to serve.
package health

import (
	"context"
	"fmt"
	"net/url"

	"github.com/charmbracelet/lipgloss"

	"github.com/alekspetrov/taskbot/internal/config"
)

// Status represents a check or feature status.
type Status int

const (
	StatusOK Status = iota
	StatusWarning
	StatusError
	StatusDisabled
)

// Check represents a health check result
type Check struct {
	Name    string
	Status  Status
	Message string
	Fix     string
}

// FeatureStatus represents an optional feature and whether it is on.
type FeatureStatus struct {
	Name    string
	Enabled bool
	Status  Status
	Note    string
}

// Report contains all health check results
type Report struct {
	Config   []Check
	Storage  []Check
	Features []FeatureStatus
}

// Counter is the store surface the storage check needs.
type Counter interface {
	Count(ctx context.Context) (int, error)
}

// RunChecks inspects cfg and, when tasks is non-nil, checks the store.
func RunChecks(ctx context.Context, cfg *config.Config, tasks Counter) *Report {
	return &Report{
		Config:   checkConfig(cfg),
		Storage:  checkStorage(ctx, cfg, tasks),
		Features: checkFeatures(cfg),
	}
}

func checkConfig(cfg *config.Config) []Check {
	var checks []Check

	if err := cfg.Validate(); err != nil {
		checks = append(checks, Check{
			Name:    "config",
			Status:  StatusError,
			Message: err.Error(),
			Fix:     "run 'taskbot init --force' or fix the config file",
		})
	} else {
		checks = append(checks, Check{Name: "config", Status: StatusOK, Message: "valid"})
	}

	checks = append(checks,
		secretCheck("verify_token", cfg.Messenger.VerifyToken, StatusError, "set VERIFY_TOKEN"),
		secretCheck("page_access_token", cfg.Messenger.PageAccessToken, StatusError, "set PAGE_ACCESS_TOKEN"),
		secretCheck("app_secret", cfg.Messenger.AppSecret, StatusWarning, "set APP_SECRET to verify X-Hub-Signature-256"),
	)

	if u, err := url.Parse(cfg.Messenger.GraphURL); err != nil || u.Scheme == "" || u.Host == "" {
		checks = append(checks, Check{
			Name:    "graph_url",
			Status:  StatusError,
			Message: fmt.Sprintf("invalid URL %q", cfg.Messenger.GraphURL),
			Fix:     "remove messenger.graph_url to use the default",
		})
	} else {
		checks = append(checks, Check{Name: "graph_url", Status: StatusOK, Message: cfg.Messenger.GraphURL})
	}

	return checks
}

func secretCheck(name, value string, missing Status, fix string) Check {
	if value == "" {
		return Check{Name: name, Status: missing, Message: "not set", Fix: fix}
	}
	return Check{Name: name, Status: StatusOK, Message: "set"}
}

func checkStorage(ctx context.Context, cfg *config.Config, tasks Counter) []Check {
	driver := cfg.Storage.Driver
	if driver == "" {
		driver = "sqlite"
	}
	checks := []Check{{Name: "driver", Status: StatusOK, Message: driver}}

	if tasks == nil {
		return append(checks, Check{
			Name:    "database",
			Status:  StatusError,
			Message: "not opened",
			Fix:     "check storage.dsn (DATABASE_URL)",
		})
	}

	n, err := tasks.Count(ctx)
	if err != nil {
		return append(checks, Check{
			Name:    "database",
			Status:  StatusError,
			Message: err.Error(),
			Fix:     "check storage.dsn (DATABASE_URL)",
		})
	}
	return append(checks, Check{Name: "database", Status: StatusOK, Message: fmt.Sprintf("%d task(s)", n)})
}

func checkFeatures(cfg *config.Config) []FeatureStatus {
	var features []FeatureStatus

	signatures := cfg.Messenger.AppSecret != ""
	features = append(features, FeatureStatus{
		Name:    "Signatures",
		Enabled: signatures,
		Status:  boolToStatus(signatures),
	})

	rl := cfg.Bot.RateLimit
	rateLimited := rl != nil && rl.Enabled
	f := FeatureStatus{Name: "Rate limit", Enabled: rateLimited, Status: boolToStatus(rateLimited)}
	if rateLimited {
		f.Note = fmt.Sprintf("%d/min, burst %d", rl.MessagesPerMinute, rl.BurstSize)
	}
	features = append(features, f)

	features = append(features, FeatureStatus{
		Name:    "Delete buttons",
		Enabled: cfg.Bot.ListDeleteButtons,
		Status:  boolToStatus(cfg.Bot.ListDeleteButtons),
	})

	maint := cfg.Maintenance != nil && cfg.Maintenance.Enabled
	f = FeatureStatus{Name: "Maintenance", Enabled: maint, Status: boolToStatus(maint)}
	if maint {
		f.Note = cfg.Maintenance.Schedule
	}
	features = append(features, f)

	admin := cfg.Gateway.AdminToken != ""
	f = FeatureStatus{Name: "Admin auth", Enabled: admin, Status: boolToStatus(admin)}
	if !admin {
		f.Status = StatusWarning
		f.Note = "/task/* is open"
	}
	features = append(features, f)

	if n := len(cfg.Bot.Commands); n > 0 {
		features = append(features, FeatureStatus{
			Name:    "Commands",
			Enabled: true,
			Status:  StatusOK,
			Note:    fmt.Sprintf("%d alias(es)", n),
		})
	}

	return features
}

// Summary counts errors and warnings across all checks.
func (r *Report) Summary() (errors, warnings int) {
	count := func(s Status) {
		switch s {
		case StatusError:
			errors++
		case StatusWarning:
			warnings++
		}
	}
	for _, c := range r.Config {
		count(c.Status)
	}
	for _, c := range r.Storage {
		count(c.Status)
	}
	for _, f := range r.Features {
		count(f.Status)
	}
	return errors, warnings
}

// Ready reports whether serve would start with this configuration.
func (r *Report) Ready() bool {
	errors, _ := r.Summary()
	return errors == 0
}

func boolToStatus(enabled bool) Status {
	if enabled {
		return StatusOK
	}
	return StatusDisabled
}

// Symbol returns the symbol for a status
func (s Status) Symbol() string {
	switch s {
	case StatusOK:
		return "✓"
	case StatusWarning:
		return "○"
	case StatusError:
		return "✗"
	case StatusDisabled:
		return "·"
	default:
		return "?"
	}
}

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusWarning:
		return "warning"
	case StatusError:
		return "error"
	case StatusDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

var statusColors = map[Status]lipgloss.Color{
	StatusOK:       lipgloss.Color("#7ec699"),
	StatusWarning:  lipgloss.Color("#d4a054"),
	StatusError:    lipgloss.Color("#d48a8a"),
	StatusDisabled: lipgloss.Color("#6e7681"),
}

// ColorSymbol returns Symbol styled for terminal output.
func (s Status) ColorSymbol() string {
	color, ok := statusColors[s]
	if !ok {
		return s.Symbol()
	}
	return lipgloss.NewStyle().Foreground(color).Render(s.Symbol())
}
