package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"familysavings/internal/config"
	applog "familysavings/internal/log"
)

const seed = `{
  "plans": [{"_id": "p1", "name": "Trip", "targetAmount": 1000, "months": 10, "motive": "Holiday"}],
  "members": [
    {"_id": "m1", "name": "Ana", "planId": "p1", "contributionPerMonth": 100},
    {"_id": "m2", "name": "Bo", "planId": "p1", "contributionPerMonth": 0}
  ],
  "payments": [
    {"_id": "x1", "amount": 300, "memberId": "m1", "planId": "p1"},
    {"_id": "x2", "amount": 150.5, "memberId": "m2", "planId": "p1"}
  ]
}`

func newTestApp(t *testing.T) *App {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.json")
	if err := os.WriteFile(path, []byte(seed), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{
		Backend:         "memory",
		SeedFile:        path,
		RetryAttempts:   1,
		CacheSize:       16,
		CacheTTL:        time.Minute,
		MaxConcurrent:   4,
		RefreshInterval: time.Second,
	}
	app, err := Bootstrap(context.Background(), cfg, applog.Discard())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { app.Close() })
	return app
}

func run(t *testing.T, app *App, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := Run(context.Background(), app, args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		wantCode   int
		wantStdout string
		wantStderr string
	}{
		{"no command", nil, ExitUsage, "", "usage: savings <command>"},
		{"unknown command", []string{"nope"}, ExitUsage, "", `unknown command "nope"`},
		{"plans", []string{"plans"}, ExitOK, "$1000.00", ""},
		{"members", []string{"members", "-plan", "p1"}, ExitOK, "Bo", ""},
		{"members without plan", []string{"members"}, ExitUsage, "", "missing -plan"},
		{"unknown flag", []string{"plans", "-x"}, ExitUsage, "", "usage: savings plans"},
		{"summary", []string{"summary", "-plan", "p1"}, ExitOK, "Remaining $549.50 over 10 months", ""},
		{"summary unknown plan", []string{"summary", "-plan", "zz"}, ExitError, "", "error: plan zz: not found"},
		{"statement", []string{"statement", "-plan", "p1", "-member", "m1"}, ExitOK, "Paid $300.00", ""},
		{"statement unknown member", []string{"statement", "-plan", "p1", "-member", "ghost"}, ExitError, "", "member not found in plan: ghost"},
		{"overview", []string{"overview"}, ExitOK, "Trip", ""},
		{"create plan without months", []string{"create-plan", "-name", "Car", "-target", "500"}, ExitError, "", "duration in months must be greater than 0"},
		{"create plan bad target", []string{"create-plan", "-name", "Car", "-target", "abc", "-months", "2"}, ExitError, "", "target amount must be greater than 0"},
		{"pay missing flags", []string{"pay", "-plan", "p1"}, ExitUsage, "", "missing -amount, -member"},
		{"pay bad amount", []string{"pay", "-plan", "p1", "-member", "m1", "-amount", "-3"}, ExitError, "", "amount must be a valid number"},
		{"pay over remaining", []string{"pay", "-plan", "p1", "-member", "m1", "-amount", "600"}, ExitError, "", "exceeds the remaining goal of $549.50 (use -force"},
		{"events without broker", []string{"events"}, ExitError, "", "event broker not configured"},
	}

	app := newTestApp(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, stdout, stderr := run(t, app, tt.args...)
			if code != tt.wantCode {
				t.Errorf("exit code = %d, want %d (stderr: %s)", code, tt.wantCode, stderr)
			}
			if !strings.Contains(stdout, tt.wantStdout) {
				t.Errorf("stdout missing %q:\n%s", tt.wantStdout, stdout)
			}
			if !strings.Contains(stderr, tt.wantStderr) {
				t.Errorf("stderr missing %q:\n%s", tt.wantStderr, stderr)
			}
		})
	}
}

func TestRun_WriteFlow(t *testing.T) {
	app := newTestApp(t)

	code, out, errOut := run(t, app, "add-member", "-plan", "p1", "-name", "Cy", "-contribution", "12,50")
	if code != ExitOK {
		t.Fatalf("add-member: %d %s", code, errOut)
	}
	if !strings.Contains(out, "Added Cy") {
		t.Fatalf("add-member output = %q", out)
	}

	_, out, _ = run(t, app, "members", "-plan", "p1")
	if !strings.Contains(out, "Cy") || !strings.Contains(out, "$12.50") {
		t.Fatalf("new member not listed:\n%s", out)
	}

	code, out, errOut = run(t, app, "pay", "-plan", "p1", "-member", "m1", "-amount", "600", "-force")
	if code != ExitOK {
		t.Fatalf("forced pay: %d %s", code, errOut)
	}
	if !strings.Contains(out, "Recorded $600.00") {
		t.Fatalf("pay output = %q", out)
	}

	_, out, _ = run(t, app, "summary", "-plan", "p1")
	if !strings.Contains(out, "Goal reached!") || !strings.Contains(out, "100.0%") {
		t.Fatalf("summary after overpay:\n%s", out)
	}

	code, out, _ = run(t, app, "create-plan", "-name", "Car", "-target", "2500", "-months", "12")
	if code != ExitOK || !strings.Contains(out, "Created plan Car") {
		t.Fatalf("create-plan: %d %q", code, out)
	}
	_, out, _ = run(t, app, "plans")
	if !strings.Contains(out, "Ahorro familiar") {
		t.Fatalf("default motive missing:\n%s", out)
	}
}

func TestRun_WatchStopsWithContext(t *testing.T) {
	app := newTestApp(t)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	var stdout, stderr bytes.Buffer
	code := Run(ctx, app, []string{"watch", "-interval", "20ms"}, &stdout, &stderr)
	if code != ExitOK {
		t.Fatalf("exit code = %d, stderr: %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "Trip") {
		t.Fatalf("watch output = %q", stdout.String())
	}
}
