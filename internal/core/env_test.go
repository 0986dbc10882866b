package core

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"netprobe/config"
	"netprobe/internal/alert"
	ncerr "netprobe/internal/errors"
	"netprobe/internal/traffic"
	"netprobe/util"
)

// ── fakes ────────────────────────────────────────────────────────────

type fakeDiagnostics struct {
	mu     sync.Mutex
	pinged []string
	traced []string
	err    error
}

func (f *fakeDiagnostics) Ping(_ context.Context, host string, out io.Writer) error {
	f.mu.Lock()
	f.pinged = append(f.pinged, host)
	f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	fmt.Fprintf(out, "PONG %s\n", host)
	return nil
}

func (f *fakeDiagnostics) Trace(_ context.Context, host string, out io.Writer) error {
	f.mu.Lock()
	f.traced = append(f.traced, host)
	f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	fmt.Fprintf(out, "1  %s\n", host)
	return nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
	err      error
}

func (f *fakeNotifier) Send(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, text)
	return nil
}

func (f *fakeNotifier) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.messages...)
}

// notifierFor mirrors the production factory: missing credentials are
// reported, anything else yields n.
func notifierFor(n *fakeNotifier) NotifierFunc {
	return func(s config.Settings) (alert.Notifier, error) {
		if !s.AlertConfigured() {
			return nil, ncerr.ErrAlertNotConfigured
		}
		return n, nil
	}
}

type fakeGateway struct {
	err       error
	connected int
	closed    int
}

func (g *fakeGateway) Connect(context.Context) error {
	g.connected++
	return g.err
}

func (g *fakeGateway) Close() error {
	g.closed++
	return nil
}

// testEnv bundles an Env with its fakes and captured output.
type testEnv struct {
	*Env
	out      *bytes.Buffer
	diag     *fakeDiagnostics
	notifier *fakeNotifier
}

// newTestEnv builds an Env with a scratch settings file and a small
// generator on the real loopback transports.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := config.NewStore(filepath.Join(t.TempDir(), "netprobe.yaml"))
	if _, err := store.Load(); err != nil {
		t.Fatal(err)
	}
	logger := util.NewLogger(0)

	te := &testEnv{
		out:      &bytes.Buffer{},
		diag:     &fakeDiagnostics{},
		notifier: &fakeNotifier{},
	}
	te.Env = &Env{
		Generator: traffic.NewGenerator(traffic.Options{
			TCPWorkers: 2,
			UDPWorkers: 2,
			Logger:     logger,
		}),
		Settings:    store,
		Diagnostics: te.diag,
		Notifier:    notifierFor(te.notifier),
		Logger:      logger,
		NoDNS:       true,
		In:          strings.NewReader(""),
		Out:         te.out,
	}
	return te
}

func (te *testEnv) setSettings(t *testing.T, fn func(*config.Settings)) {
	t.Helper()
	if err := te.Settings.Update(fn); err != nil {
		t.Fatal(err)
	}
}

// ── NewEnv ───────────────────────────────────────────────────────────

// TestNewEnv_Direct verifies the untunnelled wiring keeps both pools.
func TestNewEnv_Direct(t *testing.T) {
	cfg := config.New()
	cfg.ConfigPath = filepath.Join(t.TempDir(), "netprobe.yaml")
	cfg.TCPWorkers, cfg.UDPWorkers = 3, 4

	env, err := NewEnv(cfg, util.NewLogger(0))
	if err != nil {
		t.Fatal(err)
	}
	defer env.Close()

	if env.Gateway != nil {
		t.Error("gateway set without a tunnel")
	}
	opts := env.Generator.Options()
	if opts.TCPWorkers != 3 || opts.UDPWorkers != 4 {
		t.Errorf("workers = %d/%d, want 3/4", opts.TCPWorkers, opts.UDPWorkers)
	}
}

// TestNewEnv_TunnelDisablesUDP verifies a tunnelled run carries TCP
// only and the gateway is exposed for pre-run connection.
func TestNewEnv_TunnelDisablesUDP(t *testing.T) {
	cfg := config.New()
	cfg.ConfigPath = filepath.Join(t.TempDir(), "netprobe.yaml")
	cfg.TunnelSpec = "admin@127.0.0.1:2222"
	if err := cfg.ApplyTunnelSpec(); err != nil {
		t.Fatal(err)
	}

	env, err := NewEnv(cfg, util.NewLogger(0))
	if err != nil {
		t.Fatal(err)
	}
	defer env.Close()

	if env.Gateway == nil {
		t.Fatal("no gateway for tunnelled config")
	}
	if got := env.Generator.Options().UDPWorkers; got != 0 {
		t.Errorf("UDPWorkers = %d, want 0", got)
	}
}

// TestNewEnv_MalformedSettings verifies the settings file is loaded
// eagerly.
func TestNewEnv_MalformedSettings(t *testing.T) {
	cfg := config.New()
	cfg.ConfigPath = filepath.Join(t.TempDir(), "netprobe.yaml")
	if err := writeFile(cfg.ConfigPath, "telegram_token: [oops\n"); err != nil {
		t.Fatal(err)
	}
	if _, err := NewEnv(cfg, util.NewLogger(0)); err == nil {
		t.Fatal("expected parse error")
	}
}

// TestTelegramNotifier_NotConfigured verifies the production factory
// refuses empty credentials.
func TestTelegramNotifier_NotConfigured(t *testing.T) {
	factory := telegramNotifier("", util.NewLogger(0))
	_, err := factory(config.Settings{TelegramToken: "123:abc"})
	if !ncerr.Is(err, ncerr.ErrAlertNotConfigured) {
		t.Fatalf("err = %v, want ErrAlertNotConfigured", err)
	}
}

// TestEnv_CloseGateway verifies Close releases the gateway.
func TestEnv_CloseGateway(t *testing.T) {
	gw := &fakeGateway{}
	env := &Env{Gateway: gw}
	if err := env.Close(); err != nil {
		t.Fatal(err)
	}
	if gw.closed != 1 {
		t.Errorf("closed = %d", gw.closed)
	}
	if err := (&Env{}).Close(); err != nil {
		t.Errorf("Close without gateway: %v", err)
	}
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o600)
}
