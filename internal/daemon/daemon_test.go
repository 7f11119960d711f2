package daemon

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kvaesitso/kvs/internal/api"
	"github.com/kvaesitso/kvs/internal/bus"
	"github.com/kvaesitso/kvs/internal/client"
	"github.com/kvaesitso/kvs/internal/lock"
	"github.com/kvaesitso/kvs/internal/profile"
	"github.com/kvaesitso/kvs/internal/search"
	"github.com/kvaesitso/kvs/internal/status"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
)

const testConfig = `
log_level = "error"

[network]
enabled = false

[files]
roots = []
`

const testCatalog = `
[[apps]]
package = "org.mozilla.firefox"
activity = "org.mozilla.firefox.App"
label = "Firefox"

[[custom]]
id = "vpn"
label = "Office VPN"
tags = ["work"]
`

// testHome points KVS_HOME at a short temp dir so socket paths stay under
// the Unix socket length limit, and writes the config file.
func testHome(t *testing.T) (home, configPath string) {
	t.Helper()
	home, err := os.MkdirTemp("/tmp", "kvs-d-*")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(home) })
	t.Setenv(profile.HomeEnv, home)

	configPath = filepath.Join(home, "config.toml")
	if err := os.WriteFile(configPath, []byte(testConfig), 0o600); err != nil {
		t.Fatal(err)
	}
	return home, configPath
}

func TestDaemonLifecycle(t *testing.T) {
	_, configPath := testHome(t)
	if err := profile.EnsureDir("test"); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(profile.CatalogPath("test"), []byte(testCatalog), 0o600); err != nil {
		t.Fatal(err)
	}

	app := fxtest.New(t, Module(Params{Profile: "test", ConfigPath: configPath}), fx.NopLogger)
	app.RequireStart()

	c, err := client.New(profile.SocketPath("test"))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	st, err := c.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.State != string(status.Ready) {
		t.Errorf("state = %s, want READY", st.State)
	}
	if st.Counts["apps"] != 1 || st.CatalogHash == "" {
		t.Errorf("status = %+v, want the catalog imported", st)
	}
	if st.Network {
		t.Error("network = true, want false from config")
	}

	healthy, err := c.Healthy(ctx)
	if err != nil {
		t.Fatalf("Healthy: %v", err)
	}
	if !healthy {
		t.Error("health = NOT_SERVING while READY")
	}

	res, err := c.Collect(ctx, api.SearchRequest{Query: "fire", TimeoutMS: 500})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if apps := res.Snapshot.Apps; len(apps) != 1 || apps[0].Label != "Firefox" {
		t.Errorf("apps = %+v", apps)
	}
	if res.Snapshot.Articles != nil && len(res.Snapshot.Articles) != 0 {
		t.Errorf("articles = %+v, want none without network", res.Snapshot.Articles)
	}
	if res.Snapshot.Actions == nil {
		t.Error("actions not loaded")
	}

	app.RequireStop()
	if _, err := os.Stat(profile.SocketPath("test")); !os.IsNotExist(err) {
		t.Errorf("socket still present after stop: %v", err)
	}
}

func TestDaemonDegradedOnBadCatalog(t *testing.T) {
	_, configPath := testHome(t)
	if err := profile.EnsureDir("bad"); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(profile.CatalogPath("bad"), []byte("[[apps]]\npackage = \"x\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	app := fxtest.New(t, Module(Params{Profile: "bad", ConfigPath: configPath}), fx.NopLogger)
	app.RequireStart()
	defer app.RequireStop()

	c, err := client.New(profile.SocketPath("bad"))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = c.Close() }()

	st, err := c.Status(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if st.State != string(status.Degraded) {
		t.Errorf("state = %s, want DEGRADED", st.State)
	}
	healthy, err := c.Healthy(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !healthy {
		t.Error("a degraded daemon still serves searches")
	}
}

func TestDaemonRefusesHeldLock(t *testing.T) {
	_, configPath := testHome(t)
	held, err := lock.Acquire(profile.Dir("busy"))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = held.Release() }()

	app := fx.New(Module(Params{Profile: "busy", ConfigPath: configPath}), fx.NopLogger)
	err = app.Err()
	var he *lock.HeldError
	if !errors.As(err, &he) {
		t.Fatalf("err = %v, want *lock.HeldError", err)
	}
	if he.PID != os.Getpid() {
		t.Errorf("holder pid = %d, want %d", he.PID, os.Getpid())
	}
}

// TestNewServerCreatesSocket checks that NewServer takes Params rather than a
// bare string, which fx cannot resolve.
func TestNewServerCreatesSocket(t *testing.T) {
	home, _ := testHome(t)
	socketPath := filepath.Join(home, "d.sock")
	b := bus.New()
	launcher := api.NewLauncher(search.NewService(search.Repositories{}, nil, search.Config{}, zap.NewNop()),
		nil, b, status.NewMachine(b), nil, api.Options{Profile: "fxtest"}, nil)

	srv, err := NewServer(Params{Profile: "fxtest", SocketPath: socketPath}, launcher, b, zap.NewNop())
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	if _, err := os.Stat(socketPath); err != nil {
		t.Fatalf("socket not created at %s: %v", socketPath, err)
	}
	srv.Start()
	srv.Stop(context.Background())
	if _, err := os.Stat(socketPath); !os.IsNotExist(err) {
		t.Errorf("socket not removed: %v", err)
	}
}

func TestHealthFollowsStatus(t *testing.T) {
	home, _ := testHome(t)
	socketPath := filepath.Join(home, "h.sock")
	b := bus.New()
	m := status.NewMachine(b)
	launcher := api.NewLauncher(search.NewService(search.Repositories{}, nil, search.Config{}, zap.NewNop()),
		nil, b, m, nil, api.Options{}, nil)
	srv, err := NewServer(Params{SocketPath: socketPath}, launcher, b, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	srv.Start()
	defer srv.Stop(context.Background())

	c, err := client.New(socketPath)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = c.Close() }()

	check := func(want bool) {
		t.Helper()
		deadline := time.Now().Add(2 * time.Second)
		for {
			got, err := c.Healthy(context.Background())
			if err == nil && got == want {
				return
			}
			if time.Now().After(deadline) {
				t.Fatalf("healthy = %v (err %v), want %v", got, err, want)
			}
			time.Sleep(10 * time.Millisecond)
		}
	}

	check(false)
	for _, s := range []status.State{status.Migrating, status.Importing, status.Ready} {
		if err := m.Transition(s); err != nil {
			t.Fatal(err)
		}
	}
	check(true)
	if err := m.Transition(status.Stopping); err != nil {
		t.Fatal(err)
	}
	check(false)
}
