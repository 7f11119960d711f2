package profile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kvaesitso/kvs/internal/config"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "main", false},
		{"valid with numbers", "work123", false},
		{"valid with hyphen", "my-profile", false},
		{"valid with underscore", "my_profile", false},
		{"valid max length", strings.Repeat("a", 64), false},
		{"empty", "", true},
		{"uppercase", "Main", true},
		{"space", "my profile", true},
		{"dot", "my.profile", true},
		{"too long", strings.Repeat("a", 65), true},
		{"slash", "my/profile", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestPathsUnderHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv(HomeEnv, home)

	tests := []struct {
		got  string
		want string
	}{
		{Dir("work"), filepath.Join(home, "profiles", "work")},
		{SocketPath("work"), filepath.Join(home, "profiles", "work", "daemon.sock")},
		{LockPath("work"), filepath.Join(home, "profiles", "work", "LOCK")},
		{DBPath("work"), filepath.Join(home, "profiles", "work", "kvs.db")},
		{CatalogPath("work"), filepath.Join(home, "profiles", "work", "catalog.toml")},
		{LogPath("work"), filepath.Join(home, "profiles", "work", "logs", "kvsd.log")},
		{ConfigPath(), filepath.Join(home, "config.toml")},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}

func TestEnsureDir(t *testing.T) {
	t.Setenv(HomeEnv, t.TempDir())

	if err := EnsureDir("test"); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(LogDir("test"))
	if err != nil {
		t.Fatalf("log dir not created: %v", err)
	}
	if info.Mode().Perm() != 0700 {
		t.Errorf("permission = %o, want 0700", info.Mode().Perm())
	}
}

func TestResolvePrecedence(t *testing.T) {
	t.Setenv(HomeEnv, t.TempDir())

	if got, _ := Resolve(""); got != DefaultName {
		t.Errorf("Resolve() without config = %q, want %q", got, DefaultName)
	}

	cfg := config.Default()
	cfg.DefaultProfile = "home"
	if err := config.Save(ConfigPath(), cfg); err != nil {
		t.Fatal(err)
	}
	if got, _ := Resolve(""); got != "home" {
		t.Errorf("Resolve() with config = %q, want home", got)
	}
	if got, _ := Resolve("work"); got != "work" {
		t.Errorf("Resolve(work) = %q, want work", got)
	}
	if _, err := Resolve("Bad Name"); err == nil {
		t.Error("Resolve(Bad Name) expected error")
	}
}
