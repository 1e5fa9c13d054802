package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func TestSaveLoadRemotes(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	in := RemotesConfig{
		Active: "prod",
		Remotes: map[string]Remote{
			"prod":  {URL: "https://fleet.example.com", Token: "tok_abc", NATSURL: "nats://prod:4222"},
			"local": {URL: "http://localhost:8080"},
		},
	}
	if err := saveRemotes(in); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := loadRemotes()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Active != "prod" {
		t.Errorf("Active = %q, want %q", got.Active, "prod")
	}
	if got.Remotes["prod"] != in.Remotes["prod"] {
		t.Errorf("prod remote = %+v, want %+v", got.Remotes["prod"], in.Remotes["prod"])
	}
}

func TestLoadRemotes_NoFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := loadRemotes()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Active != "" || len(cfg.Remotes) != 0 || cfg.Remotes == nil {
		t.Errorf("expected empty config with a map, got %+v", cfg)
	}
}

func TestLoadRemotes_Corrupt(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path, _ := remotesPath()
	if err := os.WriteFile(path, []byte("active = ["), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := loadRemotes(); err == nil {
		t.Fatal("expected error for invalid TOML")
	}
}

func TestSaveRemotes_Permissions(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	if err := saveRemotes(RemotesConfig{Remotes: map[string]Remote{}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	path, _ := remotesPath()
	for p, want := range map[string]os.FileMode{path: 0o600, filepath.Dir(path): 0o700} {
		info, err := os.Stat(p)
		if err != nil {
			t.Fatalf("stat %s: %v", p, err)
		}
		if got := info.Mode().Perm(); got != want {
			t.Errorf("%s permissions = %04o, want %04o", p, got, want)
		}
	}
}

func TestRemoteLifecycle(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	var buf bytes.Buffer
	for _, c := range []*cobra.Command{remoteAddCmd, remoteUseCmd, remoteListCmd, remoteShowCmd, remoteRemoveCmd} {
		c.SetOut(&buf)
	}
	mustRun := func(c *cobra.Command, args ...string) string {
		t.Helper()
		buf.Reset()
		if err := c.RunE(c, args); err != nil {
			t.Fatalf("%s %v: %v", c.Name(), args, err)
		}
		return buf.String()
	}

	mustRun(remoteAddCmd, "local", "http://localhost:8080")
	mustRun(remoteAddCmd, "local", "http://localhost:8080") // upsert
	mustRun(remoteUseCmd, "local")

	cfg, _ := loadRemotes()
	if cfg.Active != "local" {
		t.Fatalf("Active = %q, want %q", cfg.Active, "local")
	}

	if out := mustRun(remoteListCmd); !strings.Contains(out, "*  local") {
		t.Errorf("list missing active marker; got:\n%s", out)
	}
	out := mustRun(remoteShowCmd)
	if !strings.Contains(out, "local (active)") || !strings.Contains(out, "http://localhost:8080") {
		t.Errorf("show missing expected content; got:\n%s", out)
	}

	mustRun(remoteRemoveCmd, "local")
	cfg, _ = loadRemotes()
	if _, ok := cfg.Remotes["local"]; ok {
		t.Error("remote 'local' should be gone")
	}
	if cfg.Active != "" {
		t.Errorf("Active should be cleared, got %q", cfg.Active)
	}
}

func TestRemoteTokenMasking(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	if err := remoteAddCmd.Flags().Set("token", "tok_verylongsecret"); err != nil {
		t.Fatalf("set token flag: %v", err)
	}
	t.Cleanup(func() { _ = remoteAddCmd.Flags().Set("token", "") })

	var buf bytes.Buffer
	remoteAddCmd.SetOut(&buf)
	if err := remoteAddCmd.RunE(remoteAddCmd, []string{"prod", "https://fleet.example.com"}); err != nil {
		t.Fatal(err)
	}

	buf.Reset()
	remoteListCmd.SetOut(&buf)
	if err := remoteListCmd.RunE(remoteListCmd, nil); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "tok_verylongsecret") || !strings.Contains(buf.String(), "tok_very...") {
		t.Errorf("list token not truncated; got:\n%s", buf.String())
	}

	buf.Reset()
	remoteShowCmd.SetOut(&buf)
	if err := remoteShowCmd.RunE(remoteShowCmd, []string{"prod"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "tok_very**********") {
		t.Errorf("show token not masked; got:\n%s", buf.String())
	}
}

func TestRemoteErrorCases(t *testing.T) {
	for _, tc := range []struct {
		name string
		fn   func() error
	}{
		{"use unknown", func() error { return remoteUseCmd.RunE(remoteUseCmd, []string{"ghost"}) }},
		{"remove unknown", func() error { return remoteRemoveCmd.RunE(remoteRemoveCmd, []string{"ghost"}) }},
		{"show no active", func() error { return remoteShowCmd.RunE(remoteShowCmd, nil) }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("HOME", t.TempDir())
			if err := tc.fn(); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}
