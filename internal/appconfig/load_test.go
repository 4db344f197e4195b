package appconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Reader.BufferSize != 1024 {
		t.Fatalf("expected default buffer size, got %d", cfg.Reader.BufferSize)
	}
	if cfg.Output.Format != FormatConsole {
		t.Fatalf("expected console format, got %q", cfg.Output.Format)
	}
}

func TestLoadReadsFile(t *testing.T) {
	path := writeConfig(t, `
config_version: 1
reader:
  buffer_size: 64
  encoding: latin1
process:
  expected_exit_code: 2
  kill_grace_seconds: 1
  track_children: false
  env:
    - GREETING=hello
output:
  format: jsonl
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Reader.BufferSize != 64 || cfg.Reader.Encoding != "latin1" {
		t.Fatalf("unexpected reader config: %+v", cfg.Reader)
	}
	if cfg.Process.ExpectedExitCode != 2 || cfg.Process.KillGraceSeconds != 1 || cfg.Process.TrackChildren {
		t.Fatalf("unexpected process config: %+v", cfg.Process)
	}
	if cfg.EnvMap()["GREETING"] != "hello" {
		t.Fatalf("expected env entry, got %+v", cfg.Process.Env)
	}
	if cfg.Output.Format != FormatJSONL {
		t.Fatalf("expected jsonl, got %q", cfg.Output.Format)
	}
}

func TestLoadRequiresConfigVersion(t *testing.T) {
	path := writeConfig(t, `
reader:
  buffer_size: 64
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "config_version is required") {
		t.Fatalf("expected config_version error, got %v", err)
	}
}

func TestLoadRejectsUnsupportedConfigVersion(t *testing.T) {
	path := writeConfig(t, `
config_version: 3
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "unsupported config_version") {
		t.Fatalf("expected config_version error, got %v", err)
	}
}

func TestLoadRejectsInvalidFormat(t *testing.T) {
	path := writeConfig(t, `
config_version: 1
output:
  format: xml
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "output.format") {
		t.Fatalf("expected format error, got %v", err)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PROCSTREAM_READER_BUFFER_SIZE", "16")
	t.Setenv("PROCSTREAM_PROCESS_PTY", "true")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Reader.BufferSize != 16 {
		t.Fatalf("expected env buffer size, got %d", cfg.Reader.BufferSize)
	}
	if !cfg.Process.PTY {
		t.Fatalf("expected env pty override")
	}
}

func TestLoadExpandsProcessEnv(t *testing.T) {
	t.Setenv("PROCSTREAM_TEST_HOME", "/tmp/home")
	path := writeConfig(t, `
config_version: 1
process:
  dir: $PROCSTREAM_TEST_HOME/work
  env:
    - TARGET=$PROCSTREAM_TEST_HOME/out
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Process.Dir != "/tmp/home/work" {
		t.Fatalf("expected expanded dir, got %q", cfg.Process.Dir)
	}
	if cfg.EnvMap()["TARGET"] != "/tmp/home/out" {
		t.Fatalf("expected expanded env, got %+v", cfg.Process.Env)
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("FOO", "bar")
	value := expandEnv("$FOO/$UID/$GID/$MISSING")
	if !strings.HasPrefix(value, "bar/") {
		t.Fatalf("expected env expansion, got %q", value)
	}
	if strings.Contains(value, "$UID") || strings.Contains(value, "$GID") {
		t.Fatalf("expected UID/GID expansion, got %q", value)
	}
	if !strings.HasSuffix(value, "/$MISSING") {
		t.Fatalf("expected missing vars to remain, got %q", value)
	}
}

func TestWriteDefaultRespectsOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")
	written, err := WriteDefault(path, false)
	if err != nil {
		t.Fatalf("write default: %v", err)
	}
	if written != path {
		t.Fatalf("expected path %q, got %q", path, written)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected config to exist: %v", err)
	}
	if _, err := WriteDefault(path, false); err == nil {
		t.Fatalf("expected error when config exists")
	}
	if _, err := WriteDefault(path, true); err != nil {
		t.Fatalf("expected overwrite to succeed: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load written default: %v", err)
	}
	if cfg.ConfigVersion != CurrentConfigVersion {
		t.Fatalf("expected version %d, got %d", CurrentConfigVersion, cfg.ConfigVersion)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(strings.TrimSpace(content)+"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
