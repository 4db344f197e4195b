package appconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/encoding"

	"pkt.systems/procstream/core"
	"pkt.systems/procstream/internal/decoder"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int           `mapstructure:"config_version" yaml:"config_version"`
	Reader        ReaderConfig  `mapstructure:"reader" yaml:"reader"`
	Process       ProcessConfig `mapstructure:"process" yaml:"process"`
	Output        OutputConfig  `mapstructure:"output" yaml:"output"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// Output formats.
const (
	FormatConsole = "console"
	FormatPlain   = "plain"
	FormatJSONL   = "jsonl"
)

// ReaderConfig controls how output streams are read.
type ReaderConfig struct {
	BufferSize int    `mapstructure:"buffer_size" yaml:"buffer_size"`
	Encoding   string `mapstructure:"encoding" yaml:"encoding"`
}

// ProcessConfig controls how child processes are run.
type ProcessConfig struct {
	ExpectedExitCode int      `mapstructure:"expected_exit_code" yaml:"expected_exit_code"`
	KillGraceSeconds int      `mapstructure:"kill_grace_seconds" yaml:"kill_grace_seconds"`
	TrackChildren    bool     `mapstructure:"track_children" yaml:"track_children"`
	PTY              bool     `mapstructure:"pty" yaml:"pty"`
	Dir              string   `mapstructure:"dir" yaml:"dir"`
	Env              []string `mapstructure:"env" yaml:"env"`
}

// OutputConfig selects how events are printed by the CLI.
type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ConfigVersion: CurrentConfigVersion,
		Reader: ReaderConfig{
			BufferSize: core.DefaultBufferSize,
			Encoding:   "utf-8",
		},
		Process: ProcessConfig{
			ExpectedExitCode: 0,
			KillGraceSeconds: 5,
			TrackChildren:    true,
			PTY:              false,
			Env:              []string{},
		},
		Output: OutputConfig{
			Format: FormatConsole,
		},
	}
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".procstream", "config.yaml"), nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.Reader.BufferSize <= 0 {
		return fmt.Errorf("reader.buffer_size must be positive, got %d", c.Reader.BufferSize)
	}
	if _, err := decoder.Lookup(c.Reader.Encoding); err != nil {
		return fmt.Errorf("reader.encoding: %w", err)
	}
	if c.Process.KillGraceSeconds < 0 {
		return fmt.Errorf("process.kill_grace_seconds must not be negative, got %d", c.Process.KillGraceSeconds)
	}
	for _, entry := range c.Process.Env {
		if key, _, ok := strings.Cut(entry, "="); !ok || strings.TrimSpace(key) == "" {
			return fmt.Errorf("process.env entry %q must be KEY=VALUE", entry)
		}
	}
	switch strings.ToLower(c.Output.Format) {
	case FormatConsole, FormatPlain, FormatJSONL:
	default:
		return fmt.Errorf("unsupported output.format %q", c.Output.Format)
	}
	return nil
}

// Encoding resolves reader.encoding.
func (c Config) Encoding() (encoding.Encoding, error) {
	return decoder.Lookup(c.Reader.Encoding)
}

// KillGrace returns process.kill_grace_seconds as a duration.
func (c Config) KillGrace() time.Duration {
	return time.Duration(c.Process.KillGraceSeconds) * time.Second
}

// EnvMap returns process.env as a map. Later entries win.
func (c Config) EnvMap() map[string]string {
	if len(c.Process.Env) == 0 {
		return nil
	}
	env := make(map[string]string, len(c.Process.Env))
	for _, entry := range c.Process.Env {
		key, value, _ := strings.Cut(entry, "=")
		env[key] = value
	}
	return env
}
