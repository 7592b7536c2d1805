package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Opencast contains the ingest server endpoint and credentials.
type Opencast struct {
	URL               string  `toml:"url"`
	User              string  `toml:"user"`
	Password          string  `toml:"password"`
	Workflow          string  `toml:"workflow"`
	RequestTimeout    int     `toml:"request_timeout"`
	IngestTimeout     int     `toml:"ingest_timeout"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// Paths contains the recording layout and local state directories.
type Paths struct {
	RawDir      string `toml:"raw_dir"`
	ScratchName string `toml:"scratch_name"`
	LogDir      string `toml:"log_dir"`
	StateDir    string `toml:"state_dir"`
}

// Ingest contains flow-control toggles for package assembly.
type Ingest struct {
	OnlyIfRecordPressed      bool `toml:"only_if_record_pressed"`
	SendSharedNotes          bool `toml:"send_shared_notes"`
	SendChatCaptions         bool `toml:"send_chat_captions"`
	PassIdentifierAsDCSource bool `toml:"pass_identifier_as_dc_source"`
	ReuseConverted           bool `toml:"reuse_converted"`
	CreateSeries             bool `toml:"create_series"`
}

// ACL contains operator-configured default principals. Each value is a
// comma-delimited list of role names.
type ACL struct {
	EpisodeReadRoles  string `toml:"episode_read_roles"`
	EpisodeWriteRoles string `toml:"episode_write_roles"`
	SeriesReadRoles   string `toml:"series_read_roles"`
	SeriesWriteRoles  string `toml:"series_write_roles"`
}

// Monitor controls post-ingest workflow polling.
type Monitor struct {
	Enabled         bool `toml:"enabled"`
	IntervalSeconds int  `toml:"interval_seconds"`
	BudgetSeconds   int  `toml:"budget_seconds"`
}

// Cleanup controls removal of local data after a successful run.
type Cleanup struct {
	Enabled       bool     `toml:"enabled"`
	DeleteCommand []string `toml:"delete_command"`
}

// Media contains external tool locations and media preparation settings.
type Media struct {
	FFprobe      string `toml:"ffprobe"`
	FFmpeg       string `toml:"ffmpeg"`
	ImageMagick  string `toml:"imagemagick"`
	Rasterizer   string `toml:"rasterizer"`
	FrameRate    int    `toml:"frame_rate"`
	ProbeWorkers int    `toml:"probe_workers"`
}

// Metrics configures the optional Prometheus Pushgateway export.
type Metrics struct {
	PushgatewayURL string `toml:"pushgateway_url"`
	Job            string `toml:"job"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for ocingest.
//
// Configuration sections by subsystem:
//   - Opencast: server URL, credentials, workflow, timeouts
//   - Paths: raw recording root, scratch directory name, logs and state
//   - Ingest: which optional attachments and checks apply
//   - ACL: default episode and series principals
//   - Monitor: workflow polling after ingest
//   - Cleanup: local scratch removal and raw recording deletion
//   - Media: ffmpeg/ffprobe/ImageMagick binaries and probe concurrency
//   - Metrics: Pushgateway export
//   - Logging: log format, level, and retention
type Config struct {
	Opencast Opencast `toml:"opencast"`
	Paths    Paths    `toml:"paths"`
	Ingest   Ingest   `toml:"ingest"`
	ACL      ACL      `toml:"acl"`
	Monitor  Monitor  `toml:"monitor"`
	Cleanup  Cleanup  `toml:"cleanup"`
	Media    Media    `toml:"media"`
	Metrics  Metrics  `toml:"metrics"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/ocingest/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("ocingest.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the local directories ocingest writes to. The raw
// recording directory belongs to the conferencing server and is never created.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.LogDir, c.Paths.StateDir, c.LockDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// RecordingDir returns the raw archive directory for a meeting.
func (c *Config) RecordingDir(meetingID string) string {
	return filepath.Join(c.Paths.RawDir, meetingID)
}

// ScratchDir returns the per-meeting scratch workspace.
func (c *Config) ScratchDir(meetingID string) string {
	return filepath.Join(c.RecordingDir(meetingID), c.Paths.ScratchName)
}

// LockDir returns the directory holding per-meeting run locks.
func (c *Config) LockDir() string {
	return filepath.Join(c.Paths.StateDir, "locks")
}

// LedgerPath returns the SQLite run ledger location.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.Paths.StateDir, "ingest.db")
}

// RequestTimeout returns the per-request timeout for ordinary Opencast calls.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Opencast.RequestTimeout) * time.Second
}

// IngestTimeout returns the timeout for the final ingest call, which blocks
// while Opencast inspects every uploaded file.
func (c *Config) IngestTimeout() time.Duration {
	return time.Duration(c.Opencast.IngestTimeout) * time.Second
}

// MonitorInterval returns the delay between workflow state checks.
func (c *Config) MonitorInterval() time.Duration {
	return time.Duration(c.Monitor.IntervalSeconds) * time.Second
}

// MonitorBudget returns the maximum wall-clock time spent monitoring.
func (c *Config) MonitorBudget() time.Duration {
	return time.Duration(c.Monitor.BudgetSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the config as TOML with secrets redacted.
func (c *Config) Encode() (string, error) {
	redacted := *c
	if redacted.Opencast.Password != "" {
		redacted.Opencast.Password = "********"
	}
	var b strings.Builder
	encoder := toml.NewEncoder(&b)
	if err := encoder.Encode(redacted); err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	return b.String(), nil
}
