package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeOpencast()
	c.normalizeCleanup()
	c.normalizeMedia()
	c.normalizeMetrics()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.RawDir) == "" {
		c.Paths.RawDir = defaultRawDir
	}
	if c.Paths.RawDir, err = expandPath(c.Paths.RawDir); err != nil {
		return fmt.Errorf("paths.raw_dir: %w", err)
	}
	c.Paths.ScratchName = strings.TrimSpace(c.Paths.ScratchName)
	if c.Paths.ScratchName == "" {
		c.Paths.ScratchName = defaultScratchName
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeOpencast() {
	c.Opencast.URL = strings.TrimSpace(c.Opencast.URL)
	if c.Opencast.URL == "" {
		if value, ok := os.LookupEnv("OPENCAST_URL"); ok {
			c.Opencast.URL = strings.TrimSpace(value)
		}
	}
	c.Opencast.URL = strings.TrimRight(c.Opencast.URL, "/")
	c.Opencast.User = strings.TrimSpace(c.Opencast.User)
	if c.Opencast.User == "" {
		if value, ok := os.LookupEnv("OPENCAST_USER"); ok {
			c.Opencast.User = strings.TrimSpace(value)
		}
	}
	if c.Opencast.Password == "" {
		if value, ok := os.LookupEnv("OPENCAST_PASSWORD"); ok {
			c.Opencast.Password = value
		}
	}
	c.Opencast.Workflow = strings.TrimSpace(c.Opencast.Workflow)
	if c.Opencast.Workflow == "" {
		c.Opencast.Workflow = defaultOpencastWorkflow
	}
	if c.Opencast.RequestTimeout <= 0 {
		c.Opencast.RequestTimeout = defaultRequestTimeout
	}
	if c.Opencast.IngestTimeout <= 0 {
		c.Opencast.IngestTimeout = defaultIngestTimeout
	}
	if c.Opencast.RequestsPerSecond < 0 {
		c.Opencast.RequestsPerSecond = 0
	}
}

func (c *Config) normalizeCleanup() {
	cmd := make([]string, 0, len(c.Cleanup.DeleteCommand))
	for _, part := range c.Cleanup.DeleteCommand {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			cmd = append(cmd, trimmed)
		}
	}
	c.Cleanup.DeleteCommand = cmd
}

func (c *Config) normalizeMedia() {
	c.Media.FFprobe = strings.TrimSpace(c.Media.FFprobe)
	if c.Media.FFprobe == "" {
		c.Media.FFprobe = defaultFFprobeBinary
	}
	c.Media.FFmpeg = strings.TrimSpace(c.Media.FFmpeg)
	if c.Media.FFmpeg == "" {
		c.Media.FFmpeg = defaultFFmpegBinary
	}
	c.Media.ImageMagick = strings.TrimSpace(c.Media.ImageMagick)
	if c.Media.ImageMagick == "" {
		c.Media.ImageMagick = defaultImageMagickBinary
	}
	c.Media.Rasterizer = strings.ToLower(strings.TrimSpace(c.Media.Rasterizer))
	if c.Media.Rasterizer == "" {
		c.Media.Rasterizer = RasterizerImageMagick
	}
	if c.Media.FrameRate <= 0 {
		c.Media.FrameRate = defaultFrameRate
	}
	if c.Media.ProbeWorkers <= 0 {
		c.Media.ProbeWorkers = defaultProbeWorkers
	}
}

func (c *Config) normalizeMetrics() {
	c.Metrics.PushgatewayURL = strings.TrimRight(strings.TrimSpace(c.Metrics.PushgatewayURL), "/")
	c.Metrics.Job = strings.TrimSpace(c.Metrics.Job)
	if c.Metrics.Job == "" {
		c.Metrics.Job = defaultMetricsJob
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
