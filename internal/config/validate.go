package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateOpencast(); err != nil {
		return err
	}
	if err := c.validateMonitor(); err != nil {
		return err
	}
	if err := c.validateCleanup(); err != nil {
		return err
	}
	if err := c.validateMedia(); err != nil {
		return err
	}
	if err := c.validateMetrics(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateOpencast() error {
	if c.Opencast.URL == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/ocingest/config.toml"
		}
		return fmt.Errorf("opencast.url is required. Set OPENCAST_URL env var or edit %s (create with 'ocingest config init')", defaultPath)
	}
	parsed, err := url.Parse(c.Opencast.URL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("opencast.url %q must be an absolute http(s) URL", c.Opencast.URL)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("opencast.url %q must use http or https", c.Opencast.URL)
	}
	if c.Opencast.User == "" {
		return errors.New("opencast.user is required (or set OPENCAST_USER)")
	}
	if c.Opencast.Workflow == "" {
		return errors.New("opencast.workflow must be set")
	}
	return ensurePositiveMap(map[string]int{
		"opencast.request_timeout": c.Opencast.RequestTimeout,
		"opencast.ingest_timeout":  c.Opencast.IngestTimeout,
	})
}

func (c *Config) validateMonitor() error {
	if !c.Monitor.Enabled {
		return nil
	}
	if c.Monitor.IntervalSeconds <= 0 {
		return errors.New("monitor.interval_seconds must be positive")
	}
	if c.Monitor.BudgetSeconds <= 0 {
		return errors.New("monitor.budget_seconds must be positive")
	}
	if c.Monitor.BudgetSeconds < c.Monitor.IntervalSeconds {
		return errors.New("monitor.budget_seconds must be at least monitor.interval_seconds")
	}
	return nil
}

func (c *Config) validateCleanup() error {
	if c.Cleanup.Enabled && len(c.Cleanup.DeleteCommand) == 0 {
		return errors.New("cleanup.delete_command must be set when cleanup.enabled is true")
	}
	return nil
}

func (c *Config) validateMedia() error {
	switch c.Media.Rasterizer {
	case RasterizerBuiltin, RasterizerImageMagick:
	default:
		return fmt.Errorf("media.rasterizer %q must be %q or %q", c.Media.Rasterizer, RasterizerBuiltin, RasterizerImageMagick)
	}
	if strings.ContainsAny(c.Paths.ScratchName, `/\`) {
		return errors.New("paths.scratch_name must be a single directory name")
	}
	return nil
}

func (c *Config) validateMetrics() error {
	if c.Metrics.PushgatewayURL == "" {
		return nil
	}
	parsed, err := url.Parse(c.Metrics.PushgatewayURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("metrics.pushgateway_url %q must be an absolute URL", c.Metrics.PushgatewayURL)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
