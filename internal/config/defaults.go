package config

const (
	defaultOpencastWorkflow       = "bbb-upload"
	defaultRequestTimeout         = 10
	defaultIngestTimeout          = 6000
	defaultRawDir                 = "/var/bigbluebutton/recording/raw"
	defaultScratchName            = "upload_tmp"
	defaultLogDir                 = "~/.local/share/ocingest/logs"
	defaultStateDir               = "~/.local/share/ocingest/state"
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultLogRetentionDays       = 60
	defaultMonitorIntervalSeconds = 300
	defaultMonitorBudgetSeconds   = 86400
	defaultFFprobeBinary          = "ffprobe"
	defaultFFmpegBinary           = "ffmpeg"
	defaultImageMagickBinary      = "convert"
	defaultFrameRate              = 30
	defaultProbeWorkers           = 4
	defaultMetricsJob             = "ocingest"

	// RasterizerBuiltin renders shape-only slides in-process.
	RasterizerBuiltin = "builtin"
	// RasterizerImageMagick shells out to ImageMagick for slide rendering.
	RasterizerImageMagick = "imagemagick"
)

func defaultDeleteCommand() []string {
	return []string{"sudo", "bbb-record", "--delete"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Opencast: Opencast{
			Workflow:       defaultOpencastWorkflow,
			RequestTimeout: defaultRequestTimeout,
			IngestTimeout:  defaultIngestTimeout,
		},
		Paths: Paths{
			RawDir:      defaultRawDir,
			ScratchName: defaultScratchName,
			LogDir:      defaultLogDir,
			StateDir:    defaultStateDir,
		},
		Ingest: Ingest{
			ReuseConverted: true,
		},
		Monitor: Monitor{
			IntervalSeconds: defaultMonitorIntervalSeconds,
			BudgetSeconds:   defaultMonitorBudgetSeconds,
		},
		Cleanup: Cleanup{
			Enabled:       true,
			DeleteCommand: defaultDeleteCommand(),
		},
		Media: Media{
			FFprobe:      defaultFFprobeBinary,
			FFmpeg:       defaultFFmpegBinary,
			ImageMagick:  defaultImageMagickBinary,
			Rasterizer:   RasterizerImageMagick,
			FrameRate:    defaultFrameRate,
			ProbeWorkers: defaultProbeWorkers,
		},
		Metrics: Metrics{
			Job: defaultMetricsJob,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
