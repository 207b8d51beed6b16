package config

// Default returns the baseline configuration before any file overrides.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: "~/.local/share/feedmirror",
		},
		Target: Target{
			APIBaseURL:     "https://api.telegram.org",
			PublishTimeout: 30,
		},
		Queue: Queue{
			PollIntervalSeconds:   5,
			MinIntervalSeconds:    300,
			MaxIntervalSeconds:    1800,
			InlinePayloadLimitKiB: 256,
			ShutdownGraceSeconds:  30,
		},
		Reload: Reload{
			PollIntervalSeconds: 10,
		},
		Logging: Logging{
			Format: "console",
			Level:  "info",
		},
	}
}
