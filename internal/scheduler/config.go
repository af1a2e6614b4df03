package scheduler

import "time"

// Config controls janitor intervals and batch sizes.
type Config struct {
	RunInterval      time.Duration
	JobTimeout       time.Duration
	BatchSize        int
	SessionRetention time.Duration
}

func DefaultConfig() Config {
	return Config{
		RunInterval:      time.Hour,
		JobTimeout:       time.Minute,
		BatchSize:        500,
		SessionRetention: 30 * 24 * time.Hour,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	if c.SessionRetention <= 0 {
		c.SessionRetention = defaults.SessionRetention
	}
	return c
}
