package scheduler

import (
	"time"

	"github.com/remitra/remitra/internal/config"
)

// Config controls the dispatch loop cadence and batch shape.
type Config struct {
	TickInterval time.Duration
	BatchSize    int
	ItemDelay    time.Duration
}

func DefaultConfig() Config {
	return Config{
		TickInterval: 30 * time.Second,
		BatchSize:    10,
		ItemDelay:    500 * time.Millisecond,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.TickInterval <= 0 {
		c.TickInterval = defaults.TickInterval
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	if c.ItemDelay < 0 {
		c.ItemDelay = defaults.ItemDelay
	}
	return c
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		TickInterval: cfg.SchedulerTickInterval,
		BatchSize:    cfg.SchedulerBatchSize,
		ItemDelay:    cfg.SchedulerItemDelay,
	}.withDefaults()
}
