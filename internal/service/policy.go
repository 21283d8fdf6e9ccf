// Package service implements the moderation workflow over the repository layer.
package service

import (
	"time"

	"candor/internal/config"
)

// Policy holds the tunables shared by the moderation services.
type Policy struct {
	StoreTimeout       time.Duration
	RetryBackoff       time.Duration
	PostingRestriction time.Duration
	Suspension         time.Duration
	ReportPageLimit    int
	RetentionYears     int
}

// DefaultPolicy matches the configuration defaults.
func DefaultPolicy() Policy {
	return Policy{
		StoreTimeout:       3 * time.Second,
		RetryBackoff:       100 * time.Millisecond,
		PostingRestriction: 7 * 24 * time.Hour,
		Suspension:         30 * 24 * time.Hour,
		ReportPageLimit:    100,
		RetentionYears:     7,
	}
}

// PolicyFromConfig reads the moderation tunables from cfg.
func PolicyFromConfig(cfg *config.Config) Policy {
	return Policy{
		StoreTimeout:       cfg.StoreTimeout(),
		RetryBackoff:       cfg.StoreRetryBackoff(),
		PostingRestriction: cfg.PostingRestriction(),
		Suspension:         cfg.Suspension(),
		ReportPageLimit:    cfg.ReportPageLimit,
		RetentionYears:     cfg.ReportRetentionYears,
	}
}

func utcNow() time.Time {
	return time.Now().UTC()
}
