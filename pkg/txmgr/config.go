package txmgr

import (
	"errors"
	"time"
)

type Config struct {
	// ReplacementTimeout is how long an attempt may stay unmined before it
	// is replaced with a higher fee.
	ReplacementTimeout time.Duration
	MaxReplacements    int
	// FeeBumpPercent is the minimum increase of both fee caps per
	// replacement. Geth rejects replacements below 10%.
	FeeBumpPercent uint64
	// ConfirmationDepth counts the inclusion block itself, so 1 confirms on
	// first sight.
	ConfirmationDepth uint64
	// FinalityDepth extra blocks are watched for reorgs after confirmation
	// before the record is dropped.
	FinalityDepth       uint64
	PollInterval        time.Duration
	FeeRefreshInterval  time.Duration
	MaxBroadcastRetries int
	BroadcastRetryDelay time.Duration
	// GasLimitMultiplier pads estimated gas.
	GasLimitMultiplier  float64
	MaxConcurrentChecks int
	// FinishedCacheSize bounds how many finished records stay queryable.
	FinishedCacheSize int
}

func DefaultConfig() Config {
	return Config{
		ReplacementTimeout:  2 * time.Minute,
		MaxReplacements:     5,
		FeeBumpPercent:      15,
		ConfirmationDepth:   3,
		FinalityDepth:       12,
		PollInterval:        3 * time.Second,
		FeeRefreshInterval:  15 * time.Second,
		MaxBroadcastRetries: 3,
		BroadcastRetryDelay: 500 * time.Millisecond,
		GasLimitMultiplier:  1.2,
		MaxConcurrentChecks: 8,
		FinishedCacheSize:   1024,
	}
}

func (c Config) Validate() error {
	switch {
	case c.ReplacementTimeout <= 0:
		return errors.New("ReplacementTimeout must be positive")
	case c.MaxReplacements < 0:
		return errors.New("MaxReplacements must be >= 0")
	case c.FeeBumpPercent < 10:
		return errors.New("FeeBumpPercent must be at least 10")
	case c.ConfirmationDepth < 1:
		return errors.New("ConfirmationDepth must be >= 1")
	case c.PollInterval <= 0:
		return errors.New("PollInterval must be positive")
	case c.FeeRefreshInterval <= 0:
		return errors.New("FeeRefreshInterval must be positive")
	case c.MaxBroadcastRetries < 1:
		return errors.New("MaxBroadcastRetries must be >= 1")
	case c.BroadcastRetryDelay <= 0:
		return errors.New("BroadcastRetryDelay must be positive")
	case c.GasLimitMultiplier < 1:
		return errors.New("GasLimitMultiplier must be >= 1")
	case c.MaxConcurrentChecks < 1:
		return errors.New("MaxConcurrentChecks must be >= 1")
	case c.FinishedCacheSize < 1:
		return errors.New("FinishedCacheSize must be >= 1")
	}
	return nil
}
