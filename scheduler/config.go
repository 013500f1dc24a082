// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scheduler

import (
	"os"
	"strconv"
	"time"
)

// PurgeConfig controls the cancelled-scheduled-task sweep
// (purgeEnabled / purgePeriodSeconds), read at process start
// from environment-style key/value pairs.
type PurgeConfig struct {
	Enabled bool
	Period  time.Duration
}

// DefaultPurgeConfig returns the defaults: enabled, 1 second
// period.
func DefaultPurgeConfig() PurgeConfig {
	return PurgeConfig{Enabled: true, Period: time.Second}
}

// PurgeConfigFromEnv reads RXCORE_PURGE_ENABLED and
// RXCORE_PURGE_PERIOD_SECONDS, falling back to [DefaultPurgeConfig] for
// any variable that is unset or unparsable.
func PurgeConfigFromEnv() PurgeConfig {
	cfg := DefaultPurgeConfig()
	if v, ok := os.LookupEnv("RXCORE_PURGE_ENABLED"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Enabled = b
		}
	}
	if v, ok := os.LookupEnv("RXCORE_PURGE_PERIOD_SECONDS"); ok {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			cfg.Period = time.Duration(secs) * time.Second
		}
	}
	return cfg
}
