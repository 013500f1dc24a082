// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rxcore

// DefaultBufferSize is the default per-operator internal buffer
// capacity.
const DefaultBufferSize = 128

// Config holds the configurable per-operator parameters, built with
// the same fluent-builder idiom lfq.Builder uses for queue
// construction.
type Config struct {
	bufferSize            int
	delayError            bool
	prefetch              int
	maxConcurrency        int // 0 means unbounded
	restartTimerOnMaxSize bool
}

// NewConfig returns a Config with defaults: bufferSize 128,
// delayError false, prefetch == bufferSize, maxConcurrency unbounded,
// restartTimerOnMaxSize false.
func NewConfig() *Config {
	return &Config{
		bufferSize: DefaultBufferSize,
		prefetch:   DefaultBufferSize,
	}
}

// BufferSize returns the configured per-operator buffer capacity.
func (c *Config) BufferSize() int { return c.bufferSize }

// WithBufferSize sets the per-operator buffer capacity. If prefetch
// currently equals bufferSize (as it does by default) it tracks the new
// bufferSize; a prefetch set to that same value explicitly tracks too.
func (c *Config) WithBufferSize(n int) *Config {
	if n <= 0 {
		n = DefaultBufferSize
	}
	trackedPrefetch := c.prefetch == c.bufferSize
	c.bufferSize = n
	if trackedPrefetch {
		c.prefetch = n
	}
	return c
}

// DelayError returns whether terminal errors are postponed until
// queued values drain.
func (c *Config) DelayError() bool { return c.delayError }

// WithDelayError sets delay-error mode.
func (c *Config) WithDelayError(delay bool) *Config {
	c.delayError = delay
	return c
}

// Prefetch returns the initial demand concat/merge requests upstream.
func (c *Config) Prefetch() int { return c.prefetch }

// WithPrefetch sets the initial upstream demand for concat/merge.
func (c *Config) WithPrefetch(n int) *Config {
	if n <= 0 {
		n = c.bufferSize
	}
	c.prefetch = n
	return c
}

// MaxConcurrency returns the merge parallelism cap, or 0 for unbounded.
func (c *Config) MaxConcurrency() int { return c.maxConcurrency }

// WithMaxConcurrency sets the merge parallelism cap. 0 means unbounded.
func (c *Config) WithMaxConcurrency(n int) *Config {
	if n < 0 {
		n = 0
	}
	c.maxConcurrency = n
	return c
}

// RestartTimerOnMaxSize returns whether a size-capped timed window
// restarts its timer when it closes early on reaching maxSize.
func (c *Config) RestartTimerOnMaxSize() bool { return c.restartTimerOnMaxSize }

// WithRestartTimerOnMaxSize sets the windowExactBounded timer-restart
// behavior.
func (c *Config) WithRestartTimerOnMaxSize(restart bool) *Config {
	c.restartTimerOnMaxSize = restart
	return c
}
