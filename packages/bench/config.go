// Package bench provides rate-based load generation against a single
// catalog scenario with threshold evaluation and latency reporting.
package bench

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for a benchmark run.
type Config struct {
	Duration    time.Duration
	Rate        float64       // requests per second (rate mode)
	MaxInFlight int           // max concurrent scenario executions (rate mode)
	Workers     int           // fixed worker pool instead of rate pacing
	ThinkTime   time.Duration // pause between requests per worker
	Warmup      time.Duration // initial window excluded from metrics
	Thresholds  Thresholds
}

// Thresholds defines pass/fail criteria for a benchmark.
type Thresholds struct {
	P50        time.Duration
	P95        time.Duration
	P99        time.Duration
	MaxLatency time.Duration
	ErrorRate  float64 // 0.0 - 1.0
	MinRPS     float64
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Duration:    30 * time.Second,
		Rate:        10,
		MaxInFlight: 50,
	}
}

// Validate checks if the config is valid.
func (c *Config) Validate() error {
	if c.Duration <= 0 {
		return fmt.Errorf("duration must be positive")
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers cannot be negative")
	}
	if c.ThinkTime < 0 {
		return fmt.Errorf("think time cannot be negative")
	}
	if c.Workers == 0 && c.Rate <= 0 {
		return fmt.Errorf("rate must be positive")
	}
	if c.MaxInFlight < 1 {
		return fmt.Errorf("max in-flight must be at least 1")
	}
	if c.Warmup < 0 {
		return fmt.Errorf("warmup cannot be negative")
	}
	if c.Warmup >= c.Duration {
		return fmt.Errorf("warmup must be shorter than duration")
	}
	return nil
}

var thresholdRe = regexp.MustCompile(`^(\w+)\s*([<>]=?)\s*(.+)$`)

// ParseThresholds parses a threshold string like "p95<200ms,errors<1%".
func ParseThresholds(s string) (Thresholds, error) {
	var t Thresholds

	if s == "" {
		return t, nil
	}

	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if err := parseThresholdPart(part, &t); err != nil {
			return t, err
		}
	}

	return t, nil
}

func parseThresholdPart(part string, t *Thresholds) error {
	matches := thresholdRe.FindStringSubmatch(part)
	if len(matches) != 4 {
		return fmt.Errorf("invalid threshold format: %s", part)
	}

	metric := strings.ToLower(matches[1])
	op := matches[2]
	valueStr := matches[3]

	setDuration := func(dst *time.Duration) error {
		d, err := time.ParseDuration(valueStr)
		if err != nil {
			return fmt.Errorf("invalid duration for %s: %s", metric, valueStr)
		}
		if op != "<" && op != "<=" {
			return fmt.Errorf("%s threshold must use < or <=", metric)
		}
		*dst = d
		return nil
	}

	switch metric {
	case "p50":
		return setDuration(&t.P50)
	case "p95":
		return setDuration(&t.P95)
	case "p99":
		return setDuration(&t.P99)
	case "max", "maxlatency":
		return setDuration(&t.MaxLatency)
	case "errors", "error", "errorrate":
		valueStr = strings.TrimSuffix(valueStr, "%")
		f, err := strconv.ParseFloat(valueStr, 64)
		if err != nil {
			return fmt.Errorf("invalid error rate: %s", valueStr)
		}
		if strings.Contains(part, "%") {
			f = f / 100
		}
		if op != "<" && op != "<=" {
			return fmt.Errorf("error rate threshold must use < or <=")
		}
		t.ErrorRate = f
	case "rps", "rate":
		f, err := strconv.ParseFloat(valueStr, 64)
		if err != nil {
			return fmt.Errorf("invalid RPS: %s", valueStr)
		}
		if op != ">" && op != ">=" {
			return fmt.Errorf("RPS threshold must use > or >=")
		}
		t.MinRPS = f
	default:
		return fmt.Errorf("unknown threshold metric: %s", metric)
	}

	return nil
}

// HasThresholds returns true if any thresholds are configured.
func (t *Thresholds) HasThresholds() bool {
	return t.P50 > 0 || t.P95 > 0 || t.P99 > 0 || t.MaxLatency > 0 || t.ErrorRate > 0 || t.MinRPS > 0
}

// ThresholdResult holds the result of evaluating a single threshold.
type ThresholdResult struct {
	Name     string
	Passed   bool
	Expected string
	Actual   string
}
