package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/example/studygroup-scheduler/internal/scheduling"
)

// Config captures environment driven configuration values for the scheduler service.
type Config struct {
	HTTPPort  int
	SQLiteDSN string
	Policy    scheduling.SchedulingPolicy
}

// Load parses configuration values from the current process environment.
//
// Every variable has a sensible default; invalid values are accumulated and
// reported together rather than failing on the first one.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:  8080,
		SQLiteDSN: "file:studygroup.db?_foreign_keys=on",
		Policy:    scheduling.DefaultPolicy(),
	}

	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("SCHEDULER_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "SCHEDULER_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("SCHEDULER_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	intOverrides := []struct {
		name   string
		target *int
		valid  func(int) bool
	}{
		{"SCHEDULER_BUFFER_MINUTES", &cfg.Policy.BufferMinutes, func(v int) bool { return v >= 0 }},
		{"SCHEDULER_EARLIEST_HOUR", &cfg.Policy.EarliestHour, func(v int) bool { return v >= 0 && v <= 23 }},
		{"SCHEDULER_LATEST_HOUR", &cfg.Policy.LatestHour, func(v int) bool { return v >= 1 && v <= 24 }},
		{"SCHEDULER_TARGET_ASSIGNMENTS", &cfg.Policy.TargetAssignments, func(v int) bool { return v > 0 }},
		{"SCHEDULER_MAX_SESSIONS_PER_USER", &cfg.Policy.MaxSessionsPerUser, func(v int) bool { return v > 0 }},
		{"SCHEDULER_MIN_DURATION_MINUTES", &cfg.Policy.MinDurationMinutes, func(v int) bool { return v > 0 }},
		{"SCHEDULER_MAX_DURATION_MINUTES", &cfg.Policy.MaxDurationMinutes, func(v int) bool { return v > 0 }},
	}

	for _, override := range intOverrides {
		raw := strings.TrimSpace(os.Getenv(override.name))
		if raw == "" {
			continue
		}
		value, err := strconv.Atoi(raw)
		if err != nil || !override.valid(value) {
			invalid = append(invalid, override.name)
			continue
		}
		*override.target = value
	}

	if cfg.Policy.EarliestHour >= cfg.Policy.LatestHour {
		invalid = append(invalid, "SCHEDULER_EARLIEST_HOUR")
	}
	if cfg.Policy.MinDurationMinutes > cfg.Policy.MaxDurationMinutes {
		invalid = append(invalid, "SCHEDULER_MIN_DURATION_MINUTES")
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variable values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
