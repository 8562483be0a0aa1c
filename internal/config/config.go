// Package config builds the venue Config (spec.md §6) from CLI flags
// (cli.go, cobra/pflag) and optional operational knobs bound through
// viper, plus the FIX session INI loader (fixsessions.go). Grounded on
// the teacher's internal/config/config.go (flag-based Load), generalized
// from a flat simulator flag set to spec.md's venue config table.
package config

import (
	"time"

	"github.com/openmarket-sim/matchcore/internal/phase"
)

// Config mirrors spec.md §6's venue Config table, plus the ambient
// transport/operational fields SPEC_FULL.md §6 adds (Mongo, admin HTTP,
// archiving, FIX sessions file, instance identity). Defaults per spec.md: SupportDay/SupportIOC/
// SupportFOK default true; CancelOnDisconnect defaults false; all
// streaming flags default false; DepthOrdersExclusion defaults false
// (derived as !IncludeOwnOrders); PersistenceEnabled defaults false;
// timezone defaults to UTC.
type Config struct {
	SupportDay bool
	SupportIOC bool
	SupportFOK bool

	CancelOnDisconnect bool

	TradeStreaming          bool
	TradeVolumeStreaming    bool
	TradePartiesStreaming   bool
	TradeAggressorStreaming bool

	IncludeOwnOrders     bool
	DepthOrdersExclusion bool

	PersistenceEnabled  bool
	PersistenceFilePath string

	PhaseSchedule []phase.Record
	Timezone      string // IANA zone name; "" means UTC

	// Ambient: trading-engine tuning not in spec.md's abstract Config but
	// required to run a real process.
	AllowAmendDownOnHalt bool
	WorkerPoolSize       int

	// Ambient: trade tape (internal/persist), opt-in and non-gating.
	TradeTapeEnabled     bool
	MongoURI             string
	TradeRetentionDays   int
	SnapshotInterval     time.Duration
	ArchiveDir           string
	ArchiveIntervalHours int
	ArchiveAfterHours    int
	ArchiveMaxGB         int

	// Ambient: admin HTTP transport shim.
	AdminListenAddr   string
	AdminRateLimitRPS int

	// Ambient: FIX session file (internal/config.LoadFixSessions).
	FixSessionsPath string

	// Ambient: instance identity, carried from CLI flags into log fields.
	InstancePrefix string
	InstanceID     string
}

// Default returns a Config with spec.md's documented defaults applied.
func Default() Config {
	return Config{
		SupportDay: true,
		SupportIOC: true,
		SupportFOK: true,

		CancelOnDisconnect: false,

		TradeStreaming:          false,
		TradeVolumeStreaming:    false,
		TradePartiesStreaming:   false,
		TradeAggressorStreaming: false,

		IncludeOwnOrders:     true,
		DepthOrdersExclusion: false,

		PersistenceEnabled:  false,
		PersistenceFilePath: "",

		Timezone: "UTC",

		AllowAmendDownOnHalt: true,
		WorkerPoolSize:       4,

		TradeTapeEnabled:     false,
		MongoURI:             "mongodb://localhost:27017/matchcore",
		TradeRetentionDays:   7,
		SnapshotInterval:     30 * time.Second,
		ArchiveDir:           "./archive",
		ArchiveIntervalHours: 6,
		ArchiveAfterHours:    24,
		ArchiveMaxGB:         10,

		AdminListenAddr:   ":8090",
		AdminRateLimitRPS: 5,
	}
}

// Location resolves Timezone to a *time.Location, defaulting to UTC for
// an empty string.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "UTC" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Timezone)
}
