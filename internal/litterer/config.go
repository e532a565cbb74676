package litterer

import (
	"errors"
	"fmt"
	"os"

	"github.com/nicovank/litterer/internal/envutil"
)

// Config holds the littering run's tunables, read directly from the
// process environment at the point of use, exactly as the original's
// std::getenv calls.
type Config struct {
	DataFilename string
	Seed         uint64
	HasSeed      bool
	Occupancy    float64
	Shuffle      bool
	Sort         bool
	SleepSeconds float64
	Multiplier   uint32
}

// ConfigFromEnv reads LITTER_DATA_FILENAME, LITTER_SEED,
// LITTER_OCCUPANCY, LITTER_SHUFFLE, LITTER_SORT, LITTER_SLEEP, and
// LITTER_MULTIPLIER. LITTER_LOG_FILENAME is read separately, by
// log.Configure, since it governs log output for both the profiler and
// the litterer alike.
func ConfigFromEnv() (Config, error) {
	var cfg Config

	cfg.DataFilename = envutil.String("LITTER_DATA_FILENAME", "distribution.json")

	if v, ok := os.LookupEnv("LITTER_SEED"); ok && v != "" {
		seed, err := envutil.Uint64("LITTER_SEED", 0)
		if err != nil {
			return cfg, err
		}
		cfg.Seed = seed
		cfg.HasSeed = true
	}

	occupancy, err := envutil.Float64("LITTER_OCCUPANCY", 0.95)
	if err != nil {
		return cfg, err
	}
	if occupancy < 0 || occupancy > 1 {
		return cfg, fmt.Errorf("litterer: LITTER_OCCUPANCY must be between 0 and 1, got %v", occupancy)
	}
	cfg.Occupancy = occupancy

	shuffle, err := envutil.Bool("LITTER_SHUFFLE", true)
	if err != nil {
		return cfg, err
	}
	sort, err := envutil.Bool("LITTER_SORT", false)
	if err != nil {
		return cfg, err
	}
	if shuffle && sort {
		return cfg, errors.New("litterer: select either LITTER_SHUFFLE or LITTER_SORT, not both")
	}
	cfg.Shuffle = shuffle
	cfg.Sort = sort

	sleepSeconds, err := envutil.Float64("LITTER_SLEEP", 0)
	if err != nil {
		return cfg, err
	}
	cfg.SleepSeconds = sleepSeconds

	multiplier, err := envutil.Uint32("LITTER_MULTIPLIER", 20)
	if err != nil {
		return cfg, err
	}
	cfg.Multiplier = multiplier

	return cfg, nil
}
