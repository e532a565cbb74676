package litterer

import (
	"github.com/nicovank/litterer/internal/log"
	"github.com/nicovank/litterer/internal/version"
)

// LogRun writes the human-readable run log the litterer must produce:
// seed, occupancy, shuffle/sort flags, multiplier, maxLiveAllocations,
// total objects allocated, and elapsed time, mirroring the original's
// runLitterer log block.
func LogRun(cfg Config, maxLiveAllocations int64, result *Result) {
	log.Info("==================== litterer %s ====================", version.Tag)
	if cfg.HasSeed {
		log.Info("seed       : %d", cfg.Seed)
	} else {
		log.Info("seed       : random")
	}
	log.Info("occupancy  : %v", cfg.Occupancy)
	log.Info("shuffle    : %v", cfg.Shuffle)
	log.Info("sort       : %v", cfg.Sort)
	if cfg.SleepSeconds > 0 {
		log.Info("sleep      : %v seconds", cfg.SleepSeconds)
	} else {
		log.Info("sleep      : no")
	}
	log.Info("litter     : %d * %d = %d", cfg.Multiplier, maxLiveAllocations, result.N)
	log.Info("freed      : %d", result.F)
	log.Info("elapsed    : %v", result.Elapsed)
	log.Info("===================================================")
}
