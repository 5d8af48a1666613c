package preflight

import (
	"context"

	"captioner/internal/config"
	"captioner/internal/storage"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every preflight check for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}

	backend, err := storage.NewFromConfig(cfg)
	if err != nil {
		results = append(results, Result{Name: storageCheckName, Detail: err.Error()})
	} else {
		results = append(results, CheckStorage(ctx, backend))
	}

	results = append(results, CheckTranscription(cfg))
	results = append(results, CheckLLM(ctx, "Translation LLM", cfg.GetLLM()))

	if cfg.Scheduler.Backend == config.SchedulerAMQP {
		results = append(results, CheckAMQP(cfg.Scheduler.AMQPURL))
	}
	return results
}

// Failed returns the subset of results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
