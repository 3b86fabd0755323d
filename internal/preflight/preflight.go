package preflight

import (
	"context"

	"tvcore/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(_ context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}

	if cfg.Middleware.ReadyProperty != "" {
		results = append(results, CheckReadyProperty(cfg.Middleware.ReadyProperty))
	}

	if cfg.Channels.IPSeedEnabled {
		results = append(results, CheckReadable("IP channel seed", cfg.Channels.IPSeedFile))
	}

	if cfg.Hardware.DVBDeviceDir != "" {
		results = append(results, CheckDVBDevices(cfg.Hardware.DVBDeviceDir))
	}

	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
