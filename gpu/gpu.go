// Package gpu provides per-process GPU metrics behind a capability-gated
// provider. Exactly two implementations exist: the NVML binding and the
// Unavailable stub selected at startup when no compatible driver is found,
// so the sampling core never branches on GPU support.
package gpu

import (
	"context"

	"github.com/procscope/procscope/model"
)

// Provider answers per-pid GPU queries for one tick.
type Provider interface {
	Name() string
	// QueryAll returns GPU metrics keyed by pid for every process currently
	// using a device. An empty map means no process uses the GPU; it is not
	// an error. Implementations check ctx between device queries so a slow
	// driver cannot exceed the tick's budget.
	QueryAll(ctx context.Context) (map[int]model.GPUMetrics, error)
	Close() error
}

type unavailable struct{}

// Unavailable returns the no-op provider used when no compatible GPU
// device or driver is present.
func Unavailable() Provider { return unavailable{} }

func (unavailable) Name() string { return "none" }

func (unavailable) QueryAll(context.Context) (map[int]model.GPUMetrics, error) {
	return nil, nil
}

func (unavailable) Close() error { return nil }
