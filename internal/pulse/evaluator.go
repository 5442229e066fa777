package pulse

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/HerbHall/devwatch/pkg/models"
)

// Evaluator decides whether a device is currently online. An error means the
// state could not be determined; the reconciler keeps the stored state.
type Evaluator interface {
	Evaluate(ctx context.Context, device models.Device) (bool, error)
}

// EvaluatorFunc adapts a function to Evaluator.
type EvaluatorFunc func(ctx context.Context, device models.Device) (bool, error)

func (f EvaluatorFunc) Evaluate(ctx context.Context, device models.Device) (bool, error) {
	return f(ctx, device)
}

// Compile-time interface guards.
var (
	_ Evaluator = EvaluatorFunc(nil)
	_ Evaluator = (*RandomEvaluator)(nil)
)

// RandomEvaluator is the placeholder liveness check. Each call flips the
// device's stored state with probability FlipProbability, independently per
// device and per call.
type RandomEvaluator struct {
	FlipProbability float64

	mu  sync.Mutex
	rng *rand.Rand // nil uses the global source
}

// NewRandomEvaluator returns an evaluator backed by the global random source.
func NewRandomEvaluator(p float64) *RandomEvaluator {
	return &RandomEvaluator{FlipProbability: p}
}

// NewSeededRandomEvaluator returns a deterministic evaluator for tests and demos.
func NewSeededRandomEvaluator(p float64, seed uint64) *RandomEvaluator {
	return &RandomEvaluator{
		FlipProbability: p,
		rng:             rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

func (e *RandomEvaluator) Evaluate(_ context.Context, device models.Device) (bool, error) {
	if e.roll() < e.FlipProbability {
		return !device.IsOnline, nil
	}
	return device.IsOnline, nil
}

func (e *RandomEvaluator) roll() float64 {
	if e.rng == nil {
		return rand.Float64()
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rng.Float64()
}

// NewEvaluator builds the evaluator named by cfg.Evaluator.
func NewEvaluator(cfg Config) (Evaluator, error) {
	cfg = cfg.withDefaults()
	switch cfg.Evaluator {
	case EvaluatorRandom:
		return NewRandomEvaluator(cfg.FlipProbability), nil
	case EvaluatorICMP:
		return NewICMPEvaluator(cfg.PingTimeout, cfg.PingCount, cfg.Privileged), nil
	case EvaluatorTCP:
		return NewTCPEvaluator(cfg.TCPPort, cfg.TCPTimeout), nil
	default:
		return nil, fmt.Errorf("unknown evaluator %q (want %s, %s or %s)",
			cfg.Evaluator, EvaluatorRandom, EvaluatorICMP, EvaluatorTCP)
	}
}
