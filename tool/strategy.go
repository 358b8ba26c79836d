package tool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Strategy is one concrete execution path for an operation.
type Strategy struct {
	Name string
	Kind StrategyKind
	Run  func(ctx context.Context) (string, error)
}

// Chain runs strategies in priority order.
type Chain struct {
	Operation string
	Observer  Observer
	Logger    *slog.Logger
}

// Run tries each strategy in order. The first strategy that returns no error
// and a non-empty report wins. Every failure moves on to the next strategy;
// the last failure is returned once all strategies are exhausted.
func (c Chain) Run(ctx context.Context, strategies ...Strategy) (string, error) {
	if len(strategies) == 0 {
		return "", NewError(CodeInternalFailure, fmt.Sprintf("no strategy configured for %s", c.Operation), nil)
	}
	observer := observerOrNop(c.Observer)
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var lastErr error
	for i, strategy := range strategies {
		if err := ctx.Err(); err != nil {
			if lastErr == nil {
				lastErr = contextError(ctx, c.Operation)
			}
			break
		}

		start := time.Now()
		text, err := runStrategy(ctx, strategy)
		if err == nil && strings.TrimSpace(text) == "" {
			err = NewError(CodeUpstreamFailure, strategy.Name+" returned no result", nil)
		}
		observer.ObserveStrategy(StrategyObservation{
			Operation:  c.Operation,
			Strategy:   strategy.Name,
			Kind:       strategy.Kind,
			Attempt:    i + 1,
			DurationMS: time.Since(start).Milliseconds(),
			Success:    err == nil,
			ErrorCode:  ErrorCode(err),
		})
		if err == nil {
			return text, nil
		}

		lastErr = err
		if i < len(strategies)-1 {
			logger.Debug("strategy failed, falling back",
				"operation", c.Operation,
				"strategy", strategy.Name,
				"next", strategies[i+1].Name,
				"error", err,
			)
		}
	}
	return "", lastErr
}

func runStrategy(ctx context.Context, strategy Strategy) (text string, err error) {
	if strategy.Run == nil {
		return "", NewError(CodeInternalFailure, "strategy "+strategy.Name+" has no implementation", nil)
	}
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = NewError(CodeInternalFailure, fmt.Sprintf("%s panicked: %v", strategy.Name, r), nil)
		}
	}()
	return strategy.Run(ctx)
}

func contextError(ctx context.Context, operation string) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return Timeout(operation + " timed out")
	}
	return NewError(CodeInternalFailure, operation+" canceled", ctx.Err())
}
