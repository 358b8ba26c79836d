package tool

import (
	"context"
	"errors"
	"sync"
	"testing"
)

type recordingObserver struct {
	mu         sync.Mutex
	invokes    []InvokeObservation
	strategies []StrategyObservation
}

func (r *recordingObserver) ObserveInvoke(o InvokeObservation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invokes = append(r.invokes, o)
}

func (r *recordingObserver) ObserveStrategy(o StrategyObservation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies = append(r.strategies, o)
}

func TestChainFirstSuccessWins(t *testing.T) {
	observer := &recordingObserver{}
	calls := 0
	text, err := Chain{Operation: "whois", Observer: observer}.Run(context.Background(),
		Strategy{Name: "native", Kind: StrategyNative, Run: func(context.Context) (string, error) {
			calls++
			return "registrar: Example", nil
		}},
		Strategy{Name: "external", Kind: StrategyExternal, Run: func(context.Context) (string, error) {
			calls++
			return "unused", nil
		}},
	)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if text != "registrar: Example" {
		t.Fatalf("Run() = %q", text)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
	if len(observer.strategies) != 1 || !observer.strategies[0].Success {
		t.Fatalf("observations = %+v", observer.strategies)
	}
}

func TestChainFallsBackOnErrorAndEmptyResult(t *testing.T) {
	observer := &recordingObserver{}
	text, err := Chain{Operation: "nslookup", Observer: observer}.Run(context.Background(),
		Strategy{Name: "resolver", Run: func(context.Context) (string, error) {
			return "", Unavailable("resolver", nil)
		}},
		Strategy{Name: "empty", Run: func(context.Context) (string, error) {
			return "   ", nil
		}},
		Strategy{Name: "binary", Run: func(context.Context) (string, error) {
			return "Address: 93.184.216.34", nil
		}},
	)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if text != "Address: 93.184.216.34" {
		t.Fatalf("Run() = %q", text)
	}
	if len(observer.strategies) != 3 {
		t.Fatalf("observations = %d, want 3", len(observer.strategies))
	}
	if got := observer.strategies[0].ErrorCode; got != CodeToolUnavailable {
		t.Fatalf("first error code = %q, want %q", got, CodeToolUnavailable)
	}
	if got := observer.strategies[1].ErrorCode; got != CodeUpstreamFailure {
		t.Fatalf("second error code = %q, want %q", got, CodeUpstreamFailure)
	}
	if observer.strategies[2].Attempt != 3 {
		t.Fatalf("third attempt = %d, want 3", observer.strategies[2].Attempt)
	}
}

func TestChainReturnsLastError(t *testing.T) {
	_, err := Chain{Operation: "curl"}.Run(context.Background(),
		Strategy{Name: "a", Run: func(context.Context) (string, error) {
			return "", Unavailable("curl command", nil)
		}},
		Strategy{Name: "b", Run: func(context.Context) (string, error) {
			return "", Timeout("request timed out")
		}},
	)
	if ErrorCode(err) != CodeTimeout {
		t.Fatalf("error code = %q, want %q", ErrorCode(err), CodeTimeout)
	}
	if !errors.Is(err, ErrStrategyTimeout) {
		t.Fatalf("errors.Is(err, ErrStrategyTimeout) = false for %v", err)
	}
}

func TestChainRecoversPanics(t *testing.T) {
	text, err := Chain{Operation: "netstat"}.Run(context.Background(),
		Strategy{Name: "boom", Run: func(context.Context) (string, error) {
			panic("kaboom")
		}},
		Strategy{Name: "ok", Run: func(context.Context) (string, error) {
			return "fine", nil
		}},
	)
	if err != nil || text != "fine" {
		t.Fatalf("Run() = %q, %v; want fine, nil", text, err)
	}
}

func TestChainStopsWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	_, err := Chain{Operation: "ping"}.Run(ctx, Strategy{Name: "a", Run: func(context.Context) (string, error) {
		called = true
		return "x", nil
	}})
	if called {
		t.Fatal("strategy ran after cancellation")
	}
	if err == nil {
		t.Fatal("Run() error = nil, want cancellation error")
	}
}

func TestChainWithoutStrategies(t *testing.T) {
	if _, err := (Chain{Operation: "x"}).Run(context.Background()); ErrorCode(err) != CodeInternalFailure {
		t.Fatalf("error code = %q, want %q", ErrorCode(err), CodeInternalFailure)
	}
}
