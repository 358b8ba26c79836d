package tool

// StrategyKind distinguishes in-process clients from external binaries.
type StrategyKind string

const (
	StrategyNative   StrategyKind = "native"
	StrategyExternal StrategyKind = "external"
)

// InvokeObservation captures one dispatched invocation.
type InvokeObservation struct {
	InvocationID string
	Operation    string
	DurationMS   int64
	Success      bool
	ErrorCode    string
}

// StrategyObservation captures one strategy attempt inside a chain.
type StrategyObservation struct {
	Operation  string
	Strategy   string
	Kind       StrategyKind
	Attempt    int
	DurationMS int64
	Success    bool
	ErrorCode  string
}

// Observer receives dispatch and strategy events.
type Observer interface {
	ObserveInvoke(observation InvokeObservation)
	ObserveStrategy(observation StrategyObservation)
}

type noopObserver struct{}

func (noopObserver) ObserveInvoke(InvokeObservation)     {}
func (noopObserver) ObserveStrategy(StrategyObservation) {}

// NopObserver returns an observer that drops every event.
func NopObserver() Observer {
	return noopObserver{}
}

func observerOrNop(o Observer) Observer {
	if o == nil {
		return noopObserver{}
	}
	return o
}
