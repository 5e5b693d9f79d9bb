package tool

import (
	"context"
	"time"

	"github.com/handaas/patent-bigdata-mcp/internal/infra/eventbus"
	"github.com/handaas/patent-bigdata-mcp/internal/infra/handaas"
)

// TopicToolCalled is published once per dispatched tool call with a CallEvent payload.
const TopicToolCalled = "tool.called"

// Caller performs one signed gateway call. *handaas.Client satisfies it.
type Caller interface {
	Call(ctx context.Context, productID string, params map[string]any) handaas.Result
}

// CallEvent describes a finished tool call. It never carries the remote payload.
type CallEvent struct {
	Tool      string
	ProductID string
	Outcome   handaas.Kind
	Cause     string
	Duration  time.Duration
	At        time.Time
}

// Service dispatches typed tool invocations to the gateway.
// Each method applies the tool's defaults, drops unset arguments and calls
// the gateway with the tool's fixed product id. The Result is returned as is.
type Service struct {
	caller Caller
	bus    eventbus.EventBus
}

// NewService creates a Service. bus may be nil when nothing consumes call events.
func NewService(caller Caller, bus eventbus.EventBus) *Service {
	return &Service{caller: caller, bus: bus}
}

// PatentSearch searches patents by name, application number, applicant or agency.
func (s *Service) PatentSearch(ctx context.Context, in PatentSearchParams) handaas.Result {
	in.applyDefaults()
	return s.dispatch(ctx, ToolPatentSearch, ProductPatentSearch, &in)
}

// PatentStats returns the patent statistics of one enterprise.
func (s *Service) PatentStats(ctx context.Context, in PatentStatsParams) handaas.Result {
	in.applyDefaults()
	return s.dispatch(ctx, ToolPatentStats, ProductPatentStats, &in)
}

// FuzzySearch lists enterprises matching a free-text keyword.
func (s *Service) FuzzySearch(ctx context.Context, in FuzzySearchParams) handaas.Result {
	in.applyDefaults()
	return s.dispatch(ctx, ToolFuzzySearch, ProductFuzzySearch, &in)
}

func (s *Service) dispatch(ctx context.Context, name, productID string, params any) handaas.Result {
	start := time.Now()
	res := s.caller.Call(ctx, productID, Compact(params))

	if s.bus != nil {
		evt := CallEvent{
			Tool:      name,
			ProductID: productID,
			Outcome:   res.Kind,
			Duration:  time.Since(start),
			At:        start.UTC(),
		}
		if res.Err != nil {
			evt.Cause = res.Err.Error()
		}
		s.bus.Publish(TopicToolCalled, evt)
	}
	return res
}
