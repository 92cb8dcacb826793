package dispatch

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/openquant/quorum/pkg/agent"
	"github.com/openquant/quorum/pkg/core"
	"github.com/openquant/quorum/pkg/errors"
	"github.com/openquant/quorum/pkg/governance"
	"github.com/openquant/quorum/pkg/profile"
	"github.com/openquant/quorum/pkg/registry"
	"github.com/openquant/quorum/pkg/tools"
)

func testStore(t *testing.T, maxDuration time.Duration) (*profile.Store, *governance.Enforcer, tools.Provider) {
	t.Helper()

	reg, err := registry.New(map[string]registry.Capability{
		"polygon_get_aggs":          registry.CapabilityReadMarketData,
		"binance_spot_market_order": registry.CapabilityExecuteTrade,
	})
	if err != nil {
		t.Fatalf("registry.New: %v", err)
	}

	profiles := []profile.Profile{
		{
			Name:                "technical-analyst",
			AllowedToolPatterns: []string{"polygon_*"},
			DeniedCapabilities:  []registry.Capability{registry.CapabilityExecuteTrade},
			MaxDuration:         maxDuration,
		},
		{
			Name:                "news-analyst",
			AllowedToolPatterns: []string{"perplexity_*"},
			DeniedCapabilities:  []registry.Capability{registry.CapabilityExecuteTrade},
			MaxDuration:         maxDuration,
		},
	}
	store, err := profile.NewStore(profiles)
	if err != nil {
		t.Fatalf("profile.NewStore: %v", err)
	}

	provider := tools.NewStatic(tools.Func{
		ToolName: "polygon_get_aggs",
		Fn: func(_ context.Context, _ map[string]any) (any, error) {
			return map[string]any{"close": 61250.5}, nil
		},
	})
	return store, governance.NewEnforcer(reg), provider
}

func goodPayload(sentiment string, confidence float64) map[string]any {
	return map[string]any{
		"sentiment":  sentiment,
		"confidence": confidence,
		"summary":    "test summary",
	}
}

func TestRunBatchAllSucceed(t *testing.T) {
	store, enforcer, provider := testStore(t, time.Second)
	exec := &agent.MockExecutor{Payload: goodPayload("bullish", 0.8)}
	d := New(NewInvoker(exec, enforcer, provider), store)

	requests := []core.InvocationRequest{
		core.NewRequest("technical-analyst", "assess BTC"),
		core.NewRequest("news-analyst", "scan headlines"),
	}
	outcomes, err := d.RunBatch(context.Background(), requests, 0)
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if len(outcomes) != len(requests) {
		t.Fatalf("expected %d outcomes, got %d", len(requests), len(outcomes))
	}
	for i, outcome := range outcomes {
		if outcome.RequestID != requests[i].RequestID {
			t.Fatalf("outcome %d out of submission order", i)
		}
		if outcome.Kind != core.OutcomeSuccess {
			t.Fatalf("expected success, got %s (%s)", outcome.Kind, outcome.Message)
		}
		if outcome.Result == nil {
			t.Fatal("success outcome must carry a result")
		}
	}
}

func TestRunBatchUnknownAgentFailsFast(t *testing.T) {
	store, enforcer, provider := testStore(t, time.Second)
	exec := &agent.MockExecutor{Payload: goodPayload("neutral", 0.5)}
	d := New(NewInvoker(exec, enforcer, provider), store)

	_, err := d.RunBatch(context.Background(), []core.InvocationRequest{
		core.NewRequest("technical-analyst", "assess BTC"),
		core.NewRequest("ghost-agent", "anything"),
	}, 0)
	if !errors.HasCode(err, errors.CodeUnknownAgent) {
		t.Fatalf("expected unknown agent error, got %v", err)
	}
	if exec.Calls() != 0 {
		t.Fatalf("nothing may run when resolution fails, got %d calls", exec.Calls())
	}
}

func TestRunBatchRejectsDuplicateRequestIDs(t *testing.T) {
	store, enforcer, provider := testStore(t, time.Second)
	d := New(NewInvoker(&agent.MockExecutor{}, enforcer, provider), store)

	req := core.NewRequest("technical-analyst", "assess BTC")
	_, err := d.RunBatch(context.Background(), []core.InvocationRequest{req, req}, 0)
	if !errors.HasCode(err, errors.CodeInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestRunBatchHonorsConcurrencyLimit(t *testing.T) {
	store, enforcer, provider := testStore(t, time.Second)

	var running, peak int32
	exec := &agent.MockExecutor{Fn: func(_ context.Context, _ agent.Invocation) (map[string]any, error) {
		now := atomic.AddInt32(&running, 1)
		for {
			observed := atomic.LoadInt32(&peak)
			if now <= observed || atomic.CompareAndSwapInt32(&peak, observed, now) {
				break
			}
		}
		time.Sleep(30 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return goodPayload("neutral", 0.5), nil
	}}
	d := New(NewInvoker(exec, enforcer, provider), store)

	requests := make([]core.InvocationRequest, 5)
	for i := range requests {
		requests[i] = core.NewRequest("technical-analyst", "assess BTC")
	}
	outcomes, err := d.RunBatch(context.Background(), requests, 2)
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if len(outcomes) != 5 {
		t.Fatalf("expected 5 outcomes, got %d", len(outcomes))
	}
	if p := atomic.LoadInt32(&peak); p > 2 {
		t.Fatalf("concurrency limit violated: %d invocations ran at once", p)
	}
	if p := atomic.LoadInt32(&peak); p < 2 {
		t.Fatalf("expected overlapping invocations, peak was %d", p)
	}
}

func TestRunBatchDeadlineConvertsPendingToTimeout(t *testing.T) {
	store, enforcer, provider := testStore(t, 10*time.Second)

	var mu sync.Mutex
	started := 0
	exec := &agent.MockExecutor{Fn: func(ctx context.Context, inv agent.Invocation) (map[string]any, error) {
		mu.Lock()
		started++
		first := started == 1
		mu.Unlock()
		if first {
			return goodPayload("bullish", 0.9), nil
		}
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	d := New(NewInvoker(exec, enforcer, provider), store)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	requests := []core.InvocationRequest{
		core.NewRequest("technical-analyst", "fast"),
		core.NewRequest("technical-analyst", "slow"),
		core.NewRequest("technical-analyst", "never started"),
	}
	outcomes, err := d.RunBatch(ctx, requests, 1)
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if len(outcomes) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(outcomes))
	}
	if outcomes[0].Kind != core.OutcomeSuccess {
		t.Fatalf("completed outcome must stand, got %s", outcomes[0].Kind)
	}
	for _, outcome := range outcomes[1:] {
		if outcome.Kind != core.OutcomeTimeout {
			t.Fatalf("pending request must become timeout, got %s", outcome.Kind)
		}
	}
}

func TestRunBatchDeadlineKeepsDeliveredOutcomes(t *testing.T) {
	store, enforcer, provider := testStore(t, 10*time.Second)

	// The deadline fires while one finished worker's Success is still
	// queued behind a stalled observer callback. The queued result must
	// be reported as delivered, never as a timeout.
	for run := 0; run < 15; run++ {
		ctx, cancel := context.WithCancel(context.Background())

		var wg sync.WaitGroup
		wg.Add(2)
		executorsDone := make(chan struct{})
		go func() {
			wg.Wait()
			close(executorsDone)
		}()

		exec := &agent.MockExecutor{Fn: func(_ context.Context, _ agent.Invocation) (map[string]any, error) {
			defer wg.Done()
			return goodPayload("bullish", 0.8), nil
		}}
		obs := &stallThenCancel{executorsDone: executorsDone, cancel: cancel}
		d := New(NewInvoker(exec, enforcer, provider), store, WithObserver(obs))

		outcomes, err := d.RunBatch(ctx, []core.InvocationRequest{
			core.NewRequest("technical-analyst", "assess BTC"),
			core.NewRequest("news-analyst", "scan headlines"),
		}, 2)
		if err != nil {
			t.Fatalf("run %d: RunBatch: %v", run, err)
		}
		for _, outcome := range outcomes {
			if outcome.Kind != core.OutcomeSuccess {
				t.Fatalf("run %d: completed invocation reported as %s (%s)",
					run, outcome.Kind, outcome.Message)
			}
		}
		cancel()
	}
}

// stallThenCancel blocks the first finish callback until every executor has
// returned, then cancels the batch context while the remaining outcome sits
// queued.
type stallThenCancel struct {
	executorsDone <-chan struct{}
	cancel        context.CancelFunc
	once          sync.Once
}

func (s *stallThenCancel) InvocationStarted(context.Context, core.InvocationRequest) {}

func (s *stallThenCancel) InvocationFinished(context.Context, core.InvocationOutcome) {
	s.once.Do(func() {
		<-s.executorsDone
		time.Sleep(2 * time.Millisecond)
		s.cancel()
	})
}

func TestRunBatchPerInvocationTimeout(t *testing.T) {
	store, enforcer, provider := testStore(t, 30*time.Millisecond)
	exec := &agent.MockExecutor{Fn: func(ctx context.Context, _ agent.Invocation) (map[string]any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	d := New(NewInvoker(exec, enforcer, provider), store)

	outcomes, err := d.RunBatch(context.Background(), []core.InvocationRequest{
		core.NewRequest("technical-analyst", "assess BTC"),
	}, 0)
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if outcomes[0].Kind != core.OutcomeTimeout {
		t.Fatalf("expected timeout outcome, got %s", outcomes[0].Kind)
	}
}

func TestRunBatchPolicyViolationOutcome(t *testing.T) {
	store, enforcer, provider := testStore(t, time.Second)
	exec := &agent.ToolScriptExecutor{
		ToolCalls:     []agent.ScriptedCall{{Tool: "binance_spot_market_order"}},
		AbortOnDenial: true,
	}
	d := New(NewInvoker(exec, enforcer, provider), store)

	outcomes, err := d.RunBatch(context.Background(), []core.InvocationRequest{
		core.NewRequest("technical-analyst", "buy BTC"),
	}, 0)
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	outcome := outcomes[0]
	if outcome.Kind != core.OutcomePolicyViolation {
		t.Fatalf("expected policy violation, got %s (%s)", outcome.Kind, outcome.Message)
	}
	if outcome.ToolName != "binance_spot_market_order" {
		t.Fatalf("expected the denied tool on the outcome, got %q", outcome.ToolName)
	}
}

func TestRunBatchRecoveredDenialStaysSuccess(t *testing.T) {
	store, enforcer, provider := testStore(t, time.Second)
	// The agent attempts a denied tool, routes around the failure, and
	// still produces a valid payload.
	exec := &agent.ToolScriptExecutor{
		ToolCalls: []agent.ScriptedCall{
			{Tool: "binance_spot_market_order"},
			{Tool: "polygon_get_aggs"},
		},
		Payload: goodPayload("bearish", 0.6),
	}
	d := New(NewInvoker(exec, enforcer, provider), store)

	outcomes, err := d.RunBatch(context.Background(), []core.InvocationRequest{
		core.NewRequest("technical-analyst", "assess BTC"),
	}, 0)
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if outcomes[0].Kind != core.OutcomeSuccess {
		t.Fatalf("a recovered denial must not taint the outcome, got %s", outcomes[0].Kind)
	}
}

func TestRunBatchSchemaViolationBecomesExecutorError(t *testing.T) {
	store, enforcer, provider := testStore(t, time.Second)
	exec := &agent.MockExecutor{Payload: map[string]any{"sentiment": "bullish"}}
	d := New(NewInvoker(exec, enforcer, provider), store)

	outcomes, err := d.RunBatch(context.Background(), []core.InvocationRequest{
		core.NewRequest("technical-analyst", "assess BTC"),
	}, 0)
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if outcomes[0].Kind != core.OutcomeExecutorError {
		t.Fatalf("expected executor error, got %s", outcomes[0].Kind)
	}
	if outcomes[0].Result != nil {
		t.Fatal("non-success outcome must not carry a result")
	}
}

func TestRunBatchNotifiesObserver(t *testing.T) {
	store, enforcer, provider := testStore(t, time.Second)
	exec := &agent.MockExecutor{Payload: goodPayload("neutral", 0.5)}

	obs := &recordingObserver{}
	d := New(NewInvoker(exec, enforcer, provider), store, WithObserver(obs))

	requests := []core.InvocationRequest{
		core.NewRequest("technical-analyst", "a"),
		core.NewRequest("news-analyst", "b"),
	}
	if _, err := d.RunBatch(context.Background(), requests, 0); err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if got := obs.finished(); got != 2 {
		t.Fatalf("expected 2 finish events, got %d", got)
	}
}

type recordingObserver struct {
	mu       sync.Mutex
	started  int
	outcomes []core.InvocationOutcome
}

func (r *recordingObserver) InvocationStarted(_ context.Context, _ core.InvocationRequest) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started++
}

func (r *recordingObserver) InvocationFinished(_ context.Context, outcome core.InvocationOutcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func (r *recordingObserver) finished() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.outcomes)
}
