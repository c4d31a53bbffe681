package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/arnab-netizen/AICMO-sub004/internal/config"
)

// Locker is the single-active-worker guard around each cycle.
type Locker interface {
	Acquire(ctx context.Context) bool
	Heartbeat(ctx context.Context)
	Release(ctx context.Context) bool
}

// Orchestrator runs the outreach cycle: dispatch, ingest, classify and
// follow up, sweep timeouts, evaluate campaigns, dispatch alerts — in
// that fixed order, each stage isolated from the others' failures.
//
// Sends run before the inbox poll so a same-cycle reply to a just-sent
// message is attributable; classification runs before the timeout sweep
// so a reply at the window boundary wins over the timeout; metrics come
// last among the state changes so decisions see the freshest state.
type Orchestrator struct {
	locker     Locker
	dispatcher *Dispatcher
	ingestor   *Ingestor
	followUp   *FollowUpEngine
	decider    *Decider
	alerts     *AlertDispatcher
	cfg        config.WorkerConfig
	logger     *slog.Logger
}

func NewOrchestrator(
	locker Locker,
	dispatcher *Dispatcher,
	ingestor *Ingestor,
	followUp *FollowUpEngine,
	decider *Decider,
	alerts *AlertDispatcher,
	cfg config.WorkerConfig,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		locker:     locker,
		dispatcher: dispatcher,
		ingestor:   ingestor,
		followUp:   followUp,
		decider:    decider,
		alerts:     alerts,
		cfg:        cfg,
		logger:     logger,
	}
}

// Run blocks until the context is cancelled. Each iteration attempts one
// cycle and then sleeps; failing to get the lease just means another
// worker is live, so we sleep and try again.
func (o *Orchestrator) Run(ctx context.Context) {
	o.logger.Info("outreach worker started",
		"worker_id", o.cfg.WorkerID,
		"cycle_interval", o.cfg.CycleInterval.String(),
	)

	ticker := time.NewTicker(o.cfg.CycleInterval)
	defer ticker.Stop()

	o.RunCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			o.logger.Info("outreach worker stopping")
			return
		case <-ticker.C:
			o.RunCycle(ctx)
		}
	}
}

type stage struct {
	name string
	run  func(context.Context) error
}

// RunCycle executes one full cycle under the lease. Stage errors are
// logged and the cycle moves on; only a missing lease skips the cycle.
func (o *Orchestrator) RunCycle(ctx context.Context) {
	if !o.locker.Acquire(ctx) {
		o.logger.Debug("lease unavailable, skipping cycle")
		return
	}
	// Lease bookkeeping must still run when shutdown cancels the cycle.
	defer o.locker.Release(context.WithoutCancel(ctx))

	start := time.Now()

	stages := []stage{
		{"dispatch", func(ctx context.Context) error {
			sent, failed, err := o.dispatcher.DispatchDue(ctx)
			if sent > 0 || failed > 0 {
				o.logger.Info("dispatch finished", "sent", sent, "failed", failed)
			}
			return err
		}},
		{"ingest", func(ctx context.Context) error {
			_, err := o.ingestor.FetchNewReplies(ctx)
			return err
		}},
		{"classify", func(ctx context.Context) error {
			_, err := o.followUp.ProcessNewReplies(ctx)
			return err
		}},
		{"sweep", func(ctx context.Context) error {
			advanced, err := o.followUp.SweepTimeouts(ctx, o.cfg.NoReplyWindow)
			if advanced > 0 {
				o.logger.Info("timeout sweep finished", "advanced", advanced)
			}
			return err
		}},
		{"decide", func(ctx context.Context) error {
			_, err := o.decider.EvaluateCampaigns(ctx)
			return err
		}},
		{"alert", func(ctx context.Context) error {
			_, err := o.alerts.DispatchPending(ctx)
			return err
		}},
	}

	for _, st := range stages {
		if ctx.Err() != nil {
			// Shutdown requested: finish bookkeeping, skip further stages.
			break
		}
		o.runStage(ctx, st)
	}

	o.locker.Heartbeat(context.WithoutCancel(ctx))

	o.logger.Info("cycle finished", "duration_ms", time.Since(start).Milliseconds())
}

// runStage isolates one stage: a panic or error is logged and the cycle
// proceeds to the next stage.
func (o *Orchestrator) runStage(ctx context.Context, st stage) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("stage panicked", "stage", st.name, "panic", r)
		}
	}()

	if err := st.run(ctx); err != nil {
		o.logger.Error("stage failed", "stage", st.name, "error", err)
	}
}
