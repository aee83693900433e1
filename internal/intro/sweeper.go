package intro

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/groblegark/warmpath/internal/notify"
	"github.com/groblegark/warmpath/internal/store"
)

// ReminderWindow is how close to expiry an unanswered step must be before
// its recipient gets a reminder. Each step is reminded at most once.
const ReminderWindow = 24 * time.Hour

// Sweeper periodically expires overdue flows and nudges recipients whose
// steps are about to lapse. Expiry is a guarded bulk update in the store,
// so concurrent sweepers notify each flow exactly once between them.
type Sweeper struct {
	store    store.Store
	notifier *notify.Notifier
	interval time.Duration
	log      *slog.Logger
	nowFn    func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSweeper creates a sweeper that runs at the given interval.
func NewSweeper(s store.Store, n *notify.Notifier, interval time.Duration, log *slog.Logger) *Sweeper {
	return &Sweeper{
		store:    s,
		notifier: n,
		interval: interval,
		log:      log,
		nowFn:    time.Now,
	}
}

// Start begins periodic sweeping. It runs one sweep immediately, then on
// each tick.
func (s *Sweeper) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()
}

// Stop cancels the sweeper and waits for the current sweep (if any) to finish.
func (s *Sweeper) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Sweeper) run(ctx context.Context) {
	s.SweepOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce runs one expiry pass and one reminder pass. Both passes are
// idempotent: re-running against an already-swept store does nothing.
func (s *Sweeper) SweepOnce(ctx context.Context) {
	now := s.nowFn().UTC()

	expired, err := s.store.ExpireFlows(ctx, now)
	if err != nil {
		s.log.Error("expiry sweep failed", "err", err)
	} else {
		for _, flow := range expired {
			s.notifier.FlowExpired(ctx, flow.ID, flow.RequesterID)
		}
		if len(expired) > 0 {
			s.log.Info("flows expired", "count", len(expired))
		}
	}

	due, err := s.store.ListReminderSteps(ctx, now, ReminderWindow)
	if err != nil {
		s.log.Error("reminder sweep failed", "err", err)
		return
	}
	for _, r := range due {
		if err := s.store.MarkReminderSent(ctx, r.FlowID, r.StepNumber); err != nil {
			// Another sweeper got there first; skip quietly.
			s.log.Debug("reminder skipped", "flow", r.FlowID, "step", r.StepNumber, "err", err)
			continue
		}
		s.notifier.StepReminder(ctx, r.FlowID, r.StepNumber, r.ToUserID)
	}
	if len(due) > 0 {
		s.log.Info("reminders sent", "count", len(due))
	}
}
