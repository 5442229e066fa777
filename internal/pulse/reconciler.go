// Package pulse runs the liveness reconciliation loop: it periodically
// re-evaluates every device, persists state transitions, pushes them to
// connected viewers and triggers per-user notifications.
package pulse

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/HerbHall/devwatch/pkg/models"
	"github.com/HerbHall/devwatch/pkg/plugin"
)

// DeviceStore is the subset of the record store the reconciler needs.
type DeviceStore interface {
	ListDevices(ctx context.Context) ([]models.Device, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateDevice(ctx context.Context, id string, patch models.DevicePatch) (*models.Device, error)
}

// Broadcaster pushes a status change to every open viewer connection and
// returns the number of connections it was delivered to.
type Broadcaster interface {
	Publish(change models.StatusChange) int
}

// Notifier delivers one notification attempt. Implementations handle and log
// their own failures.
type Notifier interface {
	Notify(ctx context.Context, user models.User, device models.Device, isOnline bool)
}

// TickReport summarizes one reconciliation tick.
type TickReport struct {
	Evaluated     int
	Transitions   int
	EvalErrors    int
	PersistErrors int
	Panics        int
	Deliveries    int // connections reached across all broadcasts
	Notifications int // notification attempts started
}

func (r *TickReport) add(o deviceOutcome) {
	if o.evaluated {
		r.Evaluated++
	}
	if o.transition {
		r.Transitions++
	}
	if o.evalErr {
		r.EvalErrors++
	}
	if o.persistErr {
		r.PersistErrors++
	}
	if o.panicked {
		r.Panics++
	}
	r.Deliveries += o.deliveries
	r.Notifications += o.notifications
}

type deviceOutcome struct {
	evaluated     bool
	transition    bool
	evalErr       bool
	persistErr    bool
	panicked      bool
	deliveries    int
	notifications int
}

// Reconciler owns the ticker. Only one tick runs at a time; a tick that
// fires while another is in progress is skipped.
type Reconciler struct {
	cfg       Config
	store     DeviceStore
	evaluator Evaluator
	hub       Broadcaster
	notifier  Notifier
	bus       plugin.EventBus
	logger    *zap.Logger
	now       func() time.Time

	ticking   atomic.Bool
	notifySem chan struct{}
	notifyWG  sync.WaitGroup

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewReconciler wires a reconciler. notifier may be nil to disable
// notifications.
func NewReconciler(store DeviceStore, evaluator Evaluator, hub Broadcaster, notifier Notifier, cfg Config, logger *zap.Logger) *Reconciler {
	cfg = cfg.withDefaults()
	return &Reconciler{
		cfg:       cfg,
		store:     store,
		evaluator: evaluator,
		hub:       hub,
		notifier:  notifier,
		logger:    logger,
		now:       time.Now,
		notifySem: make(chan struct{}, cfg.NotifyWorkers),
	}
}

// SetEventBus attaches a bus that receives TopicDeviceStatusChanged for every
// persisted transition. Call before Start.
func (r *Reconciler) SetEventBus(bus plugin.EventBus) {
	r.bus = bus
}

// Start runs one tick immediately and then one per interval until ctx is
// cancelled or Stop is called.
func (r *Reconciler) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ctx != nil && r.ctx.Err() == nil {
		return
	}
	r.ctx, r.cancel = context.WithCancel(ctx)
	loopCtx := r.ctx

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.cfg.Interval)
		defer ticker.Stop()

		r.wg.Add(1)
		go r.tick(loopCtx)

		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				r.wg.Add(1)
				go r.tick(loopCtx)
			}
		}
	}()

	r.logger.Info("reconciler started",
		zap.Duration("interval", r.cfg.Interval),
		zap.Int("max_workers", r.cfg.MaxWorkers),
	)
}

// Stop cancels the loop and waits for the running tick and every pending
// notification to finish.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	r.wg.Wait()
	r.Wait()
}

// Running reports whether the ticker loop is active.
func (r *Reconciler) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ctx != nil && r.ctx.Err() == nil
}

// Wait blocks until every notification started so far has completed.
func (r *Reconciler) Wait() {
	r.notifyWG.Wait()
}

func (r *Reconciler) tick(ctx context.Context) {
	defer r.wg.Done()

	report, err := r.RunOnce(ctx)
	switch {
	case errors.Is(err, ErrTickInProgress):
		r.logger.Debug("previous tick still running, skipping")
	case err != nil:
		r.logger.Warn("reconciliation tick failed", zap.Error(err))
	case report.Transitions > 0 || report.EvalErrors > 0 || report.PersistErrors > 0:
		r.logger.Info("reconciliation tick",
			zap.Int("evaluated", report.Evaluated),
			zap.Int("transitions", report.Transitions),
			zap.Int("eval_errors", report.EvalErrors),
			zap.Int("persist_errors", report.PersistErrors),
		)
	}
}

// RunOnce runs a single tick synchronously. It returns ErrTickInProgress if
// another tick is running. Notifications started by the tick may still be in
// flight on return; use Wait to drain them.
func (r *Reconciler) RunOnce(ctx context.Context) (TickReport, error) {
	if !r.ticking.CompareAndSwap(false, true) {
		ticksSkipped.Inc()
		return TickReport{}, ErrTickInProgress
	}
	defer r.ticking.Store(false)

	start := time.Now()
	ticksTotal.Inc()
	defer func() { tickDuration.Observe(time.Since(start).Seconds()) }()

	devices, err := r.store.ListDevices(ctx)
	if err != nil {
		return TickReport{}, fmt.Errorf("list devices: %w", err)
	}
	recipients := r.recipients(ctx)

	var (
		report TickReport
		mu     sync.Mutex
		g      errgroup.Group
	)
	g.SetLimit(r.cfg.MaxWorkers)

	for _, d := range devices {
		// Only cancellation by the caller (Stop) ends a pass early.
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			out := r.reconcileDevice(ctx, d, recipients)
			mu.Lock()
			report.add(out)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return report, ctx.Err()
}

// recipients returns the users that want notifications. A failed read only
// disables notifications for this tick.
func (r *Reconciler) recipients(ctx context.Context) []models.User {
	if r.notifier == nil {
		return nil
	}
	users, err := r.store.ListUsers(ctx)
	if err != nil {
		r.logger.Warn("list users failed, notifications disabled for this tick", zap.Error(err))
		failuresTotal.WithLabelValues("list_users").Inc()
		return nil
	}
	out := users[:0:0]
	for _, u := range users {
		if u.WantsNotifications() {
			out = append(out, u)
		}
	}
	return out
}

// reconcileDevice evaluates one device and, on a transition, persists it,
// broadcasts it and starts notifications, strictly in that order.
func (r *Reconciler) reconcileDevice(ctx context.Context, device models.Device, recipients []models.User) (out deviceOutcome) {
	defer func() {
		if p := recover(); p != nil {
			failuresTotal.WithLabelValues("panic").Inc()
			r.logger.Error("device reconciliation panicked",
				zap.String("device_id", device.ID),
				zap.Any("panic", p),
			)
			out.panicked = true
		}
	}()

	if r.cfg.DeviceTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.DeviceTimeout)
		defer cancel()
	}

	online, err := r.evaluator.Evaluate(ctx, device)
	if err != nil {
		evalErr := &EvaluationError{DeviceID: device.ID, Err: err}
		failuresTotal.WithLabelValues("evaluate").Inc()
		r.logger.Warn("liveness evaluation failed", zap.String("device_id", device.ID), zap.Error(evalErr))
		out.evalErr = true
		return out
	}
	out.evaluated = true
	if online == device.IsOnline {
		return out
	}

	seen := r.now().UTC()
	updated, err := r.store.UpdateDevice(ctx, device.ID, models.DevicePatch{IsOnline: &online, LastSeen: &seen})
	if err != nil {
		persistErr := &PersistenceError{DeviceID: device.ID, Err: err}
		failuresTotal.WithLabelValues("persist").Inc()
		r.logger.Warn("persisting liveness transition failed", zap.String("device_id", device.ID), zap.Error(persistErr))
		out.persistErr = true
		return out
	}
	out.transition = true
	transitionsTotal.WithLabelValues(stateLabel(online)).Inc()

	change := models.StatusChange{DeviceID: device.ID, IsOnline: online, LastSeen: seen}
	if r.hub != nil {
		out.deliveries = r.hub.Publish(change)
	}

	if r.bus != nil {
		r.bus.PublishAsync(context.WithoutCancel(ctx), plugin.Event{
			Topic:     TopicDeviceStatusChanged,
			Source:    "pulse",
			Timestamp: seen,
			Payload:   DeviceStatusEvent{Device: *updated, Change: change},
		})
	}

	for _, u := range recipients {
		r.startNotify(ctx, u, *updated, online)
		out.notifications++
	}
	return out
}

// startNotify runs one notification attempt in the background so a slow
// mail transport cannot hold back the tick. At most NotifyWorkers attempts
// run concurrently.
func (r *Reconciler) startNotify(ctx context.Context, user models.User, device models.Device, online bool) {
	ctx = context.WithoutCancel(ctx)
	r.notifyWG.Add(1)
	go func() {
		defer r.notifyWG.Done()
		r.notifySem <- struct{}{}
		defer func() { <-r.notifySem }()
		defer func() {
			if p := recover(); p != nil {
				failuresTotal.WithLabelValues("panic").Inc()
				r.logger.Error("notifier panicked",
					zap.String("device_id", device.ID),
					zap.String("user_id", user.ID),
					zap.Any("panic", p),
				)
			}
		}()
		r.notifier.Notify(ctx, user, device, online)
	}()
}
