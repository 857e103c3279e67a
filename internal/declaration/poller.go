package declaration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	domainerr "github.com/LYTE-studios/werkr-engine/internal/common/errors"
	"github.com/LYTE-studios/werkr-engine/internal/common/logger"
	"github.com/LYTE-studios/werkr-engine/internal/common/metrics"
)

const (
	attemptKeyPrefix = "declaration:poll:attempts:"
	attemptKeyTTL    = 24 * time.Hour
	timedOutReason   = "timed out"
)

// AdminNotifier raises operator alerts for declaration failures.
type AdminNotifier interface {
	NotifyAdmins(ctx context.Context, title, body string) error
}

// Poller reconciles declaration status in the background: one cancellable
// task per declaration id, a hard attempt cap, and a fixed delay between
// attempts. Attempt counts live in redis keyed by declaration id, so a
// restarted process resumes with the budget it already spent instead of
// starting the cap over.
type Poller struct {
	client   Service
	store    Store
	redis    *redis.Client
	notifier AdminNotifier
	log      logger.Logger

	interval    time.Duration
	maxAttempts int

	baseCtx   context.Context
	cancelAll context.CancelFunc
	wg        sync.WaitGroup

	mu     sync.Mutex
	active map[string]context.CancelFunc
}

func NewPoller(client Service, store Store, rdb *redis.Client, notifier AdminNotifier, interval time.Duration, maxAttempts int, log logger.Logger) *Poller {
	baseCtx, cancel := context.WithCancel(context.Background())
	return &Poller{
		client:      client,
		store:       store,
		redis:       rdb,
		notifier:    notifier,
		log:         log,
		interval:    interval,
		maxAttempts: maxAttempts,
		baseCtx:     baseCtx,
		cancelAll:   cancel,
		active:      make(map[string]context.CancelFunc),
	}
}

// Schedule starts a resolution poll for the declaration id. Scheduling an id
// that is already being polled is a no-op.
func (p *Poller) Schedule(declarationID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, running := p.active[declarationID]; running {
		return
	}

	ctx, cancel := context.WithCancel(p.baseCtx)
	p.active[declarationID] = cancel
	p.wg.Add(1)
	go p.run(ctx, declarationID)
}

// CancelPoll stops the poll for a declaration id, if one is running. A poll
// that already woke checks the stored row before acting, so cancellation
// after denial is safe either way.
func (p *Poller) CancelPoll(declarationID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if cancel, ok := p.active[declarationID]; ok {
		cancel()
		delete(p.active, declarationID)
	}
}

// ResumeUnresolved schedules polls for every declaration without a verdict.
// Called at startup so declarations in flight when the process died keep
// being reconciled.
func (p *Poller) ResumeUnresolved(ctx context.Context) error {
	unresolved, err := p.store.ListUnresolvedDeclarations(ctx)
	if err != nil {
		return err
	}
	for _, d := range unresolved {
		p.Schedule(d.ID)
	}
	if len(unresolved) > 0 {
		p.log.Info("resumed declaration polls", map[string]interface{}{"count": len(unresolved)})
	}
	return nil
}

// Shutdown cancels all polls and waits for them to exit.
func (p *Poller) Shutdown() {
	p.cancelAll()
	p.wg.Wait()
}

func (p *Poller) run(ctx context.Context, declarationID string) {
	defer p.wg.Done()
	defer func() {
		p.mu.Lock()
		delete(p.active, declarationID)
		p.mu.Unlock()
	}()

	log := p.log.WithFields(map[string]interface{}{"declarationId": declarationID})
	timer := time.NewTimer(p.interval)
	defer timer.Stop()

	localAttempts := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		// The owning application may have been denied since the last wake;
		// check the row before touching the external service.
		d, err := p.store.GetDeclaration(ctx, declarationID)
		if err != nil {
			if domainerr.IsNotFound(err) {
				log.Debug("declaration gone, stopping poll", nil)
				return
			}
			log.WithError(err).Warn("declaration lookup failed", nil)
			timer.Reset(p.interval)
			continue
		}
		if d.Resolved() {
			return
		}

		localAttempts++
		attempt := p.attemptCount(ctx, declarationID, localAttempts)
		if attempt > p.maxAttempts {
			metrics.DeclarationPolls.WithLabelValues("timeout").Inc()
			if err := p.store.ResolveDeclaration(ctx, declarationID, false, timedOutReason); err != nil {
				log.WithError(err).Error("failed to record poll timeout", nil)
			}
			p.alert(ctx, "Declaration resolution timed out",
				fmt.Sprintf("declaration %s was not resolved after %d attempts", declarationID, p.maxAttempts))
			return
		}

		res, err := p.client.Status(ctx, declarationID)
		if err != nil {
			if errors.Is(err, ErrNotReady) {
				metrics.DeclarationPolls.WithLabelValues("not_ready").Inc()
			} else {
				metrics.DeclarationPolls.WithLabelValues("error").Inc()
				log.WithError(err).Warn("declaration status check failed", map[string]interface{}{
					"attempt": attempt,
				})
			}
			timer.Reset(p.interval)
			continue
		}

		if err := p.store.ResolveDeclaration(ctx, declarationID, res.Success, res.Reason); err != nil {
			log.WithError(err).Error("failed to record declaration verdict", nil)
			timer.Reset(p.interval)
			continue
		}

		if res.Success {
			metrics.DeclarationPolls.WithLabelValues("accepted").Inc()
			log.Info("declaration accepted", nil)
		} else {
			metrics.DeclarationPolls.WithLabelValues("refused").Inc()
			log.Warn("declaration refused", map[string]interface{}{"reason": res.Reason})
			p.alert(ctx, "Declaration refused",
				fmt.Sprintf("declaration %s was refused: %s", declarationID, res.Reason))
		}
		return
	}
}

// attemptCount increments the shared attempt counter. When redis is
// unavailable the local count keeps the cap enforced for this process.
func (p *Poller) attemptCount(ctx context.Context, declarationID string, local int) int {
	key := attemptKeyPrefix + declarationID
	n, err := p.redis.Incr(ctx, key).Result()
	if err != nil {
		return local
	}
	p.redis.Expire(ctx, key, attemptKeyTTL)
	if int(n) > local {
		return int(n)
	}
	return local
}

func (p *Poller) alert(ctx context.Context, title, body string) {
	if err := p.notifier.NotifyAdmins(ctx, title, body); err != nil {
		p.log.WithError(err).Warn("operator alert failed", map[string]interface{}{"title": title})
	}
}
