package poller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/ranked-queue/internal/ladder"
	"github.com/mauv0809/ranked-queue/internal/lifecycle"
	"github.com/mauv0809/ranked-queue/internal/matcher"
	"github.com/mauv0809/ranked-queue/internal/metrics"
	"github.com/mauv0809/ranked-queue/internal/notifier"
	"github.com/mauv0809/ranked-queue/internal/session"
)

// DefaultInterval is the time between two ticks of a group.
const DefaultInterval = 3 * time.Second

// MatchCreator opens a match between two teams and withdraws it again when the
// pool change that goes with it cannot be saved.
type MatchCreator interface {
	Create(ctx context.Context, groupID string, a, b lifecycle.Contender, autoMatched bool) (*session.Session, error)
	Cancel(ctx context.Context, matchID, reason string) error
}

// Poller periodically pairs the teams waiting in each group's pool.
type Poller struct {
	store    ladder.Store
	creator  MatchCreator
	notifier notifier.Notifier
	metrics  metrics.Metrics
	locker   *ladder.Locker
	interval time.Duration
	now      func() time.Time

	mu   sync.Mutex
	runs map[string]context.CancelFunc
	wg   sync.WaitGroup
}

// New creates a new Poller. A non-positive interval uses DefaultInterval.
func New(store ladder.Store, creator MatchCreator, notifier notifier.Notifier, metrics metrics.Metrics, locker *ladder.Locker, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		store:    store,
		creator:  creator,
		notifier: notifier,
		metrics:  metrics,
		locker:   locker,
		interval: interval,
		now:      time.Now,
		runs:     make(map[string]context.CancelFunc),
	}
}

// Interval returns the configured period between ticks.
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Tick runs one matching pass for groupID and returns how many matches it created.
// Disabled, unconfigured and empty groups are left untouched.
func (p *Poller) Tick(ctx context.Context, groupID string) (int, error) {
	startTime := p.now()
	defer func() {
		p.metrics.ObserveTickDuration(p.now().Sub(startTime).Seconds())
	}()
	p.metrics.IncPollTicks()

	unlock := p.locker.Lock(ladder.PoolLock(groupID))
	defer unlock()

	cfg, err := p.store.LoadConfig(ctx, groupID)
	if err != nil {
		return 0, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg == nil || !cfg.Enabled || cfg.QueueChannelID == "" {
		log.Debug("Skipping tick for inactive group", "group", groupID)
		return 0, nil
	}

	pool, err := p.store.LoadPool(ctx, groupID)
	if err != nil {
		return 0, fmt.Errorf("failed to load pool: %w", err)
	}
	p.metrics.SetPoolSize(groupID, len(pool))
	if len(pool) == 0 {
		return 0, nil
	}

	now := p.now()
	names := p.teamNames(ctx)
	pairs := matcher.FindMatches(pool, now)

	matched := make(map[string]bool)
	var found, created []string
	for _, pair := range pairs {
		a, b := contender(pair.A, names), contender(pair.B, names)
		s, err := p.creator.Create(ctx, groupID, a, b, true)
		if err != nil {
			log.Error("Failed to create auto match, keeping teams in the pool", "error", err, "group", groupID, "teamA", a.TeamKey, "teamB", b.TeamKey)
			continue
		}
		created = append(created, s.MatchID)
		matched[a.TeamKey] = true
		matched[b.TeamKey] = true
		found = append(found, notifier.MatchFound(
			notifier.Side{Name: a.Name, Rating: a.Rating},
			notifier.Side{Name: b.Name, Rating: b.Rating},
		))
	}

	if len(matched) > 0 {
		remaining := make([]ladder.AutoQueueEntry, 0, len(pool)-len(matched))
		for _, e := range pool {
			if !matched[e.TeamKey] {
				remaining = append(remaining, e)
			}
		}
		if err := p.store.SavePool(ctx, groupID, remaining); err != nil {
			// Matched teams are still pooled; their matches must not outlive this tick.
			p.cancel(ctx, groupID, created)
			return 0, fmt.Errorf("failed to save pool: %w", err)
		}
		pool = remaining
		p.metrics.SetPoolSize(groupID, len(pool))
		log.Info("Auto matched teams", "group", groupID, "matches", len(found), "remaining", len(pool))
	}

	for _, msg := range found {
		if _, err := p.notifier.PostChannel(ctx, cfg.QueueChannelID, msg); err != nil {
			log.Warn("Failed to announce match", "error", err, "group", groupID)
		}
	}
	p.publishStatus(ctx, cfg, pool, names, now)
	return len(found), nil
}

// RefreshStatus redraws a group's pool display outside of a tick.
func (p *Poller) RefreshStatus(ctx context.Context, groupID string) error {
	unlock := p.locker.Lock(ladder.PoolLock(groupID))
	defer unlock()

	cfg, err := p.store.LoadConfig(ctx, groupID)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg == nil || !cfg.Enabled || cfg.QueueChannelID == "" {
		return nil
	}
	pool, err := p.store.LoadPool(ctx, groupID)
	if err != nil {
		return fmt.Errorf("failed to load pool: %w", err)
	}
	p.metrics.SetPoolSize(groupID, len(pool))
	p.publishStatus(ctx, cfg, pool, p.teamNames(ctx), p.now())
	return nil
}

// publishStatus must be called with the group's pool lock held.
func (p *Poller) publishStatus(ctx context.Context, cfg *ladder.QueueConfig, pool []ladder.AutoQueueEntry, names map[string]string, now time.Time) {
	statuses := matcher.Status(pool, now)
	lines := make([]notifier.QueueLine, 0, len(statuses))
	for _, st := range statuses {
		lines = append(lines, notifier.QueueLine{
			Name:        ladder.DisplayName(st.TeamKey, names),
			Rating:      st.Rating,
			WaitMinutes: st.WaitMinutes,
			Range:       st.Range,
		})
	}

	id, err := p.notifier.UpsertStatus(ctx, cfg.QueueChannelID, cfg.StatusMessageID, notifier.QueueStatus(lines, p.interval.String()))
	if err != nil {
		log.Warn("Failed to update queue status", "error", err, "group", cfg.GroupID)
		return
	}
	if id != cfg.StatusMessageID {
		cfg.StatusMessageID = id
		if err := p.store.SaveConfig(ctx, *cfg); err != nil {
			log.Error("Failed to save status message id", "error", err, "group", cfg.GroupID)
		}
	}
}

func (p *Poller) cancel(ctx context.Context, groupID string, matchIDs []string) {
	for _, id := range matchIDs {
		if err := p.creator.Cancel(ctx, id, "pool could not be saved"); err != nil {
			log.Error("Failed to cancel auto match", "error", err, "group", groupID, "matchID", id)
		}
	}
}

func (p *Poller) teamNames(ctx context.Context) map[string]string {
	teams, err := p.store.LoadTeams(ctx)
	if err != nil {
		log.Warn("Failed to load team names", "error", err)
		return nil
	}
	return ladder.TeamNames(teams)
}

func contender(e ladder.AutoQueueEntry, names map[string]string) lifecycle.Contender {
	return lifecycle.Contender{
		TeamKey:   e.TeamKey,
		Name:      ladder.DisplayName(e.TeamKey, names),
		CaptainID: e.CaptainID,
		Rating:    e.Rating,
	}
}

// Start begins polling groupID. It returns false if the group is already polling.
func (p *Poller) Start(groupID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.runs[groupID]; ok {
		return false
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.runs[groupID] = cancel
	p.wg.Add(1)
	go p.run(ctx, groupID)
	log.Info("Started polling", "group", groupID, "interval", p.interval)
	return true
}

func (p *Poller) run(ctx context.Context, groupID string) {
	defer p.wg.Done()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.Tick(ctx, groupID); err != nil && ctx.Err() == nil {
				log.Error("Poll tick failed", "error", err, "group", groupID)
			}
		}
	}
}

// Stop ends polling for groupID. Stopping an idle group does nothing.
func (p *Poller) Stop(groupID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cancel, ok := p.runs[groupID]
	if !ok {
		return
	}
	cancel()
	delete(p.runs, groupID)
	log.Info("Stopped polling", "group", groupID)
}

// Running reports whether groupID is being polled.
func (p *Poller) Running(groupID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.runs[groupID]
	return ok
}

// StartAll resumes polling for every enabled group.
func (p *Poller) StartAll(ctx context.Context) error {
	configs, err := p.store.ListConfigs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list group configs: %w", err)
	}
	for _, cfg := range configs {
		if cfg.Enabled && cfg.QueueChannelID != "" {
			p.Start(cfg.GroupID)
		}
	}
	return nil
}

// Shutdown stops every group and waits for in-flight ticks to return.
func (p *Poller) Shutdown() {
	p.mu.Lock()
	for groupID, cancel := range p.runs {
		cancel()
		delete(p.runs, groupID)
	}
	p.mu.Unlock()
	p.wg.Wait()
}
