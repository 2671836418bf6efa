// Package versions caches the latest upstream version per server type.
// A recurring background task polls one representative instance per
// distinct type; the cache is rebuilt each process lifetime.
package versions

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/game-tools/gsm-host-go/pkg/gameserver"
	"github.com/game-tools/gsm-host-go/pkg/logging"
	"github.com/game-tools/gsm-host-go/pkg/metrics"
)

// Entry is one cached version check result for a server type.
type Entry struct {
	Version   string
	CheckedAt time.Time
}

// Lister supplies the current server set at each tick.
type Lister func() []gameserver.Server

type Poller struct {
	interval    time.Duration
	pollTimeout time.Duration
	list        Lister
	logger      logging.Logger

	mutex sync.RWMutex
	cache map[string]Entry

	scheduler *cron.Cron
	cancel    context.CancelFunc
}

func NewPoller(interval time.Duration, list Lister, logger logging.Logger) *Poller {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Poller{
		interval:    interval,
		pollTimeout: 30 * time.Second,
		list:        list,
		logger:      logger,
		cache:       make(map[string]Entry),
	}
}

// Start schedules the recurring poll. The first tick fires after one
// full interval.
func (p *Poller) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	p.scheduler = cron.New()
	_, err := p.scheduler.AddFunc(fmt.Sprintf("@every %s", p.interval), func() {
		p.Tick(ctx)
	})
	if err != nil {
		cancel()
		return err
	}

	p.scheduler.Start()
	p.logger.Infof("Version poller started, interval: %v", p.interval)
	return nil
}

// Stop cancels the schedule and any in-flight polls. In-flight polls
// observe the cancelled context and unwind within their per-poll
// timeout.
func (p *Poller) Stop() {
	if p.scheduler != nil {
		p.scheduler.Stop()
	}
	if p.cancel != nil {
		p.cancel()
	}
	p.logger.Infof("Version poller stopped")
}

// Tick polls one representative per distinct server type. Failures are
// isolated per type: a failed poll leaves that type's previous cache
// entry untouched and never blocks other types.
func (p *Poller) Tick(ctx context.Context) {
	representatives := pickRepresentatives(p.list())
	if len(representatives) == 0 {
		return
	}

	var wg sync.WaitGroup
	for serverType, server := range representatives {
		wg.Add(1)
		go func(serverType string, server gameserver.Server) {
			defer wg.Done()
			p.pollOne(ctx, serverType, server)
		}(serverType, server)
	}
	wg.Wait()
}

func (p *Poller) pollOne(ctx context.Context, serverType string, server gameserver.Server) {
	pollCtx, cancel := context.WithTimeout(ctx, p.pollTimeout)
	defer cancel()

	version, err := server.GetLatestVersion(pollCtx)
	if err != nil {
		metrics.VersionPollFailuresTotal.WithLabelValues(serverType).Inc()
		p.logger.Warnf("Version poll failed, type: %s, error: %v", serverType, err)
		return
	}

	p.mutex.Lock()
	p.cache[serverType] = Entry{Version: version, CheckedAt: time.Now()}
	p.mutex.Unlock()

	p.logger.Debugf("Version poll succeeded, type: %s, version: %s", serverType, version)
}

// TryGet returns the cached entry for a server type, if any.
func (p *Poller) TryGet(serverType string) (Entry, bool) {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	entry, ok := p.cache[serverType]
	return entry, ok
}

// pickRepresentatives reduces the instance set to one server per
// distinct type discriminator, first seen wins.
func pickRepresentatives(servers []gameserver.Server) map[string]gameserver.Server {
	representatives := make(map[string]gameserver.Server)
	for _, server := range servers {
		serverType := server.Config().Type
		if _, seen := representatives[serverType]; !seen {
			representatives[serverType] = server
		}
	}
	return representatives
}
