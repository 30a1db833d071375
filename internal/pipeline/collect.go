// =============================================================================
// collect.go - Fetch orchestration
// =============================================================================
//
// One batch run:
//
//	Run
//	 ├─ NewHTTPClient            shared by every task, closed at run end
//	 ├─ BuildSources             one FeedSource per registry entry,
//	 │                           then the community sources
//	 ├─ ScrapeAllSources         tasks fan out on an errgroup; each task
//	 │                           writes only its own result slot
//	 └─ Dedupe                   first title wins
//
// A task's error or panic becomes a failed SourceStatus; siblings keep
// running. Results are merged in source order after every task finished.
//
// =============================================================================
package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"ai-relay/internal/logger"
	"ai-relay/internal/metrics"
)

// Source is one unit of fetch work.
type Source interface {
	// Name is the status key for the source.
	Name() string
	// Fetch returns the source's articles. An error fails the whole source.
	Fetch(ctx context.Context) ([]Article, error)
}

// Collector runs batches.
type Collector struct {
	cfg     Config
	log     logger.Logger
	metrics *metrics.Recorder
	now     func() time.Time
}

// NewCollector builds a collector. rec may be nil.
func NewCollector(cfg Config, log logger.Logger, rec *metrics.Recorder) *Collector {
	return &Collector{cfg: cfg, log: log, metrics: rec, now: time.Now}
}

// Run collects every source of reg plus the community sources and returns
// the deduplicated result.
func (c *Collector) Run(ctx context.Context, reg *Registry) RunResult {
	client := NewHTTPClient(c.cfg.HTTP)
	defer client.CloseIdleConnections()

	res := c.ScrapeAllSources(ctx, c.BuildSources(reg, client))

	before := len(res.Articles)
	res.Articles = Dedupe(res.Articles)
	if dropped := before - len(res.Articles); dropped > 0 {
		c.log.Info("duplicate titles dropped",
			logger.String("run_id", res.RunID), logger.Int("dropped", dropped))
	}
	return res
}

// BuildSources wires the extractors and resolver over client and returns the
// run's tasks in order.
func (c *Collector) BuildSources(reg *Registry, client *http.Client) []Source {
	web := NewWebExtractor(client, c.cfg, c.log)
	paper := NewPaperExtractor(client, c.cfg, c.log)
	resolver := NewResolver(web, paper, c.cfg.Content, c.metrics, c.log)

	policies := reg.Policies()
	sources := make([]Source, 0, len(policies)+3)
	for _, p := range policies {
		sources = append(sources, NewFeedSource(p, client, c.cfg, resolver))
	}
	return append(sources, CommunitySources(client, c.cfg)...)
}

// taskResult is what one task hands back to the orchestrator.
type taskResult struct {
	articles []Article
	status   SourceStatus
}

// ScrapeAllSources runs every source concurrently and merges the results in
// the order of sources. It never fails; failures are recorded per source.
func (c *Collector) ScrapeAllSources(ctx context.Context, sources []Source) RunResult {
	runID := uuid.NewString()
	log := c.log.With(logger.String("run_id", runID))
	started := c.now()

	sources = uniqueSources(sources, log)
	log.Info("run started", logger.Int("sources", len(sources)), logger.Int("concurrency", c.cfg.Concurrency))

	results := make([]taskResult, len(sources))
	var g errgroup.Group
	if c.cfg.Concurrency > 0 {
		g.SetLimit(c.cfg.Concurrency)
	}
	for i, src := range sources {
		g.Go(func() error {
			results[i] = c.runTask(ctx, src, log)
			return nil
		})
	}
	_ = g.Wait() // tasks never return errors

	res := RunResult{
		RunID:     runID,
		StartedAt: started,
		Statuses:  make(map[string]SourceStatus, len(sources)),
		Order:     make([]string, 0, len(sources)),
	}
	for i, src := range sources {
		name := src.Name()
		res.Order = append(res.Order, name)
		res.Statuses[name] = results[i].status
		res.Articles = append(res.Articles, results[i].articles...)
	}
	res.FinishedAt = c.now()

	c.metrics.ObserveRun(res.StartedAt, res.FinishedAt)
	log.Info("run finished",
		logger.Int("articles", len(res.Articles)),
		logger.Duration("elapsed", res.FinishedAt.Sub(res.StartedAt)))
	return res
}

// uniqueSources drops sources whose name was already taken. Statuses are
// keyed by name, so a second task under the same name is never run.
func uniqueSources(sources []Source, log logger.Logger) []Source {
	seen := make(map[string]bool, len(sources))
	out := make([]Source, 0, len(sources))
	for _, src := range sources {
		name := src.Name()
		if seen[name] {
			log.Warn("duplicate source name, skipped", logger.String("source", name))
			continue
		}
		seen[name] = true
		out = append(out, src)
	}
	return out
}

// runTask executes one source and converts its outcome, including a panic,
// into a taskResult.
func (c *Collector) runTask(ctx context.Context, src Source, log logger.Logger) (res taskResult) {
	name := src.Name()
	log = log.With(logger.String("source", name))

	defer func() {
		if r := recover(); r != nil {
			res = failedTask(fmt.Sprintf("panic: %v", r))
			log.Error("source panicked", logger.String("panic", fmt.Sprint(r)))
		}
		c.metrics.ObserveSource(name, res.status.Status, res.status.Count)
	}()

	articles, err := src.Fetch(ctx)
	if err != nil {
		log.Warn("source failed", logger.Err(err))
		return failedTask(err.Error())
	}

	log.Info("source collected", logger.Int("articles", len(articles)))
	return taskResult{
		articles: articles,
		status:   SourceStatus{Status: StatusSuccess, Count: len(articles)},
	}
}

func failedTask(msg string) taskResult {
	return taskResult{status: SourceStatus{Status: StatusFailed, Count: 0, Error: &msg}}
}
