package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/tldr-digest/app/cache"
	"github.com/lysyi3m/tldr-digest/app/feed"
)

type RunOutcome string

const (
	RunOutcomeWritten RunOutcome = "written"
	RunOutcomeEmpty   RunOutcome = "empty"  // nothing relevant, previous digest kept
	RunOutcomeFailed  RunOutcome = "failed" // the cache write failed
)

// RunStatus describes the most recent pipeline run.
type RunStatus struct {
	AttemptedAt time.Time
	Outcome     RunOutcome
	Items       int
}

// Pipeline holds everything a digest run needs. It is shared by every
// RefreshDigestTask and by one-shot runs.
type Pipeline struct {
	sources      []feed.Source
	fetcher      *feed.Fetcher
	parser       *feed.Parser
	classifier   *feed.Classifier
	ranker       *feed.Ranker
	store        *cache.Store
	key          string
	fetchTimeout time.Duration
	now          func() time.Time

	mu      sync.RWMutex
	lastRun *RunStatus
}

var _ RunStatusInterface = (*Pipeline)(nil)

func NewPipeline(registry *feed.Registry, fetcher *feed.Fetcher, store *cache.Store, fetchTimeout time.Duration) *Pipeline {
	return &Pipeline{
		sources:      registry.SupportedSources(),
		fetcher:      fetcher,
		parser:       feed.NewParser(feed.NewSanitizer()),
		classifier:   feed.NewClassifier(registry.Policy),
		ranker:       feed.NewRanker(feed.TopN),
		store:        store,
		key:          cache.Key,
		fetchTimeout: fetchTimeout,
		now:          time.Now,
	}
}

// LastRun returns the status of the most recent run, if any has finished.
func (p *Pipeline) LastRun() (RunStatus, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.lastRun == nil {
		return RunStatus{}, false
	}
	return *p.lastRun, true
}

func (p *Pipeline) recordRun(status RunStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastRun = &status
}

func (p *Pipeline) NewTask(trigger Trigger) TaskInterface {
	return NewRefreshDigestTask(p, trigger)
}

// Run fetches every source in registry order and writes the ranked top
// items to the cache. Source failures are logged and skipped. A run that
// ends with no relevant items leaves the previous cache entry in place and
// returns a nil entry. Only a cache write failure is returned as an error.
// Every run is recorded for LastRun.
func (p *Pipeline) Run(ctx context.Context) (*cache.Entry, error) {
	status := RunStatus{AttemptedAt: p.now()}

	var pool []feed.Item

	for _, source := range p.sources {
		items, err := p.collect(ctx, source)
		if err != nil {
			slog.Warn("Source skipped",
				"source", source.Name,
				"network_error", errors.Is(err, feed.ErrNetwork),
				"parse_error", errors.Is(err, feed.ErrParse),
				"error", err)
			continue
		}
		pool = append(pool, items...)
	}

	relevant := p.classify(pool)
	top := p.ranker.Run(relevant)

	if len(top) == 0 {
		slog.Info("No relevant news found, keeping previous digest", "candidates", len(pool))
		status.Outcome = RunOutcomeEmpty
		p.recordRun(status)
		return nil, nil
	}

	entry, err := p.store.Write(ctx, p.key, top)
	if err != nil {
		status.Outcome = RunOutcomeFailed
		p.recordRun(status)
		return nil, fmt.Errorf("failed to store digest: %w", err)
	}

	status.Outcome = RunOutcomeWritten
	status.Items = len(entry.Items)
	p.recordRun(status)

	return entry, nil
}

func (p *Pipeline) collect(ctx context.Context, source feed.Source) ([]feed.Item, error) {
	if p.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.fetchTimeout)
		defer cancel()
	}

	doc, err := p.fetcher.Run(ctx, source)
	if err != nil {
		return nil, err
	}

	result, err := p.parser.Run(doc)
	if err != nil {
		return nil, err
	}

	items := result.Items
	if len(items) > feed.MaxItemsPerSource {
		items = items[:feed.MaxItemsPerSource]
	}

	slog.Debug("Source collected", "source", source.Name, "format", string(result.Format), "parsed", len(result.Items), "kept", len(items))

	return items, nil
}

func (p *Pipeline) classify(items []feed.Item) []feed.Item {
	if slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		for _, item := range items {
			if verdict := p.classifier.Explain(item); !verdict.Relevant {
				slog.Debug("Item dropped", "source", item.Source, "title", item.Title, "reason", verdict.Reason)
			}
		}
	}
	return p.classifier.Run(items)
}

type RefreshDigestTask struct {
	Task
	pipeline *Pipeline
}

func NewRefreshDigestTask(pipeline *Pipeline, trigger Trigger) *RefreshDigestTask {
	return &RefreshDigestTask{
		Task:     NewTask(TaskTypeRefreshDigest, trigger),
		pipeline: pipeline,
	}
}

func (t *RefreshDigestTask) Execute(ctx context.Context) error {
	entry, err := t.pipeline.Run(ctx)
	if err != nil {
		return err
	}

	items := 0
	if entry != nil {
		items = len(entry.Items)
	}

	slog.Info("Task completed",
		"type", "RefreshDigest",
		"trigger", string(t.Trigger),
		"duration", t.GetDuration(),
		"items", items)

	return nil
}
