package api

import (
	"sync"
	"time"

	"github.com/lysyi3m/tldr-digest/app/cache"
	"github.com/lysyi3m/tldr-digest/app/contact"
	"github.com/lysyi3m/tldr-digest/app/feed"
	"github.com/lysyi3m/tldr-digest/app/tasks"
)

type GeneratorInterface interface {
	Run(channel feed.Channel, items []feed.Item) (string, error)
}

var _ GeneratorInterface = (*feed.Generator)(nil)

type Handler struct {
	store     *cache.Store
	registry  *feed.Registry
	generator GeneratorInterface
	scheduler tasks.TaskSchedulerInterface
	runs      tasks.RunStatusInterface
	newTask   func(trigger tasks.Trigger) tasks.TaskInterface
	relay     *contact.Relay
	baseURL   string
	version   string

	revalidateMu   sync.Mutex
	lastRevalidate time.Time
	now            func() time.Time
}

type DigestItem struct {
	Title       string     `json:"title"`
	Link        string     `json:"link"`
	PublishedAt *time.Time `json:"published_at"`
	Source      string     `json:"source"`
	Description string     `json:"description"`
	Summary     string     `json:"summary"`
	Categories  string     `json:"categories,omitempty"`
}

// DigestResponse is the read model served to clients. Fallback is set when
// no digest has ever been stored or when the last run produced nothing; in
// the latter case the previous items are still attached.
type DigestResponse struct {
	Items           []DigestItem `json:"items"`
	WrittenAt       *time.Time   `json:"written_at"`
	Fresh           bool         `json:"fresh"`
	Fallback        bool         `json:"fallback"`
	LastAttemptedAt *time.Time   `json:"last_attempted_at"`
	LastOutcome     string       `json:"last_outcome,omitempty"`
}

// NewDigestResponse builds the read model for entry, which may be nil.
// lastRun is nil until a pipeline run has finished.
func NewDigestResponse(entry *cache.Entry, fresh bool, lastRun *tasks.RunStatus) DigestResponse {
	response := DigestResponse{Items: []DigestItem{}}

	if lastRun != nil {
		attemptedAt := lastRun.AttemptedAt
		response.LastAttemptedAt = &attemptedAt
		response.LastOutcome = string(lastRun.Outcome)
		response.Fallback = lastRun.Outcome != tasks.RunOutcomeWritten
	}

	if entry == nil {
		response.Fallback = true
		return response
	}

	for _, item := range entry.Items {
		response.Items = append(response.Items, newDigestItem(item))
	}
	writtenAt := entry.WrittenAt
	response.WrittenAt = &writtenAt
	response.Fresh = fresh

	return response
}

func newDigestItem(item feed.Item) DigestItem {
	digestItem := DigestItem{
		Title:       item.Title,
		Link:        item.Link,
		Source:      item.Source,
		Description: item.DescriptionClean,
		Summary:     feed.Summarize(item.DescriptionClean, feed.SummaryLength),
		Categories:  item.Categories,
	}
	if item.HasValidDate() {
		publishedAt := item.PublishedAt
		digestItem.PublishedAt = &publishedAt
	}
	return digestItem
}
