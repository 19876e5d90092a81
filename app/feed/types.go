package feed

import (
	"time"
)

// Source is one entry of the compiled-in registry. An empty FeedURL marks
// the source as unsupported; it is listed but never fetched.
type Source struct {
	Name    string `yaml:"name"`
	HomeURL string `yaml:"home"`
	FeedURL string `yaml:"rss"`
}

func (s Source) Supported() bool {
	return s.FeedURL != ""
}

type Document struct {
	Source string
	Body   []byte
}

type Item struct {
	Title            string    `json:"title"`
	Link             string    `json:"link"`
	PublishedAt      time.Time `json:"published_at"` // zero value marks an unparseable date
	Source           string    `json:"source"`
	DescriptionRaw   string    `json:"description_raw"`
	DescriptionClean string    `json:"description"`
	Categories       string    `json:"categories"` // CategoryTerms joined by spaces
	CategoryTerms    []string  `json:"category_terms,omitempty"`
}

func (i Item) HasValidDate() bool {
	return !i.PublishedAt.IsZero()
}

type Format string

const (
	FormatNone Format = "none"
	FormatRSS  Format = "rss"
	FormatAtom Format = "atom"
)

// ParseResult tags the wire format that produced Items.
type ParseResult struct {
	Format Format
	Items  []Item
}

// Policy configuration types

type Policy struct {
	Allow []string `yaml:"allow"`
	Deny  []string `yaml:"deny"`
}

type Registry struct {
	Sources []Source `yaml:"sources"`
	Policy  Policy   `yaml:"policy"`
}

// sortKey maps the invalid date sentinel onto the Unix epoch, the oldest
// timestamp the ranking considers.
func (i Item) sortKey() time.Time {
	if !i.HasValidDate() {
		return time.Unix(0, 0)
	}
	return i.PublishedAt
}
