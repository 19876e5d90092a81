package feed

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/mmcdole/gofeed/atom"
	ext "github.com/mmcdole/gofeed/extensions"
	"github.com/mmcdole/gofeed/rss"
	"golang.org/x/net/html/charset"
)

// MaxItemsPerSource bounds how many items one source contributes to the
// merged pool.
const MaxItemsPerSource = 5

type Parser struct {
	rssParser  *rss.Parser
	atomParser *atom.Parser
	sanitizer  *Sanitizer
}

func NewParser(sanitizer *Sanitizer) *Parser {
	if sanitizer == nil {
		sanitizer = NewSanitizer()
	}
	return &Parser{
		rssParser:  &rss.Parser{},
		atomParser: &atom.Parser{},
		sanitizer:  sanitizer,
	}
}

// Run extracts items from a feed document. RSS items are tried first; Atom
// entries are only consulted when RSS produced nothing. A document that is
// neither yields FormatNone and an ErrParse-wrapped error.
func (p *Parser) Run(doc Document) (ParseResult, error) {
	rssItems, rssErr := p.parseRSS(doc)
	if len(rssItems) > 0 {
		return ParseResult{Format: FormatRSS, Items: rssItems}, nil
	}

	atomItems, atomErr := p.parseAtom(doc)
	if len(atomItems) > 0 {
		return ParseResult{Format: FormatAtom, Items: atomItems}, nil
	}

	if rssErr != nil && atomErr != nil {
		return ParseResult{Format: FormatNone}, fmt.Errorf("%w: %s: rss: %v; atom: %v", ErrParse, doc.Source, rssErr, atomErr)
	}

	return ParseResult{Format: FormatNone}, nil
}

func (p *Parser) parseRSS(doc Document) ([]Item, error) {
	feed, err := p.rssParser.Parse(bytes.NewReader(doc.Body))
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(feed.Items))
	for _, entry := range feed.Items {
		if entry == nil {
			continue
		}

		item := Item{
			Title:          strings.TrimSpace(entry.Title),
			Link:           strings.TrimSpace(entry.Link),
			Source:         doc.Source,
			DescriptionRaw: firstNonEmpty(entry.Description, entry.Content),
			PublishedAt:    rssPublishedAt(entry),
		}

		terms := make([]string, 0, len(entry.Categories))
		for _, category := range entry.Categories {
			if category != nil {
				terms = append(terms, category.Value)
			}
		}
		item.setCategories(terms)

		if normalized, ok := p.normalizeItem(item); ok {
			items = append(items, normalized)
		}
	}

	return items, nil
}

func (p *Parser) parseAtom(doc Document) ([]Item, error) {
	feed, err := p.atomParser.Parse(bytes.NewReader(doc.Body))
	if err != nil {
		return nil, err
	}

	texts := atomCategoryTexts(doc.Body)
	if len(texts) != len(feed.Entries) {
		texts = nil
	}

	items := make([]Item, 0, len(feed.Entries))
	for i, entry := range feed.Entries {
		if entry == nil {
			continue
		}

		item := Item{
			Title:       strings.TrimSpace(entry.Title),
			Link:        strings.TrimSpace(atomLink(entry.Links)),
			Source:      doc.Source,
			PublishedAt: atomPublishedAt(entry),
		}

		item.DescriptionRaw = entry.Summary
		if item.DescriptionRaw == "" && entry.Content != nil {
			item.DescriptionRaw = entry.Content.Value
		}

		var entryTexts []string
		if texts != nil && len(texts[i]) == len(entry.Categories) {
			entryTexts = texts[i]
		}

		terms := make([]string, 0, len(entry.Categories))
		for j, category := range entry.Categories {
			if category == nil {
				continue
			}
			term := category.Term
			if term == "" && entryTexts != nil {
				term = entryTexts[j]
			}
			terms = append(terms, firstNonEmpty(term, category.Label))
		}
		item.setCategories(terms)

		if normalized, ok := p.normalizeItem(item); ok {
			items = append(items, normalized)
		}
	}

	return items, nil
}

// normalizeItem drops items without a title or link and fills the
// sanitized description.
func (p *Parser) normalizeItem(item Item) (Item, bool) {
	if item.Title == "" || item.Link == "" {
		return Item{}, false
	}
	item.DescriptionClean = p.sanitizer.Run(item.DescriptionRaw)
	return item, true
}

func rssPublishedAt(entry *rss.Item) time.Time {
	if entry.PubDateParsed != nil {
		return *entry.PubDateParsed
	}
	if entry.PubDate != "" {
		return parseDate(entry.PubDate)
	}
	if updated := extensionValue(entry.Extensions, "updated"); updated != "" {
		return parseDate(updated)
	}
	if entry.DublinCoreExt != nil && len(entry.DublinCoreExt.Date) > 0 {
		return parseDate(entry.DublinCoreExt.Date[0])
	}
	return time.Time{}
}

func atomPublishedAt(entry *atom.Entry) time.Time {
	switch {
	case entry.UpdatedParsed != nil:
		return *entry.UpdatedParsed
	case entry.Updated != "":
		return parseDate(entry.Updated)
	case entry.PublishedParsed != nil:
		return *entry.PublishedParsed
	case entry.Published != "":
		return parseDate(entry.Published)
	}
	return time.Time{}
}

// atomLink prefers the alternate link and falls back to the first href.
func atomLink(links []*atom.Link) string {
	first := ""
	for _, link := range links {
		if link == nil || link.Href == "" {
			continue
		}
		if link.Rel == "" || link.Rel == "alternate" {
			return link.Href
		}
		if first == "" {
			first = link.Href
		}
	}
	return first
}

// extensionValue looks up an element by name across all extension
// namespaces (e.g. atom:updated inside an RSS item).
func extensionValue(extensions ext.Extensions, name string) string {
	for _, elements := range extensions {
		for _, extension := range elements[name] {
			if value := strings.TrimSpace(extension.Value); value != "" {
				return value
			}
		}
	}
	return ""
}

// parseDate returns the zero time for anything it cannot understand.
func parseDate(value string) time.Time {
	parsed, err := dateparse.ParseAny(strings.TrimSpace(value))
	if err != nil {
		return time.Time{}
	}
	return parsed
}

// atomCategoryFeed captures the character data of Atom category elements,
// which gofeed only exposes through the term and label attributes.
type atomCategoryFeed struct {
	Entries []struct {
		Categories []struct {
			Text string `xml:",chardata"`
		} `xml:"category"`
	} `xml:"entry"`
}

// atomCategoryTexts returns the category text of every entry in document
// order, or nil when the body cannot be decoded.
func atomCategoryTexts(body []byte) [][]string {
	decoder := xml.NewDecoder(bytes.NewReader(body))
	decoder.Strict = false
	decoder.CharsetReader = charset.NewReaderLabel

	var doc atomCategoryFeed
	if err := decoder.Decode(&doc); err != nil {
		return nil
	}

	texts := make([][]string, len(doc.Entries))
	for i, entry := range doc.Entries {
		texts[i] = make([]string, len(entry.Categories))
		for j, category := range entry.Categories {
			texts[i][j] = strings.TrimSpace(category.Text)
		}
	}
	return texts
}

func (i *Item) setCategories(terms []string) {
	var nonEmpty []string
	for _, term := range terms {
		if term = strings.TrimSpace(term); term != "" {
			nonEmpty = append(nonEmpty, term)
		}
	}
	i.CategoryTerms = nonEmpty
	i.Categories = strings.Join(nonEmpty, " ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
