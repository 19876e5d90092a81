package feed

import (
	"errors"
	"testing"
	"time"
)

func TestParseRSS2(t *testing.T) {
	rssData := `<?xml version="1.0"?>
<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/">
  <channel>
    <title>Test Feed</title>
    <link>https://example.com</link>
    <description>Test Description</description>
    <item>
      <title>  Test Item 1  </title>
      <link>https://example.com/item1</link>
      <description><![CDATA[<p>New <b>ransomware</b> strain</p><script>alert(1)</script>]]></description>
      <pubDate>Mon, 03 Jul 2023 10:00:00 GMT</pubDate>
      <category>Security</category>
      <category>Malware</category>
    </item>
    <item>
      <title>Test Item 2</title>
      <link>https://example.com/item2</link>
      <content:encoded><![CDATA[<div>Encoded body</div>]]></content:encoded>
      <pubDate>Mon, 03 Jul 2023 11:00:00 GMT</pubDate>
    </item>
  </channel>
</rss>`

	parser := NewParser(nil)
	result, err := parser.Run(Document{Source: "Example", Body: []byte(rssData)})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if result.Format != FormatRSS {
		t.Errorf("Expected format %s, got: %s", FormatRSS, result.Format)
	}
	if len(result.Items) != 2 {
		t.Fatalf("Expected 2 items, got: %d", len(result.Items))
	}

	item1 := result.Items[0]
	if item1.Title != "Test Item 1" {
		t.Errorf("Expected title 'Test Item 1', got: %q", item1.Title)
	}
	if item1.Link != "https://example.com/item1" {
		t.Errorf("Expected link 'https://example.com/item1', got: %s", item1.Link)
	}
	if item1.Source != "Example" {
		t.Errorf("Expected source 'Example', got: %s", item1.Source)
	}
	if item1.Categories != "Security Malware" {
		t.Errorf("Expected categories 'Security Malware', got: %q", item1.Categories)
	}
	if item1.DescriptionClean != "New ransomware strain" {
		t.Errorf("Expected clean description 'New ransomware strain', got: %q", item1.DescriptionClean)
	}
	expected := time.Date(2023, 7, 3, 10, 0, 0, 0, time.UTC)
	if !item1.PublishedAt.Equal(expected) {
		t.Errorf("Expected published date %v, got: %v", expected, item1.PublishedAt)
	}

	item2 := result.Items[1]
	if item2.DescriptionClean != "Encoded body" {
		t.Errorf("Expected description from content:encoded, got: %q", item2.DescriptionClean)
	}
}

func TestParseRSSUpdatedFallback(t *testing.T) {
	rssData := `<?xml version="1.0"?>
<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">
  <channel>
    <title>Test Feed</title>
    <item>
      <title>Updated only</title>
      <link>https://example.com/updated</link>
      <atom:updated>2023-07-03T12:00:00Z</atom:updated>
    </item>
  </channel>
</rss>`

	result, err := NewParser(nil).Run(Document{Source: "Example", Body: []byte(rssData)})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(result.Items) != 1 {
		t.Fatalf("Expected 1 item, got: %d", len(result.Items))
	}

	expected := time.Date(2023, 7, 3, 12, 0, 0, 0, time.UTC)
	if !result.Items[0].PublishedAt.Equal(expected) {
		t.Errorf("Expected published date %v, got: %v", expected, result.Items[0].PublishedAt)
	}
}

func TestParseAtom(t *testing.T) {
	atomData := `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Test Atom Feed</title>
  <link href="https://example.com"/>
  <updated>2023-07-03T12:00:00Z</updated>
  <id>urn:uuid:1234567890</id>
  <entry>
    <title>Test Entry</title>
    <link rel="alternate" href="https://example.com/entry1"/>
    <id>urn:uuid:entry-1</id>
    <updated>2023-07-03T10:00:00Z</updated>
    <published>2023-07-01T10:00:00Z</published>
    <summary type="html">&lt;p&gt;Entry summary&lt;/p&gt;</summary>
    <category term="ai"/>
    <category term="research"/>
  </entry>
  <entry>
    <title>Content only</title>
    <link href="https://example.com/entry2"/>
    <id>urn:uuid:entry-2</id>
    <published>2023-07-02T10:00:00Z</published>
    <content type="html">&lt;div&gt;Entry content&lt;/div&gt;</content>
  </entry>
</feed>`

	result, err := NewParser(nil).Run(Document{Source: "Atom", Body: []byte(atomData)})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if result.Format != FormatAtom {
		t.Errorf("Expected format %s, got: %s", FormatAtom, result.Format)
	}
	if len(result.Items) != 2 {
		t.Fatalf("Expected 2 items, got: %d", len(result.Items))
	}

	entry := result.Items[0]
	if entry.Link != "https://example.com/entry1" {
		t.Errorf("Expected link from href attribute, got: %s", entry.Link)
	}
	if entry.DescriptionClean != "Entry summary" {
		t.Errorf("Expected description 'Entry summary', got: %q", entry.DescriptionClean)
	}
	if entry.Categories != "ai research" {
		t.Errorf("Expected categories 'ai research', got: %q", entry.Categories)
	}
	expected := time.Date(2023, 7, 3, 10, 0, 0, 0, time.UTC)
	if !entry.PublishedAt.Equal(expected) {
		t.Errorf("Expected updated date %v to win, got: %v", expected, entry.PublishedAt)
	}

	second := result.Items[1]
	if second.DescriptionClean != "Entry content" {
		t.Errorf("Expected description from content, got: %q", second.DescriptionClean)
	}
	expected = time.Date(2023, 7, 2, 10, 0, 0, 0, time.UTC)
	if !second.PublishedAt.Equal(expected) {
		t.Errorf("Expected published date %v, got: %v", expected, second.PublishedAt)
	}
}

func TestParseAtomCategoryText(t *testing.T) {
	atomData := `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Category Feed</title>
  <id>urn:feed</id>
  <updated>2023-07-03T12:00:00Z</updated>
  <entry>
    <title>Weekly roundup</title>
    <link href="https://example.com/roundup"/>
    <id>urn:entry-1</id>
    <updated>2023-07-03T10:00:00Z</updated>
    <category>Security</category>
    <category term="cloud">ignored text</category>
    <category scheme="x" label="Zero day"/>
  </entry>
  <entry>
    <title>No categories</title>
    <link href="https://example.com/plain"/>
    <id>urn:entry-2</id>
    <updated>2023-07-02T10:00:00Z</updated>
  </entry>
</feed>`

	result, err := NewParser(nil).Run(Document{Source: "Atom", Body: []byte(atomData)})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if result.Format != FormatAtom {
		t.Fatalf("Expected format %s, got: %s", FormatAtom, result.Format)
	}
	if len(result.Items) != 2 {
		t.Fatalf("Expected 2 items, got: %d", len(result.Items))
	}

	entry := result.Items[0]
	if entry.Categories != "Security cloud Zero day" {
		t.Errorf("Expected categories 'Security cloud Zero day', got: %q", entry.Categories)
	}
	expected := []string{"Security", "cloud", "Zero day"}
	if len(entry.CategoryTerms) != len(expected) {
		t.Fatalf("Expected terms %v, got: %v", expected, entry.CategoryTerms)
	}
	for i, term := range expected {
		if entry.CategoryTerms[i] != term {
			t.Errorf("Expected term %d to be %q, got: %q", i, term, entry.CategoryTerms[i])
		}
	}

	if result.Items[1].Categories != "" || len(result.Items[1].CategoryTerms) != 0 {
		t.Errorf("Expected no categories, got: %q", result.Items[1].Categories)
	}

	if !NewClassifier(Policy{Allow: []string{"security"}}).Explain(entry).Relevant {
		t.Error("Expected category text to reach the classifier")
	}
}

func TestParseDropsItemsWithoutTitleOrLink(t *testing.T) {
	rssData := `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Test Feed</title>
    <item>
      <title>Complete</title>
      <link>https://example.com/complete</link>
    </item>
    <item>
      <title>No link</title>
    </item>
    <item>
      <link>https://example.com/no-title</link>
    </item>
    <item>
      <title>   </title>
      <link>https://example.com/blank-title</link>
    </item>
  </channel>
</rss>`

	result, err := NewParser(nil).Run(Document{Source: "Example", Body: []byte(rssData)})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(result.Items) != 1 {
		t.Fatalf("Expected 1 item, got: %d", len(result.Items))
	}
	for _, item := range result.Items {
		if item.Title == "" || item.Link == "" {
			t.Errorf("Expected title and link to be non-empty, got: %+v", item)
		}
	}
}

func TestParseInvalidDateYieldsSentinel(t *testing.T) {
	rssData := `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Test Feed</title>
    <item>
      <title>Bad date</title>
      <link>https://example.com/bad-date</link>
      <pubDate>not a date at all</pubDate>
    </item>
  </channel>
</rss>`

	result, err := NewParser(nil).Run(Document{Source: "Example", Body: []byte(rssData)})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(result.Items) != 1 {
		t.Fatalf("Expected 1 item, got: %d", len(result.Items))
	}
	if result.Items[0].HasValidDate() {
		t.Errorf("Expected invalid date sentinel, got: %v", result.Items[0].PublishedAt)
	}
}

func TestParseMalformedXML(t *testing.T) {
	result, err := NewParser(nil).Run(Document{Source: "Broken", Body: []byte("<rss><channel><item><title>oops")})

	if !errors.Is(err, ErrParse) {
		t.Errorf("Expected ErrParse, got: %v", err)
	}
	if result.Format != FormatNone {
		t.Errorf("Expected format %s, got: %s", FormatNone, result.Format)
	}
	if len(result.Items) != 0 {
		t.Errorf("Expected 0 items, got: %d", len(result.Items))
	}
}

func TestParseNotAFeed(t *testing.T) {
	result, err := NewParser(nil).Run(Document{Source: "HTML", Body: []byte("<html><body>hello</body></html>")})

	if !errors.Is(err, ErrParse) {
		t.Errorf("Expected ErrParse, got: %v", err)
	}
	if len(result.Items) != 0 {
		t.Errorf("Expected 0 items, got: %d", len(result.Items))
	}
}
