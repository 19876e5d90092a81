package feed

import (
	_ "embed"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed sources.yml
var defaultRegistry []byte

// LoadRegistry parses the registry compiled into the binary.
func LoadRegistry() (*Registry, error) {
	return ParseRegistry(defaultRegistry)
}

func ParseRegistry(data []byte) (*Registry, error) {
	var registry Registry
	if err := yaml.Unmarshal(data, &registry); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	registry.Policy.Allow = normalizeKeywords(registry.Policy.Allow)
	registry.Policy.Deny = normalizeKeywords(registry.Policy.Deny)

	if err := registry.validate(); err != nil {
		return nil, fmt.Errorf("invalid registry: %w", err)
	}

	for _, source := range registry.Sources {
		slog.Debug("Source registered", "source", source.Name, "supported", source.Supported())
	}

	return &registry, nil
}

// SupportedSources returns the sources with a feed URL, in registry order.
func (r *Registry) SupportedSources() []Source {
	sources := make([]Source, 0, len(r.Sources))
	for _, source := range r.Sources {
		if source.Supported() {
			sources = append(sources, source)
		}
	}
	return sources
}

func (r *Registry) validate() error {
	names := make(map[string]bool, len(r.Sources))

	for i, source := range r.Sources {
		if source.Name == "" {
			return fmt.Errorf("source at index %d: name is required", i)
		}
		if names[source.Name] {
			return fmt.Errorf("duplicate source name: %s", source.Name)
		}
		names[source.Name] = true

		requiredURLs := map[string]string{
			"home URL": source.HomeURL,
			"feed URL": source.FeedURL,
		}

		for fieldName, fieldValue := range requiredURLs {
			if fieldValue == "" {
				continue
			}
			u, err := url.Parse(fieldValue)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
				return fmt.Errorf("source %s: invalid %s %q", source.Name, fieldName, fieldValue)
			}
		}
	}

	if len(r.Policy.Allow) == 0 {
		return fmt.Errorf("policy must have at least one allow keyword")
	}

	return nil
}

// normalizeKeywords lowercases keywords and drops blanks. Surrounding
// spaces are significant ("ml ") and are kept.
func normalizeKeywords(keywords []string) []string {
	normalized := make([]string, 0, len(keywords))
	for _, keyword := range keywords {
		if strings.TrimSpace(keyword) == "" {
			continue
		}
		normalized = append(normalized, strings.ToLower(keyword))
	}
	return normalized
}
