package bridge

import (
	"path"
	"strings"

	"github.com/nerrad567/gray-logic-matterhub/internal/infrastructure/config"
)

// Filter decides which entities are bridged.
//
// Exclusions always win. With no include rule every entity not excluded
// passes; otherwise an entity must match an included domain or pattern.
// Patterns use path.Match syntax against the full entity ID.
type Filter struct {
	includeDomains  map[string]bool
	excludeDomains  map[string]bool
	includePatterns []string
	excludePatterns []string
}

// NewFilter builds a Filter from config. Patterns are assumed valid;
// config.Validate rejects malformed ones.
func NewFilter(cfg config.FilterConfig) *Filter {
	return &Filter{
		includeDomains:  toSet(cfg.IncludeDomains),
		excludeDomains:  toSet(cfg.ExcludeDomains),
		includePatterns: cfg.IncludePatterns,
		excludePatterns: cfg.ExcludePatterns,
	}
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[strings.ToLower(strings.TrimSpace(v))] = true
	}
	return set
}

// Allow reports whether entityID should be bridged.
func (f *Filter) Allow(entityID string) bool {
	domain, _, _ := strings.Cut(entityID, ".")

	if f.excludeDomains[domain] || matchAny(f.excludePatterns, entityID) {
		return false
	}
	if len(f.includeDomains) == 0 && len(f.includePatterns) == 0 {
		return true
	}
	return f.includeDomains[domain] || matchAny(f.includePatterns, entityID)
}

func matchAny(patterns []string, entityID string) bool {
	for _, p := range patterns {
		if ok, _ := path.Match(p, entityID); ok { //nolint:errcheck // Patterns validated at config load
			return true
		}
	}
	return false
}
