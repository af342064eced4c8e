// Package correlate resolves a notification of uncertain shape to a
// canonical reference for the domain object it describes. Producers are
// not consistent about which field carries the reference, so resolution is
// a two-tier strategy: an ordered structured-field lookup first, then
// pattern extraction from the free text. Absence at every tier is a
// handled outcome, never an error.
package correlate

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/farmbridge/notify/internal/logging"
	"github.com/farmbridge/notify/internal/notification"
)

// State tags the resolution outcome.
type State string

const (
	// StateResolved means a canonical reference was found
	StateResolved State = "resolved"
	// StateUnresolved means no reference could be derived; SearchTerms
	// carry the fallback for a downstream fuzzy match
	StateUnresolved State = "unresolved"
)

// Result is the resolution outcome handed to the navigation consumer.
type Result struct {
	State State
	// Ref is the canonical domain object reference when resolved
	Ref string
	// SearchTerms holds significant words from the notification text when
	// unresolved, for a best-effort fuzzy match downstream
	SearchTerms []string
}

// refFieldNames is the ordered priority list of structured fields that may
// carry the domain object reference. First non-empty value wins.
var refFieldNames = []string{"alertId", "relatedId", "id", "notificationId"}

// refPattern extracts a digit run optionally introduced by a label:
// "Alert ID: 42", "id 7", "#77". The word labels require a boundary so
// an "id" buried inside another word ("paid") does not match.
var refPattern = regexp.MustCompile(`(?i)(?:\b(?:alert\s*id|id)|#)\s*[:\-]?\s*(\d+)`)

// stopWords are common tokens excluded from fallback search terms.
var stopWords = map[string]struct{}{
	"this": {}, "that": {}, "with": {}, "from": {}, "your": {},
	"have": {}, "been": {}, "detected": {}, "alert": {}, "notification": {},
	"please": {}, "near": {}, "area": {},
}

// Resolver memoizes resolutions per notification id. Correlation is
// derived state, computed on demand and never persisted client-side.
type Resolver struct {
	cache  *gocache.Cache
	logger *slog.Logger
}

// NewResolver creates a resolver with a short-lived memoization cache.
func NewResolver() *Resolver {
	return &Resolver{
		cache:  gocache.New(15*time.Minute, 30*time.Minute),
		logger: logging.ForService("correlate"),
	}
}

// Resolve derives the canonical reference for a notification. The result
// is total: every input yields either a reference or a usable set of
// search terms.
func (r *Resolver) Resolve(n *notification.Notification) Result {
	if n == nil {
		return Result{State: StateUnresolved}
	}

	if n.ID != "" {
		if cached, ok := r.cache.Get(n.ID); ok {
			return cached.(Result)
		}
	}

	result := resolve(n)

	if n.ID != "" {
		r.cache.SetDefault(n.ID, result)
	}

	if result.State == StateUnresolved {
		r.logger.Debug("notification correlation unresolved",
			"notification_id", n.ID,
			"search_terms", result.SearchTerms)
	}

	return result
}

func resolve(n *notification.Notification) Result {
	// Tier 1: structured fields in priority order
	for _, field := range refFieldNames {
		if ref := fieldValue(n.Fields, field); ref != "" {
			return Result{State: StateResolved, Ref: ref}
		}
	}

	// Tier 2: pattern extraction, title before message
	for _, text := range []string{n.Title, n.Message} {
		if match := refPattern.FindStringSubmatch(text); match != nil {
			return Result{State: StateResolved, Ref: match[1]}
		}
	}

	// Exhaustion: hand back search terms for a downstream fuzzy match
	return Result{
		State:       StateUnresolved,
		SearchTerms: searchTerms(n.Title, n.Message),
	}
}

// fieldValue renders a raw field as a reference string. Numeric values
// arrive as float64 from JSON decoding.
func fieldValue(fields map[string]any, key string) string {
	switch v := fields[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

// searchTerms extracts significant words from the notification text:
// tokens longer than three characters that are not stop words,
// deduplicated, in order of first appearance.
func searchTerms(title, message string) []string {
	seen := make(map[string]struct{})
	var terms []string

	for _, text := range []string{title, message} {
		for _, token := range strings.Fields(text) {
			word := strings.ToLower(strings.Trim(token, ".,:;!?#()[]\"'"))
			if len(word) <= 3 {
				continue
			}
			if _, stop := stopWords[word]; stop {
				continue
			}
			if _, dup := seen[word]; dup {
				continue
			}
			seen[word] = struct{}{}
			terms = append(terms, word)
		}
	}

	return terms
}
