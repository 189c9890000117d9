// Package replace finds, and optionally replaces, text across every node of a flow.
package replace

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/aretw0/flowgraph/pkg/domain"
)

// Sanitizer cleans an HTML fragment. *bluemonday.Policy satisfies it.
type Sanitizer interface {
	Sanitize(s string) string
}

// richTextKeys are data keys whose values are edited as HTML. A leaf is
// classified by its key alone so a replacement cannot change how the same
// field is treated on a later pass.
var richTextKeys = map[string]bool{
	"content":     true,
	"description": true,
	"info":        true,
	"policyRef":   true,
	"howMeasured": true,
	"notes":       true,
}

// Result is the outcome of a search.
type Result struct {
	Message string `json:"message"`
	// Matches holds, per node id, the matched data paths and their value
	// before replacement. It is nil when nothing matched.
	Matches map[string]map[string]any `json:"matches"`
	// UpdatedFlow is only set when a replacement was applied.
	UpdatedFlow domain.Graph `json:"updatedFlow,omitempty"`
}

// Option configures Find.
type Option func(*config)

type config struct {
	sanitizer Sanitizer
}

// WithSanitizer overrides the HTML sanitiser applied to rich text replacements.
func WithSanitizer(s Sanitizer) Option {
	return func(c *config) {
		c.sanitizer = s
	}
}

// DefaultSanitizer returns the policy used when none is configured.
// It keeps user generated content markup and drops scripts, event handlers
// and unknown attributes.
func DefaultSanitizer() Sanitizer {
	return bluemonday.UGCPolicy()
}

// Find searches every string leaf of every node's data for search.
// When replacement is nil the graph is only searched. The input graph is
// never mutated.
func Find(graph domain.Graph, search string, replacement *string, opts ...Option) (*Result, error) {
	if search == "" {
		return nil, domain.ErrEmptySearch
	}
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.sanitizer == nil {
		cfg.sanitizer = DefaultSanitizer()
	}

	w := &walker{search: search, replacement: replacement}
	if replacement != nil {
		w.sanitized = cfg.sanitizer.Sanitize(*replacement)
	}

	var matches map[string]map[string]any
	updated := make(domain.Graph, len(graph))
	for _, id := range graph.IDs() {
		n := graph[id].Clone()
		n.ID = id

		found := make(map[string]any)
		if n.Data != nil {
			n.Data = w.object("", n.Data, found)
		}
		if w.err != nil {
			return nil, fmt.Errorf("node %s: %w", id, w.err)
		}
		if len(found) > 0 {
			if matches == nil {
				matches = make(map[string]map[string]any)
			}
			matches[id] = found
		}
		updated[id] = n
	}

	if matches == nil {
		return &Result{Message: fmt.Sprintf(`Didn't find "%s" in this flow, nothing to replace`, search)}, nil
	}
	if replacement == nil {
		return &Result{
			Message: fmt.Sprintf(`Found %d matches of "%s" in this flow`, len(matches), search),
			Matches: matches,
		}, nil
	}
	return &Result{
		Message:     fmt.Sprintf(`Found %d matches of "%s" and replaced with "%s"`, len(matches), search, *replacement),
		Matches:     matches,
		UpdatedFlow: updated,
	}, nil
}

type walker struct {
	search      string
	replacement *string
	sanitized   string
	err         error
}

func (w *walker) object(prefix string, m map[string]any, found map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = w.value(join(prefix, k), k, v, found)
	}
	return out
}

// value returns v with replacements applied. key is the nearest object key
// above v and decides whether a string leaf is rich text.
func (w *walker) value(path, key string, v any, found map[string]any) any {
	switch t := v.(type) {
	case map[string]any:
		return w.object(path, t, found)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = w.value(join(path, strconv.Itoa(i)), key, item, found)
		}
		return out
	case []string:
		return w.value(path, key, domain.CloneValue(t), found)
	case string:
		return w.leaf(path, key, t, found)
	default:
		return t
	}
}

func (w *walker) leaf(path, key, s string, found map[string]any) string {
	if !strings.Contains(s, w.search) {
		return s
	}
	found[path] = s
	if w.replacement == nil {
		return s
	}

	rep := *w.replacement
	if IsRichText(key) {
		if w.sanitized == "" && strings.TrimSpace(rep) != "" {
			w.err = domain.ErrUnsanitisableReplacement
			return s
		}
		rep = w.sanitized
	}
	return strings.ReplaceAll(s, w.search, rep)
}

// IsRichText reports whether values under the data key key are edited as HTML.
func IsRichText(key string) bool {
	return richTextKeys[key]
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
