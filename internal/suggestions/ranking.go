// Package suggestions orders active automation suggestions and applies their
// dismiss/execute lifecycle.
package suggestions

import (
	"fmt"
	"sort"
	"strings"

	"github.com/benvon/moodhome/internal/models"
)

// DefaultTopN caps the summary view.
const DefaultTopN = 5

// ranks is shared by Order and OrderByClause so in-memory and SQL ordering agree.
var ranks = []struct {
	priority models.Priority
	rank     int
}{
	{models.PriorityUrgent, 4},
	{models.PriorityHigh, 3},
	{models.PriorityMedium, 2},
	{models.PriorityLow, 1},
}

// Rank maps a priority to its sort weight. Unrecognised priorities rank 0.
func Rank(p models.Priority) int {
	for _, r := range ranks {
		if r.priority == p {
			return r.rank
		}
	}
	return 0
}

// less is the display ordering: rank desc, created_at desc, id asc.
func less(a, b *models.AutomationSuggestion) bool {
	ra, rb := Rank(a.Priority), Rank(b.Priority)
	if ra != rb {
		return ra > rb
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID.String() < b.ID.String()
}

// Order returns the active suggestions from list in display order. The input
// slice is not modified.
func Order(list []*models.AutomationSuggestion) []*models.AutomationSuggestion {
	out := make([]*models.AutomationSuggestion, 0, len(list))
	for _, s := range list {
		if s.IsActive() {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// Top returns at most n suggestions from Order(list). n <= 0 means DefaultTopN.
func Top(list []*models.AutomationSuggestion, n int) []*models.AutomationSuggestion {
	if n <= 0 {
		n = DefaultTopN
	}
	ordered := Order(list)
	if len(ordered) > n {
		ordered = ordered[:n]
	}
	return ordered
}

// Headline returns the priority of the highest ranked active suggestion. Ties
// go to the first match in input order. ok is false when nothing is active.
func Headline(list []*models.AutomationSuggestion) (p models.Priority, ok bool) {
	best := -1
	for _, s := range list {
		if !s.IsActive() {
			continue
		}
		if r := Rank(s.Priority); r > best {
			best = r
			p = s.Priority
			ok = true
		}
	}
	return p, ok
}

// OrderByClause renders the display ordering as SQL for a table with
// priority, created_at and id columns. prefix is an optional table alias.
// idCollation, when set, is applied to the id key so the database compares
// ids byte by byte like less does (Postgres needs "C").
func OrderByClause(prefix, idCollation string) string {
	if prefix != "" {
		prefix += "."
	}
	var b strings.Builder
	b.WriteString("CASE ")
	b.WriteString(prefix)
	b.WriteString("priority")
	for _, r := range ranks {
		fmt.Fprintf(&b, " WHEN '%s' THEN %d", r.priority, r.rank)
	}
	fmt.Fprintf(&b, " ELSE 0 END DESC, %screated_at DESC, %sid", prefix, prefix)
	if idCollation != "" {
		fmt.Fprintf(&b, " COLLATE %q", idCollation)
	}
	b.WriteString(" ASC")
	return b.String()
}

// Summary is the compact view shown on the home screen.
type Summary struct {
	Headline    *models.Priority               `json:"headline,omitempty"`
	ActiveCount int                            `json:"active_count"`
	Top         []*models.AutomationSuggestion `json:"top"`
}

// Summarize builds a Summary over list capped at n entries.
func Summarize(list []*models.AutomationSuggestion, n int) *Summary {
	ordered := Order(list)
	s := &Summary{ActiveCount: len(ordered), Top: Top(ordered, n)}
	if p, ok := Headline(ordered); ok {
		s.Headline = &p
	}
	return s
}
