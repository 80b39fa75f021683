// Package analytics aggregates a window of recent check-ins into sentiment
// counts, per-emotion frequencies and a top emotion.
package analytics

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	apperrors "github.com/benvon/moodhome/internal/errors"
	"github.com/benvon/moodhome/internal/models"
)

// DefaultWindow is the number of most recent check-ins analysed when no
// window is configured.
const DefaultWindow = 100

// TopEmotion is the most frequent emotion in a window.
type TopEmotion struct {
	Emotion string `json:"emotion"`
	Glyph   string `json:"glyph"`
	Message string `json:"message"`
}

// Summary is the result of analysing a window of check-ins.
type Summary struct {
	Sentiment   map[Sentiment]int `json:"sentiment"`
	Frequencies map[string]int    `json:"frequencies"`
	TopEmotion  TopEmotion        `json:"top_emotion"`
	Window      int               `json:"window"`
	CheckIns    int               `json:"check_ins"`
	Occurrences int               `json:"occurrences"`
	Rejected    []error           `json:"-"`
}

// Err joins every rejected record into one error, or returns nil.
func (s *Summary) Err() error {
	return errors.Join(s.Rejected...)
}

// Empty reports whether no emotion was counted.
func (s *Summary) Empty() bool {
	return s.Occurrences == 0
}

// Engine computes mood summaries. The zero value uses DefaultWindow.
type Engine struct {
	Window int
}

// NewEngine returns an Engine analysing the most recent window check-ins.
func NewEngine(window int) *Engine {
	return &Engine{Window: window}
}

func (e *Engine) window() int {
	if e == nil || e.Window <= 0 {
		return DefaultWindow
	}
	return e.Window
}

// Analyze summarises the most recent check-ins. The input order does not
// matter; it is re-ordered by creation instant. Malformed records are skipped
// and reported in Summary.Rejected, never aborting the aggregation.
func (e *Engine) Analyze(checkIns []*models.CheckIn) *Summary {
	window := e.window()
	summary := &Summary{
		Sentiment:   map[Sentiment]int{Positive: 0, Neutral: 0, Negative: 0},
		Frequencies: map[string]int{},
		Window:      window,
	}

	recent := make([]*models.CheckIn, 0, len(checkIns))
	for i, c := range checkIns {
		if c == nil {
			summary.Rejected = append(summary.Rejected, apperrors.NewInvalidInput(
				"check-in is nil", map[string]any{"index": i}))
			continue
		}
		recent = append(recent, c)
	}
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].CreatedAt.After(recent[j].CreatedAt)
	})
	if len(recent) > window {
		recent = recent[:window]
	}
	summary.CheckIns = len(recent)

	// Walk oldest to newest so first-seen order drives the tie-break.
	var order []string
	for i := len(recent) - 1; i >= 0; i-- {
		c := recent[i]
		for pos, label := range c.Emotions {
			if strings.TrimSpace(label) == "" {
				summary.Rejected = append(summary.Rejected, apperrors.NewInvalidInput(
					fmt.Sprintf("check-in %s has a blank emotion label", c.ID),
					map[string]any{"check_in_id": c.ID.String(), "position": pos}))
				continue
			}
			if _, seen := summary.Frequencies[label]; !seen {
				order = append(order, label)
			}
			summary.Frequencies[label]++
			summary.Sentiment[Classify(label)]++
			summary.Occurrences++
		}
	}

	summary.TopEmotion = topEmotion(order, summary.Frequencies)
	return summary
}

// topEmotion picks the highest count; ties go to the label seen first.
func topEmotion(order []string, freq map[string]int) TopEmotion {
	if len(order) == 0 {
		return TopEmotion{
			Emotion: DefaultEmotion,
			Glyph:   Glyph(DefaultEmotion),
			Message: emptyMessage,
		}
	}
	best := order[0]
	for _, label := range order[1:] {
		if freq[label] > freq[best] {
			best = label
		}
	}
	return TopEmotion{
		Emotion: best,
		Glyph:   Glyph(best),
		Message: Message(best),
	}
}
