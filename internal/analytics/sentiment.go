package analytics

// Sentiment is one of the three buckets every emotion label falls into.
type Sentiment string

const (
	Positive Sentiment = "Positive"
	Neutral  Sentiment = "Neutral"
	Negative Sentiment = "Negative"
)

// Sentiments lists the buckets in display order.
var Sentiments = []Sentiment{Positive, Neutral, Negative}

var (
	positiveEmotions = map[string]struct{}{
		"Great":     {},
		"Happy":     {},
		"Calm":      {},
		"Confident": {},
		"Loved":     {},
	}
	negativeEmotions = map[string]struct{}{
		"Upset":   {},
		"Sad":     {},
		"Angry":   {},
		"Anxious": {},
	}
)

// Classify buckets a single emotion label. Matching is exact and case-sensitive:
// "happy" is not "Happy" and lands in Neutral.
func Classify(label string) Sentiment {
	if _, ok := positiveEmotions[label]; ok {
		return Positive
	}
	if _, ok := negativeEmotions[label]; ok {
		return Negative
	}
	return Neutral
}

const (
	// DefaultEmotion is reported as the top emotion when there is nothing to count.
	DefaultEmotion = "Happy"
	// FallbackGlyph is used for a top emotion without a known glyph.
	FallbackGlyph = "🙂"
)

var glyphs = map[string]string{
	"Great":      "🤩",
	"Happy":      "😄",
	"Calm":       "😌",
	"Confident":  "😎",
	"Loved":      "🥰",
	"Upset":      "😣",
	"Sad":        "😢",
	"Angry":      "😠",
	"Anxious":    "😰",
	"Tired":      "😩",
	"Thoughtful": "🤔",
	"Sleepy":     "😴",
}

// Glyph returns the display glyph for label, or FallbackGlyph.
func Glyph(label string) string {
	if g, ok := glyphs[label]; ok {
		return g
	}
	return FallbackGlyph
}

// KnownEmotions returns the labels that have a dedicated glyph.
func KnownEmotions() []string {
	return []string{
		"Great", "Happy", "Calm", "Confident", "Loved",
		"Upset", "Sad", "Angry", "Anxious",
		"Tired", "Thoughtful", "Sleepy",
	}
}

var encouragement = map[Sentiment]string{
	Positive: "You're doing great. Keep noticing what lifts you up.",
	Neutral:  "Steady days count too. Take a moment for something you enjoy.",
	Negative: "It's been a tough stretch. Reaching out or resting can help.",
}

const emptyMessage = "Start checking in to see your mood patterns here."

// Message returns the encouragement shown alongside a top emotion.
func Message(label string) string {
	return encouragement[Classify(label)]
}
