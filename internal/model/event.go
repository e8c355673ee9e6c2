package model

// TimestampLayout is the second-precision wall-clock format used on the wire
// and in the journal.
const TimestampLayout = "2006-01-02 15:04:05"

// DefaultSeason is applied when an incoming event carries no season tag.
const DefaultSeason = "Winter"

// Event is the wire and journal record produced by the generator.
// It is encoded as one JSON object per line and never mutated after creation.
type Event struct {
	Message          string  `json:"message"`
	Author           string  `json:"author"`
	Timestamp        string  `json:"timestamp"`
	Category         string  `json:"category"`
	Sentiment        float64 `json:"sentiment"`
	KeywordMentioned string  `json:"keyword_mentioned"`
	MessageLength    int     `json:"message_length"`
	Season           string  `json:"season"`
	AverageTemp      string  `json:"average_temp,omitempty"`
}

// Record is the validated, normalized form of an Event used for persistence
// and aggregation. Type coercion and defaulting happen in Normalize; the
// fields themselves mirror Event.
type Record struct {
	Message          string
	Author           string
	Timestamp        string
	Category         string
	Sentiment        float64
	KeywordMentioned string
	MessageLength    int
	Season           string
	AverageTemp      string
}
