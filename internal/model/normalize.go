package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// wireEvent tolerates wrong-typed numeric fields so a single sloppy producer
// cannot crash the consumption loop. Unknown fields are ignored by the decoder.
type wireEvent struct {
	Message          string `json:"message"`
	Author           string `json:"author"`
	Timestamp        string `json:"timestamp"`
	Category         string `json:"category"`
	Sentiment        any    `json:"sentiment"`
	KeywordMentioned string `json:"keyword_mentioned"`
	MessageLength    any    `json:"message_length"`
	Season           string `json:"season"`
	AverageTemp      any    `json:"average_temp"`
}

// Normalize decodes one wire event and coerces it into a canonical Record.
// Sentiment defaults to 0.0 and message length to 0 when absent or not
// numeric; the season tag defaults to "Winter". Sentiment is not range
// checked: out-of-[0,1] values pass through as delivered.
func Normalize(raw []byte) (*Record, error) {
	var w wireEvent
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("model: decode event: %w", err)
	}

	season := w.Season
	if season == "" {
		season = DefaultSeason
	}

	return &Record{
		Message:          w.Message,
		Author:           w.Author,
		Timestamp:        w.Timestamp,
		Category:         w.Category,
		Sentiment:        coerceFloat(w.Sentiment, 0.0),
		KeywordMentioned: w.KeywordMentioned,
		MessageLength:    coerceInt(w.MessageLength, 0),
		Season:           season,
		AverageTemp:      coerceString(w.AverageTemp),
	}, nil
}

func coerceFloat(v any, def float64) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			return f
		}
	}
	return def
}

func coerceInt(v any, def int) int {
	switch t := v.(type) {
	case float64:
		return int(t)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			return n
		}
	}
	return def
}

func coerceString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}
