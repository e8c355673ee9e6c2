package store

import (
	"context"
	"fmt"

	"github.com/tinytelemetry/snowpulse/internal/model"
)

// Upsert inserts the record or, when a row with the same natural key
// (author, timestamp, message) already exists, replaces its stored values.
// Re-applying the same logical record any number of times leaves exactly
// one row carrying the latest values.
func (s *Store) Upsert(ctx context.Context, rec *model.Record) error {
	ctx, cancel := context.WithTimeout(ctx, s.QueryTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (
			message, author, timestamp, category, sentiment,
			keyword_mentioned, message_length, season, average_temp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (author, timestamp, message) DO UPDATE SET
			category          = excluded.category,
			sentiment         = excluded.sentiment,
			keyword_mentioned = excluded.keyword_mentioned,
			message_length    = excluded.message_length,
			season            = excluded.season,
			average_temp      = excluded.average_temp`,
		rec.Message, rec.Author, rec.Timestamp, rec.Category, rec.Sentiment,
		rec.KeywordMentioned, rec.MessageLength, rec.Season, rec.AverageTemp,
	)
	if err != nil {
		return fmt.Errorf("store: upsert event: %w", err)
	}
	return nil
}
