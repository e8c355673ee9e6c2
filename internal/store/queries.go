package store

import (
	"context"
	"fmt"

	"github.com/tinytelemetry/snowpulse/internal/model"
)

// EventCount returns the total number of stored events.
func (s *Store) EventCount(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.QueryTimeout)
	defer cancel()

	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM events").Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count events: %w", err)
	}
	return n, nil
}

// CountByCategory returns the number of stored events per category.
func (s *Store) CountByCategory(ctx context.Context) (map[string]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.QueryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, "SELECT category, COUNT(*) FROM events GROUP BY category")
	if err != nil {
		return nil, fmt.Errorf("store: count by category: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var category string
		var n int64
		if err := rows.Scan(&category, &n); err != nil {
			return nil, fmt.Errorf("store: scan category count: %w", err)
		}
		out[category] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate category counts: %w", err)
	}
	return out, nil
}

// AverageSentimentByCategory returns the mean stored sentiment per category.
func (s *Store) AverageSentimentByCategory(ctx context.Context) (map[string]float64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.QueryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, "SELECT category, AVG(sentiment) FROM events GROUP BY category")
	if err != nil {
		return nil, fmt.Errorf("store: average sentiment: %w", err)
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var category string
		var avg float64
		if err := rows.Scan(&category, &avg); err != nil {
			return nil, fmt.Errorf("store: scan sentiment average: %w", err)
		}
		out[category] = avg
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate sentiment averages: %w", err)
	}
	return out, nil
}

// RecentEvents returns up to limit records, newest insertion first.
func (s *Store) RecentEvents(ctx context.Context, limit int) ([]model.Record, error) {
	if limit <= 0 {
		limit = 50
	}

	ctx, cancel := context.WithTimeout(ctx, s.QueryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT message, author, timestamp, category, sentiment,
		       keyword_mentioned, message_length, season, average_temp
		FROM events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: recent events: %w", err)
	}
	defer rows.Close()

	var out []model.Record
	for rows.Next() {
		var rec model.Record
		if err := rows.Scan(
			&rec.Message, &rec.Author, &rec.Timestamp, &rec.Category, &rec.Sentiment,
			&rec.KeywordMentioned, &rec.MessageLength, &rec.Season, &rec.AverageTemp,
		); err != nil {
			return nil, fmt.Errorf("store: scan event: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate events: %w", err)
	}
	return out, nil
}
