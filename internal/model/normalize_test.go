package model

import (
	"strings"
	"testing"
)

func TestNormalizeWellFormed(t *testing.T) {
	raw := []byte(`{
		"message": "I just tried ice skating in Minneapolis! It was cozy.",
		"author": "Bob",
		"timestamp": "2025-01-29 14:35:20",
		"category": "winter sports",
		"sentiment": 0.6,
		"keyword_mentioned": "skating",
		"message_length": 54,
		"season": "Winter",
		"average_temp": "18°F"
	}`)

	rec, err := Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if rec.Author != "Bob" || rec.Category != "winter sports" {
		t.Errorf("author=%q category=%q", rec.Author, rec.Category)
	}
	if rec.Sentiment != 0.6 {
		t.Errorf("sentiment = %v, want 0.6", rec.Sentiment)
	}
	if rec.MessageLength != 54 {
		t.Errorf("message_length = %d, want 54", rec.MessageLength)
	}
	if rec.AverageTemp != "18°F" {
		t.Errorf("average_temp = %q", rec.AverageTemp)
	}
}

func TestNormalizeCoercion(t *testing.T) {
	tests := []struct {
		name          string
		raw           string
		wantSentiment float64
		wantLength    int
		wantSeason    string
	}{
		{
			name:          "numeric strings",
			raw:           `{"message":"m","author":"a","timestamp":"t","category":"c","sentiment":"0.9","message_length":"12"}`,
			wantSentiment: 0.9,
			wantLength:    12,
			wantSeason:    "Winter",
		},
		{
			name:          "garbage sentiment defaults to zero",
			raw:           `{"message":"m","author":"a","timestamp":"t","category":"c","sentiment":"chilly","message_length":true}`,
			wantSentiment: 0.0,
			wantLength:    0,
			wantSeason:    "Winter",
		},
		{
			name:          "missing optional fields",
			raw:           `{"message":"m","author":"a","timestamp":"t","category":"c"}`,
			wantSentiment: 0.0,
			wantLength:    0,
			wantSeason:    "Winter",
		},
		{
			name:          "out of range sentiment passes through",
			raw:           `{"message":"m","author":"a","timestamp":"t","category":"c","sentiment":1.7}`,
			wantSentiment: 1.7,
			wantLength:    0,
			wantSeason:    "Winter",
		},
		{
			name:          "explicit season kept",
			raw:           `{"message":"m","author":"a","timestamp":"t","category":"c","season":"Spring"}`,
			wantSentiment: 0.0,
			wantLength:    0,
			wantSeason:    "Spring",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec, err := Normalize([]byte(tc.raw))
			if err != nil {
				t.Fatalf("Normalize: %v", err)
			}
			if rec.Sentiment != tc.wantSentiment {
				t.Errorf("sentiment = %v, want %v", rec.Sentiment, tc.wantSentiment)
			}
			if rec.MessageLength != tc.wantLength {
				t.Errorf("message_length = %d, want %d", rec.MessageLength, tc.wantLength)
			}
			if rec.Season != tc.wantSeason {
				t.Errorf("season = %q, want %q", rec.Season, tc.wantSeason)
			}
		})
	}
}

func TestNormalizeNumericTemp(t *testing.T) {
	rec, err := Normalize([]byte(`{"message":"m","author":"a","timestamp":"t","category":"c","average_temp":18}`))
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if rec.AverageTemp != "18" {
		t.Errorf("average_temp = %q, want %q", rec.AverageTemp, "18")
	}
}

func TestNormalizeUnknownFieldsIgnored(t *testing.T) {
	rec, err := Normalize([]byte(`{"message":"m","author":"a","timestamp":"t","category":"c","extra":{"nested":true}}`))
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if rec.Message != "m" {
		t.Errorf("message = %q", rec.Message)
	}
}

func TestNormalizeRejectsInvalidJSON(t *testing.T) {
	if _, err := Normalize([]byte(`{"message":`)); err == nil {
		t.Fatal("Normalize accepted truncated JSON")
	} else if !strings.Contains(err.Error(), "decode event") {
		t.Errorf("unexpected error: %v", err)
	}
}
