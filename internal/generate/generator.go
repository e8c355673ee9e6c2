// Package generate synthesizes the winter-activity event stream.
// The sequence is logically infinite: Next never fails and never ends.
package generate

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/tinytelemetry/snowpulse/internal/model"
)

var (
	adjectives = []string{"snowy", "frigid", "invigorating", "festive", "cozy"}
	actions    = []string{"tried", "enjoyed", "experienced", "participated in", "loved"}
	topics     = []string{
		"ice skating",
		"cross-country skiing",
		"snowshoeing",
		"ice fishing",
		"sledding",
		"St. Paul Winter Carnival",
		"Great Northern Festival",
		"Minneapolis Boat Show",
		"winter photography",
		"indoor museum visit",
	}
	authors = []string{"Prince", "Bob", "Walter", "Judy"}
)

// keywordCategories maps the first keyword found in a topic to its category.
// Order matters: lookup is first match wins.
var keywordCategories = []struct {
	Keyword  string
	Category string
}{
	{"skating", "winter sports"},
	{"skiing", "winter sports"},
	{"snowshoeing", "winter sports"},
	{"fishing", "outdoor recreation"},
	{"sledding", "winter sports"},
	{"Carnival", "events"},
	{"Festival", "events"},
	{"Boat Show", "events"},
	{"photography", "arts"},
	{"museum", "indoor activities"},
}

// Generator produces a fresh, fully populated event on every call to Next.
// It reads only the wall clock and a pseudo-random source.
type Generator struct {
	rng *rand.Rand
	now func() time.Time
}

// New creates a generator seeded from the current time.
func New() *Generator {
	seed := uint64(time.Now().UnixNano())
	return &Generator{
		rng: rand.New(rand.NewPCG(seed, seed>>32)),
		now: time.Now,
	}
}

// NewSeeded creates a deterministic generator with a fixed clock, for tests.
func NewSeeded(seed uint64, now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	return &Generator{
		rng: rand.New(rand.NewPCG(seed, seed+1)),
		now: now,
	}
}

// Next returns a freshly synthesized event with a current timestamp.
func (g *Generator) Next() *model.Event {
	action := pick(g.rng, actions)
	topic := pick(g.rng, topics)
	adjective := pick(g.rng, adjectives)
	author := pick(g.rng, authors)

	message := fmt.Sprintf("I just %s %s in Minneapolis! It was %s.", action, topic, adjective)
	keyword, category := Classify(topic)

	// Two decimal places, matching the wire precision of the sentiment score.
	sentiment := math.Round(g.rng.Float64()*100) / 100

	return &model.Event{
		Message:          message,
		Author:           author,
		Timestamp:        g.now().Format(model.TimestampLayout),
		Category:         category,
		Sentiment:        sentiment,
		KeywordMentioned: keyword,
		MessageLength:    len(message),
		Season:           model.DefaultSeason,
		AverageTemp:      fmt.Sprintf("%d°F", 9+g.rng.IntN(21)),
	}
}

// Classify returns the keyword mentioned in topic and its category,
// or ("other", "other") when no keyword matches.
func Classify(topic string) (keyword, category string) {
	for _, kc := range keywordCategories {
		if strings.Contains(topic, kc.Keyword) {
			return kc.Keyword, kc.Category
		}
	}
	return "other", "other"
}

func pick(rng *rand.Rand, options []string) string {
	return options[rng.IntN(len(options))]
}
