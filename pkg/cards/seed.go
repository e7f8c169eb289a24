package cards

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed seed/sample_cards.yaml
var sampleCardsYAML []byte

type seedFile struct {
	Cards []seedCard `yaml:"cards"`
}

type seedCard struct {
	Card               `yaml:",inline"`
	LastContactDaysAgo *int `yaml:"last_contact_days_ago"`
	FollowupInDays     *int `yaml:"followup_in_days"`
}

// ParseSeed decodes a YAML seed document. Relative day offsets are resolved
// against now.
func ParseSeed(r io.Reader, now time.Time) ([]Card, error) {
	var doc seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}

	out := make([]Card, 0, len(doc.Cards))
	for i, sc := range doc.Cards {
		card := sc.Card
		if sc.LastContactDaysAgo != nil {
			t := now.AddDate(0, 0, -*sc.LastContactDaysAgo).UTC()
			card.LastContactDate = &t
		}
		if sc.FollowupInDays != nil {
			t := now.AddDate(0, 0, *sc.FollowupInDays).UTC()
			card.NextFollowupDate = &t
		}
		if err := card.normalize(); err != nil {
			return nil, fmt.Errorf("seed card %d: %w", i, err)
		}
		out = append(out, card)
	}
	return out, nil
}

func SampleCards(now time.Time) ([]Card, error) {
	return ParseSeed(bytes.NewReader(sampleCardsYAML), now)
}

// Seed inserts cards unless the table already holds data. It reports how many
// cards were inserted.
func (s *Store) Seed(ctx context.Context, cards []Card) (int, error) {
	existing, err := s.Count(ctx)
	if err != nil {
		return 0, err
	}
	if existing > 0 {
		return 0, nil
	}
	for i := range cards {
		if err := s.Create(ctx, &cards[i]); err != nil {
			return i, err
		}
	}
	return len(cards), nil
}
