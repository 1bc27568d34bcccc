package fawazahmed

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/langowen/currency/internal/entities"
	"github.com/pkg/errors"
)

type Getter interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// Source reads the backup provider. Its table is keyed by lowercase codes,
// either flat ({"cop":3800}) or nested under the base ({"usd":{"cop":3800}}).
type Source struct {
	http Getter
	url  string
	base string
}

func NewSource(http Getter, url string) *Source {
	return &Source{http: http, url: url, base: strings.ToLower(entities.ReferenceCode)}
}

func (s *Source) Name() string { return "fawazahmed" }

func (s *Source) Fetch(ctx context.Context) (map[string]float64, error) {
	const op = "fawazahmed.Fetch"

	body, err := s.http.Get(ctx, s.url)
	if err != nil {
		return nil, errors.Wrap(err, op)
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return nil, errors.Wrapf(entities.ErrParse, "%s: %v", op, err)
	}

	if nested, ok := top[s.base]; ok {
		var inner map[string]json.RawMessage
		if err := json.Unmarshal(nested, &inner); err == nil {
			top = inner
		}
	}

	rates := make(map[string]float64, len(top))
	for code, raw := range top {
		var rate float64
		if err := json.Unmarshal(raw, &rate); err != nil {
			continue
		}
		rates[strings.ToUpper(code)] = rate
	}

	if len(rates) == 0 {
		return nil, errors.Wrapf(entities.ErrParse, "%s: no rates in response", op)
	}

	return rates, nil
}
