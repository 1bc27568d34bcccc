package frankfurter

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

type response struct {
	Base  string             `json:"base"`
	Date  string             `json:"date"`
	Rates map[string]float64 `json:"rates"`
}

// Source reads the primary provider, which answers {"rates":{"EUR":0.92,...}}.
type Source struct {
	http Getter
	url  string
}

func NewSource(http Getter, url string) *Source {
	return &Source{http: http, url: url}
}

func (s *Source) Name() string { return "frankfurter" }

func (s *Source) Fetch(ctx context.Context) (map[string]float64, error) {
	const op = "frankfurter.Fetch"

	body, err := s.http.Get(ctx, s.url)
	if err != nil {
		return nil, errors.Wrap(err, op)
	}

	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.Wrapf(entities.ErrParse, "%s: %v", op, err)
	}
	if len(resp.Rates) == 0 {
		return nil, errors.Wrapf(entities.ErrParse, "%s: no rates in response", op)
	}

	rates := make(map[string]float64, len(resp.Rates))
	for code, rate := range resp.Rates {
		rates[strings.ToUpper(code)] = rate
	}

	return rates, nil
}
