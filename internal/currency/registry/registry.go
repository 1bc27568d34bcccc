package registry

import (
	"math"
	"strings"
	"sync"

	"github.com/langowen/currency/internal/entities"
)

// Defaults returns the built-in currency table in display order.
// Rates are the last known values shipped with the application and are
// used until a snapshot or a remote source replaces them.
func Defaults() []entities.Currency {
	return []entities.Currency{
		{
			Code:           entities.ReferenceCode,
			Symbol:         "$",
			Name:           "Dólar Estadounidense",
			ExchangeRate:   1,
			Locale:         "en-US",
			FractionDigits: 2,
		},
		{
			Code:           "COP",
			Symbol:         "$",
			Name:           "Peso Colombiano",
			ExchangeRate:   3746.83,
			Locale:         "es-CO",
			FractionDigits: 0,
			SymbolSpaced:   true,
		},
		{
			Code:           "EUR",
			Symbol:         "€",
			Name:           "Euro",
			ExchangeRate:   0.92,
			Locale:         "es-ES",
			FractionDigits: 2,
			SymbolAfter:    true,
			SymbolSpaced:   true,
		},
		{
			Code:           "MXN",
			Symbol:         "$",
			Name:           "Peso Mexicano",
			ExchangeRate:   17,
			Locale:         "es-MX",
			FractionDigits: 2,
		},
	}
}

// Registry is the in-memory table of supported currencies. The set of codes
// is fixed at construction; only exchange rates change afterwards.
type Registry struct {
	mu         sync.RWMutex
	order      []string
	currencies map[string]entities.Currency
}

func New() *Registry {
	return NewWith(Defaults())
}

// NewWith builds a registry from a custom table. The reference currency is
// added if missing and always pinned to a rate of 1.
func NewWith(table []entities.Currency) *Registry {
	r := &Registry{
		currencies: make(map[string]entities.Currency, len(table)+1),
	}

	for _, c := range table {
		c.Code = normalize(c.Code)
		if _, ok := r.currencies[c.Code]; ok {
			continue
		}
		if c.Code == entities.ReferenceCode {
			c.ExchangeRate = 1
		} else if !valid(c.ExchangeRate) {
			continue
		}
		r.order = append(r.order, c.Code)
		r.currencies[c.Code] = c
	}

	if _, ok := r.currencies[entities.ReferenceCode]; !ok {
		ref := Defaults()[0]
		r.order = append([]string{ref.Code}, r.order...)
		r.currencies[ref.Code] = ref
	}

	return r
}

// Get returns the currency for code, or the reference currency when the code
// is not supported.
func (r *Registry) Get(code string) entities.Currency {
	if c, ok := r.Lookup(code); ok {
		return c
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.currencies[entities.ReferenceCode]
}

func (r *Registry) Lookup(code string) (entities.Currency, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.currencies[normalize(code)]
	return c, ok
}

// Set updates a single rate. It reports whether the value was applied;
// unknown codes, the reference currency and non-finite or non-positive
// rates leave the table untouched.
func (r *Registry) Set(code string, rate float64) bool {
	return r.Apply(map[string]float64{code: rate}) == 1
}

// Apply writes every valid rate from rates under one lock, so readers never
// observe a partially updated table. It returns the number of rates applied.
func (r *Registry) Apply(rates map[string]float64) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	applied := 0
	for code, rate := range rates {
		code = normalize(code)
		if code == entities.ReferenceCode || !valid(rate) {
			continue
		}
		c, ok := r.currencies[code]
		if !ok {
			continue
		}
		c.ExchangeRate = rate
		r.currencies[code] = c
		applied++
	}

	return applied
}

func (r *Registry) List() []entities.Currency {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]entities.Currency, 0, len(r.order))
	for _, code := range r.order {
		list = append(list, r.currencies[code])
	}

	return list
}

// Rates returns the non-reference rates keyed by code.
func (r *Registry) Rates() map[string]float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rates := make(map[string]float64, len(r.currencies)-1)
	for code, c := range r.currencies {
		if code == entities.ReferenceCode {
			continue
		}
		rates[code] = c.ExchangeRate
	}

	return rates
}

func valid(rate float64) bool {
	return rate > 0 && !math.IsInf(rate, 0) && !math.IsNaN(rate)
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
