package entities

import "time"

// ReferenceCode is the base unit every rate is expressed against.
// Backend prices are assumed to already be in it.
const ReferenceCode = "USD"

type Currency struct {
	Code         string  `json:"code"`
	Symbol       string  `json:"symbol"`
	Name         string  `json:"name"`
	ExchangeRate float64 `json:"exchange_rate"` // units of this currency per 1 reference unit

	Locale         string `json:"locale"`
	FractionDigits int    `json:"fraction_digits"` // 0 for integer-style currencies
	SymbolAfter    bool   `json:"symbol_after"`
	SymbolSpaced   bool   `json:"symbol_spaced"`
}

// RateSnapshot is the persisted copy of the rate table.
type RateSnapshot struct {
	Rates      map[string]float64 `json:"rates"`
	LastUpdate time.Time          `json:"lastUpdate"`
}

// CurrencySelection is the persisted display currency.
type CurrencySelection struct {
	Code string `json:"code"`
}
