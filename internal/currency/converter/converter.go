package converter

import (
	"fmt"
	"math"
	"strings"

	"github.com/langowen/currency/internal/entities"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

type Registry interface {
	Get(code string) entities.Currency
}

type Selection interface {
	GetCurrent() string
}

// Converter turns reference amounts into display amounts for the currently
// selected currency. It reads the registry on every call and keeps no state.
type Converter struct {
	registry  Registry
	selection Selection
}

func New(registry Registry, selection Selection) *Converter {
	return &Converter{
		registry:  registry,
		selection: selection,
	}
}

func (c *Converter) Current() entities.Currency {
	return c.registry.Get(c.selection.GetCurrent())
}

func (c *Converter) ToDisplay(amount float64) float64 {
	return amount * c.Current().ExchangeRate
}

func (c *Converter) ToReference(amount float64) float64 {
	return amount / c.Current().ExchangeRate
}

// Format converts a reference amount and renders it in the current currency.
func (c *Converter) Format(amount float64) string {
	cur := c.Current()

	return FormatAmount(cur, amount*cur.ExchangeRate)
}

// FormatAmount renders amount, already expressed in cur, with the currency's
// fraction digits, locale separators and symbol placement. NaN and infinities
// are rendered as "NaN" and "∞" instead of a number.
func FormatAmount(cur entities.Currency, amount float64) string {
	switch {
	case math.IsNaN(amount):
		return withSymbol(cur, "NaN", false)
	case math.IsInf(amount, 0):
		return withSymbol(cur, "∞", amount < 0)
	}

	digits := cur.FractionDigits
	if digits < 0 {
		digits = 0
	}

	d := decimal.NewFromFloat(amount).Round(int32(digits))
	value, _ := d.Abs().Float64()

	number := printer(cur.Locale).Sprintf(fmt.Sprintf("%%.%df", digits), value)

	return withSymbol(cur, number, d.Sign() < 0)
}

func withSymbol(cur entities.Currency, number string, negative bool) string {
	var b strings.Builder
	if negative {
		b.WriteByte('-')
	}

	sep := ""
	if cur.SymbolSpaced {
		sep = "\u00a0"
	}

	if cur.SymbolAfter {
		b.WriteString(number)
		b.WriteString(sep)
		b.WriteString(cur.Symbol)
	} else {
		b.WriteString(cur.Symbol)
		b.WriteString(sep)
		b.WriteString(number)
	}

	return b.String()
}

// printer is built per call; message.Printer is not safe for concurrent use.
func printer(locale string) *message.Printer {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.AmericanEnglish
	}

	return message.NewPrinter(tag)
}
