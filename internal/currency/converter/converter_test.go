package converter

import (
	"math"
	"regexp"
	"strings"
	"testing"
	"unicode"

	"github.com/langowen/currency/internal/currency/registry"
	"github.com/langowen/currency/internal/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedSelection string

func (s fixedSelection) GetCurrent() string { return string(s) }

func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

func TestRoundTrip(t *testing.T) {
	reg := registry.New()
	require.True(t, reg.Set("COP", 3800))

	amounts := []float64{0, 0.01, 1, 19.999, 1234.56, 987654.321}

	for _, cur := range reg.List() {
		c := New(reg, fixedSelection(cur.Code))
		for _, x := range amounts {
			assert.InDelta(t, x, c.ToReference(c.ToDisplay(x)), 1e-9*(1+x), "%s %v", cur.Code, x)
		}
	}
}

func TestToDisplayUsesCurrentRate(t *testing.T) {
	reg := registry.New()
	require.True(t, reg.Set("MXN", 17.5))

	c := New(reg, fixedSelection("MXN"))
	assert.InDelta(t, 175.0, c.ToDisplay(10), 1e-9)
	assert.InDelta(t, 10.0, c.ToReference(175), 1e-9)

	// unknown selection behaves like the reference
	c = New(reg, fixedSelection("XYZ"))
	assert.Equal(t, 10.0, c.ToDisplay(10))
}

func TestFormatIntegerStyle(t *testing.T) {
	reg := registry.New()
	require.True(t, reg.Set("COP", 3800))

	got := New(reg, fixedSelection("COP")).Format(100)

	assert.Equal(t, "380000", digitsOnly(got))
	assert.True(t, strings.HasPrefix(got, "$"), got)
	assert.Regexp(t, regexp.MustCompile(`380[.,\x{a0}\x{202f} ]000`), got)
	assert.NotContains(t, got, ",00")
}

func TestFormatRoundsToTwoDigits(t *testing.T) {
	c := New(registry.New(), fixedSelection("USD"))

	assert.Equal(t, "$20.00", c.Format(19.999))
	assert.Equal(t, "$0.00", c.Format(0))
	assert.Equal(t, "$1,234.50", c.Format(1234.5))
	assert.Equal(t, "-$5.25", c.Format(-5.25))
}

func TestFormatAmountSymbolPlacement(t *testing.T) {
	eur := registry.New().Get("EUR")

	got := FormatAmount(eur, 12.5)
	assert.Equal(t, "12,50\u00a0€", got)

	mxn := registry.New().Get("MXN")
	assert.True(t, strings.HasPrefix(FormatAmount(mxn, 3), "$3"))
}

func TestFormatAmountBadLocale(t *testing.T) {
	cur := entities.Currency{Code: "XTS", Symbol: "¤", Locale: "not a locale", FractionDigits: 2}

	assert.Equal(t, "¤1.00", FormatAmount(cur, 1))
}

func TestFormatNonFinite(t *testing.T) {
	reg := registry.New()
	c := New(reg, fixedSelection("COP"))

	// finite input that overflows once converted
	var got string
	require.NotPanics(t, func() { got = c.Format(math.MaxFloat64 / 1000) })
	assert.Equal(t, "$\u00a0∞", got)

	usd := reg.Get("USD")
	assert.Equal(t, "$NaN", FormatAmount(usd, math.NaN()))
	assert.Equal(t, "-$∞", FormatAmount(usd, math.Inf(-1)))
	assert.Equal(t, "∞\u00a0€", FormatAmount(reg.Get("EUR"), math.Inf(1)))
}
