package tools

import (
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/kvaesitso/kvs/internal/search"
)

// Dimensions.
const (
	Length      = "length"
	Mass        = "mass"
	Volume      = "volume"
	Data        = "data"
	Duration    = "duration"
	Temperature = "temperature"
	Currency    = "currency"
)

// unit is a linear unit: base = value*factor + offset.
type unit struct {
	symbol    string
	dimension string
	factor    float64
	offset    float64
	aliases   []string
}

var units = []unit{
	{symbol: "mm", dimension: Length, factor: 0.001},
	{symbol: "cm", dimension: Length, factor: 0.01},
	{symbol: "m", dimension: Length, factor: 1, aliases: []string{"meter", "meters", "metre", "metres"}},
	{symbol: "km", dimension: Length, factor: 1000, aliases: []string{"kilometer", "kilometers"}},
	{symbol: "in", dimension: Length, factor: 0.0254, aliases: []string{"inch", "inches", "\""}},
	{symbol: "ft", dimension: Length, factor: 0.3048, aliases: []string{"foot", "feet", "'"}},
	{symbol: "yd", dimension: Length, factor: 0.9144, aliases: []string{"yard", "yards"}},
	{symbol: "mi", dimension: Length, factor: 1609.344, aliases: []string{"mile", "miles"}},
	{symbol: "nmi", dimension: Length, factor: 1852},

	{symbol: "mg", dimension: Mass, factor: 1e-6},
	{symbol: "g", dimension: Mass, factor: 1e-3, aliases: []string{"gram", "grams"}},
	{symbol: "kg", dimension: Mass, factor: 1, aliases: []string{"kilogram", "kilograms"}},
	{symbol: "t", dimension: Mass, factor: 1000, aliases: []string{"tonne", "tonnes"}},
	{symbol: "oz", dimension: Mass, factor: 0.028349523125, aliases: []string{"ounce", "ounces"}},
	{symbol: "lb", dimension: Mass, factor: 0.45359237, aliases: []string{"lbs", "pound", "pounds"}},
	{symbol: "st", dimension: Mass, factor: 6.35029318, aliases: []string{"stone"}},

	{symbol: "ml", dimension: Volume, factor: 0.001, aliases: []string{"mL"}},
	{symbol: "cl", dimension: Volume, factor: 0.01},
	{symbol: "dl", dimension: Volume, factor: 0.1},
	{symbol: "l", dimension: Volume, factor: 1, aliases: []string{"L", "liter", "liters", "litre", "litres"}},
	{symbol: "m³", dimension: Volume, factor: 1000, aliases: []string{"m3"}},
	{symbol: "tsp", dimension: Volume, factor: 0.00492892159375},
	{symbol: "tbsp", dimension: Volume, factor: 0.01478676478125},
	{symbol: "fl oz", dimension: Volume, factor: 0.0295735295625, aliases: []string{"floz"}},
	{symbol: "cup", dimension: Volume, factor: 0.2365882365, aliases: []string{"cups"}},
	{symbol: "pt", dimension: Volume, factor: 0.473176473, aliases: []string{"pint", "pints"}},
	{symbol: "qt", dimension: Volume, factor: 0.946352946, aliases: []string{"quart", "quarts"}},
	{symbol: "gal", dimension: Volume, factor: 3.785411784, aliases: []string{"gallon", "gallons"}},

	{symbol: "bit", dimension: Data, factor: 0.125, aliases: []string{"bits"}},
	{symbol: "B", dimension: Data, factor: 1, aliases: []string{"byte", "bytes"}},
	{symbol: "kB", dimension: Data, factor: 1e3, aliases: []string{"KB"}},
	{symbol: "MB", dimension: Data, factor: 1e6},
	{symbol: "GB", dimension: Data, factor: 1e9},
	{symbol: "TB", dimension: Data, factor: 1e12},
	{symbol: "KiB", dimension: Data, factor: 1 << 10},
	{symbol: "MiB", dimension: Data, factor: 1 << 20},
	{symbol: "GiB", dimension: Data, factor: 1 << 30},
	{symbol: "TiB", dimension: Data, factor: 1 << 40},

	{symbol: "ms", dimension: Duration, factor: 0.001},
	{symbol: "s", dimension: Duration, factor: 1, aliases: []string{"sec", "second", "seconds"}},
	{symbol: "min", dimension: Duration, factor: 60, aliases: []string{"minute", "minutes"}},
	{symbol: "h", dimension: Duration, factor: 3600, aliases: []string{"hr", "hour", "hours"}},
	{symbol: "d", dimension: Duration, factor: 86400, aliases: []string{"day", "days"}},
	{symbol: "wk", dimension: Duration, factor: 604800, aliases: []string{"week", "weeks"}},

	{symbol: "°C", dimension: Temperature, factor: 1, offset: 273.15, aliases: []string{"C", "celsius"}},
	{symbol: "°F", dimension: Temperature, factor: 5.0 / 9.0, offset: 273.15 - 32*5.0/9.0, aliases: []string{"F", "fahrenheit"}},
	{symbol: "K", dimension: Temperature, factor: 1, aliases: []string{"kelvin"}},
}

var currencySymbols = map[string]string{
	"$": "USD",
	"€": "EUR",
	"£": "GBP",
	"¥": "JPY",
	"₹": "INR",
}

// bySymbol and byAlias index units; aliases are matched case-insensitively.
var (
	bySymbol = map[string]*unit{}
	byAlias  = map[string]*unit{}
)

func init() {
	for i := range units {
		u := &units[i]
		bySymbol[u.symbol] = u
		for _, a := range append([]string{u.symbol}, u.aliases...) {
			if _, taken := byAlias[strings.ToLower(a)]; !taken {
				byAlias[strings.ToLower(a)] = u
			}
		}
	}
}

func lookupUnit(s string) *unit {
	if u, ok := bySymbol[s]; ok {
		return u
	}
	return byAlias[strings.ToLower(s)]
}

// conversionRegexp matches "10 km", "10km to mi", "5 usd in eur", "$5".
var conversionRegexp = regexp.MustCompile(
	`^([$€£¥₹])?\s*([-+]?(?:\d+(?:[.,]\d*)?|[.,]\d+)(?:[eE][-+]?\d+)?)\s*([^\d\s].*?)??(?:\s+(?:to|in|as|into|=|>|->)\s+(.+?))?$`)

// Conversion is a parsed conversion request.
type Conversion struct {
	Value float64
	From  string
	// To is empty when every related unit is wanted.
	To string
}

// ParseConversion splits a query into amount, source unit and optional
// target unit. Units are not validated.
func ParseConversion(q string) (Conversion, bool) {
	m := conversionRegexp.FindStringSubmatch(strings.TrimSpace(q))
	if m == nil {
		return Conversion{}, false
	}
	v, err := strconv.ParseFloat(strings.Replace(m[2], ",", ".", 1), 64)
	if err != nil {
		return Conversion{}, false
	}
	from := strings.TrimSpace(m[3])
	if m[1] != "" {
		if from != "" {
			return Conversion{}, false
		}
		from = m[1]
	}
	if from == "" {
		return Conversion{}, false
	}
	return Conversion{Value: v, From: from, To: strings.TrimSpace(m[4])}, true
}

// Convert converts c between physical units. ok is false when the units are
// unknown or of different dimensions.
func Convert(c Conversion) (search.UnitConverter, bool) {
	from := lookupUnit(c.From)
	if from == nil {
		return search.UnitConverter{}, false
	}
	base := c.Value*from.factor + from.offset

	var targets []*unit
	if c.To != "" {
		to := lookupUnit(c.To)
		if to == nil || to.dimension != from.dimension {
			return search.UnitConverter{}, false
		}
		targets = []*unit{to}
	} else {
		for i := range units {
			if u := &units[i]; u.dimension == from.dimension && u != from {
				targets = append(targets, u)
			}
		}
	}

	out := search.UnitConverter{
		Dimension: from.dimension,
		Input:     quantity(c.Value, from.symbol),
		Values:    make([]search.Quantity, 0, len(targets)),
	}
	for _, to := range targets {
		out.Values = append(out.Values, quantity((base-to.offset)/to.factor, to.symbol))
	}
	return out, true
}

// ConvertCurrency converts c using rates given as units per euro.
func ConvertCurrency(c Conversion, rates map[string]float64) (search.UnitConverter, bool) {
	from := currencyCode(c.From)
	perEuro, ok := rates[from]
	if !ok || perEuro == 0 {
		return search.UnitConverter{}, false
	}
	euros := c.Value / perEuro

	var targets []string
	if c.To != "" {
		to := currencyCode(c.To)
		if _, ok := rates[to]; !ok {
			return search.UnitConverter{}, false
		}
		targets = []string{to}
	} else {
		for code := range rates {
			if code != from {
				targets = append(targets, code)
			}
		}
		slices.Sort(targets)
	}

	out := search.UnitConverter{
		Dimension: Currency,
		Input:     quantity(c.Value, from),
		Values:    make([]search.Quantity, 0, len(targets)),
	}
	for _, code := range targets {
		v := euros * rates[code]
		out.Values = append(out.Values, search.Quantity{Value: v, Unit: code, Formatted: formatMoney(v) + " " + code})
	}
	return out, true
}

func currencyCode(s string) string {
	if code, ok := currencySymbols[s]; ok {
		return code
	}
	return strings.ToUpper(s)
}

func quantity(v float64, symbol string) search.Quantity {
	return search.Quantity{Value: v, Unit: symbol, Formatted: FormatNumber(v) + " " + symbol}
}

func formatMoney(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', 2, 64)
}

// String renders a conversion request, mainly for logs.
func (c Conversion) String() string {
	if c.To == "" {
		return fmt.Sprintf("%s %s", FormatNumber(c.Value), c.From)
	}
	return fmt.Sprintf("%s %s to %s", FormatNumber(c.Value), c.From, c.To)
}
