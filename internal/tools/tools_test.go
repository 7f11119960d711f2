package tools

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/kvaesitso/kvs/internal/bus"
	"github.com/kvaesitso/kvs/internal/search"
)

func TestEval(t *testing.T) {
	tests := []struct {
		expr string
		want float64
	}{
		{"1 + 2 * 3", 7},
		{"(1 + 2) * 3", 9},
		{"2 ^ 3 ^ 2", 512},
		{"-2 ^ 2", -4},
		{"10 % 4", 2},
		{"7 / 2", 3.5},
		{"2 × 3 ÷ 4", 1.5},
		{"2**10", 1024},
		{"sqrt(16) + abs(-2)", 6},
		{"2 * pi", 2 * math.Pi},
		{"e", math.E},
		{"0x1F + 1", 32},
		{"0b101", 5},
		{"0o17", 15},
		{"1.5e3", 1500},
		{"2 ** 0.5", math.Sqrt2},
		{"π / 2", math.Pi / 2},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			e, err := Eval(tt.expr)
			if err != nil {
				t.Fatalf("Eval(%q): %v", tt.expr, err)
			}
			if math.Abs(e.Value()-tt.want) > 1e-9 {
				t.Errorf("Eval(%q) = %v, want %v", tt.expr, e.Value(), tt.want)
			}
		})
	}
}

func TestEvalErrors(t *testing.T) {
	for _, expr := range []string{"", "1 +", "(1 + 2", "1 / 0", "foo(2)", "sqrt 4", "2 3", "0xZZ", "hello world", "1 $ 2", "sqrt(-1)", "1 == 1", "sqrt(1, 2)"} {
		t.Run(expr, func(t *testing.T) {
			if e, err := Eval(expr); err == nil {
				t.Errorf("Eval(%q) = %v, want error", expr, e.Value())
			}
		})
	}
	if _, err := Eval("1 +"); !errors.Is(err, errSyntax) {
		t.Errorf("err = %v, want errSyntax", err)
	}
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0.1 + 0.2, "0.3"},
		{1e6, "1000000"},
		{-42, "-42"},
		{1e20, "1e+20"},
		{1.0 / 3, "0.333333333333"},
		{0, "0"},
	}
	for _, tt := range tests {
		if got := FormatNumber(tt.in); got != tt.want {
			t.Errorf("FormatNumber(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func runCalc(t *testing.T, q string) []search.Calculator {
	t.Helper()
	var got []search.Calculator
	if err := Calculator().Search(context.Background(), q, false, func(c []search.Calculator) { got = c }); err != nil {
		t.Fatal(err)
	}
	return got
}

func TestCalculatorRepository(t *testing.T) {
	got := runCalc(t, "12 * 12")
	want := []search.Calculator{{Expression: "12 * 12", Value: 144, Formatted: "144"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("calculator mismatch (-want +got):\n%s", diff)
	}

	for _, q := range []string{"42", "pi", "firefox", ""} {
		if got := runCalc(t, q); len(got) != 0 {
			t.Errorf("%q: got %+v, want nothing", q, got)
		}
	}

	got = runCalc(t, "0xff")
	if len(got) != 1 {
		t.Fatalf("0xff: got %+v", got)
	}
	if diff := cmp.Diff([]string{"255", "0xFF", "0b11111111", "0o377"}, got[0].Alternates); diff != "" {
		t.Errorf("alternates mismatch (-want +got):\n%s", diff)
	}
}

func TestParseConversion(t *testing.T) {
	tests := []struct {
		in   string
		want Conversion
		ok   bool
	}{
		{"10 km", Conversion{Value: 10, From: "km"}, true},
		{"10km to mi", Conversion{Value: 10, From: "km", To: "mi"}, true},
		{"5 usd in eur", Conversion{Value: 5, From: "usd", To: "eur"}, true},
		{"2,5 l", Conversion{Value: 2.5, From: "l"}, true},
		{"$5", Conversion{Value: 5, From: "$"}, true},
		{"€20 in usd", Conversion{Value: 20, From: "€", To: "usd"}, true},
		{"3 fl oz to ml", Conversion{Value: 3, From: "fl oz", To: "ml"}, true},
		{"-40 °C", Conversion{Value: -40, From: "°C"}, true},
		{"42", Conversion{}, false},
		{"km", Conversion{}, false},
		{"$5 usd", Conversion{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseConversion(tt.in)
			if ok != tt.ok || got != tt.want {
				t.Errorf("ParseConversion(%q) = %+v, %v; want %+v, %v", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}

var approx = cmpopts.EquateApprox(1e-9, 1e-9)

func TestConvert(t *testing.T) {
	tests := []struct {
		in   Conversion
		want float64
		unit string
	}{
		{Conversion{Value: 10, From: "km", To: "mi"}, 6.21371192237334, "mi"},
		{Conversion{Value: 100, From: "C", To: "F"}, 212, "°F"},
		{Conversion{Value: -40, From: "°F", To: "°C"}, -40, "°C"},
		{Conversion{Value: 0, From: "celsius", To: "K"}, 273.15, "K"},
		{Conversion{Value: 1, From: "GiB", To: "MB"}, 1073.741824, "MB"},
		{Conversion{Value: 90, From: "min", To: "h"}, 1.5, "h"},
		{Conversion{Value: 1, From: "lb", To: "g"}, 453.59237, "g"},
		{Conversion{Value: 1, From: "gal", To: "L"}, 3.785411784, "l"},
	}
	for _, tt := range tests {
		t.Run(tt.in.String(), func(t *testing.T) {
			got, ok := Convert(tt.in)
			if !ok {
				t.Fatal("conversion failed")
			}
			if len(got.Values) != 1 {
				t.Fatalf("values = %+v", got.Values)
			}
			if diff := cmp.Diff(tt.want, got.Values[0].Value, approx); diff != "" || got.Values[0].Unit != tt.unit {
				t.Errorf("got %v %s, want %v %s", got.Values[0].Value, got.Values[0].Unit, tt.want, tt.unit)
			}
		})
	}
}

func TestConvertAllRelatedUnits(t *testing.T) {
	got, ok := Convert(Conversion{Value: 1, From: "h"})
	if !ok {
		t.Fatal("conversion failed")
	}
	var symbols []string
	for _, v := range got.Values {
		symbols = append(symbols, v.Unit)
	}
	if diff := cmp.Diff([]string{"ms", "s", "min", "d", "wk"}, symbols); diff != "" {
		t.Errorf("units mismatch (-want +got):\n%s", diff)
	}
	if got.Dimension != Duration || got.Input.Formatted != "1 h" {
		t.Errorf("converter = %+v", got)
	}
}

func TestConvertRejects(t *testing.T) {
	for _, c := range []Conversion{
		{Value: 1, From: "km", To: "kg"},
		{Value: 1, From: "parsec"},
		{Value: 1, From: "m", To: "furlong"},
	} {
		if _, ok := Convert(c); ok {
			t.Errorf("Convert(%v) succeeded", c)
		}
	}
}

var testRates = map[string]float64{"EUR": 1, "USD": 1.25, "GBP": 0.8}

func TestConvertCurrency(t *testing.T) {
	got, ok := ConvertCurrency(Conversion{Value: 5, From: "usd", To: "eur"}, testRates)
	if !ok {
		t.Fatal("conversion failed")
	}
	want := search.UnitConverter{
		Dimension: Currency,
		Input:     search.Quantity{Value: 5, Unit: "USD", Formatted: "5 USD"},
		Values:    []search.Quantity{{Value: 4, Unit: "EUR", Formatted: "4.00 EUR"}},
	}
	if diff := cmp.Diff(want, got, approx); diff != "" {
		t.Errorf("converter mismatch (-want +got):\n%s", diff)
	}

	got, ok = ConvertCurrency(Conversion{Value: 10, From: "£"}, testRates)
	if !ok {
		t.Fatal("conversion failed")
	}
	if len(got.Values) != 2 || got.Values[0].Unit != "EUR" || got.Values[1].Unit != "USD" {
		t.Errorf("values = %+v", got.Values)
	}
	if _, ok := ConvertCurrency(Conversion{Value: 1, From: "xyz"}, testRates); ok {
		t.Error("unknown currency converted")
	}
}

type fakeRates struct {
	mu    sync.Mutex
	rates map[string]float64
}

func (f *fakeRates) Rates(ctx context.Context) (map[string]float64, time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[string]float64{}
	for k, v := range f.rates {
		out[k] = v
	}
	return out, time.Now(), nil
}

func (f *fakeRates) set(code string, v float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rates[code] = v
}

func TestConverterPhysicalUnits(t *testing.T) {
	var got []search.UnitConverter
	err := NewConverter(nil, nil, nil).Search(context.Background(), "5 km", false, func(u []search.UnitConverter) { got = u })
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Dimension != Length {
		t.Errorf("got %+v", got)
	}
}

func TestConverterCurrencyRefreshesOnRates(t *testing.T) {
	b := bus.New()
	rates := &fakeRates{rates: map[string]float64{"EUR": 1, "USD": 2}}
	c := NewConverter(rates, b, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	emits := make(chan []search.UnitConverter, 4)
	go func() {
		_ = c.Search(ctx, "10 usd to eur", false, func(u []search.UnitConverter) { emits <- u })
	}()

	first := <-emits
	if len(first) != 1 || first[0].Values[0].Value != 5 {
		t.Fatalf("first = %+v", first)
	}

	rates.set("USD", 4)
	b.Emit(bus.KindStoreRates, nil)

	select {
	case next := <-emits:
		if len(next) != 1 || next[0].Values[0].Value != 2.5 {
			t.Errorf("next = %+v", next)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no refresh after rate change")
	}
}

func TestConverterIgnoresNonConversions(t *testing.T) {
	emitted := false
	err := NewConverter(&fakeRates{rates: testRates}, nil, nil).Search(context.Background(), "hello", false,
		func(u []search.UnitConverter) {
			emitted = true
			if len(u) != 0 {
				t.Errorf("got %+v", u)
			}
		})
	if err != nil || !emitted {
		t.Errorf("err = %v, emitted = %v", err, emitted)
	}
}
