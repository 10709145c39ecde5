// Package core holds the domain value types and the parsing logic for
// prices, currencies and calendar dates.
//
// This file owns money: currency normalization through a fixed alias
// table, free-text price parsing, display formatting and the canonical
// pack/unpack storage codec.
package core

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

type Currency string

const (
	NOK Currency = "NOK"
	EUR Currency = "EUR"
	USD Currency = "USD"
	RUB Currency = "RUB"
	SEK Currency = "SEK"
	DKK Currency = "DKK"
	GBP Currency = "GBP"

	DefaultCurrency = NOK
)

// Money is an amount in cents plus its currency. Cents keep the
// arithmetic exact; floats appear only at the display boundary.
type Money struct {
	Cents    int64
	Currency Currency
}

// currencyAliases maps colloquial spellings, symbols and abbreviations
// to a supported currency. Keys are lowercase. The table is fixed
// configuration, built once and never mutated.
var currencyAliases = map[string]Currency{
	"nok": NOK, "kr": NOK, "кр": NOK, "крон": NOK, "крона": NOK, "кроны": NOK,
	"норвежских": NOK, "норвежские": NOK, "норвежская": NOK,
	"eur": EUR, "€": EUR, "euro": EUR, "euros": EUR, "евро": EUR,
	"usd": USD, "$": USD, "доллар": USD, "долларов": USD, "доллара": USD,
	"баксов": USD, "баксы": USD, "бакс": USD,
	"rub": RUB, "₽": RUB, "руб": RUB, "рубль": RUB, "рублей": RUB, "рубля": RUB, "р": RUB,
	"sek": SEK, "шведских": SEK, "шведские": SEK, "шведская": SEK,
	"dkk": DKK, "датских": DKK, "датские": DKK, "датская": DKK,
	"gbp": GBP, "£": GBP, "фунт": GBP, "фунтов": GBP, "фунта": GBP,
}

var currencySymbols = map[Currency]string{
	NOK: "kr", EUR: "€", USD: "$", RUB: "₽",
	SEK: "kr", DKK: "kr", GBP: "£",
}

// prefixed currencies render the symbol before the amount; the rest
// render it after, separated by a space.
var prefixedSymbol = map[Currency]bool{EUR: true, USD: true, GBP: true}

func (c Currency) Valid() bool {
	_, ok := currencySymbols[c]
	return ok
}

// Symbol returns the display symbol, falling back to the code itself.
func (c Currency) Symbol() string {
	if s, ok := currencySymbols[c]; ok {
		return s
	}
	return string(c)
}

// NormalizeCurrency resolves a free-text token to a supported currency.
// The uppercased token wins if it is already an ISO-like code; otherwise
// the alias table is consulted. Lookup is case-insensitive.
func NormalizeCurrency(token string) (Currency, bool) {
	t := strings.TrimSpace(token)
	if t == "" {
		return "", false
	}
	if c := Currency(strings.ToUpper(t)); c.Valid() {
		return c, true
	}
	c, ok := currencyAliases[strings.ToLower(t)]
	return c, ok
}

// IsCurrencyToken reports whether token names a supported currency.
func IsCurrencyToken(token string) bool {
	_, ok := NormalizeCurrency(token)
	return ok
}

func (m Money) Validate() error {
	if m.Cents <= 0 || m.Cents > MaxPriceCents {
		return ErrOutOfRange
	}
	if !m.Currency.Valid() {
		return ErrUnknownCurrency
	}
	return nil
}

// Units returns the amount in whole currency units for display purposes.
// Use Cents for calculations.
func (m Money) Units() float64 {
	return float64(m.Cents) / 100.0
}

// ParseAmountCents converts a decimal string to cents. It accepts both
// dot (12.34) and comma (12,34) decimal separators and performs half-up
// rounding on the third decimal place.
//
// Returns ErrMalformedInput for anything that is not a plain positive
// decimal, and ErrOutOfRange when the amount is zero or above MaxPrice.
func ParseAmountCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrMalformedInput
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrMalformedInput
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrMalformedInput
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	if intPart == "0" && fracPart == "" {
		return 0, ErrOutOfRange
	}
	for _, r := range intPart + fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrMalformedInput
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrMalformedInput
	}
	if iv > MaxPrice {
		return 0, ErrOutOfRange
	}
	// First two fractional digits, half-up rounding on the third.
	var fracCents int64
	if len(fracPart) > 0 {
		fracCents = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}
	cents := iv*100 + fracCents
	if cents <= 0 || cents > MaxPriceCents {
		return 0, ErrOutOfRange
	}
	return cents, nil
}

// ParsePrice parses a free-text price like "129", "129 kr", "kr 129",
// "9,99 EUR" or "€9.99". With a single token the fallback currency is
// assumed. With two tokens either order is accepted: whichever token is
// not a recognized currency is parsed as the amount.
func ParsePrice(input string, fallback Currency) (Money, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return Money{}, ErrMalformedInput
	}
	if !fallback.Valid() {
		fallback = DefaultCurrency
	}

	// Attached symbol form: €100, $9.99.
	if r := []rune(input); len(r) > 1 {
		if cur, ok := currencyAliases[string(r[0])]; ok {
			cents, err := ParseAmountCents(strings.TrimSpace(string(r[1:])))
			if err != nil {
				return Money{}, err
			}
			return Money{Cents: cents, Currency: cur}, nil
		}
	}

	parts := strings.Fields(input)
	switch len(parts) {
	case 1:
		cents, err := ParseAmountCents(parts[0])
		if err != nil {
			return Money{}, err
		}
		return Money{Cents: cents, Currency: fallback}, nil
	case 2:
		numTok, curTok := parts[0], parts[1]
		cur, ok := NormalizeCurrency(curTok)
		if !ok {
			// Reversed order: "EUR 100".
			cur, ok = NormalizeCurrency(numTok)
			if !ok {
				return Money{}, ErrUnknownCurrency
			}
			numTok = curTok
		}
		cents, err := ParseAmountCents(numTok)
		if err != nil {
			return Money{}, err
		}
		return Money{Cents: cents, Currency: cur}, nil
	}
	return Money{}, ErrMalformedInput
}

// FormatPrice renders a money value for display: two decimals, space as
// thousands separator, comma as decimal separator, symbol placed per
// currency convention ("€1 234,56" but "1 234,56 kr").
func FormatPrice(m Money) string {
	units := m.Cents / 100
	rem := m.Cents % 100
	if rem < 0 {
		rem = -rem
	}
	num := groupThousands(strconv.FormatInt(units, 10)) + "," + fmt.Sprintf("%02d", rem)
	if prefixedSymbol[m.Currency] {
		return m.Currency.Symbol() + num
	}
	return num + " " + m.Currency.Symbol()
}

func groupThousands(digits string) string {
	neg := strings.HasPrefix(digits, "-")
	if neg {
		digits = digits[1:]
	}
	if len(digits) > 3 {
		var b strings.Builder
		lead := len(digits) % 3
		if lead > 0 {
			b.WriteString(digits[:lead])
		}
		for i := lead; i < len(digits); i += 3 {
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(digits[i : i+3])
		}
		digits = b.String()
	}
	if neg {
		return "-" + digits
	}
	return digits
}

// PackPrice encodes a money value in the canonical storage form
// "<amount with 2 decimals> <CODE>", e.g. "129.00 NOK". Any storage
// backend can adopt this form verbatim.
func PackPrice(m Money) string {
	return fmt.Sprintf("%d.%02d %s", m.Cents/100, m.Cents%100, m.Currency)
}

// UnpackPrice decodes the canonical storage form. It fails closed:
// malformed input yields ErrMalformedInput, never a panic, so callers
// can distinguish corruption from a legitimate zero value.
func UnpackPrice(s string) (Money, error) {
	parts := strings.Fields(s)
	if len(parts) != 2 {
		return Money{}, ErrMalformedInput
	}
	cents, err := ParseAmountCents(parts[0])
	if err != nil {
		return Money{}, ErrMalformedInput
	}
	cur := Currency(strings.ToUpper(parts[1]))
	if !cur.Valid() {
		return Money{}, ErrMalformedInput
	}
	return Money{Cents: cents, Currency: cur}, nil
}
