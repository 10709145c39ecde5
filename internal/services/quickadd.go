package services

import (
	"strings"

	"subtrack/internal/core"
)

// TokenizeQuickAdd turns a one-line entry like
//
//	"Netflix 129 kr 15.01.26"
//
// into a subscription candidate. The last token must be a date; the
// remaining tokens are scanned right to left, capturing the first
// number as the amount and the first currency token as the currency.
// Tokens captured by neither become the service name, in their
// original order, so "kr 129" and "129 kr" tokenize identically and a
// digit-bearing name like "1password 29 kr 15.01.26" keeps its name.
//
// Failure is an expected outcome for free text, so the function
// reports ok=false instead of an error.
func TokenizeQuickAdd(text string, fallback core.Currency) (core.QuickAddCandidate, bool) {
	tokens := strings.Fields(strings.TrimSpace(text))
	if len(tokens) < 2 {
		return core.QuickAddCandidate{}, false
	}

	chargeDate, ok := core.ParseDate(tokens[len(tokens)-1])
	if !ok {
		return core.QuickAddCandidate{}, false
	}
	tokens = tokens[:len(tokens)-1]

	var (
		cents      int64
		haveAmount bool
		currency   core.Currency
		haveCur    bool
		nameTokens []string
	)
	for i := len(tokens) - 1; i >= 0; i-- {
		tok := tokens[i]
		if !haveAmount {
			if c, err := core.ParseAmountCents(tok); err == nil {
				cents = c
				haveAmount = true
				continue
			}
			// Attached symbol form: €9.99.
			if m, err := core.ParsePrice(tok, ""); err == nil {
				cents = m.Cents
				haveAmount = true
				if !haveCur {
					currency = m.Currency
					haveCur = true
				}
				continue
			}
		}
		if !haveCur {
			if c, ok := core.NormalizeCurrency(tok); ok {
				currency = c
				haveCur = true
				continue
			}
		}
		nameTokens = append([]string{tok}, nameTokens...)
	}

	if !haveAmount || len(nameTokens) == 0 {
		return core.QuickAddCandidate{}, false
	}
	if !haveCur {
		currency = fallback
		if !currency.Valid() {
			currency = core.DefaultCurrency
		}
	}

	rawName := strings.Join(nameTokens, " ")
	name, category, _ := core.LookupService(rawName)

	cand := core.QuickAddCandidate{
		Name:       name,
		Price:      core.Money{Cents: cents, Currency: currency},
		ChargeDate: chargeDate,
		Category:   category,
	}
	if err := cand.Validate(); err != nil {
		return core.QuickAddCandidate{}, false
	}
	return cand, true
}
