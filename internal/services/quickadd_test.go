package services

import (
	"testing"
	"time"

	"subtrack/internal/core"
)

func TestTokenizeQuickAdd(t *testing.T) {
	jan15 := core.NewDate(2026, time.January, 15)

	tests := []struct {
		name  string
		input string
		want  core.QuickAddCandidate
		ok    bool
	}{
		{
			name:  "name amount currency date",
			input: "Netflix 129 kr 15.01.26",
			want: core.QuickAddCandidate{
				Name:       "Netflix",
				Price:      core.Money{Cents: 12900, Currency: core.NOK},
				ChargeDate: jan15,
				Category:   "Streaming",
			},
			ok: true,
		},
		{
			name:  "currency before amount",
			input: "Netflix kr 129 15.01.26",
			want: core.QuickAddCandidate{
				Name:       "Netflix",
				Price:      core.Money{Cents: 12900, Currency: core.NOK},
				ChargeDate: jan15,
				Category:   "Streaming",
			},
			ok: true,
		},
		{
			name:  "no currency uses fallback",
			input: "Spotify 109 15.01.2026",
			want: core.QuickAddCandidate{
				Name:       "Spotify",
				Price:      core.Money{Cents: 10900, Currency: core.EUR},
				ChargeDate: jan15,
				Category:   "Music",
			},
			ok: true,
		},
		{
			name:  "attached symbol",
			input: "Netflix €9.99 15/01/26",
			want: core.QuickAddCandidate{
				Name:       "Netflix",
				Price:      core.Money{Cents: 999, Currency: core.EUR},
				ChargeDate: jan15,
				Category:   "Streaming",
			},
			ok: true,
		},
		{
			name:  "digit-leading name survives",
			input: "1password 29 kr 15.01.26",
			want: core.QuickAddCandidate{
				Name:       "1password",
				Price:      core.Money{Cents: 2900, Currency: core.NOK},
				ChargeDate: jan15,
				Category:   "Other",
			},
			ok: true,
		},
		{
			name:  "multi word unknown name",
			input: "my gym membership 450 kr 15.01.26",
			want: core.QuickAddCandidate{
				Name:       "my gym membership",
				Price:      core.Money{Cents: 45000, Currency: core.NOK},
				ChargeDate: jan15,
				Category:   "Other",
			},
			ok: true,
		},
		{
			name:  "catalog canonicalizes case",
			input: "netflix 129 kr 15.01.26",
			want: core.QuickAddCandidate{
				Name:       "Netflix",
				Price:      core.Money{Cents: 12900, Currency: core.NOK},
				ChargeDate: jan15,
				Category:   "Streaming",
			},
			ok: true,
		},
		{name: "missing date", input: "Netflix 129 kr", ok: false},
		{name: "missing amount", input: "Netflix kr 15.01.26", ok: false},
		{name: "missing name", input: "129 kr 15.01.26", ok: false},
		{name: "empty", input: "", ok: false},
		{name: "date only", input: "15.01.26", ok: false},
		{name: "amount over limit", input: "Netflix 1000001 kr 15.01.26", ok: false},
		{name: "zero amount", input: "Netflix 0 kr 15.01.26", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := TokenizeQuickAdd(tt.input, core.EUR)
			if ok != tt.ok {
				t.Fatalf("TokenizeQuickAdd(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			}
			if !ok {
				return
			}
			if got.Name != tt.want.Name || got.Price != tt.want.Price ||
				!got.ChargeDate.Equal(tt.want.ChargeDate) || got.Category != tt.want.Category {
				t.Fatalf("TokenizeQuickAdd(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestTokenizeQuickAddOrderIndependence(t *testing.T) {
	a, okA := TokenizeQuickAdd("Netflix 129 kr 15.01.26", core.NOK)
	b, okB := TokenizeQuickAdd("Netflix kr 129 15.01.26", core.NOK)
	if !okA || !okB {
		t.Fatalf("tokenize failed: %v %v", okA, okB)
	}
	if a.Name != b.Name || a.Price != b.Price || !a.ChargeDate.Equal(b.ChargeDate) {
		t.Fatalf("token order changed the candidate: %+v vs %+v", a, b)
	}
}
