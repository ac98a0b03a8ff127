package models

import "testing"

func TestNewSecurityValidation(t *testing.T) {
	tests := []struct {
		name    string
		symbol  string
		company string
		wantErr bool
	}{
		{"valid", "RELIANCE", "Reliance Industries Limited", false},
		{"trims whitespace", "  TCS  ", "Tata Consultancy Services", false},
		{"empty symbol", "", "Some Company", true},
		{"blank symbol", "   ", "Some Company", true},
		{"empty company", "INFY", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSecurity(tt.symbol, tt.company, "INE000A01001")
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewSecurity() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && s.Symbol != "RELIANCE" && s.Symbol != "TCS" && s.Symbol != "INFY" {
				t.Errorf("symbol not trimmed: %q", s.Symbol)
			}
		})
	}
}

func TestSetPriceRejectsNonPositive(t *testing.T) {
	s, _ := NewSecurity("TCS", "Tata Consultancy Services", "INE467B01029")

	if err := s.SetPrice(0); err == nil {
		t.Error("expected error for zero price")
	}
	if err := s.SetPrice(-10.5); err == nil {
		t.Error("expected error for negative price")
	}
	if s.PriceAvailable() {
		t.Error("security must stay unresolved after rejected prices")
	}

	if err := s.SetPrice(3890.25); err != nil {
		t.Fatalf("SetPrice(3890.25) error = %v", err)
	}
	if !s.PriceAvailable() {
		t.Error("security should be resolved after a valid price")
	}
	if s.CurrentPrice != 3890.25 {
		t.Errorf("CurrentPrice = %f, want 3890.25", s.CurrentPrice)
	}
}

func TestExclusionEntryMatches(t *testing.T) {
	sec, _ := NewSecurity("ADANIENT", "Adani Enterprises Ltd.", "INE423A01024")

	tests := []struct {
		name  string
		entry ExclusionEntry
		want  bool
	}{
		{"symbol exact", ExclusionEntry{Symbol: "ADANIENT"}, true},
		{"symbol case-insensitive", ExclusionEntry{Symbol: "adanient"}, true},
		{"isin exact", ExclusionEntry{ISIN: "INE423A01024"}, true},
		{"isin is case-sensitive", ExclusionEntry{ISIN: "ine423a01024"}, false},
		{"either field matches", ExclusionEntry{Symbol: "OTHER", ISIN: "INE423A01024"}, true},
		{"no match", ExclusionEntry{Symbol: "TCS", ISIN: "INE467B01029"}, false},
		{"empty entry never matches", ExclusionEntry{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.entry.Matches(sec); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}
