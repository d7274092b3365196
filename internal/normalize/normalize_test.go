package normalize

import (
	"testing"
)

var sentinelTokens = []any{"", "nan", "NaN", "None", "---", "  ", nil}

func TestIsNullSentinel(t *testing.T) {
	for _, tok := range sentinelTokens {
		if !IsNullSentinel(tok) {
			t.Fatalf("expected %#v to be a null sentinel", tok)
		}
	}
	for _, v := range []any{"Pendente", "0", 0.0, false, "R$ 1,00"} {
		if IsNullSentinel(v) {
			t.Fatalf("expected %#v not to be a null sentinel", v)
		}
	}
}

func TestTextSanitizes(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{"  pendente ", "Pendente"},
		{"PENDENTE", "Pendente"},
		{"aguardando pagamento", "Aguardando Pagamento"},
		{"são paulo ltda", "São Paulo Ltda"},
	}
	for _, tt := range tests {
		got := Text(tt.in)
		if got == nil || *got != tt.want {
			t.Fatalf("Text(%q): expected %q, got %v", tt.in, tt.want, got)
		}
	}

	for _, tok := range sentinelTokens {
		if got := Text(tok); got != nil {
			t.Fatalf("Text(%#v): expected nil, got %q", tok, *got)
		}
	}
	// "none" re-folds to the placeholder spelling "None" after title-casing.
	if got := Text("none"); got != nil {
		t.Fatalf("Text(none): expected nil, got %q", *got)
	}
}

func TestCurrency(t *testing.T) {
	tests := []struct {
		in   any
		want float64
	}{
		{"R$ 1.234,56", 1234.56},
		{"1234.56", 1234.56},
		{"1.234,56", 1234.56},
		{"R$1,50", 1.5},
		{" 200,00 ", 200},
		{1234.56, 1234.56},
		{42, 42},
	}
	for _, tt := range tests {
		got := Currency(tt.in)
		if got == nil || *got != tt.want {
			t.Fatalf("Currency(%v): expected %v, got %v", tt.in, tt.want, got)
		}
	}

	for _, bad := range append(sentinelTokens, "abc", "R$ abc") {
		if got := Currency(bad); got != nil {
			t.Fatalf("Currency(%#v): expected nil, got %v", bad, *got)
		}
	}
}

func TestPercentage(t *testing.T) {
	tests := []struct {
		in   any
		want float64
	}{
		{"12,5%", 12.5},
		{"12.5%", 12.5},
		{"1,2 %", 1.2},
		{12.5, 12.5},
	}
	for _, tt := range tests {
		got := Percentage(tt.in)
		if got == nil || *got != tt.want {
			t.Fatalf("Percentage(%v): expected %v, got %v", tt.in, tt.want, got)
		}
	}

	for _, bad := range append(sentinelTokens, "abc") {
		if got := Percentage(bad); got != nil {
			t.Fatalf("Percentage(%#v): expected nil, got %v", bad, *got)
		}
	}
}

func TestDate(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{"2024-03-01", "2024-03-01"},
		{"01/03/2024", "2024-03-01"},
		{"1/3/2024", "2024-03-01"},
		{"15/02/2024 10:30:00", "2024-02-15"},
		{"2024-02-15T10:30:00Z", "2024-02-15"},
	}
	for _, tt := range tests {
		got := Date(tt.in)
		if got == nil || *got != tt.want {
			t.Fatalf("Date(%v): expected %q, got %v", tt.in, tt.want, got)
		}
	}

	for _, bad := range append(sentinelTokens, "not a date", "32/13/2024") {
		if got := Date(bad); got != nil {
			t.Fatalf("Date(%#v): expected nil, got %q", bad, *got)
		}
	}
}

func TestBoolean(t *testing.T) {
	truthy := []any{"sim", "SIM", "Sim ", "yes", "true", "1", true}
	for _, v := range truthy {
		got := Boolean(v)
		if got == nil || !*got {
			t.Fatalf("Boolean(%#v): expected true, got %v", v, got)
		}
	}

	falsy := []any{"não", "nao", "no", "0", "qualquer texto", false}
	for _, v := range falsy {
		got := Boolean(v)
		if got == nil || *got {
			t.Fatalf("Boolean(%#v): expected false, got %v", v, got)
		}
	}

	for _, tok := range sentinelTokens {
		if got := Boolean(tok); got != nil {
			t.Fatalf("Boolean(%#v): expected nil, got %v", tok, *got)
		}
	}
}

func TestIntegerRoundsHalfAwayFromZero(t *testing.T) {
	tests := []struct {
		in   any
		want int64
	}{
		{"30", 30},
		{"30.4", 30},
		{"30.5", 31},
		{"-30.5", -31},
		{29.6, 30},
		{30, 30},
	}
	for _, tt := range tests {
		got := Integer(tt.in)
		if got == nil || *got != tt.want {
			t.Fatalf("Integer(%v): expected %d, got %v", tt.in, tt.want, got)
		}
	}

	for _, bad := range append(sentinelTokens, "abc") {
		if got := Integer(bad); got != nil {
			t.Fatalf("Integer(%#v): expected nil, got %v", bad, *got)
		}
	}
}
