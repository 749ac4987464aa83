package brdoc

import "testing"

func TestFormatCEP(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"01310100", "01310-100"},
		{"01310-100", "01310-100"},
		{"  013 10 100  ", "01310-100"},
		{"0131010055", "01310-100"}, // excess digits truncated
		{"0131", "0131"},
		{"", ""},
		{"abc", ""},
	}
	for _, c := range cases {
		if got := FormatCEP(c.in); got != c.want {
			t.Errorf("FormatCEP(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestCEPDigits(t *testing.T) {
	d, ok := CEPDigits("01310-100")
	if !ok || d != "01310100" {
		t.Fatalf("CEPDigits full: got %q ok=%v", d, ok)
	}
	if _, ok := CEPDigits("0131"); ok {
		t.Fatal("expected short CEP to be invalid")
	}
}

func TestFormatCPF(t *testing.T) {
	if got := FormatCPF("12345678900"); got != "123.456.789-00" {
		t.Fatalf("got %q", got)
	}
	if got := FormatCPF("123456"); got != "123.456" {
		t.Fatalf("partial: got %q", got)
	}
	if got := FormatCPF("123456789001111"); got != "123.456.789-00" {
		t.Fatalf("truncation: got %q", got)
	}
}

func TestFormatCNPJ(t *testing.T) {
	if got := FormatCNPJ("12345678000190"); got != "12.345.678/0001-90" {
		t.Fatalf("got %q", got)
	}
	if got := FormatCNPJ("12345678"); got != "12.345.678" {
		t.Fatalf("partial: got %q", got)
	}
}

func TestFormatPhone(t *testing.T) {
	if got := FormatPhone("11987654321"); got != "(11) 98765-4321" {
		t.Fatalf("mobile: got %q", got)
	}
	if got := FormatPhone("1133334444"); got != "(11) 3333-4444" {
		t.Fatalf("landline: got %q", got)
	}
	if got := FormatPhone("119876543219999"); got != "(11) 98765-4321" {
		t.Fatalf("truncation: got %q", got)
	}
}

// Reformatting an already-formatted value must be a no-op.
func TestIdempotence(t *testing.T) {
	inputs := []struct {
		name   string
		format func(string) string
		value  string
	}{
		{"cep", FormatCEP, "01310100"},
		{"cpf", FormatCPF, "12345678900"},
		{"cnpj", FormatCNPJ, "12345678000190"},
		{"phone10", FormatPhone, "1133334444"},
		{"phone11", FormatPhone, "11987654321"},
	}
	for _, in := range inputs {
		once := in.format(in.value)
		twice := in.format(once)
		if once != twice {
			t.Errorf("%s: %q reformatted to %q", in.name, once, twice)
		}
	}
}
