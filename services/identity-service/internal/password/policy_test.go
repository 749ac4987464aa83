package password

import (
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	cases := []struct {
		pw    string
		valid bool
		hint  string
	}{
		{"", false, "8 caracteres"},
		{"Ab1", false, "8 caracteres"},
		// 6 characters but 8 bytes: the length rule counts characters.
		{"Açaí12", false, "8 caracteres"},
		{"abc12345", false, "maiúscula"},
		{"ABC12345", false, "minúscula"},
		{"Abcdefgh", false, "número"},
		{"Abc12345", true, ""},
		{"Açaí1234", true, ""},
	}
	for _, c := range cases {
		got := Validate(c.pw)
		if got.Valid != c.valid {
			t.Errorf("Validate(%q).Valid = %v, want %v", c.pw, got.Valid, c.valid)
			continue
		}
		if !c.valid {
			if got.Message == "" {
				t.Errorf("Validate(%q): invalid result must carry a message", c.pw)
			} else if !strings.Contains(got.Message, c.hint) {
				t.Errorf("Validate(%q).Message = %q, want mention of %q", c.pw, got.Message, c.hint)
			}
		}
		if c.valid && got.Message != "" {
			t.Errorf("Validate(%q): valid result must not carry a message, got %q", c.pw, got.Message)
		}
	}
}

// The validator is deterministic: the same input always yields the same verdict.
func TestValidateDeterministic(t *testing.T) {
	for i := 0; i < 10; i++ {
		if got := Validate("abc12345"); got.Valid || !strings.Contains(got.Message, "maiúscula") {
			t.Fatalf("iteration %d: unexpected result %+v", i, got)
		}
	}
}
