// Package brdoc formats the Brazilian identifiers ToxiFácil collects on its
// forms: CEP postal codes, CPF and CNPJ documents, and phone numbers.
//
// Every formatter is total over arbitrary string input: non-digits are
// stripped, excess digits are truncated at the format's maximum length, and
// partial input is grouped as far as the digits allow. Formatting an
// already-formatted value is a no-op.
package brdoc

import "strings"

// CEPDigits strips non-digits from a postal code and reports whether the
// result has the exact 8 digits a lookup requires.
func CEPDigits(s string) (string, bool) {
	d := digits(s, 8)
	return d, len(d) == 8
}

// FormatCEP renders a postal code as NNNNN-NNN.
func FormatCEP(s string) string {
	d := digits(s, 8)
	if len(d) <= 5 {
		return d
	}
	return d[:5] + "-" + d[5:]
}

// FormatCPF renders an individual taxpayer id as NNN.NNN.NNN-NN.
func FormatCPF(s string) string {
	d := digits(s, 11)
	var b strings.Builder
	for i := 0; i < len(d); i++ {
		switch i {
		case 3, 6:
			b.WriteByte('.')
		case 9:
			b.WriteByte('-')
		}
		b.WriteByte(d[i])
	}
	return b.String()
}

// FormatCNPJ renders an organization taxpayer id as NN.NNN.NNN/NNNN-NN.
func FormatCNPJ(s string) string {
	d := digits(s, 14)
	var b strings.Builder
	for i := 0; i < len(d); i++ {
		switch i {
		case 2, 5:
			b.WriteByte('.')
		case 8:
			b.WriteByte('/')
		case 12:
			b.WriteByte('-')
		}
		b.WriteByte(d[i])
	}
	return b.String()
}

// FormatPhone renders (NN) NNNNN-NNNN for 11-digit mobile numbers and
// (NN) NNNN-NNNN for 10-digit landlines. Shorter input is grouped as far
// as it goes.
func FormatPhone(s string) string {
	d := digits(s, 11)
	if len(d) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteByte('(')
	if len(d) <= 2 {
		b.WriteString(d)
		return b.String()
	}
	b.WriteString(d[:2])
	b.WriteString(") ")
	rest := d[2:]

	// The dash sits before the final 4 digits once they exist.
	split := 4
	if len(rest) == 9 {
		split = 5
	}
	if len(rest) <= split {
		b.WriteString(rest)
		return b.String()
	}
	b.WriteString(rest[:split])
	b.WriteByte('-')
	b.WriteString(rest[split:])
	return b.String()
}

func digits(s string, max int) string {
	var b strings.Builder
	for _, r := range s {
		if r < '0' || r > '9' {
			continue
		}
		b.WriteRune(r)
		if b.Len() == max {
			break
		}
	}
	return b.String()
}
