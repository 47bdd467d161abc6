package schema

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"IRCTC ORDER NO.", "IRCTCORDERNO"},
		{"BANK BOOKING REF.NO.", "BANKBOOKINGREFNO"},
		{"TXN DATE", "TXNDATE"},
		{"credited_on", "creditedon"},
		{"  padded  header  ", "paddedheader"},
		{"Mixed.Case_Header", "MixedCaseHeader"},
		{"no-op", "no-op"},
		{"", ""},
		{"\tTAB\nAND\nNEWLINE", "TABANDNEWLINE"},
	}
	for _, c := range cases {
		if got := Normalize(c.in); got != c.want {
			t.Errorf("Normalize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	for _, in := range []string{"IRCTC ORDER NO.", "BOOKING AMOUNT", "already-normal"} {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}
