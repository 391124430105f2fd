package core

import "testing"

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{"-1.005", -101, true},
		{" 2.50 ", 250, true},
		{"-45.90", -4590, true},
		{"+3", 300, true},
		{"0", 0, false},
		{"0.001", 0, false}, // rounds to zero
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
		{"99999999999999999999", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got.Cents != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got.Cents, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestMoneyString(t *testing.T) {
	cases := map[int64]string{
		1234:  "12.34",
		-1230: "-12.30",
		5:     "0.05",
		-5:    "-0.05",
	}
	for cents, want := range cases {
		if got := (Money{Cents: cents}).String(); got != want {
			t.Fatalf("%d: got %q, want %q", cents, got, want)
		}
	}
}

func TestMoneyAbs(t *testing.T) {
	if (Money{Cents: -250}).Abs().Cents != 250 {
		t.Fatalf("expected 250")
	}
	if !(Money{Cents: 1}).IsIncome() || (Money{Cents: -1}).IsIncome() {
		t.Fatalf("IsIncome sign mismatch")
	}
}
