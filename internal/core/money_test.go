package core

import "testing"

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.5", "1.5", true},
		{"1,25", "1.25", true},
		{" 250 ", "250", true},
		{"0.01", "0.01", true},
		{"0", "", false},
		{"-1", "", false},
		{"+1", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"1,234.50", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got.String() != tc.out {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got.String(), err)
			}
			continue
		}
		if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
		if !IsValidation(err) {
			t.Fatalf("%q expected validation error, got %T", tc.in, err)
		}
	}
}

func TestFormatAmount(t *testing.T) {
	cases := []struct {
		in  float64
		out string
	}{
		{0, "₹0"},
		{12, "₹12"},
		{1250.5, "₹1,250.50"},
		{123456, "₹123,456"},
		{1234567.891, "₹1,234,567.89"},
		{-400, "-₹400"},
	}
	for _, tc := range cases {
		if got := FormatAmount(NewMoney(tc.in)); got != tc.out {
			t.Errorf("FormatAmount(%v) = %q, want %q", tc.in, got, tc.out)
		}
	}
}

func TestMoneyJSON(t *testing.T) {
	var m Money
	if err := m.UnmarshalJSON([]byte(`149.75`)); err != nil {
		t.Fatalf("unmarshal number: %v", err)
	}
	if m.String() != "149.75" {
		t.Fatalf("unexpected value %s", m.String())
	}
	if err := m.UnmarshalJSON([]byte(`"20"`)); err != nil {
		t.Fatalf("unmarshal quoted: %v", err)
	}
	b, err := m.MarshalJSON()
	if err != nil || string(b) != "20" {
		t.Fatalf("expected bare number, got %s (err=%v)", b, err)
	}
}
