package core

import (
	"errors"
	"testing"
)

func TestValidateEmail(t *testing.T) {
	good := []string{"user.name@gmail.com", "a+b_c%d-e@gmail.com", "x@gmail.com"}
	for _, e := range good {
		if err := ValidateEmail(e); err != nil {
			t.Errorf("%q expected ok, got %v", e, err)
		}
	}
	bad := []string{"user@yahoo.com", "not-an-email", "", "user@gmail.com.evil", "user@GMAIL.COM", "us er@gmail.com"}
	for _, e := range bad {
		err := ValidateEmail(e)
		if err == nil {
			t.Errorf("%q expected error", e)
			continue
		}
		if !errors.Is(err, ErrInvalidEmail) {
			t.Errorf("%q expected ErrInvalidEmail, got %v", e, err)
		}
	}
}

func TestValidateOTP(t *testing.T) {
	cases := []struct {
		code string
		ok   bool
	}{
		{"123456", true},
		{"000000", true},
		{"12345", false},
		{"1234567", false},
		{"12a456", false},
		{"", false},
		{"١٢٣٤٥٦", false}, // non-ASCII digits
	}
	for _, tc := range cases {
		err := ValidateOTP(tc.code)
		if tc.ok && err != nil {
			t.Errorf("%q expected ok, got %v", tc.code, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidCode) {
			t.Errorf("%q expected ErrInvalidCode, got %v", tc.code, err)
		}
	}
}

func TestNormalizeOTP(t *testing.T) {
	if got := NormalizeOTP(" 12-34 5678"); got != "123456" {
		t.Fatalf("got %q", got)
	}
}

func TestNewDraft(t *testing.T) {
	t.Run("revenue description is derived", func(t *testing.T) {
		d, err := NewDraft(DraftInput{Kind: "Revenue", CategorySource: "Swiggy", Amount: "1200", Description: "ignored"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if d.Description != "Swiggy payout" || d.Kind != Revenue {
			t.Fatalf("unexpected draft: %+v", d)
		}
	})

	t.Run("revenue with orders", func(t *testing.T) {
		d, err := NewDraft(DraftInput{Kind: "Revenue", CategorySource: "Zomato", Amount: "800", OrderCount: "12"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if d.Description != "Zomato payout (12 orders)" {
			t.Fatalf("unexpected description %q", d.Description)
		}
	})

	t.Run("expense default description", func(t *testing.T) {
		d, err := NewDraft(DraftInput{Kind: "Expense", CategorySource: "Rent", Amount: "15000"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if d.Description != "Rent expense" {
			t.Fatalf("unexpected description %q", d.Description)
		}
	})

	t.Run("expense keeps description", func(t *testing.T) {
		d, err := NewDraft(DraftInput{Kind: "Expense", CategorySource: "Food", Amount: "99.5", Description: " onions "})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if d.Description != "onions" || d.Amount.String() != "99.5" {
			t.Fatalf("unexpected draft: %+v", d)
		}
	})

	bads := []DraftInput{
		{Kind: "", CategorySource: "Food", Amount: "1"},
		{Kind: "Refund", CategorySource: "Food", Amount: "1"},
		{Kind: "Expense", CategorySource: " ", Amount: "1"},
		{Kind: "Expense", CategorySource: "Food", Amount: "0"},
		{Kind: "Expense", CategorySource: "Food", Amount: ""},
		{Kind: "Revenue", CategorySource: "Swiggy", Amount: "10", OrderCount: "0"},
		{Kind: "Revenue", CategorySource: "Swiggy", Amount: "10", OrderCount: "many"},
	}
	for i, in := range bads {
		if _, err := NewDraft(in); !IsValidation(err) {
			t.Fatalf("case %d expected validation error, got %v", i, err)
		}
	}
}

func TestValidateRestaurantName(t *testing.T) {
	name, err := ValidateRestaurantName("  Tandoor Nights ")
	if err != nil || name != "Tandoor Nights" {
		t.Fatalf("got %q, %v", name, err)
	}
	if _, err := ValidateRestaurantName("   "); !errors.Is(err, ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
}
