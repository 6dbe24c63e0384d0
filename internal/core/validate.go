package core

import (
	"regexp"
	"strconv"
	"strings"
)

// PermittedEmailDomain is the only mailbox provider accepted at login.
const PermittedEmailDomain = "gmail.com"

// OTPLength is the number of digits in a one-time passcode.
const OTPLength = 6

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@gmail\.com$`)

// ValidateEmail accepts syntactically valid addresses on PermittedEmailDomain.
func ValidateEmail(email string) error {
	if !emailPattern.MatchString(email) {
		return &ValidationError{
			Field: "email",
			Msg:   "please enter a valid @" + PermittedEmailDomain + " address",
			Err:   ErrInvalidEmail,
		}
	}
	return nil
}

// ValidateOTP accepts exactly OTPLength ASCII digits.
func ValidateOTP(code string) error {
	if len(code) != OTPLength {
		return &ValidationError{Field: "code", Msg: "please enter all 6 digits", Err: ErrInvalidCode}
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return &ValidationError{Field: "code", Msg: "code must be numeric", Err: ErrInvalidCode}
		}
	}
	return nil
}

// NormalizeOTP strips everything but digits and truncates to OTPLength,
// mirroring what the code input field allows.
func NormalizeOTP(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
			if b.Len() == OTPLength {
				break
			}
		}
	}
	return b.String()
}

// ValidateRestaurantName trims name and rejects blanks.
func ValidateRestaurantName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", &ValidationError{Field: "restaurant_name", Msg: "please enter a restaurant name", Err: ErrEmptyName}
	}
	return name, nil
}

// DraftInput is raw form input for a new transaction.
type DraftInput struct {
	Kind           string
	Description    string
	CategorySource string
	Amount         string
	OrderCount     string // revenue only, optional
}

// NewDraft validates in and fills the default description.
//
// Revenue descriptions are always derived from the platform ("Swiggy payout",
// optionally "Swiggy payout (12 orders)"). Expenses keep the typed
// description and fall back to "<category> expense" when it is blank.
func NewDraft(in DraftInput) (TransactionDraft, error) {
	kind, err := ParseKind(in.Kind)
	if err != nil {
		return TransactionDraft{}, err
	}
	source := strings.TrimSpace(in.CategorySource)
	if source == "" {
		field := "category"
		if kind == Revenue {
			field = "source"
		}
		return TransactionDraft{}, &ValidationError{Field: field, Msg: "please fill in all required fields", Err: ErrEmptyCategory}
	}
	amount, err := ParseAmount(in.Amount)
	if err != nil {
		return TransactionDraft{}, err
	}

	desc := strings.TrimSpace(in.Description)
	switch kind {
	case Revenue:
		desc = source + " payout"
		if oc := strings.TrimSpace(in.OrderCount); oc != "" {
			n, err := strconv.Atoi(oc)
			if err != nil || n <= 0 {
				return TransactionDraft{}, &ValidationError{Field: "orders", Msg: "please enter a valid number of orders", Err: ErrInvalidOrders}
			}
			desc += " (" + strconv.Itoa(n) + " orders)"
		}
	case Expense:
		if desc == "" {
			desc = source + " expense"
		}
	}

	return TransactionDraft{
		Kind:           kind,
		Description:    desc,
		CategorySource: source,
		Amount:         amount,
	}, nil
}
