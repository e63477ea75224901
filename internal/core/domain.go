package core

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
)

const (
	AccountBank    AccountKind = "bank"
	AccountEWallet AccountKind = "e-wallet"
	AccountCash    AccountKind = "cash"
)

const (
	InsightMonthlySummary InsightType = "monthly_summary"
	InsightSpendingAlert  InsightType = "spending_alert"
	InsightSavingTip      InsightType = "saving_tip"
)

// UncategorizedLabel names the breakdown bucket for transactions without a category.
const UncategorizedLabel = "Lainnya"

type (
	// Kind is the direction of a transaction or category.
	Kind string

	AccountKind string

	InsightType string

	Date struct {
		time.Time
	}

	User struct {
		ID           string    `json:"id"`
		Name         string    `json:"name"`
		Email        string    `json:"email"`
		PasswordHash string    `json:"-"`
		CreatedAt    time.Time `json:"createdAt"`
	}

	Account struct {
		ID        string      `json:"id"`
		UserID    string      `json:"userId"`
		Name      string      `json:"name"`
		Kind      AccountKind `json:"type"`
		Balance   Money       `json:"balance"`
		Icon      string      `json:"icon,omitempty"`
		Color     string      `json:"color,omitempty"`
		CreatedAt time.Time   `json:"createdAt"`
		UpdatedAt time.Time   `json:"updatedAt"`
	}

	// Category is either owned by a user or, with an empty UserID, a shared default.
	Category struct {
		ID        string    `json:"id"`
		UserID    string    `json:"userId,omitempty"`
		Name      string    `json:"name"`
		Kind      Kind      `json:"type"`
		Icon      string    `json:"icon,omitempty"`
		Color     string    `json:"color,omitempty"`
		Keywords  string    `json:"keywords,omitempty"`
		IsDefault bool      `json:"isDefault"`
		CreatedAt time.Time `json:"createdAt"`
	}

	// Transaction amounts are always positive; Kind carries the sign.
	Transaction struct {
		ID          string    `json:"id"`
		UserID      string    `json:"userId"`
		AccountID   string    `json:"accountId"`
		CategoryID  string    `json:"categoryId,omitempty"`
		Kind        Kind      `json:"type"`
		Amount      Money     `json:"amount"`
		Description string    `json:"description,omitempty"`
		Merchant    string    `json:"merchant,omitempty"`
		Date        Date      `json:"transactionDate"`
		CreatedAt   time.Time `json:"createdAt"`
		UpdatedAt   time.Time `json:"updatedAt"`
	}

	// TransactionDetail is a transaction joined with its account and category.
	TransactionDetail struct {
		Transaction
		Account  *Account  `json:"account,omitempty"`
		Category *Category `json:"category"`
	}

	Insight struct {
		ID        string      `json:"id"`
		UserID    string      `json:"userId"`
		Type      InsightType `json:"type"`
		Title     string      `json:"title"`
		Content   string      `json:"content"`
		Period    string      `json:"period,omitempty"`
		IsRead    bool        `json:"isRead"`
		CreatedAt time.Time   `json:"createdAt"`
	}
)

// IsValid reports whether k is income or expense.
func (k Kind) IsValid() bool {
	return k == KindIncome || k == KindExpense
}

// Effect returns the signed balance change an amount of this kind causes.
func (k Kind) Effect(amount Money) Money {
	if k == KindIncome {
		return amount
	}
	return amount.Neg()
}

func (k AccountKind) IsValid() bool {
	switch k {
	case AccountBank, AccountEWallet, AccountCash:
		return true
	default:
		return false
	}
}

func (t InsightType) IsValid() bool {
	switch t {
	case InsightMonthlySummary, InsightSpendingAlert, InsightSavingTip:
		return true
	default:
		return false
	}
}

// Effect returns the signed balance change of the transaction.
func (t Transaction) Effect() Money {
	return t.Kind.Effect(t.Amount)
}

// MatchInput is the text auto-categorization looks at: merchant first, then description.
func (t Transaction) MatchInput() string {
	if m := strings.TrimSpace(t.Merchant); m != "" {
		return m
	}
	return strings.TrimSpace(t.Description)
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in UTC.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate accepts YYYY-MM-DD or an RFC 3339 timestamp.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return DateOf(t), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return DateOf(t), nil
}

func (d Date) String() string {
	return d.Format(time.DateOnly)
}

// IsEmpty returns true if the date is zero
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
