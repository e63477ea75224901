package core

import (
	"net/mail"
	"strings"
	"unicode/utf8"
)

const (
	MaxNameLength     = 50
	DefaultListLimit  = 50
	MaxListLimit      = 100
	InsightListLimit  = 20
	minPasswordLength = 6
)

// AccountInput holds the fields of a new account.
type AccountInput struct {
	Name    string      `json:"name"`
	Kind    AccountKind `json:"type"`
	Balance Money       `json:"balance"`
	Icon    string      `json:"icon"`
	Color   string      `json:"color"`
}

func (in AccountInput) Validate() error {
	v := NewValidationError()
	checkName(v, in.Name)
	if !in.Kind.IsValid() {
		v.Add("type", "must be one of bank, e-wallet, cash")
	}
	return v.OrNil()
}

// AccountPatch is a partial account update; nil fields are left unchanged.
type AccountPatch struct {
	Name    *string      `json:"name"`
	Kind    *AccountKind `json:"type"`
	Balance *Money       `json:"balance"`
	Icon    *string      `json:"icon"`
	Color   *string      `json:"color"`
}

func (p AccountPatch) Validate() error {
	v := NewValidationError()
	if p.Name != nil {
		checkName(v, *p.Name)
	}
	if p.Kind != nil && !p.Kind.IsValid() {
		v.Add("type", "must be one of bank, e-wallet, cash")
	}
	return v.OrNil()
}

// Apply copies the set fields onto a.
func (p AccountPatch) Apply(a *Account) {
	if p.Name != nil {
		a.Name = strings.TrimSpace(*p.Name)
	}
	if p.Kind != nil {
		a.Kind = *p.Kind
	}
	if p.Balance != nil {
		a.Balance = *p.Balance
	}
	if p.Icon != nil {
		a.Icon = *p.Icon
	}
	if p.Color != nil {
		a.Color = *p.Color
	}
}

type CategoryInput struct {
	Name     string `json:"name"`
	Kind     Kind   `json:"type"`
	Icon     string `json:"icon"`
	Color    string `json:"color"`
	Keywords string `json:"keywords"`
}

func (in CategoryInput) Validate() error {
	v := NewValidationError()
	checkName(v, in.Name)
	if !in.Kind.IsValid() {
		v.Add("type", "must be income or expense")
	}
	return v.OrNil()
}

type CategoryPatch struct {
	Name     *string `json:"name"`
	Kind     *Kind   `json:"type"`
	Icon     *string `json:"icon"`
	Color    *string `json:"color"`
	Keywords *string `json:"keywords"`
}

func (p CategoryPatch) Validate() error {
	v := NewValidationError()
	if p.Name != nil {
		checkName(v, *p.Name)
	}
	if p.Kind != nil && !p.Kind.IsValid() {
		v.Add("type", "must be income or expense")
	}
	return v.OrNil()
}

func (p CategoryPatch) Apply(c *Category) {
	if p.Name != nil {
		c.Name = strings.TrimSpace(*p.Name)
	}
	if p.Kind != nil {
		c.Kind = *p.Kind
	}
	if p.Icon != nil {
		c.Icon = *p.Icon
	}
	if p.Color != nil {
		c.Color = *p.Color
	}
	if p.Keywords != nil {
		c.Keywords = *p.Keywords
	}
}

// TransactionInput holds the fields of a new transaction. An empty
// CategoryID asks for auto-categorization.
type TransactionInput struct {
	AccountID   string `json:"accountId"`
	CategoryID  string `json:"categoryId"`
	Kind        Kind   `json:"type"`
	Amount      Money  `json:"amount"`
	Description string `json:"description"`
	Merchant    string `json:"merchant"`
	Date        Date   `json:"transactionDate"`
}

func (in TransactionInput) Validate() error {
	v := NewValidationError()
	if strings.TrimSpace(in.AccountID) == "" {
		v.Add("accountId", "is required")
	}
	if !in.Kind.IsValid() {
		v.Add("type", "must be income or expense")
	}
	if err := in.Amount.Validate(); err != nil {
		v.Add("amount", "must be greater than 0")
	}
	if in.Date.IsZero() {
		v.Add("transactionDate", "is required")
	}
	return v.OrNil()
}

// TransactionPatch is a partial transaction update. ClearCategory removes the
// category; otherwise a non-nil CategoryID replaces it.
type TransactionPatch struct {
	AccountID     *string
	CategoryID    *string
	ClearCategory bool
	Kind          *Kind
	Amount        *Money
	Description   *string
	Merchant      *string
	Date          *Date
}

func (p TransactionPatch) Validate() error {
	v := NewValidationError()
	if p.AccountID != nil && strings.TrimSpace(*p.AccountID) == "" {
		v.Add("accountId", "must not be empty")
	}
	if p.Kind != nil && !p.Kind.IsValid() {
		v.Add("type", "must be income or expense")
	}
	if p.Amount != nil && p.Amount.Validate() != nil {
		v.Add("amount", "must be greater than 0")
	}
	if p.Date != nil && p.Date.IsZero() {
		v.Add("transactionDate", "must be a valid date")
	}
	return v.OrNil()
}

// Apply copies the set fields onto t. AccountID is handled by the caller.
func (p TransactionPatch) Apply(t *Transaction) {
	switch {
	case p.ClearCategory:
		t.CategoryID = ""
	case p.CategoryID != nil:
		t.CategoryID = *p.CategoryID
	}
	if p.Kind != nil {
		t.Kind = *p.Kind
	}
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Merchant != nil {
		t.Merchant = *p.Merchant
	}
	if p.Date != nil {
		t.Date = *p.Date
	}
}

// TransactionFilter narrows a transaction listing. Zero fields are ignored.
type TransactionFilter struct {
	AccountID  string
	CategoryID string
	Kind       Kind
	Range      DateRange
	Search     string
	Limit      int
	Offset     int
}

// Normalize applies defaults and checks bounds.
func (f *TransactionFilter) Normalize() error {
	v := NewValidationError()
	if f.Kind != "" && !f.Kind.IsValid() {
		v.Add("type", "must be income or expense")
	}
	switch {
	case f.Limit == 0:
		f.Limit = DefaultListLimit
	case f.Limit < 1 || f.Limit > MaxListLimit:
		v.Add("limit", "must be between 1 and 100")
	}
	if f.Offset < 0 {
		v.Add("offset", "must be 0 or greater")
	}
	if !f.Range.From.IsZero() && !f.Range.To.IsZero() && f.Range.To.Before(f.Range.From.Time) {
		v.Add("endDate", "must not be before startDate")
	}
	f.Search = strings.TrimSpace(f.Search)
	return v.OrNil()
}

// Matches reports whether t passes the filter, ignoring paging.
func (f TransactionFilter) Matches(t Transaction) bool {
	if f.AccountID != "" && t.AccountID != f.AccountID {
		return false
	}
	if f.CategoryID != "" && t.CategoryID != f.CategoryID {
		return false
	}
	if f.Kind != "" && t.Kind != f.Kind {
		return false
	}
	if !f.Range.Contains(t.Date) {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(t.Description), q) && !strings.Contains(strings.ToLower(t.Merchant), q) {
			return false
		}
	}
	return true
}

// InsightFilter narrows an insight listing.
type InsightFilter struct {
	Type       InsightType
	UnreadOnly bool
	Limit      int
}

type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (in RegisterInput) Validate() error {
	v := NewValidationError()
	if n := utf8.RuneCountInString(strings.TrimSpace(in.Name)); n < 2 || n > MaxNameLength {
		v.Add("name", "must be between 2 and 50 characters")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		v.Add("email", "must be a valid email address")
	}
	if len(in.Password) < minPasswordLength {
		v.Add("password", "must be at least 6 characters")
	}
	return v.OrNil()
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (in LoginInput) Validate() error {
	v := NewValidationError()
	if _, err := mail.ParseAddress(in.Email); err != nil {
		v.Add("email", "must be a valid email address")
	}
	if in.Password == "" {
		v.Add("password", "is required")
	}
	return v.OrNil()
}

// NormalizeEmail lowercases and trims an address for lookups.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func checkName(v *ValidationError, name string) {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	if n < 1 || n > MaxNameLength {
		v.Add("name", "must be between 1 and 50 characters")
	}
}
