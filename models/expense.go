package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SharedExpense is one entry in a circle's append-only expense history.
// Invariant: sum(splits[].amount) reconciles with Amount to the minor
// currency unit, and PaidBy plus every split member belong to the circle.
// Edits replace the whole record and revalidate; there are no partial updates.
type SharedExpense struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CircleID    uuid.UUID      `gorm:"type:uuid;index" json:"circle_id"`
	Circle      ExpenseCircle  `gorm:"foreignKey:CircleID" json:"-"`
	PaidBy      uuid.UUID      `gorm:"type:uuid" json:"paid_by"`
	Payer       User           `gorm:"foreignKey:PaidBy" json:"payer,omitempty"`
	Description string         `gorm:"not null;size:255" json:"description"`
	Amount      float64        `gorm:"type:decimal(12,2);not null" json:"amount"`
	Currency    string         `gorm:"default:INR;size:3" json:"currency"`
	Category    string         `gorm:"size:50" json:"category"`            // food, transport, rent, utilities, entertainment, other
	SplitType   string         `gorm:"not null;size:20" json:"split_type"` // equal, exact_amount, percentage, shares
	Date        time.Time      `gorm:"type:date;default:CURRENT_DATE" json:"date"`
	Splits      []ExpenseSplit `gorm:"foreignKey:ExpenseID" json:"splits,omitempty"`
	CreatedBy   uuid.UUID      `gorm:"type:uuid" json:"created_by"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func (e *SharedExpense) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// ExpenseSplit is one member's portion of an expense. Amount is always the
// source of truth; Percentage and Shares only record how it was derived.
type ExpenseSplit struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ExpenseID  uuid.UUID `gorm:"type:uuid;index" json:"expense_id"`
	MemberID   uuid.UUID `gorm:"type:uuid" json:"member_id"`
	Member     User      `gorm:"foreignKey:MemberID" json:"member,omitempty"`
	Amount     float64   `gorm:"type:decimal(12,2);not null" json:"amount"`
	Percentage *float64  `json:"percentage,omitempty"`
	Shares     *float64  `json:"shares,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func (es *ExpenseSplit) BeforeCreate(tx *gorm.DB) error {
	if es.ID == uuid.Nil {
		es.ID = uuid.New()
	}
	return nil
}

// Request structs
type CreateExpenseRequest struct {
	Description string       `json:"description" binding:"required"`
	Amount      float64      `json:"amount" binding:"required,gt=0"`
	Currency    string       `json:"currency"`
	Category    string       `json:"category"`
	SplitType   string       `json:"split_type" binding:"required,oneof=equal exact_amount percentage shares"`
	Date        string       `json:"date"`    // YYYY-MM-DD
	PaidBy      string       `json:"paid_by"` // defaults to the caller
	Splits      []SplitInput `json:"splits"`  // participants; Value required for non-equal types
}

type SplitInput struct {
	MemberID string  `json:"member_id" binding:"required"`
	Value    float64 `json:"value"` // exact amount, percentage, or share count
}

type UpdateExpenseRequest struct {
	Description string       `json:"description" binding:"required"`
	Amount      float64      `json:"amount" binding:"required,gt=0"`
	Category    string       `json:"category"`
	SplitType   string       `json:"split_type" binding:"required,oneof=equal exact_amount percentage shares"`
	Date        string       `json:"date"`
	PaidBy      string       `json:"paid_by"`
	Splits      []SplitInput `json:"splits"`
}

// Response
type ExpenseResponse struct {
	ID          uuid.UUID       `json:"id"`
	CircleID    uuid.UUID       `json:"circle_id"`
	PaidBy      uuid.UUID       `json:"paid_by"`
	PayerName   string          `json:"payer_name"`
	Description string          `json:"description"`
	Amount      float64         `json:"amount"`
	Currency    string          `json:"currency"`
	Category    string          `json:"category"`
	SplitType   string          `json:"split_type"`
	Date        time.Time       `json:"date"`
	Splits      []SplitResponse `json:"splits"`
	CreatedAt   time.Time       `json:"created_at"`
}

type SplitResponse struct {
	MemberID   uuid.UUID `json:"member_id"`
	MemberName string    `json:"member_name"`
	Amount     float64   `json:"amount"`
	Percentage *float64  `json:"percentage,omitempty"`
	Shares     *float64  `json:"shares,omitempty"`
}
