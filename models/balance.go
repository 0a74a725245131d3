package models

import "github.com/google/uuid"

// NetBalance is one member's signed position within a circle. Positive means
// the member is owed money, negative means the member owes money. Balances
// are derived from the expense history on every read, never stored.
type NetBalance struct {
	MemberID   uuid.UUID `json:"member_id"`
	MemberName string    `json:"member_name,omitempty"`
	Balance    float64   `json:"balance"`
}

// SettlementSuggestion is one proposed transfer from a debtor to a creditor.
// Applying every suggestion in a plan zeroes all balances in the circle.
type SettlementSuggestion struct {
	From     uuid.UUID `json:"from"`
	FromName string    `json:"from_name,omitempty"`
	To       uuid.UUID `json:"to"`
	ToName   string    `json:"to_name,omitempty"`
	Amount   float64   `json:"amount"`
	Currency string    `json:"currency,omitempty"`
}

// CircleBalanceSummary is returned for GET /api/circles/:id/balances
type CircleBalanceSummary struct {
	CircleID   uuid.UUID              `json:"circle_id"`
	CircleName string                 `json:"circle_name"`
	Balances   []NetBalance           `json:"balances"`
	Plan       []SettlementSuggestion `json:"suggested_settlements"`
	TotalSpent float64                `json:"total_spent"`
}

// FriendBalance is the caller's aggregate position against one other user.
type FriendBalance struct {
	UserID    uuid.UUID `json:"user_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	Amount    float64   `json:"amount"` // positive = they owe you, negative = you owe them
	Currency  string    `json:"currency"`
}

// OverallBalanceSummary is returned for GET /api/balances
type OverallBalanceSummary struct {
	TotalOwed  float64         `json:"total_owed"`  // total others owe you
	TotalOwing float64         `json:"total_owing"` // total you owe others
	Friends    []FriendBalance `json:"friends"`
}
