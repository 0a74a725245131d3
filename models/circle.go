package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ExpenseCircle is the unit of balance isolation: expenses, balances and
// settlements never cross circle boundaries.
type ExpenseCircle struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Name             string          `gorm:"not null;size:100" json:"name"`
	Icon             string          `gorm:"size:50" json:"icon,omitempty"` // emoji or icon key, e.g. trip, home
	Currency         string          `gorm:"default:INR;size:3" json:"currency"`
	DefaultSplitType string          `gorm:"default:equal;size:20" json:"default_split_type"` // equal, exact_amount, percentage, shares
	CreatedBy        uuid.UUID       `gorm:"type:uuid" json:"created_by"`
	Creator          User            `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
	Members          []CircleMember  `gorm:"foreignKey:CircleID" json:"members,omitempty"`
	Expenses         []SharedExpense `gorm:"foreignKey:CircleID" json:"expenses,omitempty"`
	Settlements      []Settlement    `gorm:"foreignKey:CircleID" json:"settlements,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func (ec *ExpenseCircle) BeforeCreate(tx *gorm.DB) error {
	if ec.ID == uuid.Nil {
		ec.ID = uuid.New()
	}
	return nil
}

// Member returns the membership row for the given user, or nil.
func (ec *ExpenseCircle) Member(userID uuid.UUID) *CircleMember {
	for i := range ec.Members {
		if ec.Members[i].UserID == userID {
			return &ec.Members[i]
		}
	}
	return nil
}

// HasMember reports whether the user currently belongs to the circle.
func (ec *ExpenseCircle) HasMember(userID uuid.UUID) bool {
	return ec.Member(userID) != nil
}

type CircleMember struct {
	CircleID uuid.UUID `gorm:"type:uuid;primaryKey" json:"circle_id"`
	UserID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	User     User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Role     string    `gorm:"default:member;size:20" json:"role"` // admin, member
	JoinedAt time.Time `gorm:"autoCreateTime" json:"joined_at"`
}

// Request structs
type CreateCircleRequest struct {
	Name             string   `json:"name" binding:"required"`
	Icon             string   `json:"icon"`
	Currency         string   `json:"currency"`
	DefaultSplitType string   `json:"default_split_type"`
	Members          []string `json:"members"` // user IDs
}

type AddCircleMemberRequest struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// Response structs
type CircleResponse struct {
	ID               uuid.UUID              `json:"id"`
	Name             string                 `json:"name"`
	Icon             string                 `json:"icon,omitempty"`
	Currency         string                 `json:"currency"`
	DefaultSplitType string                 `json:"default_split_type"`
	CreatedBy        uuid.UUID              `json:"created_by"`
	Members          []CircleMemberResponse `json:"members"`
	CreatedAt        time.Time              `json:"created_at"`
}

type CircleMemberResponse struct {
	UserID    uuid.UUID `json:"user_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	Role      string    `json:"role"`
	JoinedAt  time.Time `json:"joined_at"`
}
