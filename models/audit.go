package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Audit actions, one per mutating ledger or reminder operation.
const (
	AuditCircleCreated     = "circle_created"
	AuditCircleUpdated     = "circle_updated"
	AuditMemberJoined      = "member_joined"
	AuditMemberLeft        = "member_left"
	AuditExpenseAdded      = "expense_added"
	AuditExpenseUpdated    = "expense_updated"
	AuditExpenseDeleted    = "expense_deleted"
	AuditSettlementCreated = "settlement_recorded"
	AuditReminderSent      = "reminder_sent"
)

// CircleAuditLog is the append-only trace of every mutating call. Entries are
// written in the same transaction as the mutation they record and are never
// updated or deleted.
type CircleAuditLog struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CircleID    uuid.UUID `gorm:"type:uuid;index" json:"circle_id"`
	CircleName  string    `gorm:"-" json:"circle_name,omitempty"`
	ActorID     uuid.UUID `gorm:"type:uuid" json:"actor_id"`
	Actor       User      `gorm:"foreignKey:ActorID" json:"actor,omitempty"`
	Action      string    `gorm:"not null;size:30" json:"action"`
	TargetID    uuid.UUID `gorm:"type:uuid" json:"target_id,omitempty"`
	Details     string    `json:"details,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func (a *CircleAuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
