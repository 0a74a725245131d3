package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Reminder statuses, in lifecycle order. Transitions are monotonic: a
// reminder never moves backwards and never skips the delivery acknowledgment.
const (
	ReminderStatusQueued    = "queued" // deferred by quiet hours, not yet sent
	ReminderStatusSent      = "sent"
	ReminderStatusDelivered = "delivered"
	ReminderStatusRead      = "read"
	ReminderStatusPaid      = "paid"
)

// Reminder types.
const (
	ReminderTypeNudge      = "nudge"
	ReminderTypeSummary    = "summary"
	ReminderTypeSettlement = "settlement"
)

// Reminder is a nudge attached to one outstanding settlement edge. Only the
// creditor side of a suggestion may create one.
type Reminder struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	CircleID   uuid.UUID  `gorm:"type:uuid;index" json:"circle_id"`
	FromUserID uuid.UUID  `gorm:"type:uuid" json:"from"` // creditor sending the nudge
	ToUserID   uuid.UUID  `gorm:"type:uuid;index" json:"to"`
	Amount     float64    `gorm:"type:decimal(12,2);not null" json:"amount"`
	Type       string     `gorm:"default:nudge;size:20" json:"type"`
	Status     string     `gorm:"default:queued;size:20" json:"status"`
	ToneUsed   string     `gorm:"size:20" json:"tone_used"`
	SentAt     *time.Time `json:"sent_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (r *Reminder) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// Reminder tones.
const (
	ToneSoft    = "soft"
	ToneNeutral = "neutral"
	ToneDirect  = "direct"
)

// ReminderPreference is one member's validated notification settings,
// constructed once with explicit defaults and consulted only by the reminder
// subsystem — balance math never reads it.
type ReminderPreference struct {
	UserID          uuid.UUID   `gorm:"type:uuid;primaryKey" json:"user_id"`
	QuietHoursStart *string     `gorm:"size:5" json:"quiet_hours_start,omitempty"` // "HH:MM", local time
	QuietHoursEnd   *string     `gorm:"size:5" json:"quiet_hours_end,omitempty"`
	Tone            string      `gorm:"default:neutral;size:20" json:"tone"`
	MutedCircles    []uuid.UUID `gorm:"serializer:json" json:"muted_circles,omitempty"`
	BlockedUsers    []uuid.UUID `gorm:"serializer:json" json:"blocked_users,omitempty"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// DefaultReminderPreference returns the settings used for members who never
// saved any: neutral tone, no quiet hours, nothing muted or blocked.
func DefaultReminderPreference(userID uuid.UUID) *ReminderPreference {
	return &ReminderPreference{
		UserID: userID,
		Tone:   ToneNeutral,
	}
}

// HasMuted reports whether the member muted the given circle.
func (p *ReminderPreference) HasMuted(circleID uuid.UUID) bool {
	for _, id := range p.MutedCircles {
		if id == circleID {
			return true
		}
	}
	return false
}

// HasBlocked reports whether the member blocked the given sender.
func (p *ReminderPreference) HasBlocked(userID uuid.UUID) bool {
	for _, id := range p.BlockedUsers {
		if id == userID {
			return true
		}
	}
	return false
}

// Request structs
type SendReminderRequest struct {
	To   string `json:"to" binding:"required"`
	Type string `json:"type"` // defaults to nudge
}

type UpdateReminderPreferenceRequest struct {
	QuietHoursStart *string  `json:"quiet_hours_start"`
	QuietHoursEnd   *string  `json:"quiet_hours_end"`
	Tone            string   `json:"tone"`
	MutedCircles    []string `json:"muted_circles"`
	BlockedUsers    []string `json:"blocked_users"`
}
