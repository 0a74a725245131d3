package reminders

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"splitcircle-backend/ledger"
	"splitcircle-backend/models"
)

var (
	// ErrUnauthorizedEdge indicates the (from, to) pair has no outstanding
	// settlement suggestion backing it.
	ErrUnauthorizedEdge = errors.New("no outstanding settlement edge between members")
	// ErrMuted indicates the recipient muted the circle.
	ErrMuted = errors.New("recipient has muted this circle")
	// ErrBlocked indicates the recipient blocked the sender.
	ErrBlocked = errors.New("recipient has blocked sender")
	// ErrInvalidTransition indicates a regressing or skipping status change.
	ErrInvalidTransition = errors.New("invalid reminder status transition")
	// ErrReminderNotFound indicates the reminder id resolves to nothing.
	ErrReminderNotFound = errors.New("reminder not found")
	// ErrInvalidQuietHours indicates a malformed HH:MM clock value.
	ErrInvalidQuietHours = errors.New("invalid quiet hours")
	// ErrInvalidTone indicates an unknown tone value.
	ErrInvalidTone = errors.New("invalid reminder tone")
	// ErrNotRecipient indicates someone other than the recipient acted on a reminder.
	ErrNotRecipient = errors.New("only the recipient may act on this reminder")
)

// Quiet-hours policies. Defer queues the reminder until the recipient's
// window ends; send-anyway ignores the window entirely.
const (
	PolicyDefer      = "defer"
	PolicySendAnyway = "send_anyway"
)

// Ledger is the read side of the expense engine the reminder subsystem
// consults. Plans are always recomputed fresh, never trusted from the caller.
type Ledger interface {
	Circle(ctx context.Context, id uuid.UUID) (*models.ExpenseCircle, error)
	Plan(ctx context.Context, circleID uuid.UUID) ([]models.SettlementSuggestion, error)
}

// Repository persists reminders and per-member preferences. Create commits
// the reminder and its audit entry in one transaction.
type Repository interface {
	Preference(ctx context.Context, userID uuid.UUID) (*models.ReminderPreference, error)
	SavePreference(ctx context.Context, pref *models.ReminderPreference) error
	Create(ctx context.Context, reminder *models.Reminder, entry *models.CircleAuditLog) error
	Reminder(ctx context.Context, id uuid.UUID) (*models.Reminder, error)
	Update(ctx context.Context, reminder *models.Reminder) error
	OutstandingForEdge(ctx context.Context, circleID, debtor, creditor uuid.UUID) ([]models.Reminder, error)
}

// Queue holds deferred reminders keyed by the earliest moment they may go out.
type Queue interface {
	Defer(ctx context.Context, id uuid.UUID, sendAt time.Time) error
	Due(ctx context.Context, now time.Time) ([]uuid.UUID, error)
}

// Deliverer is the external push/email collaborator. A nil error is the
// delivery acknowledgment that advances a reminder from sent to delivered.
type Deliverer interface {
	Deliver(ctx context.Context, reminder *models.Reminder) error
}

// Service gates nudges on outstanding settlement edges and recipient
// preferences, and owns the reminder state machine.
type Service struct {
	ledger Ledger
	repo   Repository
	queue  Queue
	deliv  Deliverer
	policy string
	now    func() time.Time
}

func NewService(l Ledger, repo Repository, queue Queue, deliv Deliverer, policy string) *Service {
	if policy != PolicySendAnyway {
		policy = PolicyDefer
	}
	return &Service{
		ledger: l,
		repo:   repo,
		queue:  queue,
		deliv:  deliv,
		policy: policy,
		now:    time.Now,
	}
}

// statusRank orders the lifecycle. Transitions only ever move up, one
// acknowledgment at a time; paid additionally accepts delivered as the
// prior state since a debtor may settle without opening the nudge.
var statusRank = map[string]int{
	models.ReminderStatusQueued:    0,
	models.ReminderStatusSent:      1,
	models.ReminderStatusDelivered: 2,
	models.ReminderStatusRead:      3,
	models.ReminderStatusPaid:      4,
}

func canAdvance(current, next string) bool {
	cur, ok := statusRank[current]
	if !ok {
		return false
	}
	nxt, ok := statusRank[next]
	if !ok {
		return false
	}
	if nxt == cur+1 {
		return true
	}
	return next == models.ReminderStatusPaid && current == models.ReminderStatusDelivered
}

// Send creates a nudge from a creditor to a debtor. The edge must appear in a
// freshly computed settlement plan and the recipient's preferences must not
// mute the circle or block the sender. Inside the recipient's quiet hours the
// reminder is queued for later delivery instead of sent, unless the service
// runs the send-anyway policy.
func (s *Service) Send(ctx context.Context, circleID, from, to uuid.UUID, remType string) (*models.Reminder, error) {
	if remType == "" {
		remType = models.ReminderTypeNudge
	}
	if from == to {
		return nil, ErrUnauthorizedEdge
	}

	plan, err := s.ledger.Plan(ctx, circleID)
	if err != nil {
		return nil, err
	}
	// The sender is the creditor, so the plan edge runs debtor -> creditor.
	edge := ledger.OutstandingEdge(plan, to, from)
	if edge == nil {
		return nil, fmt.Errorf("%w: %s -> %s", ErrUnauthorizedEdge, from, to)
	}

	pref, err := s.preference(ctx, to)
	if err != nil {
		return nil, err
	}
	if pref.HasMuted(circleID) {
		return nil, ErrMuted
	}
	if pref.HasBlocked(from) {
		return nil, ErrBlocked
	}

	now := s.now()
	reminder := &models.Reminder{
		ID:         uuid.New(),
		CircleID:   circleID,
		FromUserID: from,
		ToUserID:   to,
		Amount:     edge.Amount,
		Type:       remType,
		Status:     models.ReminderStatusQueued,
		ToneUsed:   pref.Tone,
	}

	deferUntil, deferred := s.deferUntil(pref, now)
	if !deferred {
		sentAt := now
		reminder.Status = models.ReminderStatusSent
		reminder.SentAt = &sentAt
	}

	entry := &models.CircleAuditLog{
		ID:       uuid.New(),
		CircleID: circleID,
		ActorID:  from,
		Action:   models.AuditReminderSent,
		TargetID: to,
		Details:  fmt.Sprintf("reminder (%s) for %.2f", remType, edge.Amount),
	}
	if err := s.repo.Create(ctx, reminder, entry); err != nil {
		return nil, err
	}

	if deferred {
		if err := s.queue.Defer(ctx, reminder.ID, deferUntil); err != nil {
			return nil, err
		}
	}
	return reminder, nil
}

// deferUntil reports whether now falls inside the recipient's quiet window
// under the defer policy, and if so when the window ends.
func (s *Service) deferUntil(pref *models.ReminderPreference, now time.Time) (time.Time, bool) {
	if s.policy == PolicySendAnyway {
		return time.Time{}, false
	}
	start, end, ok := quietWindow(pref)
	if !ok || !inWindow(now, start, end) {
		return time.Time{}, false
	}
	return windowEnd(now, start, end), true
}

// Deliver hands a sent reminder to the delivery collaborator and records the
// acknowledgment. Safe to call from a goroutine.
func (s *Service) Deliver(ctx context.Context, reminder *models.Reminder) {
	if s.deliv == nil || reminder.Status != models.ReminderStatusSent {
		return
	}
	if err := s.deliv.Deliver(ctx, reminder); err != nil {
		log.Printf("reminder %s delivery failed: %v", reminder.ID, err)
		return
	}
	if err := s.advance(ctx, reminder.ID, models.ReminderStatusDelivered); err != nil {
		log.Printf("reminder %s: %v", reminder.ID, err)
	}
}

// FlushDue drains the deferral queue: every due reminder is re-validated
// against a fresh plan and the recipient's current preferences, then sent.
// Edges that were settled in the meantime are dropped; reminders still inside
// a (changed) quiet window are re-queued. Returns the number sent.
func (s *Service) FlushDue(ctx context.Context) (int, error) {
	due, err := s.queue.Due(ctx, s.now())
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, id := range due {
		reminder, err := s.repo.Reminder(ctx, id)
		if err != nil {
			log.Printf("deferred reminder %s: %v", id, err)
			continue
		}
		if reminder.Status != models.ReminderStatusQueued {
			continue
		}

		plan, err := s.ledger.Plan(ctx, reminder.CircleID)
		if err != nil {
			return sent, err
		}
		if ledger.OutstandingEdge(plan, reminder.ToUserID, reminder.FromUserID) == nil {
			// Edge settled while the reminder was queued; nothing to nudge.
			continue
		}

		pref, err := s.preference(ctx, reminder.ToUserID)
		if err != nil {
			return sent, err
		}
		if pref.HasMuted(reminder.CircleID) || pref.HasBlocked(reminder.FromUserID) {
			continue
		}
		now := s.now()
		if until, deferred := s.deferUntil(pref, now); deferred {
			if err := s.queue.Defer(ctx, reminder.ID, until); err != nil {
				return sent, err
			}
			continue
		}

		reminder.Status = models.ReminderStatusSent
		reminder.SentAt = &now
		if err := s.repo.Update(ctx, reminder); err != nil {
			return sent, err
		}
		sent++
		s.Deliver(ctx, reminder)
	}
	return sent, nil
}

// MarkRead records the recipient opening the reminder.
func (s *Service) MarkRead(ctx context.Context, id, userID uuid.UUID) (*models.Reminder, error) {
	reminder, err := s.repo.Reminder(ctx, id)
	if err != nil {
		return nil, err
	}
	if reminder.ToUserID != userID {
		return nil, ErrNotRecipient
	}
	if err := s.advance(ctx, id, models.ReminderStatusRead); err != nil {
		return nil, err
	}
	return s.repo.Reminder(ctx, id)
}

// MarkEdgePaid closes out delivered or read reminders on the settled edge.
// Called when a settlement from debtor to creditor is recorded.
func (s *Service) MarkEdgePaid(ctx context.Context, circleID, debtor, creditor uuid.UUID) {
	outstanding, err := s.repo.OutstandingForEdge(ctx, circleID, debtor, creditor)
	if err != nil {
		log.Printf("reminders for settled edge %s -> %s: %v", debtor, creditor, err)
		return
	}
	for _, reminder := range outstanding {
		if !canAdvance(reminder.Status, models.ReminderStatusPaid) {
			continue
		}
		if err := s.advance(ctx, reminder.ID, models.ReminderStatusPaid); err != nil {
			log.Printf("reminder %s: %v", reminder.ID, err)
		}
	}
}

func (s *Service) advance(ctx context.Context, id uuid.UUID, next string) error {
	reminder, err := s.repo.Reminder(ctx, id)
	if err != nil {
		return err
	}
	if !canAdvance(reminder.Status, next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, reminder.Status, next)
	}
	reminder.Status = next
	return s.repo.Update(ctx, reminder)
}

// preference returns the member's saved settings or the documented defaults.
func (s *Service) preference(ctx context.Context, userID uuid.UUID) (*models.ReminderPreference, error) {
	pref, err := s.repo.Preference(ctx, userID)
	if err != nil {
		return nil, err
	}
	if pref == nil {
		pref = models.DefaultReminderPreference(userID)
	}
	return pref, nil
}

// ValidatePreference builds the single validated preference struct from a
// raw update request. Defaults are explicit: neutral tone, no quiet hours.
func ValidatePreference(userID uuid.UUID, req models.UpdateReminderPreferenceRequest) (*models.ReminderPreference, error) {
	pref := models.DefaultReminderPreference(userID)

	if req.Tone != "" {
		switch req.Tone {
		case models.ToneSoft, models.ToneNeutral, models.ToneDirect:
			pref.Tone = req.Tone
		default:
			return nil, fmt.Errorf("%w: %q", ErrInvalidTone, req.Tone)
		}
	}

	if (req.QuietHoursStart == nil) != (req.QuietHoursEnd == nil) {
		return nil, fmt.Errorf("%w: start and end must both be set", ErrInvalidQuietHours)
	}
	if req.QuietHoursStart != nil {
		if _, err := parseClock(*req.QuietHoursStart); err != nil {
			return nil, err
		}
		if _, err := parseClock(*req.QuietHoursEnd); err != nil {
			return nil, err
		}
		pref.QuietHoursStart = req.QuietHoursStart
		pref.QuietHoursEnd = req.QuietHoursEnd
	}

	for _, raw := range req.MutedCircles {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid muted circle id %q", raw)
		}
		pref.MutedCircles = append(pref.MutedCircles, id)
	}
	for _, raw := range req.BlockedUsers {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid blocked user id %q", raw)
		}
		pref.BlockedUsers = append(pref.BlockedUsers, id)
	}
	return pref, nil
}
