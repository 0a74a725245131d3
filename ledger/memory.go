package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"splitcircle-backend/models"
)

// MemoryRepository is an in-process Repository used by tests and local
// development. Loads return deep copies so callers can never mutate committed
// state, and every mutation stores its audit entry under the same lock —
// both land or neither does, matching the transactional contract.
type MemoryRepository struct {
	mu      sync.RWMutex
	circles map[uuid.UUID]*models.ExpenseCircle
	audit   map[uuid.UUID][]models.CircleAuditLog
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		circles: make(map[uuid.UUID]*models.ExpenseCircle),
		audit:   make(map[uuid.UUID][]models.CircleAuditLog),
	}
}

func (r *MemoryRepository) LoadCircle(ctx context.Context, id uuid.UUID) (*models.ExpenseCircle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	circle, ok := r.circles[id]
	if !ok {
		return nil, ErrCircleNotFound
	}
	return copyCircle(circle), nil
}

func (r *MemoryRepository) CreateCircle(ctx context.Context, circle *models.ExpenseCircle, entry *models.CircleAuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := copyCircle(circle)
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	r.circles[circle.ID] = stored
	r.appendAudit(entry)
	return nil
}

func (r *MemoryRepository) AddMember(ctx context.Context, member *models.CircleMember, entry *models.CircleAuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	circle, ok := r.circles[member.CircleID]
	if !ok {
		return ErrCircleNotFound
	}
	m := *member
	if m.JoinedAt.IsZero() {
		m.JoinedAt = time.Now()
	}
	circle.Members = append(circle.Members, m)
	r.appendAudit(entry)
	return nil
}

func (r *MemoryRepository) RemoveMember(ctx context.Context, circleID, userID uuid.UUID, entry *models.CircleAuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	circle, ok := r.circles[circleID]
	if !ok {
		return ErrCircleNotFound
	}
	members := circle.Members[:0]
	for _, m := range circle.Members {
		if m.UserID != userID {
			members = append(members, m)
		}
	}
	circle.Members = members
	r.appendAudit(entry)
	return nil
}

func (r *MemoryRepository) AppendExpense(ctx context.Context, expense *models.SharedExpense, entry *models.CircleAuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	circle, ok := r.circles[expense.CircleID]
	if !ok {
		return ErrCircleNotFound
	}
	stored := copyExpense(expense)
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	circle.Expenses = append(circle.Expenses, *stored)
	r.appendAudit(entry)
	return nil
}

func (r *MemoryRepository) ReplaceExpense(ctx context.Context, expense *models.SharedExpense, entry *models.CircleAuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	circle, ok := r.circles[expense.CircleID]
	if !ok {
		return ErrCircleNotFound
	}
	for i := range circle.Expenses {
		if circle.Expenses[i].ID == expense.ID {
			stored := copyExpense(expense)
			stored.UpdatedAt = time.Now()
			circle.Expenses[i] = *stored
			r.appendAudit(entry)
			return nil
		}
	}
	return ErrExpenseNotFound
}

func (r *MemoryRepository) DeleteExpense(ctx context.Context, circleID, expenseID uuid.UUID, entry *models.CircleAuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	circle, ok := r.circles[circleID]
	if !ok {
		return ErrCircleNotFound
	}
	expenses := circle.Expenses[:0]
	for _, e := range circle.Expenses {
		if e.ID != expenseID {
			expenses = append(expenses, e)
		}
	}
	circle.Expenses = expenses
	r.appendAudit(entry)
	return nil
}

func (r *MemoryRepository) RecordSettlement(ctx context.Context, settlement *models.Settlement, entry *models.CircleAuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	circle, ok := r.circles[settlement.CircleID]
	if !ok {
		return ErrCircleNotFound
	}
	s := *settlement
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	circle.Settlements = append(circle.Settlements, s)
	r.appendAudit(entry)
	return nil
}

// AuditEntries returns the recorded audit trail for one circle, oldest first.
func (r *MemoryRepository) AuditEntries(circleID uuid.UUID) []models.CircleAuditLog {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entries := make([]models.CircleAuditLog, len(r.audit[circleID]))
	copy(entries, r.audit[circleID])
	return entries
}

func (r *MemoryRepository) appendAudit(entry *models.CircleAuditLog) {
	if entry == nil {
		return
	}
	e := *entry
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	r.audit[e.CircleID] = append(r.audit[e.CircleID], e)
}

func copyCircle(circle *models.ExpenseCircle) *models.ExpenseCircle {
	c := *circle
	c.Members = make([]models.CircleMember, len(circle.Members))
	copy(c.Members, circle.Members)
	c.Expenses = make([]models.SharedExpense, len(circle.Expenses))
	for i := range circle.Expenses {
		c.Expenses[i] = *copyExpense(&circle.Expenses[i])
	}
	c.Settlements = make([]models.Settlement, len(circle.Settlements))
	copy(c.Settlements, circle.Settlements)
	return &c
}

func copyExpense(expense *models.SharedExpense) *models.SharedExpense {
	e := *expense
	e.Splits = make([]models.ExpenseSplit, len(expense.Splits))
	copy(e.Splits, expense.Splits)
	return &e
}
