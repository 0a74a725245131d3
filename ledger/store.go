package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"splitcircle-backend/models"
)

// Repository is the persistence collaborator. Every mutating method receives
// the audit entry for the mutation and must commit both in one transaction:
// if the audit write cannot happen, the mutation must not stick.
type Repository interface {
	LoadCircle(ctx context.Context, id uuid.UUID) (*models.ExpenseCircle, error)
	CreateCircle(ctx context.Context, circle *models.ExpenseCircle, entry *models.CircleAuditLog) error
	AddMember(ctx context.Context, member *models.CircleMember, entry *models.CircleAuditLog) error
	RemoveMember(ctx context.Context, circleID, userID uuid.UUID, entry *models.CircleAuditLog) error
	AppendExpense(ctx context.Context, expense *models.SharedExpense, entry *models.CircleAuditLog) error
	ReplaceExpense(ctx context.Context, expense *models.SharedExpense, entry *models.CircleAuditLog) error
	DeleteExpense(ctx context.Context, circleID, expenseID uuid.UUID, entry *models.CircleAuditLog) error
	RecordSettlement(ctx context.Context, settlement *models.Settlement, entry *models.CircleAuditLog) error
}

// Store owns circles and their append-only expense history. Mutations are
// serialized per circle so concurrent writers always validate against the
// state they commit on top of; reads recompute balances and plans from the
// freshly loaded circle and are safe to run concurrently.
type Store struct {
	repo Repository

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func NewStore(repo Repository) *Store {
	return &Store{
		repo:  repo,
		locks: make(map[uuid.UUID]*sync.Mutex),
	}
}

// circleLock returns the mutex serializing writes to one circle.
func (s *Store) circleLock(id uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[id] = lock
	}
	return lock
}

// Circle loads a circle with its members, expenses and settlements.
func (s *Store) Circle(ctx context.Context, id uuid.UUID) (*models.ExpenseCircle, error) {
	return s.repo.LoadCircle(ctx, id)
}

// Balances recomputes the net balance vector from the circle's full history.
func (s *Store) Balances(ctx context.Context, circleID uuid.UUID) ([]models.NetBalance, error) {
	circle, err := s.repo.LoadCircle(ctx, circleID)
	if err != nil {
		return nil, err
	}
	return NetBalances(circle), nil
}

// Plan recomputes the settlement suggestions for a circle.
func (s *Store) Plan(ctx context.Context, circleID uuid.UUID) ([]models.SettlementSuggestion, error) {
	balances, err := s.Balances(ctx, circleID)
	if err != nil {
		return nil, err
	}
	return SettlementPlan(balances), nil
}

// CreateCircleInput carries the caller-supplied circle attributes. The actor
// becomes the circle admin; MemberIDs join with the member role.
type CreateCircleInput struct {
	ActorID          uuid.UUID
	ActorName        string
	Name             string
	Icon             string
	Currency         string
	DefaultSplitType string
	MemberIDs        []uuid.UUID
}

func (s *Store) CreateCircle(ctx context.Context, in CreateCircleInput) (*models.ExpenseCircle, error) {
	currency := in.Currency
	if currency == "" {
		currency = "INR"
	}
	splitType := in.DefaultSplitType
	if splitType == "" {
		splitType = SplitEqual
	}

	circle := &models.ExpenseCircle{
		ID:               uuid.New(),
		Name:             in.Name,
		Icon:             in.Icon,
		Currency:         currency,
		DefaultSplitType: splitType,
		CreatedBy:        in.ActorID,
	}
	circle.Members = append(circle.Members, models.CircleMember{
		CircleID: circle.ID,
		UserID:   in.ActorID,
		Role:     "admin",
	})
	for _, id := range in.MemberIDs {
		if id == in.ActorID || circle.HasMember(id) {
			continue
		}
		circle.Members = append(circle.Members, models.CircleMember{
			CircleID: circle.ID,
			UserID:   id,
			Role:     "member",
		})
	}

	entry := newAuditEntry(circle.ID, in.ActorID, models.AuditCircleCreated, circle.ID,
		fmt.Sprintf("%s created circle %q", in.ActorName, circle.Name))
	if err := s.repo.CreateCircle(ctx, circle, entry); err != nil {
		return nil, err
	}
	return circle, nil
}

// AddMember joins a user to the circle with the member role.
func (s *Store) AddMember(ctx context.Context, circleID, actorID, userID uuid.UUID, details string) error {
	lock := s.circleLock(circleID)
	lock.Lock()
	defer lock.Unlock()

	circle, err := s.repo.LoadCircle(ctx, circleID)
	if err != nil {
		return err
	}
	if circle.HasMember(userID) {
		return ErrAlreadyMember
	}

	member := &models.CircleMember{
		CircleID: circleID,
		UserID:   userID,
		Role:     "member",
	}
	entry := newAuditEntry(circleID, actorID, models.AuditMemberJoined, userID, details)
	return s.repo.AddMember(ctx, member, entry)
}

// RemoveMember drops a user from the circle. It fails with
// ErrMemberReferenced while the member is still a payer, split participant or
// settlement party anywhere in the circle's history: callers must settle or
// reassign first, otherwise balances would stop summing to zero.
func (s *Store) RemoveMember(ctx context.Context, circleID, actorID, userID uuid.UUID, details string) error {
	lock := s.circleLock(circleID)
	lock.Lock()
	defer lock.Unlock()

	circle, err := s.repo.LoadCircle(ctx, circleID)
	if err != nil {
		return err
	}
	if !circle.HasMember(userID) {
		return ErrUnknownMember
	}
	if memberReferenced(circle, userID) {
		return fmt.Errorf("%w: %s", ErrMemberReferenced, userID)
	}

	entry := newAuditEntry(circleID, actorID, models.AuditMemberLeft, userID, details)
	return s.repo.RemoveMember(ctx, circleID, userID, entry)
}

func memberReferenced(circle *models.ExpenseCircle, userID uuid.UUID) bool {
	for _, exp := range circle.Expenses {
		if exp.PaidBy == userID {
			return true
		}
		for _, split := range exp.Splits {
			if split.MemberID == userID {
				return true
			}
		}
	}
	for _, settlement := range circle.Settlements {
		if settlement.PaidBy == userID || settlement.PaidTo == userID {
			return true
		}
	}
	return false
}

// ExpenseInput carries everything needed to build one shared expense. The
// split calculator derives the per-member amounts from SplitType and
// Participants before the store validates and appends.
type ExpenseInput struct {
	ActorID      uuid.UUID
	ActorName    string
	Description  string
	Amount       float64
	Currency     string
	Category     string
	PaidBy       uuid.UUID
	SplitType    string
	Participants []Participant
	Date         time.Time
}

// AppendExpense runs the split calculator, validates both expense invariants
// against the current circle state and appends the expense together with its
// audit entry. Nothing is committed when any step fails.
func (s *Store) AppendExpense(ctx context.Context, circleID uuid.UUID, in ExpenseInput) (*models.SharedExpense, error) {
	lock := s.circleLock(circleID)
	lock.Lock()
	defer lock.Unlock()

	circle, err := s.repo.LoadCircle(ctx, circleID)
	if err != nil {
		return nil, err
	}
	expense, err := buildExpense(circle, in)
	if err != nil {
		return nil, err
	}

	entry := newAuditEntry(circleID, in.ActorID, models.AuditExpenseAdded, expense.ID,
		fmt.Sprintf("%s added %q (%s %.2f)", in.ActorName, expense.Description, expense.Currency, expense.Amount))
	if err := s.repo.AppendExpense(ctx, expense, entry); err != nil {
		return nil, err
	}
	return expense, nil
}

// EditExpense replaces the expense wholesale and revalidates both invariants.
// There are no partial patches: the caller supplies the complete new state.
func (s *Store) EditExpense(ctx context.Context, circleID, expenseID uuid.UUID, in ExpenseInput) (*models.SharedExpense, error) {
	lock := s.circleLock(circleID)
	lock.Lock()
	defer lock.Unlock()

	circle, err := s.repo.LoadCircle(ctx, circleID)
	if err != nil {
		return nil, err
	}
	existing := findExpense(circle, expenseID)
	if existing == nil {
		return nil, ErrExpenseNotFound
	}

	expense, err := buildExpense(circle, in)
	if err != nil {
		return nil, err
	}
	expense.ID = expenseID
	expense.CreatedBy = existing.CreatedBy
	expense.CreatedAt = existing.CreatedAt
	for i := range expense.Splits {
		expense.Splits[i].ExpenseID = expenseID
	}

	entry := newAuditEntry(circleID, in.ActorID, models.AuditExpenseUpdated, expenseID,
		fmt.Sprintf("%s updated %q (%s %.2f)", in.ActorName, expense.Description, expense.Currency, expense.Amount))
	if err := s.repo.ReplaceExpense(ctx, expense, entry); err != nil {
		return nil, err
	}
	return expense, nil
}

// RemoveExpense deletes the expense and its splits.
func (s *Store) RemoveExpense(ctx context.Context, circleID, expenseID, actorID uuid.UUID, details string) error {
	lock := s.circleLock(circleID)
	lock.Lock()
	defer lock.Unlock()

	circle, err := s.repo.LoadCircle(ctx, circleID)
	if err != nil {
		return err
	}
	if findExpense(circle, expenseID) == nil {
		return ErrExpenseNotFound
	}

	entry := newAuditEntry(circleID, actorID, models.AuditExpenseDeleted, expenseID, details)
	return s.repo.DeleteExpense(ctx, circleID, expenseID, entry)
}

// RecordSettlement records an actual payment between two circle members.
func (s *Store) RecordSettlement(ctx context.Context, circleID, actorID, paidTo uuid.UUID, amount float64, notes, details string) (*models.Settlement, error) {
	lock := s.circleLock(circleID)
	lock.Lock()
	defer lock.Unlock()

	circle, err := s.repo.LoadCircle(ctx, circleID)
	if err != nil {
		return nil, err
	}
	if !circle.HasMember(actorID) || !circle.HasMember(paidTo) {
		return nil, ErrUnknownMember
	}

	settlement := &models.Settlement{
		ID:       uuid.New(),
		CircleID: circleID,
		PaidBy:   actorID,
		PaidTo:   paidTo,
		Amount:   round2(amount),
		Notes:    notes,
	}
	entry := newAuditEntry(circleID, actorID, models.AuditSettlementCreated, settlement.ID, details)
	if err := s.repo.RecordSettlement(ctx, settlement, entry); err != nil {
		return nil, err
	}
	return settlement, nil
}

// buildExpense calculates splits and checks both SharedExpense invariants
// against the loaded circle: split reconciliation and membership of the payer
// and every split member.
func buildExpense(circle *models.ExpenseCircle, in ExpenseInput) (*models.SharedExpense, error) {
	participants := in.Participants
	if in.SplitType == SplitEqual && len(participants) == 0 {
		// Equal splits default to the whole circle, in join order.
		for _, m := range circle.Members {
			participants = append(participants, Participant{MemberID: m.UserID})
		}
	}
	splits, err := CalculateSplits(in.Amount, in.SplitType, participants)
	if err != nil {
		return nil, err
	}

	if !circle.HasMember(in.PaidBy) {
		return nil, fmt.Errorf("%w: payer %s", ErrUnknownMember, in.PaidBy)
	}
	var total float64
	for _, split := range splits {
		if !circle.HasMember(split.MemberID) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownMember, split.MemberID)
		}
		total += split.Amount
	}
	if !reconciles(round2(total), in.Amount) {
		return nil, fmt.Errorf("%w: splits total %.2f, expense is %.2f", ErrSplitMismatch, total, in.Amount)
	}

	currency := in.Currency
	if currency == "" {
		currency = circle.Currency
	}
	date := in.Date
	if date.IsZero() {
		date = time.Now()
	}

	expense := &models.SharedExpense{
		ID:          uuid.New(),
		CircleID:    circle.ID,
		PaidBy:      in.PaidBy,
		Description: in.Description,
		Amount:      in.Amount,
		Currency:    currency,
		Category:    in.Category,
		SplitType:   in.SplitType,
		Date:        date,
		CreatedBy:   in.ActorID,
	}
	for i := range splits {
		splits[i].ID = uuid.New()
		splits[i].ExpenseID = expense.ID
	}
	expense.Splits = splits
	return expense, nil
}

func findExpense(circle *models.ExpenseCircle, expenseID uuid.UUID) *models.SharedExpense {
	for i := range circle.Expenses {
		if circle.Expenses[i].ID == expenseID {
			return &circle.Expenses[i]
		}
	}
	return nil
}

func newAuditEntry(circleID, actorID uuid.UUID, action string, targetID uuid.UUID, details string) *models.CircleAuditLog {
	return &models.CircleAuditLog{
		ID:       uuid.New(),
		CircleID: circleID,
		ActorID:  actorID,
		Action:   action,
		TargetID: targetID,
		Details:  details,
	}
}
