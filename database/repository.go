package database

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"splitcircle-backend/ledger"
	"splitcircle-backend/models"
	"splitcircle-backend/reminders"
)

// GormRepository backs the ledger store and the reminder subsystem with
// postgres. Every mutating method commits the change together with its audit
// entry in one transaction, so a failed audit write rolls the mutation back.
type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// ===== ledger.Repository =====

func (r *GormRepository) LoadCircle(ctx context.Context, id uuid.UUID) (*models.ExpenseCircle, error) {
	var circle models.ExpenseCircle
	err := r.db.WithContext(ctx).
		Preload("Members").
		Preload("Members.User").
		Preload("Expenses", func(db *gorm.DB) *gorm.DB {
			return db.Order("date DESC, created_at DESC")
		}).
		Preload("Expenses.Splits").
		Preload("Settlements").
		First(&circle, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ledger.ErrCircleNotFound
	}
	if err != nil {
		return nil, err
	}
	return &circle, nil
}

func (r *GormRepository) CreateCircle(ctx context.Context, circle *models.ExpenseCircle, entry *models.CircleAuditLog) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(circle).Error; err != nil {
			return err
		}
		return tx.Create(entry).Error
	})
}

func (r *GormRepository) AddMember(ctx context.Context, member *models.CircleMember, entry *models.CircleAuditLog) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(member).Error; err != nil {
			return err
		}
		return tx.Create(entry).Error
	})
}

func (r *GormRepository) RemoveMember(ctx context.Context, circleID, userID uuid.UUID, entry *models.CircleAuditLog) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("circle_id = ? AND user_id = ?", circleID, userID).
			Delete(&models.CircleMember{}).Error; err != nil {
			return err
		}
		return tx.Create(entry).Error
	})
}

func (r *GormRepository) AppendExpense(ctx context.Context, expense *models.SharedExpense, entry *models.CircleAuditLog) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(expense).Error; err != nil {
			return err
		}
		return tx.Create(entry).Error
	})
}

func (r *GormRepository) ReplaceExpense(ctx context.Context, expense *models.SharedExpense, entry *models.CircleAuditLog) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Replace wholesale: old splits go, the new record and splits come in.
		if err := tx.Where("expense_id = ?", expense.ID).Delete(&models.ExpenseSplit{}).Error; err != nil {
			return err
		}
		if err := tx.Where("id = ?", expense.ID).Delete(&models.SharedExpense{}).Error; err != nil {
			return err
		}
		if err := tx.Create(expense).Error; err != nil {
			return err
		}
		return tx.Create(entry).Error
	})
}

func (r *GormRepository) DeleteExpense(ctx context.Context, circleID, expenseID uuid.UUID, entry *models.CircleAuditLog) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("expense_id = ?", expenseID).Delete(&models.ExpenseSplit{}).Error; err != nil {
			return err
		}
		if err := tx.Where("id = ? AND circle_id = ?", expenseID, circleID).
			Delete(&models.SharedExpense{}).Error; err != nil {
			return err
		}
		return tx.Create(entry).Error
	})
}

func (r *GormRepository) RecordSettlement(ctx context.Context, settlement *models.Settlement, entry *models.CircleAuditLog) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(settlement).Error; err != nil {
			return err
		}
		return tx.Create(entry).Error
	})
}

// ===== reminders.Repository =====

func (r *GormRepository) Preference(ctx context.Context, userID uuid.UUID) (*models.ReminderPreference, error) {
	var pref models.ReminderPreference
	err := r.db.WithContext(ctx).First(&pref, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &pref, nil
}

func (r *GormRepository) SavePreference(ctx context.Context, pref *models.ReminderPreference) error {
	return r.db.WithContext(ctx).Save(pref).Error
}

func (r *GormRepository) Create(ctx context.Context, reminder *models.Reminder, entry *models.CircleAuditLog) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(reminder).Error; err != nil {
			return err
		}
		return tx.Create(entry).Error
	})
}

func (r *GormRepository) Reminder(ctx context.Context, id uuid.UUID) (*models.Reminder, error) {
	var reminder models.Reminder
	err := r.db.WithContext(ctx).First(&reminder, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, reminders.ErrReminderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &reminder, nil
}

func (r *GormRepository) Update(ctx context.Context, reminder *models.Reminder) error {
	return r.db.WithContext(ctx).Save(reminder).Error
}

func (r *GormRepository) OutstandingForEdge(ctx context.Context, circleID, debtor, creditor uuid.UUID) ([]models.Reminder, error) {
	var out []models.Reminder
	err := r.db.WithContext(ctx).
		Where("circle_id = ? AND from_user_id = ? AND to_user_id = ? AND status NOT IN ?",
			circleID, creditor, debtor, []string{models.ReminderStatusPaid}).
		Find(&out).Error
	return out, err
}
