package ledger

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"splitcircle-backend/models"
)

// Epsilon is the reconciliation tolerance: one unit of minor currency.
// Residue inside this band is treated as settled everywhere in the engine.
const Epsilon = 0.01

// Split strategies.
const (
	SplitEqual      = "equal"
	SplitExact      = "exact_amount"
	SplitPercentage = "percentage"
	SplitShares     = "shares"
)

// Participant pairs a member with the strategy-specific weight supplied by
// the caller: an exact amount, a percentage, or a share count. Weight is
// ignored for equal splits.
type Participant struct {
	MemberID uuid.UUID
	Weight   float64
}

func round2(val float64) float64 {
	return math.Round(val*100) / 100
}

// reconciles reports whether two currency amounts agree within Epsilon.
func reconciles(a, b float64) bool {
	return math.Abs(a-b) <= Epsilon
}

// CalculateSplits turns an expense amount, a strategy and an ordered
// participant list into per-member splits that reconcile to the total. It is
// pure: no side effects, same inputs always yield the same splits.
//
// For equal splits the rounding residual is assigned to the first participant
// so no fractional currency is ever dropped. For the weighted strategies the
// caller's weights are normalized to currency amounts and the calculation
// fails with ErrSplitMismatch when the normalized total drifts from the
// expense amount by more than Epsilon — amounts are never silently rescaled.
func CalculateSplits(amount float64, splitType string, participants []Participant) ([]models.ExpenseSplit, error) {
	if len(participants) == 0 {
		return nil, ErrEmptyParticipants
	}
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive, got %.2f", ErrSplitMismatch, amount)
	}
	seen := make(map[uuid.UUID]bool, len(participants))
	for _, p := range participants {
		if seen[p.MemberID] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateMember, p.MemberID)
		}
		seen[p.MemberID] = true
	}

	switch splitType {
	case SplitEqual:
		return equalSplits(amount, participants), nil
	case SplitExact:
		return exactSplits(amount, participants)
	case SplitPercentage:
		return percentageSplits(amount, participants)
	case SplitShares:
		return shareSplits(amount, participants)
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidSplitType, splitType)
	}
}

func equalSplits(amount float64, participants []Participant) []models.ExpenseSplit {
	perPerson := round2(amount / float64(len(participants)))
	residual := round2(amount - perPerson*float64(len(participants)))

	splits := make([]models.ExpenseSplit, 0, len(participants))
	for i, p := range participants {
		share := perPerson
		if i == 0 {
			// First participant absorbs the rounding residual so the
			// reconciliation invariant holds exactly.
			share = round2(share + residual)
		}
		splits = append(splits, models.ExpenseSplit{
			MemberID: p.MemberID,
			Amount:   share,
		})
	}
	return splits
}

func exactSplits(amount float64, participants []Participant) ([]models.ExpenseSplit, error) {
	var total float64
	splits := make([]models.ExpenseSplit, 0, len(participants))
	for _, p := range participants {
		if p.Weight < 0 {
			return nil, fmt.Errorf("%w: negative amount for member %s", ErrSplitMismatch, p.MemberID)
		}
		share := round2(p.Weight)
		total += share
		splits = append(splits, models.ExpenseSplit{
			MemberID: p.MemberID,
			Amount:   share,
		})
	}
	if !reconciles(round2(total), amount) {
		return nil, fmt.Errorf("%w: amounts total %.2f, expense is %.2f", ErrSplitMismatch, total, amount)
	}
	return splits, nil
}

func percentageSplits(amount float64, participants []Participant) ([]models.ExpenseSplit, error) {
	var totalPercent float64
	for _, p := range participants {
		if p.Weight < 0 {
			return nil, fmt.Errorf("%w: negative percentage for member %s", ErrSplitMismatch, p.MemberID)
		}
		totalPercent += p.Weight
	}
	if !reconciles(round2(totalPercent), 100.0) {
		return nil, fmt.Errorf("%w: percentages total %.2f, expected 100", ErrSplitMismatch, totalPercent)
	}

	var total float64
	splits := make([]models.ExpenseSplit, 0, len(participants))
	for _, p := range participants {
		pct := p.Weight
		share := round2(amount * pct / 100.0)
		total += share
		splits = append(splits, models.ExpenseSplit{
			MemberID:   p.MemberID,
			Amount:     share,
			Percentage: &pct,
		})
	}
	if !reconciles(round2(total), amount) {
		return nil, fmt.Errorf("%w: normalized percentages total %.2f, expense is %.2f", ErrSplitMismatch, total, amount)
	}
	return splits, nil
}

func shareSplits(amount float64, participants []Participant) ([]models.ExpenseSplit, error) {
	var totalShares float64
	for _, p := range participants {
		if p.Weight <= 0 {
			return nil, fmt.Errorf("%w: share count for member %s must be positive", ErrSplitMismatch, p.MemberID)
		}
		totalShares += p.Weight
	}

	var total float64
	splits := make([]models.ExpenseSplit, 0, len(participants))
	for _, p := range participants {
		shares := p.Weight
		share := round2(amount * shares / totalShares)
		total += share
		splits = append(splits, models.ExpenseSplit{
			MemberID: p.MemberID,
			Amount:   share,
			Shares:   &shares,
		})
	}
	if !reconciles(round2(total), amount) {
		return nil, fmt.Errorf("%w: normalized shares total %.2f, expense is %.2f", ErrSplitMismatch, total, amount)
	}
	return splits, nil
}
