package ledger

import "errors"

var (
	// ErrCircleNotFound indicates the circle id resolves to nothing.
	ErrCircleNotFound = errors.New("circle not found")
	// ErrExpenseNotFound indicates the expense id resolves to nothing.
	ErrExpenseNotFound = errors.New("expense not found")
	// ErrEmptyParticipants indicates a split was requested with no participants.
	ErrEmptyParticipants = errors.New("split requires at least one participant")
	// ErrDuplicateMember indicates the same member appears twice in a participant set.
	ErrDuplicateMember = errors.New("duplicate member in participant set")
	// ErrSplitMismatch indicates the supplied weights do not reconcile to the expense total.
	ErrSplitMismatch = errors.New("splits do not reconcile to expense amount")
	// ErrUnknownMember indicates a split or payer references someone outside the circle.
	ErrUnknownMember = errors.New("member does not belong to circle")
	// ErrMemberReferenced indicates a member removal was blocked by existing splits.
	ErrMemberReferenced = errors.New("member is referenced by existing expenses")
	// ErrAlreadyMember indicates an add for someone already in the circle.
	ErrAlreadyMember = errors.New("user is already a member of circle")
	// ErrInvalidSplitType indicates an unsupported split strategy.
	ErrInvalidSplitType = errors.New("invalid split type")
)
