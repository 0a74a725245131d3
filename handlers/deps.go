package handlers

import (
	"splitcircle-backend/ledger"
	"splitcircle-backend/reminders"
)

// Wired once at startup, before routes are registered.
var (
	Ledger    *ledger.Store
	Reminders *reminders.Service
)

func Init(store *ledger.Store, reminderSvc *reminders.Service) {
	Ledger = store
	Reminders = reminderSvc
}
