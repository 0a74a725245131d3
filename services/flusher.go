package services

import (
	"context"
	"log"
	"time"

	"splitcircle-backend/reminders"
)

// StartReminderFlusher periodically drains the deferred-reminder queue so
// nudges held back by quiet hours go out once the recipient's window ends.
// It runs until ctx is cancelled.
func StartReminderFlusher(ctx context.Context, svc *reminders.Service, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sent, err := svc.FlushDue(ctx)
				if err != nil {
					log.Printf("❌ Reminder flush failed: %v", err)
					continue
				}
				if sent > 0 {
					log.Printf("✅ Flushed %d deferred reminder(s)", sent)
				}
			}
		}
	}()
}
