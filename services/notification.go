package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"google.golang.org/api/option"

	"splitcircle-backend/config"
	"splitcircle-backend/database"
	"splitcircle-backend/models"
)

// NotificationService is the delivery collaborator: FCM push plus SendGrid
// email. Either channel may be unconfigured; delivery succeeds when at least
// one channel goes through.
type NotificationService struct {
	messaging *messaging.Client
}

var notifService *NotificationService

func GetNotificationService() *NotificationService {
	if notifService == nil {
		notifService = &NotificationService{}

		app, err := firebase.NewApp(context.Background(),
			nil, option.WithCredentialsFile(config.AppConfig.FirebaseCredPath))
		if err != nil {
			log.Println("⚠️  Firebase unavailable, push notifications disabled:", err)
			return notifService
		}
		client, err := app.Messaging(context.Background())
		if err != nil {
			log.Println("⚠️  Firebase messaging unavailable, push notifications disabled:", err)
			return notifService
		}
		notifService.messaging = client
	}
	return notifService
}

func (ns *NotificationService) sendPush(ctx context.Context, fcmToken, title, body string, data map[string]string) error {
	if ns.messaging == nil || fcmToken == "" {
		return errors.New("push channel unavailable")
	}
	_, err := ns.messaging.Send(ctx, &messaging.Message{
		Token: fcmToken,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	})
	if err != nil {
		log.Printf("❌ FCM send error: %v", err)
	}
	return err
}

func (ns *NotificationService) sendEmail(toEmail, toName, subject, htmlBody string) error {
	if config.AppConfig.SendGridAPIKey == "" {
		log.Printf("⚠️  SendGrid API key not set, skipping email to %s", toEmail)
		return errors.New("email channel unavailable")
	}

	from := mail.NewEmail(config.AppConfig.AppName, config.AppConfig.SendGridFrom)
	to := mail.NewEmail(toName, toEmail)
	message := mail.NewSingleEmail(from, subject, to, "", htmlBody)

	client := sendgrid.NewSendClient(config.AppConfig.SendGridAPIKey)
	resp, err := client.Send(message)
	if err != nil {
		log.Printf("❌ Email send error: %v", err)
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("⚠️  SendGrid returned status: %d", resp.StatusCode)
		return fmt.Errorf("sendgrid status %d", resp.StatusCode)
	}
	return nil
}

// Deliver implements reminders.Deliverer. A nil return is the delivery
// acknowledgment that moves the reminder from sent to delivered.
func (ns *NotificationService) Deliver(ctx context.Context, reminder *models.Reminder) error {
	var sender, recipient models.User
	if err := database.DB.First(&sender, reminder.FromUserID).Error; err != nil {
		return err
	}
	if err := database.DB.First(&recipient, reminder.ToUserID).Error; err != nil {
		return err
	}
	var circle models.ExpenseCircle
	if err := database.DB.First(&circle, reminder.CircleID).Error; err != nil {
		return err
	}

	title, body := reminderCopy(reminder, sender.Name, circle)

	pushErr := ns.sendPush(ctx, recipient.FCMToken, title, body, map[string]string{
		"type":        "reminder",
		"reminder_id": reminder.ID.String(),
		"circle_id":   reminder.CircleID.String(),
	})
	emailErr := ns.sendEmail(recipient.Email, recipient.Name, title,
		buildReminderEmailHTML(recipient.Name, body))

	if pushErr != nil && emailErr != nil {
		return fmt.Errorf("all delivery channels failed: %v / %v", pushErr, emailErr)
	}
	return nil
}

// reminderCopy phrases the nudge in the recipient's chosen tone.
func reminderCopy(reminder *models.Reminder, senderName string, circle models.ExpenseCircle) (title, body string) {
	amount := fmt.Sprintf("%s %.2f", circle.Currency, reminder.Amount)
	switch reminder.ToneUsed {
	case models.ToneSoft:
		title = fmt.Sprintf("A gentle nudge from %s", senderName)
		body = fmt.Sprintf("Whenever convenient, you still owe %s %s in %s.", senderName, amount, circle.Name)
	case models.ToneDirect:
		title = fmt.Sprintf("%s is waiting on %s", senderName, amount)
		body = fmt.Sprintf("Please settle %s you owe %s in %s.", amount, senderName, circle.Name)
	default:
		title = fmt.Sprintf("Reminder from %s", senderName)
		body = fmt.Sprintf("You owe %s %s in %s.", senderName, amount, circle.Name)
	}
	return title, body
}

// NotifyExpenseAdded sends push + email to all split participants.
func (ns *NotificationService) NotifyExpenseAdded(expense *models.SharedExpense, payer models.User, circle models.ExpenseCircle) {
	for _, split := range expense.Splits {
		if split.MemberID == expense.PaidBy {
			continue // Don't notify the payer
		}

		var user models.User
		if err := database.DB.First(&user, split.MemberID).Error; err != nil {
			continue
		}

		title := fmt.Sprintf("%s added an expense", payer.Name)
		body := fmt.Sprintf("You owe %s %.2f for %q in %s", expense.Currency, split.Amount, expense.Description, circle.Name)

		ns.sendPush(context.Background(), user.FCMToken, title, body, map[string]string{
			"type":       "expense_added",
			"expense_id": expense.ID.String(),
			"circle_id":  expense.CircleID.String(),
		})
		ns.sendEmail(user.Email, user.Name, title, buildReminderEmailHTML(user.Name, body))
	}
}

// NotifySettlement tells the payee a payment was recorded.
func (ns *NotificationService) NotifySettlement(settlement *models.Settlement, payer, payee models.User, circle models.ExpenseCircle) {
	title := fmt.Sprintf("%s paid you", payer.Name)
	body := fmt.Sprintf("%s paid you %s %.2f in %s", payer.Name, circle.Currency, settlement.Amount, circle.Name)

	ns.sendPush(context.Background(), payee.FCMToken, title, body, map[string]string{
		"type":      "settlement",
		"circle_id": settlement.CircleID.String(),
	})
	ns.sendEmail(payee.Email, payee.Name, title, buildReminderEmailHTML(payee.Name, body))
}

func buildReminderEmailHTML(name, body string) string {
	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; background-color: #f5f5f5;">
	<div style="background: white; border-radius: 12px; padding: 32px; box-shadow: 0 2px 8px rgba(0,0,0,0.1);">
		<h2 style="color: #1DB954; margin-top: 0;">💸 %s</h2>
		<p>Hi <strong>%s</strong>,</p>
		<p>%s</p>
		<p>Open the app to see your updated balances.</p>
		<p style="color: #999; font-size: 12px; margin-top: 24px;">— %s</p>
	</div>
</body>
</html>`, config.AppConfig.AppName, name, body, config.AppConfig.AppName)
}
