package reminders

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"splitcircle-backend/models"
)

var (
	testCircle  = uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000001")
	creditor    = uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000002")
	debtor      = uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000003")
	otherMember = uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000004")
	outstanding = 4500.0
)

// stubLedger serves a fixed settlement plan with one edge: debtor owes
// creditor. Clearing settled drops the edge, as after a recorded payment.
type stubLedger struct {
	settled bool
}

func (l *stubLedger) Circle(ctx context.Context, id uuid.UUID) (*models.ExpenseCircle, error) {
	return &models.ExpenseCircle{ID: id}, nil
}

func (l *stubLedger) Plan(ctx context.Context, circleID uuid.UUID) ([]models.SettlementSuggestion, error) {
	if l.settled {
		return nil, nil
	}
	return []models.SettlementSuggestion{
		{From: debtor, To: creditor, Amount: outstanding},
	}, nil
}

// stubRepo keeps reminders and preferences in maps, in audit-entry lockstep
// with the transactional contract.
type stubRepo struct {
	mu        sync.Mutex
	reminders map[uuid.UUID]*models.Reminder
	prefs     map[uuid.UUID]*models.ReminderPreference
	audit     []models.CircleAuditLog
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		reminders: make(map[uuid.UUID]*models.Reminder),
		prefs:     make(map[uuid.UUID]*models.ReminderPreference),
	}
}

func (r *stubRepo) Preference(ctx context.Context, userID uuid.UUID) (*models.ReminderPreference, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.prefs[userID], nil
}

func (r *stubRepo) SavePreference(ctx context.Context, pref *models.ReminderPreference) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prefs[pref.UserID] = pref
	return nil
}

func (r *stubRepo) Create(ctx context.Context, reminder *models.Reminder, entry *models.CircleAuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *reminder
	r.reminders[reminder.ID] = &copied
	if entry != nil {
		r.audit = append(r.audit, *entry)
	}
	return nil
}

func (r *stubRepo) Reminder(ctx context.Context, id uuid.UUID) (*models.Reminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reminder, ok := r.reminders[id]
	if !ok {
		return nil, ErrReminderNotFound
	}
	copied := *reminder
	return &copied, nil
}

func (r *stubRepo) Update(ctx context.Context, reminder *models.Reminder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.reminders[reminder.ID]; !ok {
		return ErrReminderNotFound
	}
	copied := *reminder
	r.reminders[reminder.ID] = &copied
	return nil
}

func (r *stubRepo) OutstandingForEdge(ctx context.Context, circleID, deb, cred uuid.UUID) ([]models.Reminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Reminder
	for _, reminder := range r.reminders {
		if reminder.CircleID == circleID &&
			reminder.FromUserID == cred &&
			reminder.ToUserID == deb &&
			reminder.Status != models.ReminderStatusPaid {
			out = append(out, *reminder)
		}
	}
	return out, nil
}

// stubDeliverer records deliveries; fail makes every attempt error out.
type stubDeliverer struct {
	mu        sync.Mutex
	delivered []uuid.UUID
	fail      bool
}

func (d *stubDeliverer) Deliver(ctx context.Context, reminder *models.Reminder) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail {
		return context.DeadlineExceeded
	}
	d.delivered = append(d.delivered, reminder.ID)
	return nil
}

type fixture struct {
	svc    *Service
	ledger *stubLedger
	repo   *stubRepo
	queue  *MemoryQueue
	deliv  *stubDeliverer
}

func newFixture(policy string) *fixture {
	f := &fixture{
		ledger: &stubLedger{},
		repo:   newStubRepo(),
		queue:  NewMemoryQueue(),
		deliv:  &stubDeliverer{},
	}
	f.svc = NewService(f.ledger, f.repo, f.queue, f.deliv, policy)
	return f
}

// setClock pins the service clock to a fixed wall time.
func (f *fixture) setClock(t time.Time) {
	f.svc.now = func() time.Time { return t }
}

func (f *fixture) savePref(userID uuid.UUID, mutate func(*models.ReminderPreference)) {
	pref := models.DefaultReminderPreference(userID)
	mutate(pref)
	f.repo.prefs[userID] = pref
}

func TestSendOutstandingEdge(t *testing.T) {
	f := newFixture(PolicyDefer)
	f.setClock(at(12, 0))

	reminder, err := f.svc.Send(context.Background(), testCircle, creditor, debtor, "")
	require.NoError(t, err)

	assert.Equal(t, models.ReminderStatusSent, reminder.Status)
	assert.Equal(t, outstanding, reminder.Amount)
	assert.Equal(t, models.ReminderTypeNudge, reminder.Type)
	assert.Equal(t, models.ToneNeutral, reminder.ToneUsed)
	require.NotNil(t, reminder.SentAt)
	assert.Equal(t, at(12, 0), *reminder.SentAt)

	require.Len(t, f.repo.audit, 1)
	assert.Equal(t, models.AuditReminderSent, f.repo.audit[0].Action)
	assert.Equal(t, creditor, f.repo.audit[0].ActorID)
}

func TestSendRequiresCreditorSide(t *testing.T) {
	f := newFixture(PolicyDefer)
	f.setClock(at(12, 0))

	// The debtor cannot nudge the creditor.
	_, err := f.svc.Send(context.Background(), testCircle, debtor, creditor, "")
	assert.ErrorIs(t, err, ErrUnauthorizedEdge)

	// No edge at all between these two.
	_, err = f.svc.Send(context.Background(), testCircle, creditor, otherMember, "")
	assert.ErrorIs(t, err, ErrUnauthorizedEdge)

	// Self-nudge.
	_, err = f.svc.Send(context.Background(), testCircle, creditor, creditor, "")
	assert.ErrorIs(t, err, ErrUnauthorizedEdge)
}

func TestSendSettledEdgeRejected(t *testing.T) {
	f := newFixture(PolicyDefer)
	f.setClock(at(12, 0))
	f.ledger.settled = true

	_, err := f.svc.Send(context.Background(), testCircle, creditor, debtor, "")
	assert.ErrorIs(t, err, ErrUnauthorizedEdge)
	assert.Empty(t, f.repo.reminders)
}

func TestSendRespectsMute(t *testing.T) {
	f := newFixture(PolicyDefer)
	f.setClock(at(12, 0))
	f.savePref(debtor, func(p *models.ReminderPreference) {
		p.MutedCircles = []uuid.UUID{testCircle}
	})

	_, err := f.svc.Send(context.Background(), testCircle, creditor, debtor, "")
	assert.ErrorIs(t, err, ErrMuted)
}

func TestSendRespectsBlock(t *testing.T) {
	f := newFixture(PolicyDefer)
	f.setClock(at(12, 0))
	f.savePref(debtor, func(p *models.ReminderPreference) {
		p.BlockedUsers = []uuid.UUID{creditor}
	})

	_, err := f.svc.Send(context.Background(), testCircle, creditor, debtor, "")
	assert.ErrorIs(t, err, ErrBlocked)
}

func TestSendUsesRecipientTone(t *testing.T) {
	f := newFixture(PolicyDefer)
	f.setClock(at(12, 0))
	f.savePref(debtor, func(p *models.ReminderPreference) {
		p.Tone = models.ToneDirect
	})

	reminder, err := f.svc.Send(context.Background(), testCircle, creditor, debtor, "")
	require.NoError(t, err)
	assert.Equal(t, models.ToneDirect, reminder.ToneUsed)
}

func TestQuietHoursDeferReminder(t *testing.T) {
	f := newFixture(PolicyDefer)
	f.setClock(at(23, 30))
	f.savePref(debtor, func(p *models.ReminderPreference) {
		p.QuietHoursStart = clock("22:00")
		p.QuietHoursEnd = clock("07:00")
	})

	reminder, err := f.svc.Send(context.Background(), testCircle, creditor, debtor, "")
	require.NoError(t, err)
	assert.Equal(t, models.ReminderStatusQueued, reminder.Status)
	assert.Nil(t, reminder.SentAt)

	// Nothing due before the window ends.
	due, err := f.queue.Due(context.Background(), at(23, 45))
	require.NoError(t, err)
	assert.Empty(t, due)

	due, err = f.queue.Due(context.Background(), at(7, 0).Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{reminder.ID}, due)
}

func TestQuietHoursSendAnywayPolicy(t *testing.T) {
	f := newFixture(PolicySendAnyway)
	f.setClock(at(23, 30))
	f.savePref(debtor, func(p *models.ReminderPreference) {
		p.QuietHoursStart = clock("22:00")
		p.QuietHoursEnd = clock("07:00")
	})

	reminder, err := f.svc.Send(context.Background(), testCircle, creditor, debtor, "")
	require.NoError(t, err)
	assert.Equal(t, models.ReminderStatusSent, reminder.Status)
}

func TestFlushDueSendsAndDelivers(t *testing.T) {
	f := newFixture(PolicyDefer)
	f.setClock(at(23, 30))
	f.savePref(debtor, func(p *models.ReminderPreference) {
		p.QuietHoursStart = clock("22:00")
		p.QuietHoursEnd = clock("07:00")
	})

	reminder, err := f.svc.Send(context.Background(), testCircle, creditor, debtor, "")
	require.NoError(t, err)

	// Next morning, past the window end.
	f.setClock(at(8, 0).Add(24 * time.Hour))
	sent, err := f.svc.FlushDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	stored, err := f.repo.Reminder(context.Background(), reminder.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReminderStatusDelivered, stored.Status)
	require.NotNil(t, stored.SentAt)
	assert.Equal(t, []uuid.UUID{reminder.ID}, f.deliv.delivered)
}

func TestFlushDueDropsSettledEdges(t *testing.T) {
	f := newFixture(PolicyDefer)
	f.setClock(at(23, 30))
	f.savePref(debtor, func(p *models.ReminderPreference) {
		p.QuietHoursStart = clock("22:00")
		p.QuietHoursEnd = clock("07:00")
	})

	reminder, err := f.svc.Send(context.Background(), testCircle, creditor, debtor, "")
	require.NoError(t, err)

	// Debtor settled up while the reminder sat in the queue.
	f.ledger.settled = true
	f.setClock(at(8, 0).Add(24 * time.Hour))
	sent, err := f.svc.FlushDue(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)

	stored, err := f.repo.Reminder(context.Background(), reminder.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReminderStatusQueued, stored.Status)
	assert.Empty(t, f.deliv.delivered)
}

func TestFlushDueRequeuesInsideNewWindow(t *testing.T) {
	f := newFixture(PolicyDefer)
	f.setClock(at(23, 30))
	f.savePref(debtor, func(p *models.ReminderPreference) {
		p.QuietHoursStart = clock("22:00")
		p.QuietHoursEnd = clock("07:00")
	})

	reminder, err := f.svc.Send(context.Background(), testCircle, creditor, debtor, "")
	require.NoError(t, err)

	// Recipient widened the window before the flush ran.
	f.savePref(debtor, func(p *models.ReminderPreference) {
		p.QuietHoursStart = clock("22:00")
		p.QuietHoursEnd = clock("10:00")
	})

	f.setClock(at(8, 0).Add(24 * time.Hour))
	sent, err := f.svc.FlushDue(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)

	// Still queued, due again at the new window end.
	due, err := f.queue.Due(context.Background(), at(10, 0).Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{reminder.ID}, due)
}

func TestDeliverAdvancesSentOnly(t *testing.T) {
	f := newFixture(PolicyDefer)
	f.setClock(at(12, 0))

	reminder, err := f.svc.Send(context.Background(), testCircle, creditor, debtor, "")
	require.NoError(t, err)

	f.svc.Deliver(context.Background(), reminder)
	stored, err := f.repo.Reminder(context.Background(), reminder.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReminderStatusDelivered, stored.Status)

	// A second delivery attempt is a no-op: status is no longer sent.
	f.svc.Deliver(context.Background(), stored)
	stored, err = f.repo.Reminder(context.Background(), reminder.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReminderStatusDelivered, stored.Status)
}

func TestDeliveryFailureKeepsSent(t *testing.T) {
	f := newFixture(PolicyDefer)
	f.setClock(at(12, 0))
	f.deliv.fail = true

	reminder, err := f.svc.Send(context.Background(), testCircle, creditor, debtor, "")
	require.NoError(t, err)

	f.svc.Deliver(context.Background(), reminder)
	stored, err := f.repo.Reminder(context.Background(), reminder.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReminderStatusSent, stored.Status)
}

func TestMarkReadRequiresDelivery(t *testing.T) {
	f := newFixture(PolicyDefer)
	f.setClock(at(12, 0))

	reminder, err := f.svc.Send(context.Background(), testCircle, creditor, debtor, "")
	require.NoError(t, err)

	// sent -> read skips the delivery acknowledgment.
	_, err = f.svc.MarkRead(context.Background(), reminder.ID, debtor)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	f.svc.Deliver(context.Background(), reminder)
	read, err := f.svc.MarkRead(context.Background(), reminder.ID, debtor)
	require.NoError(t, err)
	assert.Equal(t, models.ReminderStatusRead, read.Status)
}

func TestMarkReadRecipientOnly(t *testing.T) {
	f := newFixture(PolicyDefer)
	f.setClock(at(12, 0))

	reminder, err := f.svc.Send(context.Background(), testCircle, creditor, debtor, "")
	require.NoError(t, err)
	f.svc.Deliver(context.Background(), reminder)

	_, err = f.svc.MarkRead(context.Background(), reminder.ID, creditor)
	assert.ErrorIs(t, err, ErrNotRecipient)

	_, err = f.svc.MarkRead(context.Background(), uuid.New(), debtor)
	assert.ErrorIs(t, err, ErrReminderNotFound)
}

func TestMarkEdgePaidClosesDeliveredAndRead(t *testing.T) {
	f := newFixture(PolicyDefer)
	f.setClock(at(12, 0))

	delivered, err := f.svc.Send(context.Background(), testCircle, creditor, debtor, "")
	require.NoError(t, err)
	f.svc.Deliver(context.Background(), delivered)

	read, err := f.svc.Send(context.Background(), testCircle, creditor, debtor, models.ReminderTypeSummary)
	require.NoError(t, err)
	f.svc.Deliver(context.Background(), read)
	_, err = f.svc.MarkRead(context.Background(), read.ID, debtor)
	require.NoError(t, err)

	// A reminder that never got the delivery ack stays open.
	sentOnly, err := f.svc.Send(context.Background(), testCircle, creditor, debtor, "")
	require.NoError(t, err)

	f.svc.MarkEdgePaid(context.Background(), testCircle, debtor, creditor)

	for _, tc := range []struct {
		id   uuid.UUID
		want string
	}{
		{delivered.ID, models.ReminderStatusPaid},
		{read.ID, models.ReminderStatusPaid},
		{sentOnly.ID, models.ReminderStatusSent},
	} {
		stored, err := f.repo.Reminder(context.Background(), tc.id)
		require.NoError(t, err)
		assert.Equal(t, tc.want, stored.Status)
	}
}

func TestStatusNeverRegresses(t *testing.T) {
	assert.True(t, canAdvance(models.ReminderStatusQueued, models.ReminderStatusSent))
	assert.True(t, canAdvance(models.ReminderStatusSent, models.ReminderStatusDelivered))
	assert.True(t, canAdvance(models.ReminderStatusDelivered, models.ReminderStatusRead))
	assert.True(t, canAdvance(models.ReminderStatusRead, models.ReminderStatusPaid))
	assert.True(t, canAdvance(models.ReminderStatusDelivered, models.ReminderStatusPaid))

	assert.False(t, canAdvance(models.ReminderStatusSent, models.ReminderStatusRead))
	assert.False(t, canAdvance(models.ReminderStatusSent, models.ReminderStatusPaid))
	assert.False(t, canAdvance(models.ReminderStatusQueued, models.ReminderStatusDelivered))
	assert.False(t, canAdvance(models.ReminderStatusRead, models.ReminderStatusDelivered))
	assert.False(t, canAdvance(models.ReminderStatusPaid, models.ReminderStatusPaid))
	assert.False(t, canAdvance(models.ReminderStatusDelivered, models.ReminderStatusQueued))
	assert.False(t, canAdvance("bogus", models.ReminderStatusSent))
}

func TestValidatePreference(t *testing.T) {
	userID := uuid.New()

	pref, err := ValidatePreference(userID, models.UpdateReminderPreferenceRequest{
		Tone:            models.ToneSoft,
		QuietHoursStart: clock("22:00"),
		QuietHoursEnd:   clock("07:00"),
		MutedCircles:    []string{testCircle.String()},
		BlockedUsers:    []string{creditor.String()},
	})
	require.NoError(t, err)
	assert.Equal(t, models.ToneSoft, pref.Tone)
	assert.True(t, pref.HasMuted(testCircle))
	assert.True(t, pref.HasBlocked(creditor))

	// Defaults when nothing is set.
	pref, err = ValidatePreference(userID, models.UpdateReminderPreferenceRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.ToneNeutral, pref.Tone)
	assert.Nil(t, pref.QuietHoursStart)

	_, err = ValidatePreference(userID, models.UpdateReminderPreferenceRequest{Tone: "shouty"})
	assert.ErrorIs(t, err, ErrInvalidTone)

	_, err = ValidatePreference(userID, models.UpdateReminderPreferenceRequest{QuietHoursStart: clock("22:00")})
	assert.ErrorIs(t, err, ErrInvalidQuietHours)

	_, err = ValidatePreference(userID, models.UpdateReminderPreferenceRequest{
		QuietHoursStart: clock("22:00"),
		QuietHoursEnd:   clock("25:00"),
	})
	assert.ErrorIs(t, err, ErrInvalidQuietHours)

	_, err = ValidatePreference(userID, models.UpdateReminderPreferenceRequest{MutedCircles: []string{"nope"}})
	assert.Error(t, err)
}
