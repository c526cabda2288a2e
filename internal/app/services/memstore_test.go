package services

// In-memory store and gateway fakes used by the service tests. They mirror
// the conditional-write semantics of the SQL repositories, including the
// single-winner link write and the clamped ledger sync, so the concurrency
// behavior under test matches what the database enforces.

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yigit/schoolsphere/internal/app/models"
	"github.com/yigit/schoolsphere/internal/pkg/apperrors"
	"github.com/yigit/schoolsphere/internal/pkg/gateway"
)

type memStore struct {
	mu       sync.Mutex
	students map[string]*models.Student
	payments map[string]*models.Payment
	audits   []*models.LinkAudit
}

func newMemStore() *memStore {
	return &memStore{
		students: make(map[string]*models.Student),
		payments: make(map[string]*models.Payment),
	}
}

func copyStudent(s *models.Student) *models.Student {
	c := *s
	return &c
}

func copyPayment(p *models.Payment) *models.Payment {
	c := *p
	return &c
}

func (m *memStore) addStudent(s *models.Student) *models.Student {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt
	m.students[s.ID] = s
	return copyStudent(s)
}

func (m *memStore) GetByID(ctx context.Context, id string) (*models.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.students[id]
	if !ok {
		return nil, apperrors.ErrStudentNotFound
	}
	return copyStudent(s), nil
}

func (m *memStore) GetByApplicationID(ctx context.Context, applicationID string) (*models.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.students {
		if s.ApplicationID == applicationID {
			return copyStudent(s), nil
		}
	}
	return nil, apperrors.ErrStudentNotFound
}

func (m *memStore) FindUnlinkedByGuardianEmail(ctx context.Context, email string) ([]*models.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Student
	for _, s := range m.students {
		if s.UserID == nil && s.GuardianEmail != nil && strings.EqualFold(*s.GuardianEmail, email) {
			out = append(out, copyStudent(s))
		}
	}
	return out, nil
}

func (m *memStore) FindUnlinkedByName(ctx context.Context, firstName, lastName string, dateOfBirth *time.Time) ([]*models.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Student
	for _, s := range m.students {
		if s.UserID != nil {
			continue
		}
		if !strings.EqualFold(s.FirstName, firstName) || !strings.EqualFold(s.LastName, lastName) {
			continue
		}
		if dateOfBirth != nil && !s.DateOfBirth.Equal(*dateOfBirth) {
			continue
		}
		out = append(out, copyStudent(s))
	}
	return out, nil
}

func (m *memStore) LinkAccount(ctx context.Context, studentID, accountID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.students[studentID]
	if !ok || s.UserID != nil {
		return false, nil
	}
	id := accountID
	s.UserID = &id
	s.UpdatedAt = time.Now()
	return true, nil
}

func (m *memStore) UpdateTuitionAmount(ctx context.Context, studentID string, newAmount int64) (*models.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.students[studentID]
	if !ok {
		return nil, apperrors.ErrStudentNotFound
	}
	if newAmount < s.TuitionPaid {
		return nil, apperrors.ErrTuitionBelowPaid
	}
	if newAmount < s.TuitionAmount {
		return nil, apperrors.NewBadRequestError("tuition override may only increase the amount")
	}
	s.TuitionAmount = newAmount
	s.UpdatedAt = time.Now()
	return copyStudent(s), nil
}

func intentKey(studentID string, amount int64, nonce string) string {
	return studentID + "|" + nonce + "|" + strconv.FormatInt(amount, 10)
}

func (m *memStore) CreateIntent(ctx context.Context, payment *models.Payment) (bool, *models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := intentKey(payment.StudentID, payment.Amount, payment.Nonce)
	for _, p := range m.payments {
		if intentKey(p.StudentID, p.Amount, p.Nonce) == key {
			return false, copyPayment(p), nil
		}
	}
	payment.ID = uuid.New().String()
	payment.Status = models.PaymentPending
	payment.SyncStatus = models.SyncNotRequired
	payment.CreatedAt = time.Now()
	m.payments[payment.ID] = copyPayment(payment)
	return true, copyPayment(payment), nil
}

func (m *memStore) GetByIntentKey(ctx context.Context, studentID string, amount int64, nonce string) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := intentKey(studentID, amount, nonce)
	for _, p := range m.payments {
		if intentKey(p.StudentID, p.Amount, p.Nonce) == key {
			return copyPayment(p), nil
		}
	}
	return nil, apperrors.ErrPaymentNotFound
}

func (m *memStore) AttachGatewayRef(ctx context.Context, paymentID, gatewayRef string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[paymentID]
	if !ok {
		return apperrors.ErrPaymentNotFound
	}
	if p.GatewayRef == "" {
		p.GatewayRef = gatewayRef
	}
	return nil
}

func (m *memStore) GetByGatewayRef(ctx context.Context, gatewayRef string) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.GatewayRef == gatewayRef {
			return copyPayment(p), nil
		}
	}
	return nil, apperrors.ErrPaymentNotFound
}

func (m *memStore) ListByStudent(ctx context.Context, studentID string) ([]*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Payment
	for _, p := range m.payments {
		if p.StudentID == studentID {
			out = append(out, copyPayment(p))
		}
	}
	return out, nil
}

func (m *memStore) MarkPaid(ctx context.Context, paymentID string, confirmedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[paymentID]
	if !ok {
		return false, apperrors.ErrPaymentNotFound
	}
	if p.Status != models.PaymentPending && p.Status != models.PaymentCancelled {
		return false, nil
	}
	p.Status = models.PaymentPaid
	p.ConfirmedAt = &confirmedAt
	return true, nil
}

func (m *memStore) MarkFailed(ctx context.Context, paymentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.payments[paymentID]; ok && p.Status == models.PaymentPending {
		p.Status = models.PaymentFailed
	}
	return nil
}

func (m *memStore) SyncLedger(ctx context.Context, paymentID string) (*models.Payment, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[paymentID]
	if !ok {
		return nil, 0, apperrors.ErrPaymentNotFound
	}
	if p.Status != models.PaymentPaid {
		return nil, 0, apperrors.NewConflictError("payment is not confirmed")
	}
	s, ok := m.students[p.StudentID]
	if !ok {
		return nil, 0, apperrors.ErrStudentNotFound
	}
	if p.SyncStatus == models.SyncDone {
		return copyPayment(p), s.Balance(), nil
	}

	applied := p.Amount
	if remaining := s.Balance(); applied > remaining {
		applied = remaining
	}
	if applied < 0 {
		applied = 0
	}
	p.AppliedAmt = applied
	p.ExcessAmt = p.Amount - applied
	p.SyncStatus = models.SyncDone
	s.TuitionPaid += applied
	s.UpdatedAt = time.Now()
	return copyPayment(p), s.Balance(), nil
}

func (m *memStore) MarkNeedsManualSync(ctx context.Context, paymentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.payments[paymentID]; ok && p.SyncStatus != models.SyncDone {
		p.SyncStatus = models.SyncNeedsManual
	}
	return nil
}

func (m *memStore) CancelExpiredIntents(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, p := range m.payments {
		if p.Status == models.PaymentPending && p.CreatedAt.Before(cutoff) {
			p.Status = models.PaymentCancelled
			n++
		}
	}
	return n, nil
}

func (m *memStore) Append(ctx context.Context, accountID, studentID string, strategy models.LinkStrategy) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audits = append(m.audits, &models.LinkAudit{
		ID:        int64(len(m.audits) + 1),
		AccountID: accountID,
		StudentID: studentID,
		Strategy:  strategy,
		LinkedAt:  time.Now(),
	})
	return nil
}

func (m *memStore) auditCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.audits)
}

// memApplications keeps applications and performs the promotion transaction
// against the shared memStore. failAfterStudent simulates an approval that
// created the student but crashed before updating the application.
type memApplications struct {
	mu               sync.Mutex
	applications     map[string]*models.Application
	store            *memStore
	failAfterStudent bool
}

func newMemApplications(store *memStore) *memApplications {
	return &memApplications{
		applications: make(map[string]*models.Application),
		store:        store,
	}
}

func copyApplication(a *models.Application) *models.Application {
	c := *a
	return &c
}

func (m *memApplications) Create(ctx context.Context, app *models.Application) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	app.ID = uuid.New().String()
	app.Status = models.ApplicationPending
	app.SubmittedAt = time.Now()
	m.applications[app.ID] = copyApplication(app)
	return nil
}

func (m *memApplications) GetByID(ctx context.Context, id string) (*models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	app, ok := m.applications[id]
	if !ok {
		return nil, apperrors.ErrApplicationNotFound
	}
	return copyApplication(app), nil
}

func (m *memApplications) GetByCodePrefix(ctx context.Context, code string) (*models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, app := range m.applications {
		if strings.HasPrefix(strings.ToLower(app.ID), code) {
			return copyApplication(app), nil
		}
	}
	return nil, apperrors.ErrCodeNotFound
}

func (m *memApplications) ListByStatus(ctx context.Context, status models.ApplicationStatus) ([]*models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Application
	for _, app := range m.applications {
		if app.Status == status {
			out = append(out, copyApplication(app))
		}
	}
	return out, nil
}

func (m *memApplications) Promote(ctx context.Context, applicationID, reviewerID string, student *models.Student, reviewedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	app, ok := m.applications[applicationID]
	if !ok {
		return apperrors.ErrApplicationNotFound
	}
	if app.Status != models.ApplicationPending {
		return apperrors.ErrAlreadyDecided
	}

	created := m.store.addStudent(student)
	student.ID = created.ID

	if m.failAfterStudent {
		m.failAfterStudent = false
		return errors.New("simulated crash after student insert")
	}

	app.Status = models.ApplicationApproved
	app.ReviewedAt = &reviewedAt
	app.ReviewedBy = &reviewerID
	app.CreatedStudentID = &student.ID
	return nil
}

func (m *memApplications) CompletePromotion(ctx context.Context, applicationID, reviewerID, studentID string, reviewedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	app, ok := m.applications[applicationID]
	if !ok {
		return apperrors.ErrApplicationNotFound
	}
	if app.Status != models.ApplicationPending {
		return apperrors.ErrAlreadyDecided
	}
	app.Status = models.ApplicationApproved
	app.ReviewedAt = &reviewedAt
	app.ReviewedBy = &reviewerID
	app.CreatedStudentID = &studentID
	return nil
}

func (m *memApplications) Reject(ctx context.Context, applicationID, reviewerID string, reason *string, reviewedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	app, ok := m.applications[applicationID]
	if !ok {
		return apperrors.ErrApplicationNotFound
	}
	if app.Status != models.ApplicationPending {
		return apperrors.ErrAlreadyDecided
	}
	app.Status = models.ApplicationRejected
	app.ReviewedAt = &reviewedAt
	app.ReviewedBy = &reviewerID
	if reason != nil {
		app.Notes = reason
	}
	return nil
}

// fakeGateway is an in-memory payment provider. Intents are created in
// requires_payment status and moved with succeed/fail, mimicking the
// customer completing or abandoning checkout.
type fakeGateway struct {
	mu      sync.Mutex
	intents map[string]*gateway.Intent
	byKey   map[string]string
	creates int
	rejects bool
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		intents: make(map[string]*gateway.Intent),
		byKey:   make(map[string]string),
	}
}

func (g *fakeGateway) CreateIntent(ctx context.Context, amount int64, currency, idempotencyKey string) (*gateway.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.creates++
	if g.rejects {
		return nil, apperrors.NewCustomError(apperrors.ErrGatewayRejected, "card declined")
	}
	if ref, ok := g.byKey[idempotencyKey]; ok {
		intent := *g.intents[ref]
		return &intent, nil
	}
	ref := "gw-" + uuid.New().String()
	intent := &gateway.Intent{
		Reference:   ref,
		Amount:      amount,
		Currency:    currency,
		Status:      gateway.IntentRequiresPayment,
		CheckoutURL: "https://pay.example.com/" + ref,
	}
	g.intents[ref] = intent
	g.byKey[idempotencyKey] = ref
	return intent, nil
}

func (g *fakeGateway) RetrieveIntent(ctx context.Context, reference string) (*gateway.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	intent, ok := g.intents[reference]
	if !ok {
		return nil, apperrors.ErrPaymentNotFound
	}
	c := *intent
	return &c, nil
}

func (g *fakeGateway) setStatus(reference string, status gateway.IntentStatus) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if intent, ok := g.intents[reference]; ok {
		intent.Status = status
	}
}

func (g *fakeGateway) createCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.creates
}

// memUsers is an in-memory account store for auth tests.
type memUsers struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newMemUsers() *memUsers {
	return &memUsers{users: make(map[string]*models.User)}
}

func (m *memUsers) Create(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, user.Email) {
			return apperrors.ErrEmailAlreadyExists
		}
	}
	user.ID = uuid.New().String()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	c := *user
	m.users[user.ID] = &c
	return nil
}

func (m *memUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			c := *u
			return &c, nil
		}
	}
	return nil, apperrors.ErrUserNotFound
}

func (m *memUsers) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		u.LastLoginAt = &at
	}
	return nil
}
