package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	apperrors "github.com/benvon/moodhome/internal/errors"
	"github.com/benvon/moodhome/internal/models"
	"github.com/benvon/moodhome/internal/queue"
	"github.com/benvon/moodhome/internal/request"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type mockCheckInRepo struct {
	createFn     func(ctx context.Context, c *models.CheckIn) error
	getByIDFn    func(ctx context.Context, id uuid.UUID) (*models.CheckIn, error)
	listRecentFn func(ctx context.Context, userID uuid.UUID, limit int) ([]*models.CheckIn, error)
	updateFn     func(ctx context.Context, c *models.CheckIn) error
	deleteFn     func(ctx context.Context, userID, id uuid.UUID) error
}

func (m *mockCheckInRepo) Create(ctx context.Context, c *models.CheckIn) error {
	if m.createFn != nil {
		return m.createFn(ctx, c)
	}
	return nil
}

func (m *mockCheckInRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.CheckIn, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, apperrors.NewNotFound("check-in", id.String())
}

func (m *mockCheckInRepo) ListRecent(ctx context.Context, userID uuid.UUID, limit int) ([]*models.CheckIn, error) {
	if m.listRecentFn != nil {
		return m.listRecentFn(ctx, userID, limit)
	}
	return nil, nil
}

func (m *mockCheckInRepo) Update(ctx context.Context, c *models.CheckIn) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, c)
	}
	return nil
}

func (m *mockCheckInRepo) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, userID, id)
	}
	return nil
}

type mockSuggestionRepo struct {
	listActiveFn    func(ctx context.Context, userID uuid.UUID, limit int) ([]*models.AutomationSuggestion, error)
	listByCheckInFn func(ctx context.Context, checkInID uuid.UUID) ([]*models.AutomationSuggestion, error)
	dismissFn       func(ctx context.Context, userID, id uuid.UUID) (*models.AutomationSuggestion, bool, error)
	dismissActiveFn func(ctx context.Context, userID, checkInID uuid.UUID) (int, error)
	executeFn       func(ctx context.Context, userID, id uuid.UUID, exec *models.AutomationExecution) (*models.AutomationSuggestion, bool, error)
}

func (m *mockSuggestionRepo) CreateForCheckIn(context.Context, *models.CheckIn, []*models.AutomationSuggestion, bool) (bool, error) {
	return false, nil
}

func (m *mockSuggestionRepo) GetByID(_ context.Context, id uuid.UUID) (*models.AutomationSuggestion, error) {
	return nil, apperrors.NewNotFound("suggestion", id.String())
}

func (m *mockSuggestionRepo) ListActive(ctx context.Context, userID uuid.UUID, limit int) ([]*models.AutomationSuggestion, error) {
	if m.listActiveFn != nil {
		return m.listActiveFn(ctx, userID, limit)
	}
	return nil, nil
}

func (m *mockSuggestionRepo) ListByCheckIn(ctx context.Context, checkInID uuid.UUID) ([]*models.AutomationSuggestion, error) {
	if m.listByCheckInFn != nil {
		return m.listByCheckInFn(ctx, checkInID)
	}
	return nil, nil
}

func (m *mockSuggestionRepo) Dismiss(ctx context.Context, userID, id uuid.UUID) (*models.AutomationSuggestion, bool, error) {
	if m.dismissFn != nil {
		return m.dismissFn(ctx, userID, id)
	}
	return nil, false, apperrors.NewNotFound("suggestion", id.String())
}

func (m *mockSuggestionRepo) DismissActiveForCheckIn(ctx context.Context, userID, checkInID uuid.UUID) (int, error) {
	if m.dismissActiveFn != nil {
		return m.dismissActiveFn(ctx, userID, checkInID)
	}
	return 0, nil
}

func (m *mockSuggestionRepo) Execute(ctx context.Context, userID, id uuid.UUID, exec *models.AutomationExecution) (*models.AutomationSuggestion, bool, error) {
	if m.executeFn != nil {
		return m.executeFn(ctx, userID, id, exec)
	}
	return nil, false, apperrors.NewNotFound("suggestion", id.String())
}

type mockContactRepo struct {
	mu       sync.Mutex
	contacts map[uuid.UUID]*models.Contact
}

func newMockContactRepo() *mockContactRepo {
	return &mockContactRepo{contacts: make(map[uuid.UUID]*models.Contact)}
}

func (m *mockContactRepo) Create(_ context.Context, c *models.Contact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contacts[c.ID] = c
	return nil
}

func (m *mockContactRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.contacts[id]; ok {
		return c, nil
	}
	return nil, apperrors.NewNotFound("contact", id.String())
}

func (m *mockContactRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]*models.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Contact
	for _, c := range m.contacts {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockContactRepo) Update(_ context.Context, c *models.Contact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contacts[c.ID] = c
	return nil
}

func (m *mockContactRepo) MarkContacted(_ context.Context, userID, id uuid.UUID) (*models.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contacts[id]
	if !ok || c.UserID != userID {
		return nil, apperrors.NewNotFound("contact", id.String())
	}
	now := c.CreatedAt
	c.LastContactedAt = &now
	return c, nil
}

func (m *mockContactRepo) Delete(_ context.Context, userID, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contacts[id]
	if !ok || c.UserID != userID {
		return apperrors.NewNotFound("contact", id.String())
	}
	delete(m.contacts, id)
	return nil
}

type mockExecutionRepo struct {
	listFn func(ctx context.Context, userID uuid.UUID, limit int) ([]*models.AutomationExecution, error)
}

func (m *mockExecutionRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.AutomationExecution, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID, limit)
	}
	return nil, nil
}

func (m *mockExecutionRepo) GetBySuggestion(_ context.Context, id uuid.UUID) (*models.AutomationExecution, error) {
	return nil, apperrors.NewNotFound("execution", id.String())
}

type recordingEnqueuer struct {
	mu   sync.Mutex
	jobs []*queue.Job
	err  error
}

func (e *recordingEnqueuer) Enqueue(_ context.Context, job *queue.Job) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	e.jobs = append(e.jobs, job)
	return nil
}

func (e *recordingEnqueuer) Jobs() []*queue.Job {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*queue.Job(nil), e.jobs...)
}

func testUser() *models.User {
	return &models.User{ID: uuid.New(), Email: "user@example.com"}
}

// serve routes req through a router prefixed like the API, as user.
func serve(t *testing.T, register func(*mux.Router), prefix string, user *models.User, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	router := mux.NewRouter()
	register(router.PathPrefix(prefix).Subrouter())
	if user != nil {
		req = req.WithContext(request.WithUser(req.Context(), user))
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func jsonRequest(method, path string, body any) *http.Request {
	req := newTestRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details map[string]any  `json:"details"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder, data any) envelope {
	t.Helper()
	var env envelope
	if err := json.NewDecoder(bytes.NewReader(w.Body.Bytes())).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v (body %q)", err, w.Body.String())
	}
	if data != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, data); err != nil {
			t.Fatalf("decode data: %v", err)
		}
	}
	return env
}
