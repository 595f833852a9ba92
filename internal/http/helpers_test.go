package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"tasktracker/internal/domain"
	"tasktracker/internal/repository"
	"tasktracker/internal/service"
)

type mockEmailSender struct {
	mu          sync.Mutex
	verifyLinks map[string]string
	resetLinks  map[string]string
	err         error
}

func newMockEmailSender() *mockEmailSender {
	return &mockEmailSender{verifyLinks: map[string]string{}, resetLinks: map[string]string{}}
}

func (m *mockEmailSender) SendVerification(_ context.Context, to, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verifyLinks[to] = link
	return m.err
}

func (m *mockEmailSender) SendPasswordReset(_ context.Context, to, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetLinks[to] = link
	return m.err
}

func (m *mockEmailSender) verifyPath(t *testing.T, to string) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	link, ok := m.verifyLinks[to]
	if !ok {
		t.Fatalf("no verification link sent to %s", to)
	}
	return strings.TrimPrefix(link, testBaseURL)
}

const testBaseURL = "http://tasks.test"

type testApp struct {
	router     *gin.Engine
	identities *repository.MemoryIdentityRepository
	tasks      *repository.MemoryTaskRepository
	graph      *service.RelationshipGraph
	sessions   *service.SessionManager
	sender     *mockEmailSender
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	return newTestAppWithLimiters(t, nil, nil)
}

func newTestAppWithLimiters(t *testing.T, limiter, authLimiter service.RateLimiter) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	identities := repository.NewMemoryIdentityRepository()
	tasks := repository.NewMemoryTaskRepository()
	sender := newMockEmailSender()

	jwtSvc := service.NewJWTService("test-secret", 0)
	sessions := service.NewSessionManager(identities, jwtSvc)
	tokens := service.NewEphemeralTokenService(identities, nil, 0)
	users := service.NewUserService(logger, identities, service.NewBcryptCredentialStore(bcrypt.MinCost), tokens, sender, testBaseURL)
	graph := service.NewRelationshipGraph(logger, identities)
	taskSvc := service.NewTaskService(logger, tasks, graph, service.NewAuthorizationGate(identities))
	cookies := NewCookieManager("", false)

	router := NewRouter(RouterDeps{
		Logger:      logger,
		Sessions:    sessions,
		Cookies:     cookies,
		Limiter:     limiter,
		AuthLimiter: authLimiter,
		Users:       NewUserHandler(logger, users, sessions, cookies),
		People:      NewPeopleHandler(logger, graph),
		Tasks:       NewTaskHandler(logger, taskSvc),
	})

	return &testApp{
		router:     router,
		identities: identities,
		tasks:      tasks,
		graph:      graph,
		sessions:   sessions,
		sender:     sender,
	}
}

// seed crea una identidad verificada y devuelve un token de sesion para ella.
func (a *testApp) seed(t *testing.T, id, email, name string) string {
	t.Helper()
	identity := domain.Identity{
		ID:            id,
		Email:         email,
		DisplayName:   name,
		Verified:      true,
		Relationships: domain.Relationships{},
		CreatedAt:     time.Now().UTC(),
	}
	if err := a.identities.Create(context.Background(), identity); err != nil {
		t.Fatalf("seed %s: %v", id, err)
	}
	session, err := a.sessions.Issue(identity)
	if err != nil {
		t.Fatalf("issue session: %v", err)
	}
	return session.Token
}

func (a *testApp) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var payload []byte
	if body != nil {
		payload, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) errorEnvelope {
	t.Helper()
	var env errorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (body %s)", err, rec.Body.String())
	}
	return env
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == sessionCookieName {
			return cookie
		}
	}
	return nil
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected status %d, got %d (body %s)", want, rec.Code, rec.Body.String())
	}
}
