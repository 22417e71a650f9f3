package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"messaging-service/internal/auth"
	"messaging-service/internal/db"
	"messaging-service/internal/handlers"
	"messaging-service/internal/repositories"
)

type testServer struct {
	t      *testing.T
	engine *gin.Engine
}

func newTestServer(t *testing.T, protect bool) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	database, err := db.Connect(context.Background(), db.DriverSQLite, filepath.Join(t.TempDir(), "router.db"), db.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	tokens, err := auth.NewManager("router-secret", "HS256", time.Hour)
	require.NoError(t, err)

	users := repositories.NewUserRepo(database)
	engine := New(Deps{
		Users:                  handlers.NewUserHandler(users, auth.NewIdentityAssertion(users), tokens, repositories.ListEmpty, nil, nil),
		Messages:               handlers.NewMessageHandler(repositories.NewMessageRepo(database), repositories.NewDeliveryQueryRepo(database), repositories.ListEmpty, nil, nil),
		Tokens:                 tokens,
		DB:                     database,
		ProtectUserScopedViews: protect,
	})
	return &testServer{t: t, engine: engine}
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func (s *testServer) decode(w *httptest.ResponseRecorder, out any) {
	s.t.Helper()
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
}

type signup struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Token string `json:"token"`
}

func (s *testServer) register(email, name string) signup {
	s.t.Helper()
	w := s.do(http.MethodPost, "/users", "", map[string]string{"email": email, "name": name})
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
	var out signup
	s.decode(w, &out)
	return out
}

type inboxRow struct {
	ID         string  `json:"id"`
	DeliveryID string  `json:"delivery_id"`
	SenderID   string  `json:"sender_id"`
	Content    string  `json:"content"`
	Read       bool    `json:"read"`
	ReadAt     *string `json:"read_at"`
}

type sentRow struct {
	ID         string `json:"id"`
	Content    string `json:"content"`
	Recipients []struct {
		RecipientID string  `json:"recipient_id"`
		Read        bool    `json:"read"`
		ReadAt      *string `json:"read_at"`
	} `json:"recipients"`
}

func TestEndToEndReadState(t *testing.T) {
	s := newTestServer(t, false)
	a := s.register("a@x.com", "A")
	b := s.register("b@x.com", "B")

	w := s.do(http.MethodPost, "/messages", a.Token, map[string]any{"subject": "hi", "content": "hello B", "recipient_ids": []string{b.ID}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var msg struct {
		ID       string `json:"id"`
		SenderID string `json:"sender_id"`
	}
	s.decode(w, &msg)
	assert.Equal(t, a.ID, msg.SenderID)

	var inbox []inboxRow
	w = s.do(http.MethodGet, "/messages/inbox", b.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	s.decode(w, &inbox)
	require.Len(t, inbox, 1)
	assert.Equal(t, msg.ID, inbox[0].ID)
	assert.False(t, inbox[0].Read)

	// only the recipient may mark it read
	w = s.do(http.MethodPut, "/message-recipients/"+inbox[0].DeliveryID+"/read", a.Token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = s.do(http.MethodPut, "/message-recipients/"+inbox[0].DeliveryID+"/read", b.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var unread []inboxRow
	w = s.do(http.MethodGet, "/messages/unread", b.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	s.decode(w, &unread)
	assert.Empty(t, unread)

	var sent []sentRow
	w = s.do(http.MethodGet, "/messages/sent", a.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	s.decode(w, &sent)
	require.Len(t, sent, 1)
	require.Len(t, sent[0].Recipients, 1)
	assert.Equal(t, b.ID, sent[0].Recipients[0].RecipientID)
	assert.True(t, sent[0].Recipients[0].Read)
	assert.NotNil(t, sent[0].Recipients[0].ReadAt)

	w = s.do(http.MethodGet, "/messages/"+msg.ID, b.Token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	stranger := s.register("c@x.com", "C")
	w = s.do(http.MethodGet, "/messages/"+msg.ID, stranger.Token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLoginAndDuplicateEmail(t *testing.T) {
	s := newTestServer(t, false)
	a := s.register("a@x.com", "A")

	w := s.do(http.MethodPost, "/users", "", map[string]string{"email": "a@x.com", "name": "Other"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/auths/login", "", map[string]string{"email": "a@x.com", "name": "A"})
	require.Equal(t, http.StatusOK, w.Code)
	var login signup
	s.decode(w, &login)
	assert.Equal(t, a.ID, login.ID)

	w = s.do(http.MethodPost, "/auths/login", "", map[string]string{"email": "a@x.com", "name": "Wrong"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	var users []map[string]any
	w = s.do(http.MethodGet, "/users", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	s.decode(w, &users)
	assert.Len(t, users, 1)
}

func TestUnauthenticatedRequests(t *testing.T) {
	s := newTestServer(t, false)

	w := s.do(http.MethodGet, "/messages/inbox", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))

	w = s.do(http.MethodGet, "/messages/inbox", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.True(t, strings.Contains(w.Header().Get("WWW-Authenticate"), "invalid_token"))

	w = s.do(http.MethodPost, "/messages", "", map[string]any{"content": "x", "recipient_ids": []string{}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUserScopedViewsPolicy(t *testing.T) {
	open := newTestServer(t, false)
	a := open.register("a@x.com", "A")
	b := open.register("b@x.com", "B")
	w := open.do(http.MethodGet, "/messages/inbox/"+a.ID, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	protected := newTestServer(t, true)
	a = protected.register("a@x.com", "A")
	b = protected.register("b@x.com", "B")
	assert.Equal(t, http.StatusUnauthorized, protected.do(http.MethodGet, "/messages/sent/"+a.ID, "", nil).Code)
	assert.Equal(t, http.StatusForbidden, protected.do(http.MethodGet, "/messages/sent/"+a.ID, b.Token, nil).Code)
	assert.Equal(t, http.StatusOK, protected.do(http.MethodGet, "/messages/sent/"+a.ID, a.Token, nil).Code)
}

func TestDeleteUserSelfOnly(t *testing.T) {
	s := newTestServer(t, false)
	a := s.register("a@x.com", "A")
	b := s.register("b@x.com", "B")
	w := s.do(http.MethodPost, "/messages", a.Token, map[string]any{"content": "hi", "recipient_ids": []string{b.ID}})
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, http.StatusForbidden, s.do(http.MethodDelete, "/users/"+a.ID, b.Token, nil).Code)
	assert.Equal(t, http.StatusNoContent, s.do(http.MethodDelete, "/users/"+a.ID, a.Token, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/users/"+a.ID, "", nil).Code)

	var inbox []inboxRow
	w = s.do(http.MethodGet, "/messages/inbox", b.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	s.decode(w, &inbox)
	assert.Empty(t, inbox)
}

func TestSystemRoutes(t *testing.T) {
	s := newTestServer(t, false)
	assert.JSONEq(t, `{"message":"Hello, world!"}`, s.do(http.MethodGet, "/", "", nil).Body.String())
	assert.JSONEq(t, `{"status":"ok"}`, s.do(http.MethodGet, "/healthz", "", nil).Body.String())

	w := s.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "messaging_http_requests_total")
}
