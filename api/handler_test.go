package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Kirana/assistant"
	"Kirana/core"
	"Kirana/holder"
	"Kirana/storage"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRouter(t *testing.T, conf RouterConfig) http.Handler {
	t.Helper()
	catalog := storage.NewMemoryCatalog("")
	catalog.Upsert(storage.Product{Name: "Amul Taaza Milk", Price: 28, Stock: 4})
	chat := assistant.NewAssistant(holder.NewSessionHolder(storage.NewMemoryStorage()), catalog, storage.NewMemoryOrders(), discardLogger())
	if conf.UserHeader == "" {
		conf.UserHeader = "X-User-ID"
	}
	return NewRouter(chat, conf, discardLogger())
}

func do(t *testing.T, h http.Handler, method, path, user, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type turnJSON struct {
	Sender    string   `json:"sender"`
	Text      string   `json:"text"`
	Options   []string `json:"options"`
	Timestamp string   `json:"timestamp"`
}

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()

	JSON(w, http.StatusCreated, map[string]string{"foo": "bar"})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	var got map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, "bar", got["foo"])
}

func TestChat_HistoryEmptyWithoutSession(t *testing.T) {
	h := newTestRouter(t, RouterConfig{})

	rec := do(t, h, http.MethodGet, "/api/chat/history", "u1", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestChat_PostMessage(t *testing.T) {
	h := newTestRouter(t, RouterConfig{})

	rec := do(t, h, http.MethodPost, "/api/chat", "u1", `{"message":"Check Price"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/chat", "u1", `{"message":"milk"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Response string     `json:"response"`
		Options  []string   `json:"options"`
		History  []turnJSON `json:"history"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "The price of Amul Taaza Milk is ₹28.", resp.Response)
	assert.Equal(t, []string{"Check another price", "Main Menu"}, resp.Options)
	require.Len(t, resp.History, 4)
	assert.Equal(t, "user", resp.History[2].Sender)
	assert.Nil(t, resp.History[2].Options)
	assert.Equal(t, "bot", resp.History[3].Sender)
	assert.NotEmpty(t, resp.History[3].Timestamp)

	rec = do(t, h, http.MethodGet, "/api/chat/history", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var history []turnJSON
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&history))
	assert.Len(t, history, 4)
}

func TestChat_OmitsOptionsOnUserTurns(t *testing.T) {
	h := newTestRouter(t, RouterConfig{})

	rec := do(t, h, http.MethodPost, "/api/chat", "u1", `{"message":"hi"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var raw struct {
		History []map[string]any `json:"history"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&raw))
	require.Len(t, raw.History, 2)
	assert.NotContains(t, raw.History[0], "options")
	assert.Contains(t, raw.History[1], "options")
}

func TestChat_Validation(t *testing.T) {
	h := newTestRouter(t, RouterConfig{})

	for name, body := range map[string]string{
		"missing message": `{}`,
		"empty message":   `{"message":"   "}`,
		"not json":        `hello`,
	} {
		t.Run(name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/chat", "u1", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "message")
		})
	}

	rec := do(t, h, http.MethodGet, "/api/chat/history", "u1", "")
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestChat_ResetRoutes(t *testing.T) {
	h := newTestRouter(t, RouterConfig{})
	do(t, h, http.MethodPost, "/api/chat", "u1", `{"message":"price"}`)

	for _, route := range []struct{ method, path string }{
		{http.MethodPost, "/api/chat/reset"},
		{http.MethodDelete, "/api/chat/history"},
	} {
		rec := do(t, h, route.method, route.path, "u1", "")
		require.Equal(t, http.StatusOK, rec.Code, route.path)

		var history []turnJSON
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&history))
		require.Len(t, history, 1)
		assert.Equal(t, "bot", history[0].Sender)
		assert.Equal(t, []string{"Check Price", "Check Stock", "My Orders"}, history[0].Options)
	}
}

func TestChat_RequiresIdentity(t *testing.T) {
	h := newTestRouter(t, RouterConfig{})

	rec := do(t, h, http.MethodGet, "/api/chat/history", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestChat_BearerToken(t *testing.T) {
	h := newTestRouter(t, RouterConfig{AuthToken: "s3cret"})

	rec := do(t, h, http.MethodGet, "/api/chat/history", "u1", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/chat/history", nil)
	req.Header.Set("X-User-ID", "u1")
	req.Header.Set("Authorization", "Bearer s3cret")
	ok := httptest.NewRecorder()
	h.ServeHTTP(ok, req)
	assert.Equal(t, http.StatusOK, ok.Code)
}

func TestChat_UsersAreIsolated(t *testing.T) {
	h := newTestRouter(t, RouterConfig{})
	do(t, h, http.MethodPost, "/api/chat", "u1", `{"message":"hi"}`)

	rec := do(t, h, http.MethodGet, "/api/chat/history", "u2", "")
	assert.JSONEq(t, `[]`, rec.Body.String())
}

type failingChat struct{}

func (failingChat) HandleMessage(context.Context, string, string) (core.Reply, []storage.Turn, error) {
	return core.Reply{}, nil, errors.New("store unavailable")
}

func (failingChat) GetHistory(context.Context, string) ([]storage.Turn, error) {
	return nil, errors.New("store unavailable")
}

func (failingChat) ResetSession(context.Context, string) ([]storage.Turn, error) {
	return nil, errors.New("store unavailable")
}

func TestChat_InternalErrors(t *testing.T) {
	h := NewRouter(failingChat{}, RouterConfig{UserHeader: "X-User-ID"}, discardLogger())

	for _, route := range []struct{ method, path, body string }{
		{http.MethodPost, "/api/chat", `{"message":"hi"}`},
		{http.MethodGet, "/api/chat/history", ""},
		{http.MethodPost, "/api/chat/reset", ""},
	} {
		rec := do(t, h, route.method, route.path, "u1", route.body)
		require.Equal(t, http.StatusInternalServerError, rec.Code, route.path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.NotEmpty(t, body["message"])
		assert.Equal(t, "store unavailable", body["error"])
	}
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("kirana_chat_resets_total 0\n"))
	})
	h := newTestRouter(t, RouterConfig{Metrics: metrics})

	rec := do(t, h, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "kirana_chat_resets_total")
}

func TestCORS(t *testing.T) {
	h := newTestRouter(t, RouterConfig{FrontendURL: "http://localhost:5174"})

	req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	req.Header.Set("Origin", "http://localhost:5174")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5174", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, "Content-Type, Authorization, X-User-ID", rec.Header().Get("Access-Control-Allow-Headers"))

	req = httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
