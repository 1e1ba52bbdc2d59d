package notifications_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/modules/notifications"
	"github.com/dmitrymomot/notifykit/pkg/dispatcher"
	"github.com/dmitrymomot/notifykit/pkg/notification"
	"github.com/dmitrymomot/notifykit/pkg/notifier"
	"github.com/dmitrymomot/notifykit/pkg/notify"
	"github.com/dmitrymomot/notifykit/pkg/queue"
	"github.com/dmitrymomot/notifykit/pkg/router"
	"github.com/dmitrymomot/notifykit/pkg/template"
)

type staticDirectory map[string]notify.Recipient

func (d staticDirectory) Resolve(ctx context.Context, recipientID string) (notify.Recipient, error) {
	return d[recipientID], nil
}

func newTestHandler(t *testing.T) (http.Handler, *notifier.Engine, *notification.MemoryStorage) {
	t.Helper()

	queueStore := queue.NewMemoryStorage()
	t.Cleanup(func() { _ = queueStore.Close() })
	notifStore := notification.NewMemoryStorage()

	engine, err := notifier.NewEngine(notifier.Storages{
		Templates:     template.NewMemoryStore(),
		Bindings:      router.NewMemoryBindingStore(),
		Queue:         queueStore,
		Log:           dispatcher.NewMemoryLogStore(),
		Notifications: notifStore,
		Preferences:   notifStore,
	}, staticDirectory{"user-42": {ID: "user-42", Email: "ada@example.com"}})
	require.NoError(t, err)

	svc, err := notifications.NewService(engine)
	require.NoError(t, err)
	return svc.Handle(), engine, notifStore
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Recipient-ID", "user-42")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func welcomeTemplate() template.Template {
	return template.Template{
		Code:     "welcome",
		Name:     "Welcome",
		Category: "account",
		Channels: []notify.Channel{notify.ChannelEmail},
		Variables: []template.Variable{
			{Name: "name", Type: template.VariableString, Required: true},
		},
		Content: map[notify.Channel]template.Content{
			notify.ChannelEmail: {Subject: "Welcome, {{name}}", Body: "Hello {{name}}"},
		},
		IsActive: true,
	}
}

func TestTemplateEndpoints(t *testing.T) {
	t.Parallel()

	t.Run("create and fetch", func(t *testing.T) {
		t.Parallel()

		h, _, _ := newTestHandler(t)

		rec := doJSON(t, h, http.MethodPost, "/templates", welcomeTemplate())
		require.Equal(t, http.StatusCreated, rec.Code)

		rec = doJSON(t, h, http.MethodGet, "/templates/welcome", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var fetched template.Template
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fetched))
		assert.Equal(t, "welcome", fetched.Code)
		assert.Equal(t, 1, fetched.Version)
	})

	t.Run("unknown template is 404", func(t *testing.T) {
		t.Parallel()

		h, _, _ := newTestHandler(t)
		rec := doJSON(t, h, http.MethodGet, "/templates/nope", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("duplicate code is 409", func(t *testing.T) {
		t.Parallel()

		h, _, _ := newTestHandler(t)
		require.Equal(t, http.StatusCreated, doJSON(t, h, http.MethodPost, "/templates", welcomeTemplate()).Code)
		assert.Equal(t, http.StatusConflict, doJSON(t, h, http.MethodPost, "/templates", welcomeTemplate()).Code)
	})

	t.Run("system template mutation is 403", func(t *testing.T) {
		t.Parallel()

		h, _, _ := newTestHandler(t)
		tmpl := welcomeTemplate()
		tmpl.IsSystem = true
		require.Equal(t, http.StatusCreated, doJSON(t, h, http.MethodPost, "/templates", tmpl).Code)

		assert.Equal(t, http.StatusForbidden, doJSON(t, h, http.MethodPut, "/templates/welcome", tmpl).Code)
		assert.Equal(t, http.StatusForbidden, doJSON(t, h, http.MethodDelete, "/templates/welcome", nil).Code)
	})

	t.Run("preview renders content", func(t *testing.T) {
		t.Parallel()

		h, _, _ := newTestHandler(t)
		require.Equal(t, http.StatusCreated, doJSON(t, h, http.MethodPost, "/templates", welcomeTemplate()).Code)

		rec := doJSON(t, h, http.MethodPost, "/templates/welcome/preview", map[string]any{
			"channel":   "email",
			"variables": map[string]any{"name": "Ada"},
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var content notify.Content
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &content))
		assert.Equal(t, "Welcome, Ada", content.Subject)
	})
}

func TestSendAndEventEndpoints(t *testing.T) {
	t.Parallel()

	t.Run("send enqueues entries", func(t *testing.T) {
		t.Parallel()

		h, _, _ := newTestHandler(t)
		require.Equal(t, http.StatusCreated, doJSON(t, h, http.MethodPost, "/templates", welcomeTemplate()).Code)

		rec := doJSON(t, h, http.MethodPost, "/send", map[string]any{
			"template_code": "welcome",
			"recipient_id":  "user-42",
			"variables":     map[string]any{"name": "Ada"},
		})
		require.Equal(t, http.StatusAccepted, rec.Code)

		var entries []queue.Entry
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
		require.Len(t, entries, 1)
		assert.Equal(t, notify.ChannelEmail, entries[0].Channel)
	})

	t.Run("event without recipientId is 400", func(t *testing.T) {
		t.Parallel()

		h, _, _ := newTestHandler(t)
		rec := doJSON(t, h, http.MethodPost, "/events", map[string]any{
			"event_type":  "QUOTE_ACCEPTED",
			"entity_type": "quote",
			"variables":   map[string]any{"amount": 150},
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("event schedules matching bindings", func(t *testing.T) {
		t.Parallel()

		h, _, _ := newTestHandler(t)
		require.Equal(t, http.StatusCreated, doJSON(t, h, http.MethodPost, "/templates", welcomeTemplate()).Code)
		require.Equal(t, http.StatusCreated, doJSON(t, h, http.MethodPost, "/bindings", map[string]any{
			"event_type":    "USER_CREATED",
			"entity_type":   "user",
			"template_code": "welcome",
			"is_active":     true,
		}).Code)

		rec := doJSON(t, h, http.MethodPost, "/events", map[string]any{
			"event_type":  "USER_CREATED",
			"entity_type": "user",
			"variables":   map[string]any{"recipientId": "user-42", "name": "Ada"},
		})
		require.Equal(t, http.StatusAccepted, rec.Code)

		var entries []queue.Entry
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
		assert.Len(t, entries, 1)
	})

	t.Run("confirm unknown delivery is 404", func(t *testing.T) {
		t.Parallel()

		h, _, _ := newTestHandler(t)
		rec := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/deliveries/"+uuid.NewString()+"/confirm", nil)
		h.ServeHTTP(rec, r)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("binding with unknown template is 404", func(t *testing.T) {
		t.Parallel()

		h, _, _ := newTestHandler(t)
		rec := doJSON(t, h, http.MethodPost, "/bindings", map[string]any{
			"event_type":    "USER_CREATED",
			"entity_type":   "user",
			"template_code": "nope",
			"is_active":     true,
		})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestInboxEndpoints(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	seedInbox := func(t *testing.T, storage *notification.MemoryStorage) notification.Notification {
		t.Helper()

		notif := notification.Notification{
			ID:          uuid.New(),
			RecipientID: "user-42",
			Type:        notification.TypeInfo,
			Title:       "Hello",
			Content:     "World",
		}
		require.NoError(t, storage.Create(ctx, notif))
		return notif
	}

	t.Run("requires recipient identity", func(t *testing.T) {
		t.Parallel()

		h, _, _ := newTestHandler(t)
		req := httptest.NewRequest(http.MethodGet, "/inbox", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("list and mark read", func(t *testing.T) {
		t.Parallel()

		h, engine, notifStore := newTestHandler(t)
		notif := seedInbox(t, notifStore)

		rec := doJSON(t, h, http.MethodGet, "/inbox", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Notifications []notification.Notification `json:"notifications"`
			UnreadCount   int                         `json:"unread_count"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Notifications, 1)
		assert.Equal(t, 1, resp.UnreadCount)

		rec = doJSON(t, h, http.MethodPost, "/inbox/"+notif.ID.String()+"/read", nil)
		require.Equal(t, http.StatusNoContent, rec.Code)

		unread, err := engine.CountUnread(ctx, "user-42")
		require.NoError(t, err)
		assert.Zero(t, unread)
	})

	t.Run("preferences round trip", func(t *testing.T) {
		t.Parallel()

		h, _, _ := newTestHandler(t)

		rec := doJSON(t, h, http.MethodPut, "/preferences", map[string]any{
			"channels": map[string]bool{"email": false},
		})
		require.Equal(t, http.StatusNoContent, rec.Code)

		rec = doJSON(t, h, http.MethodGet, "/preferences", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var prefs notification.Preferences
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &prefs))
		assert.False(t, prefs.ChannelEnabled(notify.ChannelEmail))
		assert.True(t, prefs.ChannelEnabled(notify.ChannelPush))
	})
}

func TestStreamEndpoint(t *testing.T) {
	t.Parallel()

	h, _, _ := newTestHandler(t)
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/inbox/stream", nil)
	require.NoError(t, err)
	req.Header.Set("X-Recipient-ID", "user-42")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	// The hub pushes the unread count and list immediately on connect.
	reader := bufio.NewReader(resp.Body)
	var events []string
	for len(events) < 2 {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "event: ") {
			events = append(events, strings.TrimSpace(strings.TrimPrefix(line, "event: ")))
		}
	}
	assert.Contains(t, events, "notification:unreadCount")
	assert.Contains(t, events, "notification:unreadList")
}
