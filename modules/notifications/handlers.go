package notifications

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/notifykit/pkg/binder"
	"github.com/dmitrymomot/notifykit/pkg/dispatcher"
	"github.com/dmitrymomot/notifykit/pkg/notification"
	"github.com/dmitrymomot/notifykit/pkg/notify"
	"github.com/dmitrymomot/notifykit/pkg/queue"
	"github.com/dmitrymomot/notifykit/pkg/router"
	"github.com/dmitrymomot/notifykit/pkg/stats"
	"github.com/dmitrymomot/notifykit/pkg/template"
)

// --- Templates ---

func (s *Service) listTemplates(w http.ResponseWriter, r *http.Request) {
	filter := template.Filter{
		Category: r.URL.Query().Get("category"),
		Search:   r.URL.Query().Get("search"),
	}
	if v := r.URL.Query().Get("active"); v != "" {
		active := v == "true"
		filter.Active = &active
	}

	templates, err := s.engine.ListTemplates(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, templates)
}

func (s *Service) createTemplate(w http.ResponseWriter, r *http.Request) {
	var tmpl template.Template
	if err := binder.JSON()(r, &tmpl); err != nil {
		writeError(w, err)
		return
	}
	if err := s.engine.CreateTemplate(r.Context(), tmpl); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tmpl)
}

func (s *Service) getTemplate(w http.ResponseWriter, r *http.Request) {
	tmpl, err := s.engine.GetTemplate(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tmpl)
}

func (s *Service) updateTemplate(w http.ResponseWriter, r *http.Request) {
	var tmpl template.Template
	if err := binder.JSON()(r, &tmpl); err != nil {
		writeError(w, err)
		return
	}
	tmpl.Code = chi.URLParam(r, "code")

	updated, err := s.engine.UpdateTemplate(r.Context(), tmpl)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Service) deleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.DeleteTemplate(r.Context(), chi.URLParam(r, "code")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type previewRequest struct {
	Channel   notify.Channel `json:"channel"`
	Variables map[string]any `json:"variables"`
}

func (s *Service) previewTemplate(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := binder.JSON()(r, &req); err != nil {
		writeError(w, err)
		return
	}

	content, err := s.engine.PreviewTemplate(r.Context(), chi.URLParam(r, "code"), req.Channel, req.Variables)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, content)
}

// --- Bindings ---

func (s *Service) listBindings(w http.ResponseWriter, r *http.Request) {
	bindings, err := s.engine.ListBindings(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bindings)
}

func (s *Service) createBinding(w http.ResponseWriter, r *http.Request) {
	var binding router.Binding
	if err := binder.JSON()(r, &binding); err != nil {
		writeError(w, err)
		return
	}
	if binding.ID == uuid.Nil {
		binding.ID = uuid.New()
	}
	if err := s.engine.CreateBinding(r.Context(), binding); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, binding)
}

func (s *Service) getBinding(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, router.ErrBindingNotFound)
		return
	}
	binding, err := s.engine.GetBinding(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, binding)
}

func (s *Service) updateBinding(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, router.ErrBindingNotFound)
		return
	}

	var binding router.Binding
	if err := binder.JSON()(r, &binding); err != nil {
		writeError(w, err)
		return
	}
	binding.ID = id

	updated, err := s.engine.UpdateBinding(r.Context(), binding)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Service) deleteBinding(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, router.ErrBindingNotFound)
		return
	}
	if err := s.engine.DeleteBinding(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Sending & events ---

type sendRequest struct {
	TemplateCode string           `json:"template_code"`
	RecipientID  string           `json:"recipient_id"`
	Variables    map[string]any   `json:"variables"`
	Channels     []notify.Channel `json:"channels,omitempty"`
	ScheduledAt  *time.Time       `json:"scheduled_at,omitempty"`
}

func (s *Service) send(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := binder.JSON()(r, &req); err != nil {
		writeError(w, err)
		return
	}

	var opts []queue.EnqueueOption
	if req.ScheduledAt != nil {
		opts = append(opts, queue.WithScheduledAt(*req.ScheduledAt))
	}

	entries, err := s.engine.SendOn(r.Context(), req.TemplateCode, req.RecipientID, req.Channels, req.Variables, opts...)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, entries)
}

func (s *Service) handleEvent(w http.ResponseWriter, r *http.Request) {
	var event router.Event
	if err := binder.JSON()(r, &event); err != nil {
		writeError(w, err)
		return
	}

	entries, err := s.engine.HandleEvent(r.Context(), event)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, entries)
}

func (s *Service) confirmDelivery(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, dispatcher.ErrLogNotFound)
		return
	}
	if err := s.engine.ConfirmDelivery(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Statistics ---

func (s *Service) statistics(w http.ResponseWriter, r *http.Request) {
	var opts []stats.Option

	query := r.URL.Query()
	if code := query.Get("template"); code != "" {
		opts = append(opts, stats.WithTemplate(code))
	}
	if channel := query.Get("channel"); channel != "" {
		opts = append(opts, stats.WithChannel(notify.Channel(channel)))
	}
	if recipient := query.Get("recipient"); recipient != "" {
		opts = append(opts, stats.WithRecipient(recipient))
	}
	if fromRaw, toRaw := query.Get("from"), query.Get("to"); fromRaw != "" && toRaw != "" {
		from, errFrom := time.Parse(time.RFC3339, fromRaw)
		to, errTo := time.Parse(time.RFC3339, toRaw)
		if errFrom != nil || errTo != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "from/to must be RFC 3339 timestamps"})
			return
		}
		opts = append(opts, stats.WithWindow(from, to))
	}

	report, err := s.engine.Statistics(r.Context(), opts...)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// --- Inbox ---

func (s *Service) listInbox(w http.ResponseWriter, r *http.Request) {
	recipientID, err := s.resolve(r)
	if err != nil {
		writeError(w, err)
		return
	}

	query := r.URL.Query()
	opts := notification.ListOptions{
		OnlyUnread: query.Get("only_unread") == "true",
	}
	if v := query.Get("limit"); v != "" {
		opts.Limit, _ = strconv.Atoi(v)
	}
	if v := query.Get("offset"); v != "" {
		opts.Offset, _ = strconv.Atoi(v)
	}

	notifications, err := s.engine.ListNotifications(r.Context(), recipientID, opts)
	if err != nil {
		writeError(w, err)
		return
	}

	unread, err := s.engine.CountUnread(r.Context(), recipientID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"notifications": notifications,
		"unread_count":  unread,
	})
}

func (s *Service) markRead(w http.ResponseWriter, r *http.Request) {
	recipientID, err := s.resolve(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, notification.ErrNotFound)
		return
	}
	if err := s.engine.MarkNotificationRead(r.Context(), recipientID, id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) markAllRead(w http.ResponseWriter, r *http.Request) {
	recipientID, err := s.resolve(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.engine.MarkAllNotificationsRead(r.Context(), recipientID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) deleteNotification(w http.ResponseWriter, r *http.Request) {
	recipientID, err := s.resolve(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, notification.ErrNotFound)
		return
	}
	if err := s.engine.DeleteNotification(r.Context(), recipientID, id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Preferences ---

func (s *Service) getPreferences(w http.ResponseWriter, r *http.Request) {
	recipientID, err := s.resolve(r)
	if err != nil {
		writeError(w, err)
		return
	}
	prefs, err := s.engine.GetPreferences(r.Context(), recipientID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

type preferencesRequest struct {
	Channels map[notify.Channel]bool `json:"channels"`
}

func (s *Service) updatePreferences(w http.ResponseWriter, r *http.Request) {
	recipientID, err := s.resolve(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req preferencesRequest
	if err := binder.JSON()(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := s.engine.UpdatePreferences(r.Context(), notification.Preferences{
		RecipientID: recipientID,
		Channels:    req.Channels,
	}); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
