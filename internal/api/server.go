// Package api exposes reminders, schedules and schedule photos over HTTP JSON.
// Every endpoint is scoped by chat_id; writes go through the same service as the
// bot, so jobs are armed and cancelled in step with the store.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/remindbot/internal/models"
)

// ReminderService is the application layer as seen by the HTTP API.
type ReminderService interface {
	CreateReminder(ctx context.Context, r models.Reminder) (*models.Reminder, error)
	ListReminders(ctx context.Context, chatID int64) ([]*models.Reminder, error)
	UpdateReminder(ctx context.Context, id, chatID int64, patch models.ReminderPatch) (*models.Reminder, error)
	DeleteReminder(ctx context.Context, id, chatID int64) error
	NextFire(id int64) (time.Time, bool)
	Schedule(ctx context.Context, chatID int64, period models.SchedulePeriod) (*models.ScheduleView, error)
	ListPhotos(ctx context.Context, chatID int64) ([]*models.SchedulePhoto, error)
}

// Server provides the HTTP API.
type Server struct {
	svc    ReminderService
	logger *logrus.Logger
	mux    *http.ServeMux
}

// NewServer creates a Server, registers all routes, and returns it. A nil
// metrics handler leaves /metrics unrouted.
func NewServer(svc ReminderService, metrics http.Handler, logger *logrus.Logger) *Server {
	s := &Server{svc: svc, logger: logger, mux: http.NewServeMux()}
	s.routes(metrics)
	return s
}

// Handler returns the http.Handler that can be passed to http.Server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ---------------------------------------------------------------------------
// Routes
// ---------------------------------------------------------------------------

func (s *Server) routes(metrics http.Handler) {
	// API – Reminders
	s.mux.HandleFunc("GET /api/reminders", s.handleGetReminders)
	s.mux.HandleFunc("POST /api/reminders", s.handleCreateReminder)
	s.mux.HandleFunc("PATCH /api/reminders/{id}", s.handleUpdateReminder)
	s.mux.HandleFunc("DELETE /api/reminders/{id}", s.handleDeleteReminder)

	// API – Schedule views and photos
	s.mux.HandleFunc("GET /api/schedule", s.handleGetSchedule)
	s.mux.HandleFunc("GET /api/photos", s.handleGetPhotos)

	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	if metrics != nil {
		s.mux.Handle("GET /metrics", metrics)
	}
}

// ---------------------------------------------------------------------------
// JSON helpers
// ---------------------------------------------------------------------------

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.logger.WithError(err).Error("failed to encode JSON response")
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps the error taxonomy onto status codes.
func (s *Server) respondServiceError(w http.ResponseWriter, err error, what string) {
	if ve, ok := models.IsValidation(err); ok {
		s.respondError(w, http.StatusBadRequest, ve.Message)
		return
	}
	if errors.Is(err, models.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, what+" not found")
		return
	}
	s.logger.WithError(err).Errorf("failed to handle %s request", what)
	s.respondError(w, http.StatusInternalServerError, "internal error")
}

// decodeJSON reads the request body into dst and returns an error message on
// failure.  The caller should return immediately when ok == false.
func (s *Server) decodeJSON(r *http.Request, dst any) (ok bool, errMsg string) {
	if r.Body == nil {
		return false, "request body is empty"
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return false, fmt.Sprintf("invalid JSON: %v", err)
	}
	return true, ""
}

// pathID extracts the {id} path value and converts it to int64.
func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	if raw == "" {
		return 0, fmt.Errorf("missing id in path")
	}
	return strconv.ParseInt(raw, 10, 64)
}

// requireChatID reads the chat_id query parameter.  It writes an error
// response and returns 0 when the parameter is absent or invalid.
func (s *Server) requireChatID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.URL.Query().Get("chat_id")
	if raw == "" {
		s.respondError(w, http.StatusBadRequest, "chat_id query parameter is required")
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "chat_id must be an integer")
		return 0, false
	}
	return id, true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ---------------------------------------------------------------------------
// Reminders
// ---------------------------------------------------------------------------

type reminderResponse struct {
	*models.Reminder
	NextFire *time.Time `json:"next_fire,omitempty"`
}

func (s *Server) withNextFire(r *models.Reminder) reminderResponse {
	resp := reminderResponse{Reminder: r}
	if next, ok := s.svc.NextFire(r.ID); ok {
		resp.NextFire = &next
	}
	return resp
}

type createReminderRequest struct {
	ChatID     int64              `json:"chat_id"`
	Text       string             `json:"text"`
	Time       string             `json:"time"` // HH:MM
	Recurrence *models.Recurrence `json:"recurrence"`
}

type updateReminderRequest struct {
	Text       *string            `json:"text"`
	Time       *string            `json:"time"`
	Recurrence *models.Recurrence `json:"recurrence"`
}

func (s *Server) handleGetReminders(w http.ResponseWriter, r *http.Request) {
	chatID, ok := s.requireChatID(w, r)
	if !ok {
		return
	}

	reminders, err := s.svc.ListReminders(r.Context(), chatID)
	if err != nil {
		s.respondServiceError(w, err, "reminders")
		return
	}

	out := make([]reminderResponse, len(reminders))
	for i, rem := range reminders {
		out[i] = s.withNextFire(rem)
	}
	s.respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateReminder(w http.ResponseWriter, r *http.Request) {
	var req createReminderRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	if strings.TrimSpace(req.Text) == "" {
		s.respondError(w, http.StatusBadRequest, "text is required")
		return
	}
	if req.ChatID == 0 {
		s.respondError(w, http.StatusBadRequest, "chat_id is required")
		return
	}
	if req.Recurrence == nil {
		s.respondError(w, http.StatusBadRequest, "recurrence is required")
		return
	}

	hour, minute, err := models.ParseTimeOfDay(req.Time)
	if err != nil {
		s.respondServiceError(w, err, "reminder")
		return
	}

	created, err := s.svc.CreateReminder(r.Context(), models.Reminder{
		ChatID:     req.ChatID,
		Text:       req.Text,
		Hour:       hour,
		Minute:     minute,
		Recurrence: *req.Recurrence,
	})
	if err != nil {
		s.respondServiceError(w, err, "reminder")
		return
	}

	s.respondJSON(w, http.StatusCreated, s.withNextFire(created))
}

func (s *Server) handleUpdateReminder(w http.ResponseWriter, r *http.Request) {
	chatID, ok := s.requireChatID(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid reminder id")
		return
	}

	var req updateReminderRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	patch := models.ReminderPatch{Text: req.Text, Recurrence: req.Recurrence}
	if req.Time != nil {
		hour, minute, err := models.ParseTimeOfDay(*req.Time)
		if err != nil {
			s.respondServiceError(w, err, "reminder")
			return
		}
		patch.Hour, patch.Minute = &hour, &minute
	}

	updated, err := s.svc.UpdateReminder(r.Context(), id, chatID, patch)
	if err != nil {
		s.respondServiceError(w, err, "reminder")
		return
	}

	s.respondJSON(w, http.StatusOK, s.withNextFire(updated))
}

func (s *Server) handleDeleteReminder(w http.ResponseWriter, r *http.Request) {
	chatID, ok := s.requireChatID(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid reminder id")
		return
	}

	if err := s.svc.DeleteReminder(r.Context(), id, chatID); err != nil {
		s.respondServiceError(w, err, "reminder")
		return
	}

	s.respondJSON(w, http.StatusNoContent, nil)
}

// ---------------------------------------------------------------------------
// Schedule & photos
// ---------------------------------------------------------------------------

func (s *Server) handleGetSchedule(w http.ResponseWriter, r *http.Request) {
	chatID, ok := s.requireChatID(w, r)
	if !ok {
		return
	}

	raw := r.URL.Query().Get("period")
	if raw == "" {
		raw = string(models.ScheduleToday)
	}
	period, err := models.ParseSchedulePeriod(raw)
	if err != nil {
		s.respondServiceError(w, err, "schedule")
		return
	}

	view, err := s.svc.Schedule(r.Context(), chatID, period)
	if err != nil {
		s.respondServiceError(w, err, "schedule")
		return
	}

	s.respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleGetPhotos(w http.ResponseWriter, r *http.Request) {
	chatID, ok := s.requireChatID(w, r)
	if !ok {
		return
	}

	photos, err := s.svc.ListPhotos(r.Context(), chatID)
	if err != nil {
		s.respondServiceError(w, err, "photos")
		return
	}
	if photos == nil {
		photos = []*models.SchedulePhoto{}
	}

	s.respondJSON(w, http.StatusOK, photos)
}
