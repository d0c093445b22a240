// Package server тонкий HTTP-слой над сервисами: разбор запросов,
// маршрутизация и сопоставление ошибок со статусами. Аутентификация
// выполняется внешним коллаборатором до ядра: обработчики доверяют
// заголовкам X-User-ID и X-Admin.
package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/lessonmarket/backend/internal/apperrors"
	"github.com/lessonmarket/backend/internal/model"
	"github.com/lessonmarket/backend/internal/service"
	"go.uber.org/zap"
)

type Server struct {
	availability *service.AvailabilityService
	bookings     *service.BookingService
	logger       *zap.Logger
}

func New(availability *service.AvailabilityService, bookings *service.BookingService, logger *zap.Logger) *Server {
	return &Server{
		availability: availability,
		bookings:     bookings,
		logger:       logger,
	}
}

// Router собирает маршруты. Чтение публично, мутации требуют идентичность.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/teachers/{teacherID}", func(r chi.Router) {
		r.Get("/availability", s.handleListAvailability)
		r.Get("/open-slots", s.handleOpenSlots)
	})

	r.Route("/availability", func(r chi.Router) {
		r.Post("/", s.handleDeclare)
		r.Put("/{entryID}", s.handleReplace)
		r.Delete("/{entryID}", s.handleDeleteAvailability)
	})

	r.Route("/bookings", func(r chi.Router) {
		r.Post("/", s.handleCreateBooking)
		r.Patch("/{bookingID}/status", s.handleSetStatus)
		r.Delete("/{bookingID}", s.handleDeleteBooking)
		r.Get("/teacher", s.handleTeacherBookings)
		r.Get("/student", s.handleStudentBookings)
	})

	return r
}

// actorFrom извлекает идентичность, проставленную внешней аутентификацией
func actorFrom(r *http.Request) (service.Actor, error) {
	raw := r.Header.Get("X-User-ID")
	if raw == "" {
		return service.Actor{}, apperrors.Authorization("caller identity is required")
	}

	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || userID <= 0 {
		return service.Actor{}, apperrors.Authorization("invalid caller identity")
	}

	return service.Actor{
		UserID: userID,
		Admin:  r.Header.Get("X-Admin") == "true",
	}, nil
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.Validation("invalid %s", name)
	}
	return id, nil
}

// ============ Доступность ============

type dayKeyPayload struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

type declareRequest struct {
	Day        dayKeyPayload     `json:"day"`
	TimeRanges []model.TimeRange `json:"time_ranges"`
}

type replaceRequest struct {
	Day        *dayKeyPayload    `json:"day,omitempty"`
	TimeRanges []model.TimeRange `json:"time_ranges,omitempty"`
}

func (s *Server) handleDeclare(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req declareRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, apperrors.Validation("invalid request body: %v", err))
		return
	}

	day, err := model.ParseDayKey(req.Day.Kind, req.Day.Value)
	if err != nil {
		writeError(w, apperrors.Validation("invalid day: %v", err))
		return
	}

	entry, err := s.availability.Declare(r.Context(), actor.UserID, day, req.TimeRanges)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleReplace(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}

	entryID, err := pathID(r, "entryID")
	if err != nil {
		writeError(w, err)
		return
	}

	var req replaceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, apperrors.Validation("invalid request body: %v", err))
		return
	}

	var day *model.DayKey
	if req.Day != nil {
		parsed, err := model.ParseDayKey(req.Day.Kind, req.Day.Value)
		if err != nil {
			writeError(w, apperrors.Validation("invalid day: %v", err))
			return
		}
		day = &parsed
	}

	entry, err := s.availability.Replace(r.Context(), entryID, actor.UserID, day, req.TimeRanges)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleDeleteAvailability(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}

	entryID, err := pathID(r, "entryID")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := s.availability.Delete(r.Context(), entryID, actor.UserID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListAvailability(w http.ResponseWriter, r *http.Request) {
	teacherID, err := pathID(r, "teacherID")
	if err != nil {
		writeError(w, err)
		return
	}

	entries, err := s.availability.ListByTeacher(r.Context(), teacherID)
	if err != nil {
		writeError(w, err)
		return
	}

	if entries == nil {
		entries = []*model.AvailabilityEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleOpenSlots(w http.ResponseWriter, r *http.Request) {
	teacherID, err := pathID(r, "teacherID")
	if err != nil {
		writeError(w, err)
		return
	}

	asOf := time.Now()
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			writeError(w, apperrors.Validation("invalid as_of date: %v", err))
			return
		}
		asOf = parsed
	}

	slots, err := s.availability.OpenSlots(r.Context(), teacherID, asOf)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, slots)
}

// ============ Бронирования ============

type createBookingRequest struct {
	TeacherID int64         `json:"teacher_id"`
	Day       dayKeyPayload `json:"day"`
	StartTime string        `json:"start_time"`
	EndTime   string        `json:"end_time"`
}

type bookingResponse struct {
	Booking *model.Booking `json:"booking"`
	Warning string         `json:"warning,omitempty"`
}

type setStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req createBookingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, apperrors.Validation("invalid request body: %v", err))
		return
	}
	if req.TeacherID <= 0 {
		writeError(w, apperrors.Validation("teacher_id is required"))
		return
	}

	day, err := model.ParseDayKey(req.Day.Kind, req.Day.Value)
	if err != nil {
		writeError(w, apperrors.Validation("invalid day: %v", err))
		return
	}

	booking, warning, err := s.bookings.Create(
		r.Context(),
		actor.UserID,
		req.TeacherID,
		day,
		model.TimeRange{Start: req.StartTime, End: req.EndTime},
	)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, bookingResponse{Booking: booking, Warning: warning})
}

func (s *Server) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}

	bookingID, err := pathID(r, "bookingID")
	if err != nil {
		writeError(w, err)
		return
	}

	var req setStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, apperrors.Validation("invalid request body: %v", err))
		return
	}

	booking, err := s.bookings.SetStatus(r.Context(), bookingID, actor.UserID, model.BookingStatus(req.Status))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, booking)
}

func (s *Server) handleDeleteBooking(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}

	bookingID, err := pathID(r, "bookingID")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := s.bookings.Delete(r.Context(), bookingID, actor); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTeacherBookings(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}

	bookings, err := s.bookings.ListByTeacher(r.Context(), actor.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	if bookings == nil {
		bookings = []*model.Booking{}
	}
	writeJSON(w, http.StatusOK, bookings)
}

func (s *Server) handleStudentBookings(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}

	bookings, err := s.bookings.ListByStudent(r.Context(), actor.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	if bookings == nil {
		bookings = []*model.Booking{}
	}
	writeJSON(w, http.StatusOK, bookings)
}
