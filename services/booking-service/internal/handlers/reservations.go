package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tavolo/tavolo/libs/auth"
	"github.com/tavolo/tavolo/libs/httpx"
	"github.com/tavolo/tavolo/services/booking-service/internal/conflicts"
	"github.com/tavolo/tavolo/services/booking-service/internal/model"
	"github.com/tavolo/tavolo/services/booking-service/internal/policy"
	"github.com/tavolo/tavolo/services/booking-service/internal/schedule"
	"github.com/tavolo/tavolo/services/booking-service/internal/storage"
)

const maxIdempotencyKeyLength = 200

// Store is the persistence the reservation endpoints need.
type Store interface {
	Create(ctx context.Context, res model.Reservation, idempotencyKey string) (model.Reservation, bool, error)
	Get(ctx context.Context, id uuid.UUID) (model.Reservation, error)
	ListByDate(ctx context.Context, d schedule.Date) ([]model.Reservation, error)
	ListByDates(ctx context.Context, ds []schedule.Date) ([]model.Reservation, error)
	ListPending(ctx context.Context, from schedule.Date) ([]model.Reservation, error)
	ApplyAction(ctx context.Context, id uuid.UUID, action policy.Action) (model.Reservation, bool, error)
}

type ReservationHandler struct {
	store  Store
	logger *slog.Logger
	loc    *time.Location
	now    func() time.Time
}

func NewReservationHandler(store Store, logger *slog.Logger, loc *time.Location) *ReservationHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &ReservationHandler{store: store, logger: logger, loc: loc, now: time.Now}
}

// Routes registers the public booking endpoints and the staff dashboard endpoints.
// limit guards reservation creation and staff guards every staff route; either may be nil.
func (h *ReservationHandler) Routes(mux *http.ServeMux, limit, staff httpx.Middleware) {
	mux.HandleFunc("GET /api/v1/public/catalog", h.Catalog)
	mux.HandleFunc("GET /api/v1/public/slots", h.Slots)
	mux.HandleFunc("GET /api/v1/public/end-times", h.EndTimes)
	mux.Handle("POST /api/v1/public/reservations", httpx.Chain(http.HandlerFunc(h.Create), limit))

	mux.Handle("GET /api/v1/staff/reservations", httpx.Chain(http.HandlerFunc(h.ListByDate), staff))
	mux.Handle("GET /api/v1/staff/reservations/pending", httpx.Chain(http.HandlerFunc(h.ListPending), staff))
	mux.Handle("GET /api/v1/staff/reservations/{id}", httpx.Chain(http.HandlerFunc(h.Get), staff))
	mux.Handle("POST /api/v1/staff/reservations/{id}/approve", httpx.Chain(h.decide(policy.ActionApprove), staff))
	mux.Handle("POST /api/v1/staff/reservations/{id}/reject", httpx.Chain(h.decide(policy.ActionReject), staff))
}

func (h *ReservationHandler) today() schedule.Date {
	return schedule.Today(h.now(), h.loc)
}

type timesResponse struct {
	Date   string           `json:"date,omitempty"`
	Start  string           `json:"start,omitempty"`
	Closed bool             `json:"closed,omitempty"`
	Times  []schedule.Clock `json:"times"`
}

func (h *ReservationHandler) Catalog(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, timesResponse{Times: schedule.Catalog()})
}

// Slots lists the start times offered on ?date=. A closed day is an empty list, not an error.
func (h *ReservationHandler) Slots(w http.ResponseWriter, r *http.Request) {
	d, err := schedule.ParseDate(strings.TrimSpace(r.URL.Query().Get("date")))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	times := schedule.AvailableSlots(d)
	httpx.WriteJSON(w, http.StatusOK, timesResponse{Date: d.String(), Closed: len(times) == 0, Times: times})
}

// EndTimes lists the end times selectable after ?start=. Without a start it returns the catalog.
func (h *ReservationHandler) EndTimes(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("start"))
	start := schedule.Unset
	if raw != "" {
		c, err := schedule.ParseClock(raw)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "start must be HH:MM")
			return
		}
		start = c
	}
	httpx.WriteJSON(w, http.StatusOK, timesResponse{Start: start.String(), Times: schedule.ValidEndTimes(start)})
}

func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var draft model.ReservationDraft
	if err := httpx.DecodeJSON(r, &draft); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	idempotencyKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if len(idempotencyKey) > maxIdempotencyKeyLength {
		httpx.WriteError(w, http.StatusBadRequest, "Idempotency-Key too long")
		return
	}

	res, problems := draft.Build(h.today())
	if len(problems) > 0 {
		httpx.WriteError(w, http.StatusBadRequest, "invalid reservation", problems...)
		return
	}
	status, err := policy.AssignStatus(res.Guests)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid reservation", err.Error())
		return
	}
	res.ID = uuid.New()
	res.Status = status

	stored, replayed, err := h.store.Create(r.Context(), res, idempotencyKey)
	if err != nil {
		h.logger.Error("create reservation failed", "err", err, "request_id", httpx.RequestIDFromContext(r.Context()))
		httpx.WriteError(w, http.StatusInternalServerError, "failed to create reservation")
		return
	}
	if replayed {
		w.Header().Set("Idempotent-Replayed", "true")
	} else {
		h.logger.Info("reservation created",
			"reservation_id", stored.ID.String(),
			"date", stored.Date.String(),
			"guests", stored.Guests,
			"status", string(stored.Status),
		)
	}
	httpx.WriteJSON(w, http.StatusCreated, stored)
}

type reservationView struct {
	model.Reservation
	Conflicts     []model.Reservation `json:"conflicts"`
	ConflictCount int                 `json:"conflict_count"`
}

func newView(f conflicts.Flagged) reservationView {
	found := f.Conflicts
	if !f.Reservation.Blocking() || found == nil {
		found = []model.Reservation{}
	}
	return reservationView{Reservation: f.Reservation, Conflicts: found, ConflictCount: len(found)}
}

func newViews(flagged []conflicts.Flagged) ([]reservationView, int) {
	views := make([]reservationView, 0, len(flagged))
	withConflicts := 0
	for _, f := range flagged {
		v := newView(f)
		if v.ConflictCount > 0 {
			withConflicts++
		}
		views = append(views, v)
	}
	return views, withConflicts
}

type dashboardResponse struct {
	Date          string            `json:"date,omitempty"`
	Reservations  []reservationView `json:"reservations"`
	ConflictCount int               `json:"conflict_count"`
}

// ListByDate shows every reservation on ?date= (default today) with its conflict set.
func (h *ReservationHandler) ListByDate(w http.ResponseWriter, r *http.Request) {
	d := h.today()
	if raw := strings.TrimSpace(r.URL.Query().Get("date")); raw != "" {
		parsed, err := schedule.ParseDate(raw)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		d = parsed
	}

	list, err := h.store.ListByDate(r.Context(), d)
	if err != nil {
		h.storageError(w, r, "list reservations", err)
		return
	}
	views, n := newViews(conflicts.Report(list, list))
	httpx.WriteJSON(w, http.StatusOK, dashboardResponse{Date: d.String(), Reservations: views, ConflictCount: n})
}

// ListPending shows every reservation awaiting review from today on, each checked against
// all reservations on its own date.
func (h *ReservationHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	pending, err := h.store.ListPending(r.Context(), h.today())
	if err != nil {
		h.storageError(w, r, "list pending reservations", err)
		return
	}

	var dates []schedule.Date
	seen := map[schedule.Date]bool{}
	for _, p := range pending {
		if !seen[p.Date] {
			seen[p.Date] = true
			dates = append(dates, p.Date)
		}
	}
	pool, err := h.store.ListByDates(r.Context(), dates)
	if err != nil {
		h.storageError(w, r, "list reservations", err)
		return
	}

	views, n := newViews(conflicts.Report(pending, pool))
	httpx.WriteJSON(w, http.StatusOK, dashboardResponse{Reservations: views, ConflictCount: n})
}

func (h *ReservationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	res, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.storageError(w, r, "get reservation", err)
		return
	}
	pool, err := h.store.ListByDate(r.Context(), res.Date)
	if err != nil {
		h.storageError(w, r, "list reservations", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, newView(conflicts.Flagged{Reservation: res, Conflicts: conflicts.Detect(res, pool)}))
}

type decisionResponse struct {
	reservationView
	Changed bool `json:"changed"`
}

func (h *ReservationHandler) decide(action policy.Action) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		res, changed, err := h.store.ApplyAction(r.Context(), id, action)
		if err != nil {
			if errors.Is(err, policy.ErrInvalidTransition) {
				httpx.WriteError(w, http.StatusConflict, err.Error())
				return
			}
			h.storageError(w, r, string(action)+" reservation", err)
			return
		}

		staff := ""
		if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
			staff = claims.Sub
		}
		h.logger.Info("reservation decision",
			"reservation_id", id.String(),
			"action", string(action),
			"status", string(res.Status),
			"changed", changed,
			"staff", staff,
		)

		pool, err := h.store.ListByDate(r.Context(), res.Date)
		if err != nil {
			h.storageError(w, r, "list reservations", err)
			return
		}
		view := newView(conflicts.Flagged{Reservation: res, Conflicts: conflicts.Detect(res, pool)})
		httpx.WriteJSON(w, http.StatusOK, decisionResponse{reservationView: view, Changed: changed})
	})
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid reservation id")
		return uuid.Nil, false
	}
	return id, true
}

// storageError maps a store failure to a response. Only a missing row is a client error.
func (h *ReservationHandler) storageError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if storage.IsNotFound(err) {
		httpx.WriteError(w, http.StatusNotFound, "reservation not found")
		return
	}
	h.logger.Error(op+" failed", "err", err, "request_id", httpx.RequestIDFromContext(r.Context()))
	httpx.WriteError(w, http.StatusInternalServerError, op+" failed")
}
