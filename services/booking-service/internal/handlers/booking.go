package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/toxifacil/toxifacil/libs/auth"
	"github.com/toxifacil/toxifacil/services/booking-service/internal/address"
	"github.com/toxifacil/toxifacil/services/booking-service/internal/catalog"
	"github.com/toxifacil/toxifacil/services/booking-service/internal/labs"
	"github.com/toxifacil/toxifacil/services/booking-service/internal/model"
	"github.com/toxifacil/toxifacil/services/booking-service/internal/resume"
	"github.com/toxifacil/toxifacil/services/booking-service/internal/slots"
	"github.com/toxifacil/toxifacil/services/booking-service/internal/storage"
	"github.com/toxifacil/toxifacil/services/booking-service/internal/wizard"
	"golang.org/x/sync/errgroup"
)

type BookingHandler struct {
	appointments *storage.AppointmentRepository
	results      *storage.ResultRepository
	labs         *labs.Repository
	resolver     *address.Resolver
	resume       *resume.Store
	logger       *slog.Logger
	jwtSecret    string
	now          func() time.Time
}

func NewBookingHandler(
	appointments *storage.AppointmentRepository,
	results *storage.ResultRepository,
	labsRepo *labs.Repository,
	resolver *address.Resolver,
	resumeStore *resume.Store,
	logger *slog.Logger,
	jwtSecret string,
) *BookingHandler {
	return &BookingHandler{
		appointments: appointments,
		results:      results,
		labs:         labsRepo,
		resolver:     resolver,
		resume:       resumeStore,
		logger:       logger,
		jwtSecret:    jwtSecret,
		now:          time.Now,
	}
}

var errSessionExpired = errors.New("session expired")

// identity resolves the caller. The gateway injects X-User-Id and
// X-User-Email after token verification; a bare bearer token is also
// accepted so the service works without the gateway in front. A zero
// identity with nil error means anonymous.
func (h *BookingHandler) identity(r *http.Request) (wizard.Identity, error) {
	if id := strings.TrimSpace(r.Header.Get("X-User-Id")); id != "" {
		return wizard.Identity{
			ID:    id,
			Email: strings.TrimSpace(r.Header.Get("X-User-Email")),
		}, nil
	}
	token, ok := auth.BearerToken(r.Header.Get("Authorization"))
	if !ok {
		return wizard.Identity{}, nil
	}
	claims, err := auth.ParseAndVerifyHS256(token, h.jwtSecret)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return wizard.Identity{}, errSessionExpired
		}
		return wizard.Identity{}, errors.New("invalid token")
	}
	return wizard.Identity{ID: claims.Sub, Email: claims.Email}, nil
}

func (h *BookingHandler) Exams(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"exams": catalog.List()})
}

func (h *BookingHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if date == "" {
		http.Error(w, "date query parameter required", http.StatusBadRequest)
		return
	}
	list, err := slots.List(date, h.now())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"date": date, "slots": list})
}

func (h *BookingHandler) Address(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	addr, err := h.resolver.Lookup(r.Context(), r.URL.Query().Get("cep"))
	if err != nil {
		switch {
		case errors.Is(err, address.ErrInvalidCEP):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, address.ErrNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		default:
			h.logger.Error("cep lookup failed", "err", err)
			http.Error(w, "address lookup unavailable", http.StatusBadGateway)
		}
		return
	}
	writeJSON(w, http.StatusOK, addr)
}

func (h *BookingHandler) Laboratories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	state := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("state")))
	city := strings.TrimSpace(r.URL.Query().Get("city"))
	if state == "" || city == "" {
		http.Error(w, "state and city query parameters required", http.StatusBadRequest)
		return
	}
	list, err := h.labs.Search(r.Context(), state, city)
	if err != nil {
		h.logger.Error("laboratory search failed", "err", err)
		http.Error(w, "failed to search laboratories", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"laboratories": list})
}

type createAppointmentRequest struct {
	ResumeToken  string `json:"resume_token,omitempty"`
	ExamID       string `json:"exam_id"`
	Date         string `json:"date"`
	Time         string `json:"time"`
	LaboratoryID string `json:"laboratory_id"`
}

type suspendedResponse struct {
	ResumeToken string `json:"resume_token"`
	Reason      string `json:"reason"`
}

// Create runs the whole wizard server-side: guards each step, then commits
// the appointment. An anonymous caller gets the continuation token for the
// sign-in detour instead of a booking.
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req createAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	now := h.now()
	var wiz *wizard.Wizard

	if token := strings.TrimSpace(req.ResumeToken); token != "" {
		cont, err := h.resume.Resume(r.Context(), token)
		if err != nil {
			if errors.Is(err, resume.ErrNotFound) {
				http.Error(w, "resume token unknown or expired", http.StatusGone)
				return
			}
			h.logger.Error("resume lookup failed", "err", err)
			http.Error(w, "failed to resume booking", http.StatusInternalServerError)
			return
		}
		wiz, err = wizard.Resume(cont, now)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	} else {
		var err error
		wiz, err = h.buildWizard(r, req, now)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	ident, err := h.identity(r)
	if err != nil {
		h.suspendForSignIn(w, r, wiz, err.Error())
		return
	}
	if ident.ID == "" {
		h.suspendForSignIn(w, r, wiz, "sign-in required to complete the booking")
		return
	}

	appt, err := wiz.Submit(r.Context(), ident, h.appointments, now)
	if err != nil {
		if errors.Is(err, wizard.ErrSessionExpired) {
			h.suspendForSignIn(w, r, wiz, wizard.ErrSessionExpired.Error())
			return
		}
		h.logger.Error("appointment insert failed", "err", err, "client_id", ident.ID)
		http.Error(w, wiz.LastError(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"appointment_id": appt.ID,
		"status":         appt.Status,
		"scheduled_at":   appt.ScheduledAt.Format(time.RFC3339),
	})
}

func (h *BookingHandler) buildWizard(r *http.Request, req createAppointmentRequest, now time.Time) (*wizard.Wizard, error) {
	lab, err := h.labs.GetByID(r.Context(), strings.TrimSpace(req.LaboratoryID))
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, errors.New("unknown laboratory")
		}
		return nil, errors.New("failed to load laboratory")
	}

	wiz := wizard.New(wizard.Laboratory{
		ID:           lab.ID,
		Name:         lab.Name,
		Address:      lab.Address,
		Neighborhood: lab.Neighborhood,
		City:         lab.City,
		State:        lab.State,
	})
	if err := wiz.SelectExam(strings.TrimSpace(req.ExamID)); err != nil {
		return nil, err
	}
	if err := wiz.SelectSlot(strings.TrimSpace(req.Date), strings.TrimSpace(req.Time), now); err != nil {
		return nil, err
	}
	return wiz, nil
}

func (h *BookingHandler) suspendForSignIn(w http.ResponseWriter, r *http.Request, wiz *wizard.Wizard, reason string) {
	cont, err := wiz.Suspend()
	if err != nil {
		http.Error(w, reason, http.StatusUnauthorized)
		return
	}
	token, err := h.resume.Suspend(r.Context(), cont)
	if err != nil {
		h.logger.Error("continuation store failed", "err", err)
		http.Error(w, reason, http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusUnauthorized, suspendedResponse{
		ResumeToken: token,
		Reason:      reason,
	})
}

type appointmentItem struct {
	ID             string `json:"id"`
	ExamType       string `json:"exam_type"`
	ExamTitle      string `json:"exam_title"`
	PriceCentavos  int64  `json:"price_centavos"`
	LaboratoryName string `json:"laboratory_name"`
	Address        string `json:"address"`
	City           string `json:"city"`
	State          string `json:"state"`
	ScheduledAt    string `json:"scheduled_at"`
	Status         string `json:"status"`
}

type resultItem struct {
	ID             string `json:"id"`
	ExamType       string `json:"exam_type"`
	Date           string `json:"date"`
	Status         string `json:"status"`
	Outcome        string `json:"outcome,omitempty"`
	LaboratoryName string `json:"laboratory_name"`
	DocumentURL    string `json:"document_url,omitempty"`
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	clientID, err := h.requireClient(w, r)
	if err != nil {
		return
	}
	appts, err := h.appointments.ListByClient(r.Context(), clientID)
	if err != nil {
		h.logger.Error("appointment list failed", "err", err, "client_id", clientID)
		http.Error(w, "failed to list appointments", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": toAppointmentItems(appts)})
}

func (h *BookingHandler) Results(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	clientID, err := h.requireClient(w, r)
	if err != nil {
		return
	}
	results, err := h.results.ListByClient(r.Context(), clientID)
	if err != nil {
		h.logger.Error("result list failed", "err", err, "client_id", clientID)
		http.Error(w, "failed to list exam results", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": toResultItems(results)})
}

// Overview fetches appointments and exam results concurrently. Either
// fetch failing fails the whole response; no partial page is served.
func (h *BookingHandler) Overview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	clientID, err := h.requireClient(w, r)
	if err != nil {
		return
	}

	var (
		appts   []model.Appointment
		results []model.ExamResult
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		appts, err = h.appointments.ListByClient(ctx, clientID)
		return err
	})
	g.Go(func() error {
		var err error
		results, err = h.results.ListByClient(ctx, clientID)
		return err
	})
	if err := g.Wait(); err != nil {
		h.logger.Error("overview fetch failed", "err", err, "client_id", clientID)
		http.Error(w, "failed to load overview", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"appointments": toAppointmentItems(appts),
		"results":      toResultItems(results),
	})
}

type suspendRequest struct {
	ExamID       string `json:"exam_id"`
	Date         string `json:"date"`
	Time         string `json:"time"`
	LaboratoryID string `json:"laboratory_id"`
}

// Suspend validates the collected fields and parks them behind a resume
// token, so the selections survive the sign-in redirect.
func (h *BookingHandler) Suspend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req suspendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	wiz, err := h.buildWizard(r, createAppointmentRequest{
		ExamID:       req.ExamID,
		Date:         req.Date,
		Time:         req.Time,
		LaboratoryID: req.LaboratoryID,
	}, h.now())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	cont, err := wiz.Suspend()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	token, err := h.resume.Suspend(r.Context(), cont)
	if err != nil {
		h.logger.Error("continuation store failed", "err", err)
		http.Error(w, "failed to suspend booking", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"resume_token": token})
}

type resumeRequest struct {
	ResumeToken string `json:"resume_token"`
}

// ResumePreview hands the suspended selections back to a signed-in caller
// without consuming a booking; the commit happens through Create.
func (h *BookingHandler) ResumePreview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if _, err := h.requireClient(w, r); err != nil {
		return
	}

	var req resumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	cont, err := h.resume.Resume(r.Context(), strings.TrimSpace(req.ResumeToken))
	if err != nil {
		if errors.Is(err, resume.ErrNotFound) {
			http.Error(w, "resume token unknown or expired", http.StatusGone)
			return
		}
		h.logger.Error("resume lookup failed", "err", err)
		http.Error(w, "failed to resume booking", http.StatusInternalServerError)
		return
	}
	// Revalidate before handing the selections back.
	if _, err := wizard.Resume(cont, h.now()); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, cont)
}

func (h *BookingHandler) requireClient(w http.ResponseWriter, r *http.Request) (string, error) {
	ident, err := h.identity(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return "", err
	}
	if ident.ID == "" {
		err := errors.New("authentication required")
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return "", err
	}
	return ident.ID, nil
}

func toAppointmentItems(appts []model.Appointment) []appointmentItem {
	items := make([]appointmentItem, 0, len(appts))
	for _, a := range appts {
		items = append(items, appointmentItem{
			ID:             a.ID,
			ExamType:       a.ExamType,
			ExamTitle:      a.ExamTitle,
			PriceCentavos:  a.PriceCentavos,
			LaboratoryName: a.LaboratoryName,
			Address:        a.Address,
			City:           a.City,
			State:          a.State,
			ScheduledAt:    a.ScheduledAt.Format(time.RFC3339),
			Status:         a.Status,
		})
	}
	return items
}

func toResultItems(results []model.ExamResult) []resultItem {
	items := make([]resultItem, 0, len(results))
	for _, res := range results {
		items = append(items, resultItem{
			ID:             res.ID,
			ExamType:       res.ExamType,
			Date:           res.Date.Format("2006-01-02"),
			Status:         res.Status,
			Outcome:        res.Outcome,
			LaboratoryName: res.LaboratoryName,
			DocumentURL:    res.DocumentURL,
		})
	}
	return items
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
