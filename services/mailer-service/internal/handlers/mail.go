package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/toxifacil/toxifacil/services/mailer-service/internal/email"
	"github.com/toxifacil/toxifacil/services/mailer-service/internal/storage"
)

// MailHandler is the fire-and-forget relay surface: no retry, no queueing,
// a boolean success response.
type MailHandler struct {
	sender     email.Sender
	deliveries *storage.DeliveryRepository
	logger     *slog.Logger
	operator   string // contact-form recipient
}

func NewMailHandler(sender email.Sender, deliveries *storage.DeliveryRepository, logger *slog.Logger, operator string) *MailHandler {
	return &MailHandler{
		sender:     sender,
		deliveries: deliveries,
		logger:     logger,
		operator:   strings.TrimSpace(operator),
	}
}

type contactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

func (h *MailHandler) Contact(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req contactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Message = strings.TrimSpace(req.Message)
	if req.Name == "" || req.Email == "" || req.Phone == "" || req.Message == "" {
		writeError(w, http.StatusBadRequest, "Todos os campos são obrigatórios")
		return
	}

	body, err := email.RenderContact(email.ContactData{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Message: req.Message,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Erro ao processar sua mensagem")
		return
	}

	h.relay(w, r, "contact", h.operator, email.SubjectContact, body, "Erro ao processar sua mensagem")
}

type linkMailRequest struct {
	Email string `json:"email"`
	URL   string `json:"url"`
}

func (h *MailHandler) SendConfirmation(w http.ResponseWriter, r *http.Request) {
	h.sendLinkMail(w, r, "confirmation", email.SubjectConfirmation, email.RenderConfirmation,
		"Erro ao enviar email de confirmação")
}

func (h *MailHandler) SendPasswordReset(w http.ResponseWriter, r *http.Request) {
	h.sendLinkMail(w, r, "password_reset", email.SubjectPasswordReset, email.RenderPasswordReset,
		"Erro ao enviar email de recuperação")
}

func (h *MailHandler) sendLinkMail(
	w http.ResponseWriter,
	r *http.Request,
	kind string,
	subject string,
	render func(email.LinkData) (string, error),
	failMessage string,
) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req linkMailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	req.URL = strings.TrimSpace(req.URL)
	if req.Email == "" || req.URL == "" {
		writeError(w, http.StatusBadRequest, "email and url required")
		return
	}

	body, err := render(email.LinkData{URL: req.URL})
	if err != nil {
		writeError(w, http.StatusInternalServerError, failMessage)
		return
	}

	h.relay(w, r, kind, req.Email, subject, body, failMessage)
}

func (h *MailHandler) relay(w http.ResponseWriter, r *http.Request, kind, to, subject, body, failMessage string) {
	if to == "" {
		writeError(w, http.StatusInternalServerError, failMessage)
		return
	}

	sendErr := h.sender.Send(to, subject, body)

	status := "sent"
	reason := ""
	if sendErr != nil {
		status = "failed"
		reason = sendErr.Error()
	}
	if h.deliveries != nil {
		if err := h.deliveries.Insert(r.Context(), storage.Delivery{
			Kind:          kind,
			Recipient:     to,
			Subject:       subject,
			Status:        status,
			FailureReason: reason,
		}); err != nil {
			h.logger.Error("delivery audit failed", "err", err)
		}
	}

	if sendErr != nil {
		h.logger.Error("mail send failed", "err", sendErr, "kind", kind, "recipient", to)
		writeError(w, http.StatusInternalServerError, failMessage)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
