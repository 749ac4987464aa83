package email

import (
	"strings"
	"testing"
)

func TestRenderContactEscapesMarkup(t *testing.T) {
	body, err := RenderContact(ContactData{
		Name:    "Ana <script>alert(1)</script>",
		Email:   "ana@example.com",
		Phone:   "(11) 98765-4321",
		Message: "Quero agendar um exame",
	})
	if err != nil {
		t.Fatalf("RenderContact failed: %v", err)
	}
	if strings.Contains(body, "<script>") {
		t.Fatal("user input must be escaped")
	}
	if !strings.Contains(body, "Quero agendar um exame") {
		t.Fatalf("message missing from body: %s", body)
	}
}

func TestRenderConfirmationCarriesLink(t *testing.T) {
	body, err := RenderConfirmation(LinkData{URL: "http://localhost:3000/confirmar?token=abc"})
	if err != nil {
		t.Fatalf("RenderConfirmation failed: %v", err)
	}
	if !strings.Contains(body, "confirmar?token=abc") {
		t.Fatalf("link missing from body: %s", body)
	}
	if !strings.Contains(body, "Confirmar cadastro") {
		t.Fatalf("call to action missing: %s", body)
	}
}

func TestRenderBooking(t *testing.T) {
	body, err := RenderBooking(BookingData{
		ExamTitle:      "Toxicológico para CNH",
		LaboratoryName: "Laboratório Central",
		Address:        "Av. Principal, 123",
		City:           "São Paulo",
		State:          "SP",
		ScheduledAt:    "2026-03-10 08:00",
	})
	if err != nil {
		t.Fatalf("RenderBooking failed: %v", err)
	}
	for _, want := range []string{"Toxicológico para CNH", "Laboratório Central", "2026-03-10 08:00"} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in body: %s", want, body)
		}
	}
}

func TestBuildMessageHeaders(t *testing.T) {
	msg := buildMessage("no-reply@toxifacil.local", "ana@example.com", SubjectBooking, "<p>oi</p>")
	for _, want := range []string{
		"From: no-reply@toxifacil.local",
		"To: ana@example.com",
		"Subject: " + SubjectBooking,
		"Content-Type: text/html",
	} {
		if !strings.Contains(msg, want) {
			t.Fatalf("expected %q in message: %s", want, msg)
		}
	}
}
