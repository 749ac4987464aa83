package profile

import (
	"errors"
	"testing"
)

func validClient() Profile {
	return Profile{
		Type: TypeClient,
		Client: &Client{
			FullName: "Ana Souza",
			CPF:      "123.456.789-00",
			Phone:    "(11) 98765-4321",
		},
	}
}

func validLaboratory() Profile {
	return Profile{
		Type: TypeLaboratory,
		Laboratory: &Laboratory{
			CompanyName:     "Laboratório Central",
			ResponsibleName: "Carlos Lima",
			CNPJ:            "12345678000190",
			Phone:           "(11) 3333-4444",
			Address:         "Av. Principal, 123",
			City:            "São Paulo",
			State:           "SP",
		},
	}
}

func TestValidateClient(t *testing.T) {
	if err := validClient().Validate(); err != nil {
		t.Fatalf("valid client rejected: %v", err)
	}

	p := validClient()
	p.Client.CPF = "123"
	var fieldErr *FieldError
	if err := p.Validate(); !errors.As(err, &fieldErr) || fieldErr.Field != "cpf" {
		t.Fatalf("expected cpf field error, got %v", err)
	}

	p = validClient()
	p.Client.FullName = "   "
	if err := p.Validate(); !errors.As(err, &fieldErr) || fieldErr.Field != "full_name" {
		t.Fatalf("expected full_name field error, got %v", err)
	}
}

func TestValidateLaboratory(t *testing.T) {
	if err := validLaboratory().Validate(); err != nil {
		t.Fatalf("valid laboratory rejected: %v", err)
	}

	p := validLaboratory()
	p.Laboratory.CNPJ = "12345678"
	var fieldErr *FieldError
	if err := p.Validate(); !errors.As(err, &fieldErr) || fieldErr.Field != "cnpj" {
		t.Fatalf("expected cnpj field error, got %v", err)
	}

	p = validLaboratory()
	p.Laboratory.State = "São Paulo"
	if err := p.Validate(); !errors.As(err, &fieldErr) || fieldErr.Field != "state" {
		t.Fatalf("expected state field error, got %v", err)
	}
}

func TestValidateRejectsMismatchedVariant(t *testing.T) {
	p := Profile{Type: TypeLaboratory, Client: validClient().Client}
	if err := p.Validate(); err == nil {
		t.Fatal("laboratory type with client payload must be rejected")
	}
	if err := (Profile{Type: "admin"}).Validate(); !errors.Is(err, ErrUnknownType) {
		t.Fatalf("expected ErrUnknownType, got %v", err)
	}
}

func TestDisplayName(t *testing.T) {
	if got := validClient().DisplayName(); got != "Ana Souza" {
		t.Fatalf("got %q", got)
	}
	if got := validLaboratory().DisplayName(); got != "Laboratório Central" {
		t.Fatalf("got %q", got)
	}
}
