// Package profile models the two registration variants ToxiFácil accepts.
// Each variant has an explicit required-field set checked before any call
// to the store, so a half-filled form never reaches the database.
package profile

import (
	"errors"
	"fmt"
	"strings"

	"github.com/toxifacil/toxifacil/libs/brdoc"
)

const (
	TypeClient     = "client"
	TypeLaboratory = "laboratory"
)

var ErrUnknownType = errors.New("unknown profile type")

// FieldError names the offending field so callers can render a
// field-scoped message instead of a blanket failure.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Client is the registration payload for an exam requester.
type Client struct {
	FullName string
	CPF      string
	Phone    string
}

// Laboratory is the registration payload for a lab operator account.
type Laboratory struct {
	CompanyName     string
	ResponsibleName string
	CNPJ            string
	Phone           string
	Address         string
	City            string
	State           string
}

// Profile is the tagged union sent on registration. Exactly one of the
// variant pointers must be set, matching Type.
type Profile struct {
	Type       string
	Client     *Client
	Laboratory *Laboratory
}

// DisplayName returns the name shown in greetings and JWT claims.
func (p Profile) DisplayName() string {
	switch p.Type {
	case TypeClient:
		if p.Client != nil {
			return p.Client.FullName
		}
	case TypeLaboratory:
		if p.Laboratory != nil {
			return p.Laboratory.CompanyName
		}
	}
	return ""
}

// Validate checks the variant's required-field set. Documents are
// normalized through brdoc before length checks, so formatted and raw
// input are both accepted.
func (p Profile) Validate() error {
	switch p.Type {
	case TypeClient:
		if p.Client == nil {
			return &FieldError{Field: "client", Reason: "payload ausente"}
		}
		return p.Client.validate()
	case TypeLaboratory:
		if p.Laboratory == nil {
			return &FieldError{Field: "laboratory", Reason: "payload ausente"}
		}
		return p.Laboratory.validate()
	default:
		return ErrUnknownType
	}
}

func (c *Client) validate() error {
	if strings.TrimSpace(c.FullName) == "" {
		return &FieldError{Field: "full_name", Reason: "obrigatório"}
	}
	if cpf := brdoc.FormatCPF(c.CPF); len(cpf) != len("NNN.NNN.NNN-NN") {
		return &FieldError{Field: "cpf", Reason: "deve ter 11 dígitos"}
	}
	if strings.TrimSpace(c.Phone) == "" {
		return &FieldError{Field: "phone", Reason: "obrigatório"}
	}
	return nil
}

func (l *Laboratory) validate() error {
	if strings.TrimSpace(l.CompanyName) == "" {
		return &FieldError{Field: "company_name", Reason: "obrigatório"}
	}
	if strings.TrimSpace(l.ResponsibleName) == "" {
		return &FieldError{Field: "responsible_name", Reason: "obrigatório"}
	}
	if cnpj := brdoc.FormatCNPJ(l.CNPJ); len(cnpj) != len("NN.NNN.NNN/NNNN-NN") {
		return &FieldError{Field: "cnpj", Reason: "deve ter 14 dígitos"}
	}
	if strings.TrimSpace(l.Phone) == "" {
		return &FieldError{Field: "phone", Reason: "obrigatório"}
	}
	if strings.TrimSpace(l.Address) == "" {
		return &FieldError{Field: "address", Reason: "obrigatório"}
	}
	if strings.TrimSpace(l.City) == "" {
		return &FieldError{Field: "city", Reason: "obrigatório"}
	}
	if len(strings.TrimSpace(l.State)) != 2 {
		return &FieldError{Field: "state", Reason: "use a sigla de duas letras"}
	}
	return nil
}
