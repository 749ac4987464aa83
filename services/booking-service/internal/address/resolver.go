// Package address resolves a CEP to a normalized address through the
// public ViaCEP lookup.
package address

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/toxifacil/toxifacil/libs/brdoc"
)

var (
	// ErrInvalidCEP is returned before any network call when the input is
	// not exactly 8 digits.
	ErrInvalidCEP = errors.New("CEP inválido")
	ErrNotFound   = errors.New("CEP não encontrado")
)

// Address is the resolved postal record. Field names follow the ViaCEP
// response body.
type Address struct {
	CEP          string `json:"cep"`
	Street       string `json:"logradouro"`
	Complement   string `json:"complemento"`
	Neighborhood string `json:"bairro"`
	City         string `json:"localidade"`
	State        string `json:"uf"`
}

type Resolver struct {
	baseURL string
	http    *http.Client
}

func NewResolver(baseURL string, timeout time.Duration) *Resolver {
	if baseURL == "" {
		baseURL = "https://viacep.com.br"
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Resolver{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: timeout,
		},
	}
}

func (r *Resolver) Lookup(ctx context.Context, cep string) (Address, error) {
	digits, ok := brdoc.CEPDigits(cep)
	if !ok {
		return Address{}, ErrInvalidCEP
	}

	url := fmt.Sprintf("%s/ws/%s/json/", r.baseURL, digits)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Address{}, err
	}
	resp, err := r.http.Do(req)
	if err != nil {
		return Address{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Address{}, fmt.Errorf("cep lookup returned status %d", resp.StatusCode)
	}

	var body struct {
		Address
		Erro bool `json:"erro"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Address{}, err
	}
	if body.Erro {
		return Address{}, ErrNotFound
	}
	return body.Address, nil
}
