package clients

import (
	"strings"

	"github.com/remitra/remitra/internal/bank/domain"
)

// Registry maps bank codes to their integration clients.
type Registry struct {
	clients map[domain.BankCode]domain.BankClient
}

func NewRegistry(clients ...domain.BankClient) *Registry {
	registry := &Registry{clients: map[domain.BankCode]domain.BankClient{}}
	for _, client := range clients {
		if client == nil {
			continue
		}
		code := domain.BankCode(strings.ToLower(strings.TrimSpace(string(client.Code()))))
		if code == "" {
			continue
		}
		registry.clients[code] = client
	}
	return registry
}

func (r *Registry) Get(code domain.BankCode) (domain.BankClient, error) {
	if r == nil {
		return nil, domain.ErrClientNotFound
	}
	client, ok := r.clients[code]
	if !ok {
		return nil, domain.ErrClientNotFound
	}
	return client, nil
}
