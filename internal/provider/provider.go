// Package provider contains the delivery adapters for push and email
// providers, plus the registry the delivery worker resolves them from.
//
// Adapters never mutate store state; they perform one network send and report
// the outcome as a models.SendResult. Failures escape only as
// *models.ProviderError so the worker can classify them as retriable or not.
package provider

import (
	"context"

	"github.com/mohammed-alfattahi/ibb-city-sub001/internal/models"
)

// Adapter sends one rendered notification to one delivery identity.
// For push providers the identity is a device token; for email it is an
// address.
type Adapter interface {
	Name() models.ProviderName
	Send(ctx context.Context, identity, title, body string, data map[string]string) (models.SendResult, error)
}

// Registry is a closed table of adapters keyed by provider name. It is built
// once at startup from the configured credentials; providers without
// credentials are simply absent, and resolution for them fails.
type Registry struct {
	adapters map[models.ProviderName]Adapter
}

// NewRegistry builds a registry from the given adapters. A nil adapter is
// skipped so callers can pass conditionally-constructed adapters directly.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[models.ProviderName]Adapter)}
	for _, a := range adapters {
		if a == nil {
			continue
		}
		r.adapters[a.Name()] = a
	}
	return r
}

// Resolve returns the adapter for the given provider, or
// models.ErrUnknownProvider when none is registered.
func (r *Registry) Resolve(name models.ProviderName) (Adapter, error) {
	a, ok := r.adapters[name]
	if !ok {
		return nil, models.ErrUnknownProvider
	}
	return a, nil
}

// Names returns the registered provider names, for startup logging.
func (r *Registry) Names() []models.ProviderName {
	names := make([]models.ProviderName, 0, len(r.adapters))
	for n := range r.adapters {
		names = append(names, n)
	}
	return names
}
