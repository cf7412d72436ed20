package insurance

import "fmt"

// Registration couples a provider's verification adapter with the resolver
// for its handshake family. Cash providers register neither.
type Registration struct {
	Adapter   VerificationAdapter
	Resolver  AuthorizationResolver
	Transport Transport
}

// Registry maps provider ids to their integrations. It replaces the
// scattered name-substring checks of older code with one dispatch point.
type Registry struct {
	providers map[ProviderID]Registration
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[ProviderID]Registration)}
}

// Register adds or replaces a provider integration.
func (r *Registry) Register(id ProviderID, reg Registration) {
	r.providers[id] = reg
}

// Adapter returns the verification adapter for a provider.
func (r *Registry) Adapter(id ProviderID) (VerificationAdapter, error) {
	reg, ok := r.providers[id]
	if !ok || reg.Adapter == nil {
		return nil, NewError(KindUnknown, "registry",
			fmt.Sprintf("no verification adapter configured for provider %q; check insurer configuration", id))
	}
	return reg.Adapter, nil
}

// Resolver returns the authorization/session resolver for a provider.
func (r *Registry) Resolver(id ProviderID) (AuthorizationResolver, error) {
	reg, ok := r.providers[id]
	if !ok || reg.Resolver == nil {
		return nil, NewError(KindUnknown, "registry",
			fmt.Sprintf("no authorization resolver configured for provider %q; check insurer configuration", id))
	}
	return reg.Resolver, nil
}

// Transport returns the claim submission transport for a provider.
func (r *Registry) Transport(id ProviderID) (Transport, error) {
	reg, ok := r.providers[id]
	if !ok || reg.Transport == nil {
		return nil, NewError(KindUnknown, "registry",
			fmt.Sprintf("no transport configured for provider %q; check insurer configuration", id))
	}
	return reg.Transport, nil
}

// Known reports whether the provider has any registration.
func (r *Registry) Known(id ProviderID) bool {
	_, ok := r.providers[id]
	return ok
}
