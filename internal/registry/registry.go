package registry

import (
	"fmt"
	"strings"
	"sync"
)

// Token identifies a capability in the registry. Two tokens with the same name are equal.
type Token struct {
	name string
}

// NewToken creates a token for the given capability name, e.g. "ContextProvider[items]"
func NewToken(name string) Token {
	return Token{name: strings.TrimSpace(name)}
}

func (t Token) Name() string   { return t.name }
func (t Token) String() string { return t.name }
func (t Token) IsZero() bool   { return t.name == "" }

// BaseName returns the token name without its type parameters:
// "ContextProvider[items]" -> "ContextProvider".
func (t Token) BaseName() string {
	if i := strings.IndexByte(t.name, '['); i >= 0 {
		return t.name[:i]
	}
	return t.name
}

// Registry maps tokens to instances. Registration order is preserved so that
// scans over Types are deterministic.
type Registry struct {
	mu        sync.RWMutex
	order     []Token
	instances map[Token]any
}

// New creates an empty registry
func New() *Registry {
	return &Registry{instances: make(map[Token]any)}
}

// Register stores instance under token, replacing any previous instance.
// A replaced token keeps its first position.
func (r *Registry) Register(token Token, instance any) error {
	if token.IsZero() {
		return fmt.Errorf("register: empty token")
	}
	if instance == nil {
		return fmt.Errorf("register %s: nil instance", token)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.instances[token]; !exists {
		r.order = append(r.order, token)
	}
	r.instances[token] = instance
	return nil
}

// TryRegister stores instance only when token is not registered yet.
// It reports whether the instance was stored.
func (r *Registry) TryRegister(token Token, instance any) (bool, error) {
	if token.IsZero() {
		return false, fmt.Errorf("register: empty token")
	}
	if instance == nil {
		return false, fmt.Errorf("register %s: nil instance", token)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.instances[token]; exists {
		return false, nil
	}
	r.order = append(r.order, token)
	r.instances[token] = instance
	return true, nil
}

// Resolve returns the instance registered under token and whether it was found.
func (r *Registry) Resolve(token Token) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	instance, ok := r.instances[token]
	return instance, ok
}

// Types lists registered tokens in registration order.
func (r *Registry) Types() []Token {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Token, len(r.order))
	copy(out, r.order)
	return out
}

// Lookup resolves token and asserts the instance to T. A registered instance of the
// wrong type is reported as not found.
func Lookup[T any](r *Registry, token Token) (T, bool) {
	var zero T
	instance, ok := r.Resolve(token)
	if !ok {
		return zero, false
	}
	typed, ok := instance.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}

// FindByBaseName returns the first registered token whose unparameterised name equals
// name, compared case-insensitively.
func (r *Registry) FindByBaseName(name string) (Token, bool) {
	for _, token := range r.Types() {
		if strings.EqualFold(token.BaseName(), name) {
			return token, true
		}
	}
	return Token{}, false
}
