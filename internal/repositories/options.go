package repositories

import (
	"fmt"

	"github.com/SAP-F-2025/generic-repository/internal/registry"
)

// RepositoryOptions is the per-entity-type configuration, read-only once registered
type RepositoryOptions[E any] struct {
	// CommitOnRelease makes Release write back pending changes
	CommitOnRelease bool
}

// FactoryOptions is shared by every repository factory
type FactoryOptions struct {
	// ProviderToken overrides where the persistence provider is looked up.
	// The zero token means unset.
	ProviderToken registry.Token
}

// ConfigureRepositories registers the factory options built by configure
func ConfigureRepositories(reg *registry.Registry, configure func(*FactoryOptions)) error {
	var options FactoryOptions
	if configure != nil {
		configure(&options)
	}
	if err := reg.Register(FactoryOptionsToken, options); err != nil {
		return fmt.Errorf("configure repositories: %w", err)
	}
	return nil
}

// RepositoryBuilder adjusts the options registered for entity type E
type RepositoryBuilder[E any] struct {
	reg     *registry.Registry
	options RepositoryOptions[E]
}

// NewRepositoryBuilder starts from the options currently registered for E, or the
// zero options when none are
func NewRepositoryBuilder[E any](reg *registry.Registry) *RepositoryBuilder[E] {
	options, _ := registry.Lookup[RepositoryOptions[E]](reg, OptionsToken[E]())
	return &RepositoryBuilder[E]{reg: reg, options: options}
}

func (b *RepositoryBuilder[E]) WithCommitOnRelease(commit bool) *RepositoryBuilder[E] {
	b.options.CommitOnRelease = commit
	return b
}

// Apply registers the options, replacing the previous ones
func (b *RepositoryBuilder[E]) Apply() error {
	if err := b.reg.Register(OptionsToken[E](), b.options); err != nil {
		return fmt.Errorf("apply repository options: %w", err)
	}
	return nil
}
