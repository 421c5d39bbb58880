package repositories

import (
	"fmt"
	"reflect"

	"github.com/SAP-F-2025/generic-repository/internal/registry"
)

// Well-known registry tokens
var (
	// ContextProviderToken is where factories look for the persistence.Provider first
	ContextProviderToken = registry.NewToken("ContextProvider")
	// UnitOfWorkToken marks the constructor parameter that receives the repository's
	// own unit of work. Nothing is registered under it.
	UnitOfWorkToken     = registry.NewToken("UnitOfWork")
	FactoryOptionsToken = registry.NewToken("FactoryOptions")
	LoggerToken         = registry.NewToken("Logger")
	ValidatorToken      = registry.NewToken("Validator")
	PublisherToken      = registry.NewToken("EventPublisher")
)

// OptionsToken is the token of the RepositoryOptions registered for entity type E
func OptionsToken[E any]() registry.Token {
	return registry.NewToken(fmt.Sprintf("RepositoryOptions[%s]", reflect.TypeFor[E]()))
}
