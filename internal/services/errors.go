package services

import (
	"errors"

	"github.com/SAP-F-2025/generic-repository/internal/validator"
)

var (
	ErrItemNotFound      = errors.New("item not found")
	ErrItemAlreadyExists = errors.New("item already exists")
	ErrValidationFailed  = errors.New("validation failed")
	ErrServiceNotReady   = errors.New("service manager not initialized")
)

type ValidationErrors = validator.ValidationErrors
