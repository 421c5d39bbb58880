package repositories

import "errors"

var (
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrConfigurationMissing = errors.New("configuration missing")
	ErrDependencyUnresolved = errors.New("dependency unresolved")
	ErrConstructionFailed   = errors.New("construction failed")
	ErrReleased             = errors.New("repository already released")
)
