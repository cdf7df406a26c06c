package errors

import (
	"errors"
	"fmt"
	"strings"
)

// NotFoundError represents a reference to an entity that does not exist
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Entity)
}

// Is enables errors.Is() comparison for NotFoundError
func (e *NotFoundError) Is(target error) bool {
	t, ok := target.(*NotFoundError)
	if !ok {
		return false
	}
	return t.Entity == "" || e.Entity == t.Entity
}

// ValidationError represents malformed input, e.g. a non-numeric value in a numeric feature
type ValidationError struct {
	Field   string
	Row     int
	Message string
}

func (e *ValidationError) Error() string {
	switch {
	case e.Field != "" && e.Row > 0:
		return fmt.Sprintf("validation error: %s (row %d) - %s", e.Field, e.Row, e.Message)
	case e.Field != "":
		return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
	default:
		return fmt.Sprintf("validation error: %s", e.Message)
	}
}

// ConfigurationError represents an unusable configuration
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return e.Message
}

// DesyncError is raised when an aggregate context disagrees with a full
// recomputation. It is never recovered from.
type DesyncError struct {
	Team    string
	Details []string
}

func (e *DesyncError) Error() string {
	return fmt.Sprintf("context of team %s out of sync: %s", e.Team, strings.Join(e.Details, "; "))
}

var (
	ErrPersonNotFound = &NotFoundError{Entity: "person"}
	ErrTeamNotFound   = &NotFoundError{Entity: "team"}
)

var (
	ErrNoPeople       = errors.New("at least one person is required")
	ErrNoTeams        = errors.New("at least one team is required")
	ErrDuplicateID    = errors.New("duplicate identifier")
	ErrMissingColumn  = errors.New("required column missing")
	ErrUnknownFeature = errors.New("unknown feature kind")
)

// IsNotFound checks if an error is a NotFoundError
func IsNotFound(err error) bool {
	var notFoundErr *NotFoundError
	return errors.As(err, &notFoundErr)
}

// IsValidation checks if an error is a ValidationError
func IsValidation(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}

// IsConfiguration checks if an error is a ConfigurationError
func IsConfiguration(err error) bool {
	var configErr *ConfigurationError
	return errors.As(err, &configErr)
}

// IsDesync checks if an error is a DesyncError
func IsDesync(err error) bool {
	var desyncErr *DesyncError
	return errors.As(err, &desyncErr)
}

// NewNotFoundError creates a NotFoundError for the given entity and id
func NewNotFoundError(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NewRowValidationError creates a ValidationError pointing at an input row
func NewRowValidationError(field string, row int, message string) error {
	return &ValidationError{Field: field, Row: row, Message: message}
}

// NewConfigurationError creates a new ConfigurationError
func NewConfigurationError(format string, args ...interface{}) error {
	return &ConfigurationError{Message: fmt.Sprintf(format, args...)}
}
