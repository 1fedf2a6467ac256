/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Common sentinel errors
var (
	// ErrNotFound is returned when an entity is not found
	ErrNotFound = errors.New("entity not found")

	// ErrAlreadyExists is returned when attempting to create an entity that already exists
	ErrAlreadyExists = errors.New("entity already exists")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrConditionFailed is returned when a conditional update fails
	ErrConditionFailed = errors.New("condition check failed")

	// ErrNoIndexMap is returned when no index map is found for an entity type
	ErrNoIndexMap = errors.New("no index map found for entity type")

	// ErrRegistration is returned when an entity type cannot be registered.
	// It signals a configuration problem; retrying will not help.
	ErrRegistration = errors.New("entity type registration failed")

	// ErrUnregisteredType is returned when an instance is requested for an
	// entity type name that has no active registration.
	ErrUnregisteredType = errors.New("entity type not registered")

	// ErrConstructionInvariant is returned when a registered constructor
	// leaves a reference-only instance with local changes.
	ErrConstructionInvariant = errors.New("constructor performed disallowed side effects")
)

// NotFoundError represents an error when an entity is not found
type NotFoundError struct {
	Type string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with key %q not found", e.Type, e.Key)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// AlreadyExistsError represents an error when an entity already exists
type AlreadyExistsError struct {
	Type string
	Key  string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s with key %q already exists", e.Type, e.Key)
}

func (e *AlreadyExistsError) Is(target error) bool {
	return target == ErrAlreadyExists
}

// ValidationError represents an input validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %q: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// ConditionFailedError represents a failed conditional operation
type ConditionFailedError struct {
	Operation string
	Condition string
}

func (e *ConditionFailedError) Error() string {
	return fmt.Sprintf("condition check failed for %s operation: %s", e.Operation, e.Condition)
}

func (e *ConditionFailedError) Is(target error) bool {
	return target == ErrConditionFailed
}

// RegistrationError reports a rejected entity type registration.
// Type is the Go type that was offered, if one could be determined.
type RegistrationError struct {
	Name   string
	Type   string
	Reason string
}

func (e *RegistrationError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("cannot register %s as %q: %s", e.Type, e.Name, e.Reason)
	}
	return fmt.Sprintf("cannot register entity type %q: %s", e.Name, e.Reason)
}

func (e *RegistrationError) Is(target error) bool {
	return target == ErrRegistration
}

// UnregisteredTypeError reports a factory call for an unknown entity type.
type UnregisteredTypeError struct {
	Name string
}

func (e *UnregisteredTypeError) Error() string {
	return fmt.Sprintf("entity type %q is not registered", e.Name)
}

func (e *UnregisteredTypeError) Is(target error) bool {
	return target == ErrUnregisteredType
}

// ConstructionInvariantError reports that a reference-only instance came
// out of its constructor dirty. DirtyKeys lists the fields the constructor set.
type ConstructionInvariantError struct {
	Name      string
	Type      string
	DirtyKeys []string
}

func (e *ConstructionInvariantError) Error() string {
	msg := fmt.Sprintf("registered type %s for %q: constructor performed disallowed side effects", e.Type, e.Name)
	if len(e.DirtyKeys) > 0 {
		msg += " (dirty keys: " + strings.Join(e.DirtyKeys, ", ") + ")"
	}
	return msg
}

func (e *ConstructionInvariantError) Is(target error) bool {
	return target == ErrConstructionInvariant
}

// Helper functions for creating errors

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(entityType, key string) error {
	return &NotFoundError{Type: entityType, Key: key}
}

// NewAlreadyExistsError creates a new AlreadyExistsError
func NewAlreadyExistsError(entityType, key string) error {
	return &AlreadyExistsError{Type: entityType, Key: key}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NewConditionFailedError creates a new ConditionFailedError
func NewConditionFailedError(operation, condition string) error {
	return &ConditionFailedError{Operation: operation, Condition: condition}
}

// NewRegistrationError creates a new RegistrationError
func NewRegistrationError(name, typ, reason string) error {
	return &RegistrationError{Name: name, Type: typ, Reason: reason}
}

// NewUnregisteredTypeError creates a new UnregisteredTypeError
func NewUnregisteredTypeError(name string) error {
	return &UnregisteredTypeError{Name: name}
}

// NewConstructionInvariantError creates a new ConstructionInvariantError
func NewConstructionInvariantError(name, typ string, dirtyKeys []string) error {
	return &ConstructionInvariantError{Name: name, Type: typ, DirtyKeys: dirtyKeys}
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsConditionFailed checks if an error is a condition failed error
func IsConditionFailed(err error) bool {
	return errors.Is(err, ErrConditionFailed)
}

// IsRegistrationError checks if an error is a registration error
func IsRegistrationError(err error) bool {
	return errors.Is(err, ErrRegistration)
}

// IsUnregisteredType checks if an error is an unregistered type error
func IsUnregisteredType(err error) bool {
	return errors.Is(err, ErrUnregisteredType)
}

// IsConstructionInvariant checks if an error is a construction invariant error
func IsConstructionInvariant(err error) bool {
	return errors.Is(err, ErrConstructionInvariant)
}
