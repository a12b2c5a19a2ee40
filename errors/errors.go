package errors

import (
	"errors"
	"fmt"
)

// Library-wide error kinds are here.
var (
	ErrConfiguration  = errors.New("invalid configuration")
	ErrAuthentication = errors.New("version control authentication failed")
	ErrCollaborator   = errors.New("collaborator call failed")
)

// ConfigurationError is returned when a required setting is missing or unusable.
type ConfigurationError struct {
	// Name is the environment variable (or setting) at fault.
	Name   string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("no value for %s", e.Name)
	}
	return fmt.Sprintf("invalid value for %s: %s", e.Name, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

// AuthenticationError is returned when the version control host rejects
// the provisioned deploy key.
type AuthenticationError struct {
	Host    string
	Outcome string
	Err     error
}

func (e *AuthenticationError) Error() string {
	msg := fmt.Sprintf("git authentication against %s failed with outcome %s", e.Host, e.Outcome)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *AuthenticationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrAuthentication}
	}
	return []error{ErrAuthentication, e.Err}
}

// CollaboratorError wraps a failure of an external collaborator: the git
// client, the GitHub API or the registry.
type CollaboratorError struct {
	Op  string
	Err error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *CollaboratorError) Unwrap() []error {
	return []error{ErrCollaborator, e.Err}
}

// Collaborator wraps err as a CollaboratorError for op. A nil err stays nil.
func Collaborator(op string, err error) error {
	if err == nil {
		return nil
	}
	return &CollaboratorError{Op: op, Err: err}
}
