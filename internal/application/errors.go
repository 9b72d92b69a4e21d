package application

import "errors"

var (
	// ErrNotFound means a referenced user or role id/name did not resolve.
	ErrNotFound = errors.New("resource not found")
	// ErrEmailRegistered means the email is already present in the ledger,
	// detected either by the pre-check or at commit time.
	ErrEmailRegistered = errors.New("email already registered")
	// ErrProtectedRole rejects renaming one of the default roles.
	ErrProtectedRole = errors.New("default role name cannot be changed")
	// ErrRoleNameTaken rejects a rename that collides with another role.
	ErrRoleNameTaken = errors.New("role name already in use")
)

// RegistrationError wraps a remote or persistence failure hit mid-way
// through provisioning, after compensation (if any) has been attempted.
type RegistrationError struct {
	Stage string
	Err   error
}

func (e *RegistrationError) Error() string {
	return "user registration failed at " + e.Stage + ": " + e.Err.Error()
}

func (e *RegistrationError) Unwrap() error { return e.Err }
