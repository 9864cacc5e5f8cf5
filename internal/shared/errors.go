package shared

import "errors"

var (
	// ErrNoWarehouse indicates no warehouse is bound to the request origin.
	ErrNoWarehouse = errors.New("no warehouse bound to origin")
	// ErrNotLoggedIn indicates the session carries no user.
	ErrNotLoggedIn = errors.New("not logged in")
)
