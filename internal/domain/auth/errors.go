package auth

import "errors"

// ErrEmailExists is returned by repositories when a registration reuses an
// address that already has an account.
var ErrEmailExists = errors.New("account email already registered")
