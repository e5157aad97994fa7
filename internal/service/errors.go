package service

import "errors"

var (
	// ErrTenantNotFound means no config exists for the requested slug or id.
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrTenantNotActive means a config exists but its status forbids dispatch.
	ErrTenantNotActive = errors.New("tenant is not active")

	// ErrSlugTaken is returned when provisioning a slug that already exists.
	ErrSlugTaken = errors.New("slug already in use")

	// ErrInvalidCredentials is returned on a failed admin login.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
