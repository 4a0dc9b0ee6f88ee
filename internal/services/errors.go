package services

import (
	"context"
	"errors"

	"github.com/CivicLink/civiclink-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Service-level error kinds. Handlers map these to stable RPC codes.
var (
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrPermissionDenied = errors.New("permission denied")
	ErrNotFound         = errors.New("not found")
	ErrInvalidArgument  = errors.New("invalid argument")
	// ErrMissingSecret rejects credential generation for accounts without a
	// per-subject signing secret. There is deliberately no shared default.
	ErrMissingSecret = errors.New("subject has no credential secret")
)

// requireAdmin verifies the caller is authenticated and that the caller's
// own user record carries the admin role, before any target data is read
// or written.
func requireAdmin(ctx context.Context, userRepo repositories.UserRepository, callerID primitive.ObjectID) error {
	if callerID.IsZero() {
		return ErrUnauthenticated
	}
	caller, err := userRepo.FindByID(ctx, callerID)
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrUnauthenticated
	}
	if err != nil {
		return err
	}
	if !caller.IsAdmin() {
		return ErrPermissionDenied
	}
	return nil
}
