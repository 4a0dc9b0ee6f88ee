package services

import (
	"context"
	"fmt"
	"time"

	"github.com/CivicLink/civiclink-backend/internal/models"
	"github.com/CivicLink/civiclink-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserService handles user management and profile operations
type UserService struct {
	userRepo    repositories.UserRepository
	credentials *CredentialService
	now         func() time.Time
}

// NewUserService creates a new UserService
func NewUserService(userRepo repositories.UserRepository, credentials *CredentialService) *UserService {
	return &UserService{
		userRepo:    userRepo,
		credentials: credentials,
		now:         time.Now,
	}
}

// GetByID retrieves a user by ID
func (s *UserService) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err == repositories.ErrNotFound {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, id.Hex())
	}
	return user, err
}

// ListUsers retrieves all users. Admin only.
func (s *UserService) ListUsers(ctx context.Context, callerID primitive.ObjectID) ([]*models.User, error) {
	if err := requireAdmin(ctx, s.userRepo, callerID); err != nil {
		return nil, err
	}
	return s.userRepo.FindAll(ctx)
}

// UpdateProfile applies the fields present in the update. When any field
// embedded in the signed credential changes, the current credential is
// regenerated once so the QR payload never drifts from the profile.
func (s *UserService) UpdateProfile(ctx context.Context, userID primitive.ObjectID, update *models.ProfileUpdate) (*models.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err == repositories.ErrNotFound {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, userID.Hex())
	}
	if err != nil {
		return nil, err
	}

	credentialFieldsChanged := false
	if update.DisplayName != nil && *update.DisplayName != user.DisplayName {
		user.DisplayName = *update.DisplayName
		credentialFieldsChanged = true
	}
	if update.Address != nil && *update.Address != user.Address {
		user.Address = *update.Address
		credentialFieldsChanged = true
	}
	if update.Age != nil && *update.Age != user.Age {
		user.Age = *update.Age
		credentialFieldsChanged = true
	}
	if update.Mobile != nil && *update.Mobile != user.Mobile {
		user.Mobile = *update.Mobile
		credentialFieldsChanged = true
	}

	user.UpdatedAt = s.now()
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	if credentialFieldsChanged {
		if _, err := s.credentials.Regenerate(ctx, user); err != nil {
			// The profile write already landed; the caller must know the QR
			// payload was not re-issued to match it.
			return nil, fmt.Errorf("profile saved but credential could not be re-issued: %w", err)
		}
	}
	return user, nil
}

// RegisterPushToken stores a device push token on the user. Either or both
// token kinds may be present on an account.
func (s *UserService) RegisterPushToken(ctx context.Context, userID primitive.ObjectID, fcmToken, expoToken string) error {
	if fcmToken == "" && expoToken == "" {
		return fmt.Errorf("%w: at least one push token is required", ErrInvalidArgument)
	}
	user, err := s.userRepo.FindByID(ctx, userID)
	if err == repositories.ErrNotFound {
		return fmt.Errorf("%w: user %s", ErrNotFound, userID.Hex())
	}
	if err != nil {
		return err
	}

	if fcmToken != "" {
		user.FCMToken = fcmToken
	}
	if expoToken != "" {
		user.ExpoPushToken = expoToken
	}
	user.UpdatedAt = s.now()
	return s.userRepo.Update(ctx, user)
}

// RemovePushTokens clears both push tokens, typically on logout
func (s *UserService) RemovePushTokens(ctx context.Context, userID primitive.ObjectID) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err == repositories.ErrNotFound {
		return fmt.Errorf("%w: user %s", ErrNotFound, userID.Hex())
	}
	if err != nil {
		return err
	}

	user.FCMToken = ""
	user.ExpoPushToken = ""
	user.UpdatedAt = s.now()
	return s.userRepo.Update(ctx, user)
}

// DeleteUser removes a user account. Admin only.
func (s *UserService) DeleteUser(ctx context.Context, callerID, targetID primitive.ObjectID) error {
	if err := requireAdmin(ctx, s.userRepo, callerID); err != nil {
		return err
	}
	err := s.userRepo.Delete(ctx, targetID)
	if err == repositories.ErrNotFound {
		return fmt.Errorf("%w: user %s", ErrNotFound, targetID.Hex())
	}
	return err
}
