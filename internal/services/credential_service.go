package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/CivicLink/civiclink-backend/internal/config"
	"github.com/CivicLink/civiclink-backend/internal/models"
	"github.com/CivicLink/civiclink-backend/internal/repositories"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CredentialService mints, stores and validates the signed QR identity
// credentials residents present at event check-in.
type CredentialService struct {
	credRepo     repositories.CredentialRepository
	userRepo     repositories.UserRepository
	ttl          time.Duration
	historyLimit int
	now          func() time.Time
}

// NewCredentialService creates a new CredentialService
func NewCredentialService(credRepo repositories.CredentialRepository, userRepo repositories.UserRepository, cfg *config.Config) *CredentialService {
	return &CredentialService{
		credRepo:     credRepo,
		userRepo:     userRepo,
		ttl:          time.Duration(cfg.Credential.TTLHours) * time.Hour,
		historyLimit: cfg.Credential.HistoryLimit,
		now:          time.Now,
	}
}

// Generate builds a fresh credential for the user: profile snapshot, new
// issuedAt and nonce, keyed-hash signature. It becomes the user's current
// credential and is appended to the bounded history.
func (s *CredentialService) Generate(ctx context.Context, user *models.User) (*models.Credential, error) {
	if user.CredentialSecret == "" {
		return nil, ErrMissingSecret
	}

	payload := models.CredentialPayload{
		SubjectID:   user.ID.Hex(),
		DisplayName: user.DisplayName,
		Address:     user.Address,
		Age:         user.Age,
		Mobile:      user.Mobile,
		IssuedAt:    s.now().UnixMilli(),
		Nonce:       uuid.NewString(),
		Version:     models.CredentialVersion,
	}

	serialized, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize payload: %w", err)
	}

	cred := &models.Credential{
		SubjectID:   payload.SubjectID,
		Payload:     payload,
		Signature:   sign(serialized, user.CredentialSecret),
		GeneratedAt: s.now(),
	}

	if err := s.credRepo.SaveCurrent(ctx, cred); err != nil {
		return nil, fmt.Errorf("failed to persist credential: %w", err)
	}
	if err := s.credRepo.AppendHistory(ctx, cred, s.historyLimit); err != nil {
		return nil, fmt.Errorf("failed to record credential history: %w", err)
	}
	return cred, nil
}

// GetCurrent returns the subject's current credential, or nil when none
// exists or the stored one has aged past the TTL. Expiry is evaluated here,
// at read time; callers regenerate on nil.
func (s *CredentialService) GetCurrent(ctx context.Context, subjectID string) (*models.Credential, error) {
	cred, err := s.credRepo.FindCurrent(ctx, subjectID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if s.now().Sub(time.UnixMilli(cred.Payload.IssuedAt)) > s.ttl {
		return nil, nil
	}
	return cred, nil
}

// Invalidate removes the subject's current credential. Idempotent; the
// audit history is untouched.
func (s *CredentialService) Invalidate(ctx context.Context, subjectID string) error {
	return s.credRepo.DeleteCurrent(ctx, subjectID)
}

// Regenerate invalidates and mints a new credential in one step. Called
// once per profile-change batch.
func (s *CredentialService) Regenerate(ctx context.Context, user *models.User) (*models.Credential, error) {
	if err := s.Invalidate(ctx, user.ID.Hex()); err != nil {
		return nil, err
	}
	return s.Generate(ctx, user)
}

// History returns the subject's retained credentials, newest first
func (s *CredentialService) History(ctx context.Context, subjectID string) ([]*models.Credential, error) {
	return s.credRepo.FindHistory(ctx, subjectID, s.historyLimit)
}

// Validate checks a scanned credential against the given secret. It parses
// the wire format, recomputes the signature over the embedded payload and
// independently re-checks the TTL. Every failure mode comes back as
// Valid=false with a displayable reason; nothing is thrown past this
// boundary.
func (s *CredentialService) Validate(serialized, secret string) *models.ValidationResult {
	trimmed := strings.TrimSpace(serialized)
	if trimmed == "" {
		return invalid("credential is empty")
	}

	if !strings.HasPrefix(trimmed, "{") {
		// Pre-signature app versions encoded only the subject id.
		if isHexObjectID(trimmed) {
			return &models.ValidationResult{
				Valid:   true,
				Legacy:  true,
				Payload: &models.CredentialPayload{SubjectID: trimmed},
				Reason:  "legacy identifier code, please re-issue",
			}
		}
		return invalid("unrecognized credential format")
	}

	var cred models.Credential
	if err := json.Unmarshal([]byte(trimmed), &cred); err != nil {
		return invalid("credential is not valid JSON")
	}

	p := cred.Payload
	if p.SubjectID == "" || p.DisplayName == "" || p.IssuedAt == 0 || p.Nonce == "" {
		return invalid("credential is missing required fields")
	}

	// A signature keyed with the empty string would verify for any account
	// that never had a secret minted. Refuse outright instead.
	if secret == "" {
		return invalid("subject has no signing key on record")
	}

	reserialized, err := json.Marshal(p)
	if err != nil {
		return invalid("credential payload could not be serialized")
	}
	expected := sign(reserialized, secret)
	if !hmac.Equal([]byte(expected), []byte(cred.Signature)) {
		return invalid("signature does not match")
	}

	if s.now().Sub(time.UnixMilli(p.IssuedAt)) > s.ttl {
		return invalid("credential has expired")
	}

	return &models.ValidationResult{Valid: true, Payload: &p}
}

// ValidateScanned validates a credential scanned by another device: it
// resolves the subject's signing secret from the user record and runs
// Validate. Unknown subjects fail closed.
func (s *CredentialService) ValidateScanned(ctx context.Context, serialized string) *models.ValidationResult {
	subjectID, ok := peekSubjectID(serialized)
	if !ok {
		return invalid("unrecognized credential format")
	}
	oid, err := primitive.ObjectIDFromHex(subjectID)
	if err != nil {
		return invalid("credential subject is malformed")
	}
	user, err := s.userRepo.FindByID(ctx, oid)
	if errors.Is(err, repositories.ErrNotFound) {
		return invalid("credential subject is unknown")
	}
	if err != nil {
		return invalid("credential subject could not be verified")
	}
	return s.Validate(serialized, user.CredentialSecret)
}

// peekSubjectID extracts the subject id without validating anything else
func peekSubjectID(serialized string) (string, bool) {
	trimmed := strings.TrimSpace(serialized)
	if !strings.HasPrefix(trimmed, "{") {
		if isHexObjectID(trimmed) {
			return trimmed, true
		}
		return "", false
	}
	var envelope struct {
		Payload struct {
			SubjectID string `json:"subjectId"`
		} `json:"payload"`
	}
	if err := json.Unmarshal([]byte(trimmed), &envelope); err != nil {
		return "", false
	}
	if envelope.Payload.SubjectID == "" {
		return "", false
	}
	return envelope.Payload.SubjectID, true
}

func sign(data []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(data)
	return hex.EncodeToString(mac.Sum(nil))
}

func isHexObjectID(s string) bool {
	_, err := primitive.ObjectIDFromHex(s)
	return err == nil
}

func invalid(reason string) *models.ValidationResult {
	return &models.ValidationResult{Valid: false, Reason: reason}
}
