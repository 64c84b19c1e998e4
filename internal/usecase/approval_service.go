package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"brokerdesk/internal/domain"
)

const (
	credentialLength   = 10
	credentialAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz23456789"
)

// GenerateCredential returns a fresh random alphanumeric credential. It is
// transmitted to the user exactly once and then only its bcrypt hash is kept,
// so a non-cryptographic generator is acceptable here.
func GenerateCredential() string {
	b := make([]byte, credentialLength)
	for i := range b {
		b[i] = credentialAlphabet[rand.Intn(len(credentialAlphabet))]
	}
	return string(b)
}

// ApprovalService drives the KYC approval state machine. Every transition is
// fail-closed: user state changes only after the notification carrying the
// outcome has been delivered.
type ApprovalService struct {
	userRepo domain.UserRepository
	notifier domain.Notifier
	logger   *slog.Logger

	// approve/reject for the same user are serialized; concurrent calls
	// for different users proceed independently.
	mu    sync.Mutex
	locks map[uuid.UUID]*userLock
}

// userLock is reference-counted so the map entry is dropped once the last
// in-flight call for that user finishes.
type userLock struct {
	mu   sync.Mutex
	refs int
}

// NewApprovalService creates a new ApprovalService
func NewApprovalService(userRepo domain.UserRepository, notifier domain.Notifier, logger *slog.Logger) *ApprovalService {
	return &ApprovalService{
		userRepo: userRepo,
		notifier: notifier,
		logger:   logger,
		locks:    make(map[uuid.UUID]*userLock),
	}
}

func (s *ApprovalService) lockUser(id uuid.UUID) *userLock {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &userLock{}
		s.locks[id] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return l
}

func (s *ApprovalService) unlockUser(id uuid.UUID, l *userLock) {
	l.mu.Unlock()

	s.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(s.locks, id)
	}
	s.mu.Unlock()
}

// Approve generates fresh credentials for the user, mails them, and only on
// delivery success persists the new hash and marks the user verified. On any
// delivery failure the user row is untouched and the caller gets a retryable
// ErrNotificationFailed.
func (s *ApprovalService) Approve(ctx context.Context, userID uuid.UUID) (domain.Receipt, error) {
	l := s.lockUser(userID)
	defer s.unlockUser(userID, l)

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return domain.Receipt{}, err
	}

	credential := GenerateCredential()

	receipt, err := s.notifier.Send(ctx, domain.Message{
		Recipients: []string{user.Email},
		Subject:    "Your account has been approved",
		Body: fmt.Sprintf(
			"Hello %s,\n\nYour account has been verified. Log in with:\n\nEmail: %s\nPassword: %s\n\nPlease change this password after your first login.",
			user.Name, user.Email, credential,
		),
	})
	if err != nil {
		s.logger.Error("approval notification failed, user state unchanged",
			"user_id", userID, "error", err)
		return domain.Receipt{}, fmt.Errorf("%w: %v", domain.ErrNotificationFailed, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(credential), bcrypt.DefaultCost)
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("failed to hash credential: %w", err)
	}

	if err := s.userRepo.MarkVerified(ctx, userID, string(hash)); err != nil {
		return domain.Receipt{}, err
	}

	s.logger.Info("user approved", "user_id", userID, "provider", receipt.Provider)
	return receipt, nil
}

// Reject notifies the user of the rejection and, only on delivery success,
// flips the user back to unverified and records the reason.
func (s *ApprovalService) Reject(ctx context.Context, userID uuid.UUID, reason string) (domain.Receipt, error) {
	l := s.lockUser(userID)
	defer s.unlockUser(userID, l)

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return domain.Receipt{}, err
	}

	receipt, err := s.notifier.Send(ctx, domain.Message{
		Recipients: []string{user.Email},
		Subject:    "Your account application was not approved",
		Body: fmt.Sprintf(
			"Hello %s,\n\nYour account application was reviewed and could not be approved.\n\nReason: %s\n\nYou may contact support for details.",
			user.Name, reason,
		),
	})
	if err != nil {
		s.logger.Error("rejection notification failed, user state unchanged",
			"user_id", userID, "error", err)
		return domain.Receipt{}, fmt.Errorf("%w: %v", domain.ErrNotificationFailed, err)
	}

	if err := s.userRepo.MarkRejected(ctx, userID, reason); err != nil {
		return domain.Receipt{}, err
	}

	s.logger.Info("user rejected", "user_id", userID, "provider", receipt.Provider)
	return receipt, nil
}
