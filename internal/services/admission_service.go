package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/adiwibawa/emailgate/internal/models"
	"github.com/adiwibawa/emailgate/pkg/crypto"
)

// Policy selects how a submitted address becomes verified.
type Policy string

const (
	// PolicyAutoVerify marks every submitted address verified immediately.
	PolicyAutoVerify Policy = "auto"
	// PolicyDeferred requires the visitor to open a mailed one-time link first.
	PolicyDeferred Policy = "deferred"
)

const (
	defaultTokenTTL   = 24 * time.Hour
	defaultTokenBytes = 48
)

var (
	// ErrInvalidEmail rejects absent or malformed addresses before any store access.
	ErrInvalidEmail = errors.New("admission: invalid email")
	// ErrTokenInvalid covers unknown, already-consumed, and expired tokens alike.
	ErrTokenInvalid = errors.New("admission: invalid token")
	// ErrDeliveryFailed signals the verification mail could not be transmitted.
	// The record stays pending; resubmitting issues a fresh token and mail.
	ErrDeliveryFailed = errors.New("admission: verification mail delivery failed")
)

// SubmitOutcome reports the state a submission left its record in.
type SubmitOutcome string

const (
	OutcomeVerified SubmitOutcome = "verified"
	OutcomePending  SubmitOutcome = "pending"
)

// CheckOutcome reports the verification state of a looked-up address.
type CheckOutcome string

const (
	CheckVerified    CheckOutcome = "verified"
	CheckNotVerified CheckOutcome = "not_verified"
)

// AdmissionOption customises the AdmissionService.
type AdmissionOption func(*AdmissionService)

// WithTokenTTL overrides the verification token lifetime.
func WithTokenTTL(d time.Duration) AdmissionOption {
	return func(s *AdmissionService) {
		if d > 0 {
			s.tokenTTL = d
		}
	}
}

// WithTokenSize adjusts the number of random bytes in generated tokens.
func WithTokenSize(size int) AdmissionOption {
	return func(s *AdmissionService) {
		if size > 0 {
			s.tokenLength = size
		}
	}
}

// WithClock injects a custom time source.
func WithClock(clock func() time.Time) AdmissionOption {
	return func(s *AdmissionService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// AdmissionService implements the email-gate workflow: upsert on submit,
// read-only check, and exactly-once token consumption on verify. Handlers own
// the HTTP surface; this type owns every EmailRecord mutation.
type AdmissionService struct {
	db          *gorm.DB
	policy      Policy
	notifier    VerificationNotifier
	tokenTTL    time.Duration
	tokenLength int
	now         func() time.Time
}

// NewAdmissionService constructs the service. A notifier is required under
// the deferred policy and ignored under auto-verify.
func NewAdmissionService(db *gorm.DB, policy Policy, notifier VerificationNotifier, opts ...AdmissionOption) (*AdmissionService, error) {
	if db == nil {
		return nil, errors.New("admission service: db is required")
	}
	switch policy {
	case PolicyAutoVerify:
	case PolicyDeferred:
		if notifier == nil {
			return nil, errors.New("admission service: deferred policy requires a notifier")
		}
	default:
		return nil, fmt.Errorf("admission service: unknown policy %q", policy)
	}

	service := &AdmissionService{
		db:          db,
		policy:      policy,
		notifier:    notifier,
		tokenTTL:    defaultTokenTTL,
		tokenLength: defaultTokenBytes,
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// Policy returns the configured admission policy.
func (s *AdmissionService) Policy() Policy {
	return s.policy
}

// Submit validates the address and upserts its record. Under auto-verify the
// record is marked verified immediately; under deferred a fresh token is
// stored and mailed. Re-submitting an already-verified address re-confirms it
// without issuing a new token.
func (s *AdmissionService) Submit(ctx context.Context, email string) (SubmitOutcome, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return "", err
	}

	if s.policy == PolicyAutoVerify {
		if err := s.upsertVerified(ctx, email); err != nil {
			return "", err
		}
		return OutcomeVerified, nil
	}

	token, err := crypto.GenerateToken(s.tokenLength)
	if err != nil {
		return "", fmt.Errorf("admission service: generate token: %w", err)
	}

	hash := crypto.HashToken(token)
	now := s.now()
	expires := now.Add(s.tokenTTL)

	record := models.EmailRecord{
		Email:           email,
		VerifyTokenHash: &hash,
		TokenExpiresAt:  &expires,
	}

	// Single-statement upsert: the token assignment is suppressed for rows
	// that are already verified, so a verified address never regresses.
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "email"}},
		DoUpdates: clause.Assignments(map[string]any{
			"verify_token_hash": hash,
			"token_expires_at":  expires,
			"updated_at":        now,
		}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Eq{Column: clause.Column{Table: models.EmailRecord{}.TableName(), Name: "is_verified"}, Value: false},
		}},
	}).Create(&record).Error
	if err != nil {
		return "", fmt.Errorf("admission service: upsert record: %w", err)
	}

	var stored models.EmailRecord
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&stored).Error; err != nil {
		return "", fmt.Errorf("admission service: read back record: %w", err)
	}

	if stored.IsVerified {
		return OutcomeVerified, nil
	}

	// A concurrent submission may have replaced the token between the upsert
	// and the read-back; only mail a link that is still redeemable.
	if stored.VerifyTokenHash == nil || *stored.VerifyTokenHash != hash {
		return OutcomePending, nil
	}

	if err := s.notifier.Send(ctx, email, token); err != nil {
		return OutcomePending, fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	return OutcomePending, nil
}

// Check reports the verification state of an exact-match address without
// mutating anything. Unknown addresses report not-verified.
func (s *AdmissionService) Check(ctx context.Context, email string) (CheckOutcome, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return "", err
	}

	var record models.EmailRecord
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return CheckNotVerified, nil
		}
		return "", fmt.Errorf("admission service: lookup record: %w", err)
	}

	if record.IsVerified {
		return CheckVerified, nil
	}
	return CheckNotVerified, nil
}

// Verify consumes a verification token. Consumption is a single conditional
// UPDATE keyed on the token hash, so of two simultaneous redemptions exactly
// one succeeds; the loser, like any unknown or expired token, gets
// ErrTokenInvalid.
func (s *AdmissionService) Verify(ctx context.Context, token string) (*models.EmailRecord, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrTokenInvalid
	}

	hash := crypto.HashToken(token)
	now := s.now()

	var record models.EmailRecord
	if err := s.db.WithContext(ctx).Where("verify_token_hash = ?", hash).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, fmt.Errorf("admission service: find token: %w", err)
	}

	result := s.db.WithContext(ctx).
		Model(&models.EmailRecord{}).
		Where("id = ? AND verify_token_hash = ? AND is_verified = ?", record.ID, hash, false).
		Where("token_expires_at IS NULL OR token_expires_at > ?", now).
		Updates(map[string]any{
			"is_verified":       true,
			"verify_token_hash": nil,
			"token_expires_at":  nil,
		})
	if result.Error != nil {
		return nil, fmt.Errorf("admission service: consume token: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrTokenInvalid
	}

	record.IsVerified = true
	record.VerifyTokenHash = nil
	record.TokenExpiresAt = nil
	return &record, nil
}

// AdmitVerified records an address as verified immediately. The Google
// identity path lands here: a provider-attested email needs no mailed token.
func (s *AdmissionService) AdmitVerified(ctx context.Context, email string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	return s.upsertVerified(ctx, email)
}

func (s *AdmissionService) upsertVerified(ctx context.Context, email string) error {
	record := models.EmailRecord{
		Email:      email,
		IsVerified: true,
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "email"}},
		DoUpdates: clause.Assignments(map[string]any{
			"is_verified":       true,
			"verify_token_hash": nil,
			"token_expires_at":  nil,
			"updated_at":        s.now(),
		}),
	}).Create(&record).Error
	if err != nil {
		if isUniqueConstraintError(err) {
			// Another request inserted the row first; it is upserted either way.
			return nil
		}
		return fmt.Errorf("admission service: upsert verified record: %w", err)
	}
	return nil
}

// normalizeEmail applies the deliberately minimal syntax heuristic: present
// and containing an "@". Anything stricter belongs to the mailed round-trip.
func normalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return "", ErrInvalidEmail
	}
	return email, nil
}
