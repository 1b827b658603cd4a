package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/adiwibawa/emailgate/internal/models"
)

// ErrInvalidCredentials rejects credential log entries missing either field.
var ErrInvalidCredentials = errors.New("credential log: username and password are required")

// CredentialLogService appends raw hotspot credentials submitted through the
// standalone login form. Write-only: nothing in the service reads these back.
type CredentialLogService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewCredentialLogService constructs the audit logger.
func NewCredentialLogService(db *gorm.DB) (*CredentialLogService, error) {
	if db == nil {
		return nil, errors.New("credential log service: db is required")
	}
	return &CredentialLogService{db: db, now: time.Now}, nil
}

// Record appends one credential submission with the current login time.
func (s *CredentialLogService) Record(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return ErrInvalidCredentials
	}

	entry := models.LoginCredentialRecord{
		Username:  username,
		Password:  password,
		LoginTime: s.now(),
	}

	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("credential log service: append entry: %w", err)
	}
	return nil
}
