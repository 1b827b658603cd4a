package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/adiwibawa/emailgate/internal/models"
	"github.com/adiwibawa/emailgate/pkg/logger"
)

const defaultSweepSpec = "@hourly"

// Sweeper periodically clears expired verification tokens from pending
// records. The records themselves are never deleted; only the dead token is
// dropped so its unique slot can be reused by a fresh submission.
type Sweeper struct {
	db       *gorm.DB
	cron     *cron.Cron
	now      func() time.Time
	log      *zap.Logger
	schedule string
}

// Option customises the Sweeper.
type Option func(*Sweeper)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(s *Sweeper) {
		if c != nil {
			s.cron = c
		}
	}
}

// WithNow overrides the clock used for expiry comparisons.
func WithNow(now func() time.Time) Option {
	return func(s *Sweeper) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSchedule overrides the cron specification for the sweep.
func WithSchedule(spec string) Option {
	return func(s *Sweeper) {
		if spec != "" {
			s.schedule = spec
		}
	}
}

// NewSweeper constructs a Sweeper with sensible defaults.
func NewSweeper(db *gorm.DB, opts ...Option) *Sweeper {
	sweeper := &Sweeper{
		db:       db,
		now:      time.Now,
		schedule: defaultSweepSpec,
		log:      logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(sweeper)
	}

	if sweeper.cron == nil {
		sweeper.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return sweeper
}

// Start registers the sweep with the cron scheduler and launches it.
func (s *Sweeper) Start() error {
	if s.db == nil {
		return nil
	}

	if _, err := s.cron.AddFunc(s.schedule, func() {
		if _, err := SweepExpiredTokens(context.Background(), s.db, s.now()); err != nil {
			s.log.Warn("token sweep failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running job to complete.
func (s *Sweeper) Stop() context.Context {
	if s.cron == nil {
		return context.Background()
	}
	return s.cron.Stop()
}

// RunOnce executes the sweep immediately. Used in tests and during shutdown.
func (s *Sweeper) RunOnce(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	_, err := SweepExpiredTokens(ctx, s.db, s.now())
	return err
}

// SweepExpiredTokens clears verification tokens whose expiry has passed on
// still-unverified records, returning the number of rows touched.
func SweepExpiredTokens(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	result := db.WithContext(ctx).
		Model(&models.EmailRecord{}).
		Where("is_verified = ? AND token_expires_at IS NOT NULL AND token_expires_at <= ?", false, now).
		Updates(map[string]any{
			"verify_token_hash": nil,
			"token_expires_at":  nil,
		})
	return result.RowsAffected, result.Error
}
