package waitlist

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/akeren/clothiq-api/internal/log"
	apperrors "github.com/akeren/clothiq-api/pkg/errors"
	"github.com/akeren/clothiq-api/pkg/utils"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	countCacheKey = "waitlist:count"
	countCacheTTL = 30 * time.Second
)

var tracer = otel.Tracer("github.com/akeren/clothiq-api/domain/waitlist")

// CountCache is satisfied by config.Cache.
type CountCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type WaitlistService interface {
	// Submit validates and records one signup. Bot and duplicate submissions
	// succeed without storing anything new.
	Submit(ctx context.Context, email, honeypot string) (*Result, error)

	// Count returns the number of entries with its display form.
	Count(ctx context.Context) (*WaitlistCountResponse, error)
}

type waitlistService struct {
	logger     *log.Logger
	repository WaitlistRepository
	notifier   Notifier
	cache      CountCache
	metrics    *Metrics
}

// NewWaitlistService accepts a nil notifier when the email provider is not
// configured; Submit then rejects valid signups before storing them.
// cache and metrics are optional.
func NewWaitlistService(logger *log.Logger, repository WaitlistRepository, notifier Notifier, cache CountCache, metrics *Metrics) WaitlistService {
	return &waitlistService{
		logger:     logger,
		repository: repository,
		notifier:   notifier,
		cache:      cache,
		metrics:    metrics,
	}
}

func (s *waitlistService) Submit(ctx context.Context, email, honeypot string) (*Result, error) {
	ctx, span := tracer.Start(ctx, "waitlist.Submit")
	defer span.End()

	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	// Bots get the same answer as a real signup.
	if honeypot != "" {
		logger.Info("Honeypot field populated; discarding submission")
		span.SetAttributes(attribute.Bool("waitlist.bot", true))
		s.metrics.observeSubmission("bot")
		return &Result{Outcome: OutcomeRegistered}, nil
	}

	// The raw value must match the address shape; only case is folded for dedup.
	if err := ValidateEmail(email); err != nil {
		logger.Info("Rejected waitlist submission with invalid email")
		s.metrics.observeSubmission("invalid")
		return nil, apperrors.NewInvalidRequestError("invalid email", err)
	}
	email = utils.FoldEmailCase(email)

	if s.notifier == nil {
		logger.Error("Waitlist submission rejected: email notifications are not configured")
		s.metrics.observeSubmission("misconfigured")
		err := apperrors.NewConfigurationError("Email configuration missing on server.", nil)
		span.SetStatus(codes.Error, err.Message)
		return nil, err
	}

	_, err := s.repository.CreateEntry(ctx, email)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeConflict) {
			logger.Info("Waitlist email already registered", "email", log.MaskEmail(email))
			s.metrics.observeSubmission(string(OutcomeAlreadyRegistered))
			return &Result{Outcome: OutcomeAlreadyRegistered}, nil
		}

		logger.Error("Failed to create waitlist entry", "error", err)
		s.metrics.observeSubmission("storage_error")
		span.RecordError(err)
		span.SetStatus(codes.Error, "storage failure")
		return nil, storageError(err)
	}

	s.metrics.observeSubmission(string(OutcomeRegistered))
	s.invalidateCount(ctx, logger)

	// Persisted first; the welcome email cannot change the outcome from here on.
	if err := s.notifier.SendWelcome(ctx, email); err != nil {
		logger.Error("Failed to send welcome email", "error", err)
		s.metrics.observeNotification("failed")
		span.AddEvent("welcome email failed")
	} else {
		s.metrics.observeNotification("sent")
	}

	return &Result{Outcome: OutcomeRegistered}, nil
}

func (s *waitlistService) Count(ctx context.Context) (*WaitlistCountResponse, error) {
	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	if count, ok := s.cachedCount(ctx, logger); ok {
		return &WaitlistCountResponse{Count: count, Display: FormatDisplayCount(count)}, nil
	}

	count, err := s.repository.CountEntries(ctx)
	if err != nil {
		logger.Error("Failed to count waitlist entries", "error", err)
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, countCacheKey, strconv.FormatInt(count, 10), countCacheTTL); err != nil {
			logger.Warn("Failed to cache waitlist count", "error", err)
		}
	}

	return &WaitlistCountResponse{Count: count, Display: FormatDisplayCount(count)}, nil
}

func (s *waitlistService) cachedCount(ctx context.Context, logger *log.Logger) (int64, bool) {
	if s.cache == nil {
		return 0, false
	}

	raw, err := s.cache.Get(ctx, countCacheKey)
	if err != nil {
		logger.Warn("Failed to read cached waitlist count", "error", err)
		return 0, false
	}
	if raw == "" {
		return 0, false
	}

	count, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return count, true
}

func (s *waitlistService) invalidateCount(ctx context.Context, logger *log.Logger) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, countCacheKey); err != nil {
		logger.Warn("Failed to invalidate cached waitlist count", "error", err)
	}
}

// storageError normalizes repository failures to a DATABASE_ERROR; the
// driver error stays wrapped for logs and never reaches the response.
func storageError(err error) error {
	if apperrors.IsType(err, apperrors.ErrorTypeDatabaseError) {
		return err
	}
	return apperrors.NewDatabaseError("unable to create waitlist entry", err)
}

// FormatDisplayCount renders counts the way the landing page shows them:
// "+0", "+42", "+1.3k". Thousands are rounded half up to one decimal.
func FormatDisplayCount(count int64) string {
	if count <= 0 {
		return "+0"
	}
	if count <= 999 {
		return fmt.Sprintf("+%d", count)
	}

	tenths := (count*10 + 500) / 1000
	return fmt.Sprintf("+%d.%dk", tenths/10, tenths%10)
}
