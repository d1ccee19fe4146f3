package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"couponme/api/internal/apperr"
	"couponme/api/internal/config"
	"couponme/api/internal/i18n"
	"couponme/api/internal/metrics"
	"couponme/api/internal/models"
	"couponme/api/internal/payment"
	"couponme/api/internal/repository"
)

const membershipProductType = "membership"

// EventMarker records processed webhook event IDs.
type EventMarker interface {
	Claim(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string) error
}

type BillingService struct {
	users    UserStore
	provider payment.Provider
	markers  EventMarker
	cfg      config.PaymentConfig
	duration time.Duration
	metrics  *metrics.Metrics
	log      zerolog.Logger
	now      Clock
}

// NewBillingService builds the membership bridge. provider and markers may
// be nil: without a provider checkout and webhooks report unavailable, and
// without markers duplicate deliveries are processed again.
func NewBillingService(users UserStore, provider payment.Provider, markers EventMarker, cfg config.PaymentConfig, membership config.MembershipConfig, m *metrics.Metrics, log zerolog.Logger) *BillingService {
	return &BillingService{
		users:    users,
		provider: provider,
		markers:  markers,
		cfg:      cfg,
		duration: membership.Duration,
		metrics:  m,
		log:      log,
		now:      time.Now,
	}
}

type CheckoutResult struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

type WebhookResult struct {
	EventID          string
	EventType        string
	Duplicate        bool
	UserID           string
	MembershipExpiry *time.Time
}

func (s *BillingService) InitiateCheckout(ctx context.Context, user *models.User, locale string) (CheckoutResult, error) {
	if err := Authorize(user); err != nil {
		return CheckoutResult{}, err
	}
	if s.provider == nil {
		return CheckoutResult{}, apperr.New(apperr.KindUnavailable, apperr.MsgPaymentUnavailable)
	}

	lang := i18n.Normalize(locale)
	if lang == "" {
		lang = i18n.LangEN
	}
	base := strings.TrimSuffix(s.cfg.AppURL, "/") + "/" + lang + "/membership"
	session, err := s.provider.CreateCheckout(ctx, payment.CheckoutRequest{
		UserID:      user.ID,
		Email:       user.Email,
		AmountCents: s.cfg.PriceCents,
		Currency:    s.cfg.Currency,
		ProductName: s.cfg.ProductName,
		Description: s.cfg.ProductDescription,
		SuccessURL:  base + "?success=true",
		CancelURL:   base + "?canceled=true",
		Metadata: map[string]string{
			"userId": user.ID,
			"type":   membershipProductType,
		},
	})
	if err != nil {
		return CheckoutResult{}, apperr.Internal(fmt.Errorf("create checkout: %w", err))
	}

	s.log.Info().Str("user_id", user.ID).Str("checkout_session", session.ID).Msg("checkout session created")
	return CheckoutResult{SessionID: session.ID, URL: session.URL}, nil
}

// HandleWebhook verifies and applies a provider notification. Nothing is
// written unless the signature checks out.
func (s *BillingService) HandleWebhook(ctx context.Context, payload []byte, signature string) (WebhookResult, error) {
	ctx, span := otel.Tracer("couponme/api/billing").Start(ctx, "billing.webhook")
	defer span.End()

	if s.provider == nil {
		return WebhookResult{}, apperr.New(apperr.KindUnavailable, apperr.MsgPaymentUnavailable)
	}
	if strings.TrimSpace(signature) == "" {
		s.metrics.WebhookEvent("unknown", "invalid_signature")
		return WebhookResult{}, apperr.Wrap(apperr.KindInvalidSignature, apperr.MsgInvalidSignature, payment.ErrMissingSignature)
	}

	event, err := s.provider.ConstructEvent(payload, signature)
	if errors.Is(err, payment.ErrWebhookNotConfigured) {
		span.SetStatus(codes.Error, "webhook secret not configured")
		s.log.Error().Err(err).Msg("webhook received without a signing secret")
		return WebhookResult{}, apperr.Wrap(apperr.KindUnavailable, apperr.MsgPaymentUnavailable, err)
	}
	if err != nil {
		s.metrics.WebhookEvent("unknown", "invalid_signature")
		span.SetStatus(codes.Error, "signature verification failed")
		s.log.Warn().Err(err).Msg("webhook signature rejected")
		return WebhookResult{}, apperr.Wrap(apperr.KindInvalidSignature, apperr.MsgInvalidSignature, err)
	}
	span.SetAttributes(
		attribute.String("payment.event_id", event.ID),
		attribute.String("payment.event_type", event.Type),
	)

	result := WebhookResult{EventID: event.ID, EventType: event.Type}
	if event.Type != payment.EventCheckoutCompleted {
		s.metrics.WebhookEvent(event.Type, "ignored")
		s.log.Debug().Str("event_id", event.ID).Str("event_type", event.Type).Msg("webhook event ignored")
		return result, nil
	}

	userID := extractUserID(event.Object)
	if userID == "" {
		s.metrics.WebhookEvent(event.Type, "rejected")
		return result, apperr.New(apperr.KindValidation, apperr.MsgMissingUserID)
	}
	result.UserID = userID

	claimed, err := s.claim(ctx, event.ID)
	if err != nil {
		return result, err
	}
	if !claimed {
		result.Duplicate = true
		s.metrics.WebhookEvent(event.Type, "duplicate")
		s.log.Info().Str("event_id", event.ID).Str("user_id", userID).Msg("duplicate webhook event acknowledged")
		return result, nil
	}

	expiry := s.now().UTC().Add(s.duration)
	if err := s.users.SetMembershipExpiry(ctx, userID, expiry); err != nil {
		s.release(ctx, event.ID)
		s.metrics.WebhookEvent(event.Type, "failed")
		span.SetStatus(codes.Error, "membership update failed")
		if errors.Is(err, repository.ErrUserNotFound) {
			return result, apperr.NotFound(apperr.MsgUserNotFound)
		}
		return result, apperr.Internal(fmt.Errorf("activate membership: %w", err))
	}

	result.MembershipExpiry = &expiry
	s.metrics.WebhookEvent(event.Type, "processed")
	s.metrics.MembershipActivated()
	s.log.Info().
		Str("event_id", event.ID).
		Str("user_id", userID).
		Time("membership_expiry", expiry).
		Msg("membership activated")
	return result, nil
}

func (s *BillingService) claim(ctx context.Context, eventID string) (bool, error) {
	if s.markers == nil || eventID == "" {
		return true, nil
	}
	claimed, err := s.markers.Claim(ctx, eventID)
	if err != nil {
		return false, apperr.Internal(fmt.Errorf("claim webhook event: %w", err))
	}
	return claimed, nil
}

func (s *BillingService) release(ctx context.Context, eventID string) {
	if s.markers == nil || eventID == "" {
		return
	}
	if err := s.markers.Release(ctx, eventID); err != nil {
		s.log.Warn().Err(err).Str("event_id", eventID).Msg("release webhook marker failed")
	}
}

func extractUserID(object []byte) string {
	if id := gjson.GetBytes(object, "metadata.userId").String(); id != "" {
		return id
	}
	return gjson.GetBytes(object, "client_reference_id").String()
}
