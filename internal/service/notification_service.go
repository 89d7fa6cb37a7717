package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/merrykids-api/internal/models"
	"github.com/noah-isme/merrykids-api/pkg/jobs"
	"github.com/noah-isme/merrykids-api/pkg/mail"
)

const (
	jobWelcomeEmail = "welcome_email"
	jobResetEmail   = "password_reset_email"
)

// NotificationConfig configures outbound email.
type NotificationConfig struct {
	FrontendURL string
	ResetTTL    time.Duration
	Queue       *jobs.QueueConfig
}

// NotificationService renders transactional email and hands it to a worker
// queue. Delivery failures are retried by the queue and never reach callers.
type NotificationService struct {
	sender      mail.Sender
	queue       *jobs.Queue
	frontendURL string
	resetTTL    time.Duration
	metrics     *MetricsService
	logger      *zap.Logger
}

// NewNotificationService builds the service. Without a queue config messages are sent inline.
func NewNotificationService(sender mail.Sender, cfg NotificationConfig, metrics *MetricsService, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResetTTL <= 0 {
		cfg.ResetTTL = 30 * time.Minute
	}
	s := &NotificationService{
		sender:      sender,
		frontendURL: strings.TrimRight(cfg.FrontendURL, "/"),
		resetTTL:    cfg.ResetTTL,
		metrics:     metrics,
		logger:      logger,
	}
	if cfg.Queue != nil {
		qc := *cfg.Queue
		if qc.Logger == nil {
			qc.Logger = logger
		}
		s.queue = jobs.NewQueue("mail", s.deliver, qc)
	}
	return s
}

// Start launches delivery workers.
func (s *NotificationService) Start(ctx context.Context) {
	if s.queue != nil {
		s.queue.Start(ctx)
	}
}

// Stop drains queued messages.
func (s *NotificationService) Stop() {
	if s.queue != nil {
		s.queue.Stop()
	}
}

// SendWelcome emails a new account holder their temporary password.
func (s *NotificationService) SendWelcome(ctx context.Context, email, tempPassword string, role models.UserRole) {
	msg, err := mail.Welcome(mail.WelcomeData{
		Email:        email,
		Role:         string(role),
		TempPassword: tempPassword,
		LoginURL:     s.frontendURL + "/login",
	})
	if err != nil {
		s.logger.Error("failed to render welcome email", zap.String("email", email), zap.Error(err))
		return
	}
	s.dispatch(ctx, jobWelcomeEmail, msg)
}

// SendPasswordReset emails a reset link carrying the raw token.
func (s *NotificationService) SendPasswordReset(ctx context.Context, email, token string) {
	msg, err := mail.PasswordReset(mail.ResetData{
		Email:        email,
		ResetURL:     fmt.Sprintf("%s/reset-password?token=%s", s.frontendURL, url.QueryEscape(token)),
		ValidMinutes: int(s.resetTTL.Minutes()),
	})
	if err != nil {
		s.logger.Error("failed to render reset email", zap.String("email", email), zap.Error(err))
		return
	}
	s.dispatch(ctx, jobResetEmail, msg)
}

func (s *NotificationService) dispatch(ctx context.Context, kind string, msg mail.Message) {
	job := jobs.Job{Type: kind, Payload: msg}
	if s.queue == nil {
		if err := s.deliver(ctx, job); err != nil {
			s.logger.Error("email delivery failed", zap.String("type", kind), zap.String("to", msg.To.Address), zap.Error(err))
		}
		return
	}
	if err := s.queue.Enqueue(job); err != nil {
		s.metrics.MailDelivery(kind, false)
		s.logger.Error("failed to enqueue email", zap.String("type", kind), zap.String("to", msg.To.Address), zap.Error(err))
	}
}

func (s *NotificationService) deliver(ctx context.Context, job jobs.Job) error {
	msg, ok := job.Payload.(mail.Message)
	if !ok {
		return fmt.Errorf("unexpected payload %T", job.Payload)
	}
	err := s.sender.Send(ctx, msg)
	s.metrics.MailDelivery(job.Type, err == nil)
	return err
}
