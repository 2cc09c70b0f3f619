package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"pulgax-store/internal/models"
	"pulgax-store/internal/repository"
)

type ContactService struct {
	messages repository.MessageRepository
	logger   *logrus.Entry
	now      func() time.Time
}

func NewContactService(messages repository.MessageRepository, logger *logrus.Entry) *ContactService {
	return &ContactService{
		messages: messages,
		logger:   logger.WithField("component", "contact_service"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *ContactService) Submit(ctx context.Context, req models.ContactRequest) (*models.ContactMessage, error) {
	msg := &models.ContactMessage{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(req.Name),
		Email:     strings.TrimSpace(req.Email),
		Phone:     strings.TrimSpace(req.Phone),
		Subject:   strings.TrimSpace(req.Subject),
		Message:   req.Message,
		CreatedAt: s.now(),
	}
	if err := s.messages.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}
	s.logger.WithField("message_id", msg.ID).Info("Contact message received")
	return msg, nil
}

func (s *ContactService) List(ctx context.Context) ([]models.ContactMessage, error) {
	return s.messages.ListMessages(ctx)
}

func (s *ContactService) MarkRead(ctx context.Context, id string) error {
	return s.messages.MarkMessageRead(ctx, id)
}

func (s *ContactService) Delete(ctx context.Context, id string) error {
	return s.messages.DeleteMessage(ctx, id)
}
