package inquiry

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	domartwork "example.com/gallery-storefront/app/internal/domain/artwork"
	dominquiry "example.com/gallery-storefront/app/internal/domain/inquiry"
	domnotification "example.com/gallery-storefront/app/internal/domain/notification"
)

type ArtworkRepository interface {
	GetByID(ctx context.Context, id int64) (*domartwork.Artwork, error)
}

type Service struct {
	repo      dominquiry.Repository
	artworks  ArtworkRepository
	publisher domnotification.Publisher
	log       logrus.FieldLogger
}

func NewService(repo dominquiry.Repository, artworks ArtworkRepository, publisher domnotification.Publisher, log logrus.FieldLogger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{
		repo:      repo,
		artworks:  artworks,
		publisher: publisher,
		log:       log,
	}
}

func (s *Service) Submit(ctx context.Context, in *dominquiry.Inquiry) (*dominquiry.Inquiry, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Subject = strings.TrimSpace(in.Subject)
	in.Message = strings.TrimSpace(in.Message)
	if in.Name == "" || in.Message == "" {
		return nil, dominquiry.ErrInvalidInquiry
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return nil, dominquiry.ErrInvalidInquiry
	}

	if in.ArtworkID != nil {
		a, err := s.artworks.GetByID(ctx, *in.ArtworkID)
		if err != nil {
			return nil, err
		}
		if in.Subject == "" {
			in.Subject = "Enquiry about " + a.Title
		}
	}
	if in.Subject == "" {
		in.Subject = "General enquiry"
	}
	in.Status = dominquiry.StatusNew

	created, err := s.repo.Create(ctx, in)
	if err != nil {
		return nil, err
	}

	if s.publisher != nil {
		evt := domnotification.Event{Kind: domnotification.KindInquiryReceived, InquiryID: created.ID, OccurredAt: time.Now().UTC()}
		if err := s.publisher.Publish(ctx, evt); err != nil {
			s.log.WithError(err).WithField("inquiry_id", created.ID).Error("failed to publish notification")
		}
	}
	return created, nil
}

func (s *Service) List(ctx context.Context, filter dominquiry.ListFilter) ([]*dominquiry.Inquiry, error) {
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, dominquiry.ErrInvalidStatus
	}
	return s.repo.List(ctx, filter)
}

func (s *Service) GetByID(ctx context.Context, id int64) (*dominquiry.Inquiry, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) UpdateStatus(ctx context.Context, id int64, status dominquiry.Status) (*dominquiry.Inquiry, error) {
	if !status.IsValid() {
		return nil, dominquiry.ErrInvalidStatus
	}
	return s.repo.UpdateStatus(ctx, id, status)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}
