package notification

import (
	"context"

	domnotification "example.com/gallery-storefront/app/internal/domain/notification"
)

// Inline delivers events in the caller's goroutine. It is used when no
// message broker is configured.
type Inline struct {
	svc *Service
}

func NewInline(svc *Service) *Inline {
	return &Inline{svc: svc}
}

func (p *Inline) Publish(ctx context.Context, evt domnotification.Event) error {
	if !evt.Kind.IsValid() {
		return domnotification.ErrUnknownKind
	}
	return p.svc.Handle(ctx, evt)
}
