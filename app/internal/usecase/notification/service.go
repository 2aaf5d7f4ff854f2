package notification

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	dominquiry "example.com/gallery-storefront/app/internal/domain/inquiry"
	domnotification "example.com/gallery-storefront/app/internal/domain/notification"
	domorder "example.com/gallery-storefront/app/internal/domain/order"
)

type OrderRepository interface {
	GetByID(ctx context.Context, id int64) (*domorder.Order, error)
}

type InquiryRepository interface {
	GetByID(ctx context.Context, id int64) (*dominquiry.Inquiry, error)
}

type Mailer interface {
	Send(ctx context.Context, msg domnotification.Message) error
}

// Renderer turns a named template and its data into a subject and body.
type Renderer interface {
	Render(name string, data any) (subject string, body string, err error)
}

type InvoiceRenderer interface {
	Render(o *domorder.Order) ([]byte, error)
}

type Metrics interface {
	NotificationSent(kind, outcome string)
}

// MailData is what every template receives.
type MailData struct {
	Order   *domorder.Order
	Inquiry *dominquiry.Inquiry
}

const (
	TemplateOrderPaid      = "order_paid"
	TemplateOrderPaidAdmin = "order_paid_admin"
	TemplateOrderShipped   = "order_shipped"
	TemplateOrderCancelled = "order_cancelled"
	TemplateInquiryAdmin   = "inquiry_admin"
	TemplateInquiryAck     = "inquiry_ack"
)

type Options struct {
	AdminEmail string
	Invoices   InvoiceRenderer
	Logger     logrus.FieldLogger
	Metrics    Metrics
}

type Service struct {
	orders     OrderRepository
	inquiries  InquiryRepository
	mailer     Mailer
	renderer   Renderer
	invoices   InvoiceRenderer
	adminEmail string
	metrics    Metrics
	log        logrus.FieldLogger
}

func NewService(orders OrderRepository, inquiries InquiryRepository, mailer Mailer, renderer Renderer, opts Options) *Service {
	s := &Service{
		orders:     orders,
		inquiries:  inquiries,
		mailer:     mailer,
		renderer:   renderer,
		invoices:   opts.Invoices,
		adminEmail: opts.AdminEmail,
		metrics:    opts.Metrics,
		log:        opts.Logger,
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	return s
}

// Handle reloads the aggregate an event points at and sends the matching emails.
func (s *Service) Handle(ctx context.Context, evt domnotification.Event) error {
	err := s.handle(ctx, evt)
	outcome := "sent"
	if err != nil {
		outcome = "failed"
		s.log.WithError(err).WithFields(logrus.Fields{
			"kind":       evt.Kind,
			"order_id":   evt.OrderID,
			"inquiry_id": evt.InquiryID,
		}).Error("notification failed")
	}
	if s.metrics != nil {
		s.metrics.NotificationSent(string(evt.Kind), outcome)
	}
	return err
}

func (s *Service) handle(ctx context.Context, evt domnotification.Event) error {
	switch evt.Kind {
	case domnotification.KindOrderPaid:
		o, err := s.orders.GetByID(ctx, evt.OrderID)
		if err != nil {
			return err
		}
		data := MailData{Order: o}
		msg, err := s.compose(TemplateOrderPaid, data, o.Shipping.Email)
		if err != nil {
			return err
		}
		if s.invoices != nil {
			pdf, err := s.invoices.Render(o)
			if err != nil {
				return fmt.Errorf("render invoice: %w", err)
			}
			msg.Attachments = append(msg.Attachments, domnotification.Attachment{
				FileName:    "invoice-" + o.Reference + ".pdf",
				ContentType: "application/pdf",
				Data:        pdf,
			})
		}
		if err := s.mailer.Send(ctx, msg); err != nil {
			return err
		}
		// the buyer already has their confirmation; failing here would
		// redeliver the event and send it twice
		if err := s.notifyAdmin(ctx, TemplateOrderPaidAdmin, data, ""); err != nil {
			s.log.WithError(err).WithField("order_id", o.ID).Warn("admin sale notice failed")
		}
		return nil

	case domnotification.KindOrderShipped, domnotification.KindOrderCancelled:
		o, err := s.orders.GetByID(ctx, evt.OrderID)
		if err != nil {
			return err
		}
		name := TemplateOrderShipped
		if evt.Kind == domnotification.KindOrderCancelled {
			name = TemplateOrderCancelled
		}
		msg, err := s.compose(name, MailData{Order: o}, o.Shipping.Email)
		if err != nil {
			return err
		}
		return s.mailer.Send(ctx, msg)

	case domnotification.KindInquiryReceived:
		in, err := s.inquiries.GetByID(ctx, evt.InquiryID)
		if err != nil {
			return err
		}
		data := MailData{Inquiry: in}
		if err := s.notifyAdmin(ctx, TemplateInquiryAdmin, data, in.Email); err != nil {
			return err
		}
		msg, err := s.compose(TemplateInquiryAck, data, in.Email)
		if err != nil {
			return err
		}
		return s.mailer.Send(ctx, msg)
	}

	return domnotification.ErrUnknownKind
}

func (s *Service) notifyAdmin(ctx context.Context, name string, data MailData, replyTo string) error {
	if s.adminEmail == "" {
		return nil
	}
	msg, err := s.compose(name, data, s.adminEmail)
	if err != nil {
		return err
	}
	msg.ReplyTo = replyTo
	return s.mailer.Send(ctx, msg)
}

func (s *Service) compose(name string, data MailData, to string) (domnotification.Message, error) {
	if to == "" {
		return domnotification.Message{}, fmt.Errorf("%s: no recipient", name)
	}
	subject, body, err := s.renderer.Render(name, data)
	if err != nil {
		return domnotification.Message{}, fmt.Errorf("render %s: %w", name, err)
	}
	return domnotification.Message{To: []string{to}, Subject: subject, Body: body}, nil
}
