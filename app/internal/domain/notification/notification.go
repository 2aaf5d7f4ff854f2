package notification

import (
	"context"
	"time"
)

type Kind string

const (
	KindOrderPaid       Kind = "order.paid"
	KindOrderShipped    Kind = "order.shipped"
	KindOrderCancelled  Kind = "order.cancelled"
	KindInquiryReceived Kind = "inquiry.received"
)

func (k Kind) IsValid() bool {
	switch k {
	case KindOrderPaid, KindOrderShipped, KindOrderCancelled, KindInquiryReceived:
		return true
	default:
		return false
	}
}

// Event references the aggregate by id; handlers reload it.
type Event struct {
	Kind       Kind      `json:"kind"`
	OrderID    int64     `json:"order_id,omitempty"`
	InquiryID  int64     `json:"inquiry_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

type Attachment struct {
	FileName    string
	ContentType string
	Data        []byte
}

type Message struct {
	To          []string
	ReplyTo     string
	Subject     string
	Body        string
	Attachments []Attachment
}
