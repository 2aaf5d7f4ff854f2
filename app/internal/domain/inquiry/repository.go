package inquiry

import "context"

type Repository interface {
	Create(ctx context.Context, in *Inquiry) (*Inquiry, error)
	GetByID(ctx context.Context, id int64) (*Inquiry, error)
	List(ctx context.Context, filter ListFilter) ([]*Inquiry, error)
	UpdateStatus(ctx context.Context, id int64, status Status) (*Inquiry, error)
	Delete(ctx context.Context, id int64) error
	CountByStatus(ctx context.Context, status Status) (int64, error)
}
