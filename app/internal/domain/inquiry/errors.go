package inquiry

import "errors"

var (
	ErrInquiryNotFound = errors.New("inquiry not found")
	ErrInvalidStatus   = errors.New("invalid inquiry status")
	ErrInvalidInquiry  = errors.New("inquiry requires name, email and message")
)
