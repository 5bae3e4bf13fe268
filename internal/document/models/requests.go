package models

import (
	"time"

	dErrors "fleetdocs/pkg/domain-errors"
)

// UploadGrantRequest is the client payload asking for a write grant.
type UploadGrantRequest struct {
	DocumentType string `json:"documentType"`
	FileName     string `json:"fileName"`
	ContentType  string `json:"contentType"`
	FileSize     int64  `json:"fileSize,omitempty"`
}

// Validate checks required fields and the declared size ceiling.
func (r UploadGrantRequest) Validate(maxBytes int64) error {
	if _, err := ParseDocumentType(r.DocumentType); err != nil {
		return err
	}
	if r.FileName == "" {
		return dErrors.New(dErrors.CodeBadRequest, "fileName is required")
	}
	if r.ContentType == "" {
		return dErrors.New(dErrors.CodeBadRequest, "contentType is required")
	}
	if r.FileSize < 0 {
		return dErrors.New(dErrors.CodeBadRequest, "fileSize must not be negative")
	}
	if maxBytes > 0 && r.FileSize > maxBytes {
		return dErrors.New(dErrors.CodeBadRequest, "declared file size exceeds the upload ceiling")
	}
	return nil
}

// ReviewRequest is the admin payload for the review operation. Dates use the
// wire format YYYY-MM-DD.
type ReviewRequest struct {
	Status           string  `json:"status"`
	RejectionReason  *string `json:"rejectionReason,omitempty"`
	Notes            *string `json:"notes,omitempty"`
	DocumentNumber   *string `json:"documentNumber,omitempty"`
	IssuingAuthority *string `json:"issuingAuthority,omitempty"`
	IssueDate        *string `json:"issueDate,omitempty"`
	ExpiryDate       *string `json:"expiryDate,omitempty"`
}

const dateFormat = "2006-01-02"

// Fields converts the wire payload into domain review fields.
func (r ReviewRequest) Fields() (DocumentStatus, ReviewFields, error) {
	status := DocumentStatus(r.Status)
	fields := ReviewFields{
		RejectionReason:  r.RejectionReason,
		Notes:            r.Notes,
		DocumentNumber:   r.DocumentNumber,
		IssuingAuthority: r.IssuingAuthority,
	}
	var err error
	if fields.IssueDate, err = parseDate(r.IssueDate, "issueDate"); err != nil {
		return "", ReviewFields{}, err
	}
	if fields.ExpiryDate, err = parseDate(r.ExpiryDate, "expiryDate"); err != nil {
		return "", ReviewFields{}, err
	}
	return status, fields, nil
}

func parseDate(raw *string, field string) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateFormat, *raw)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, field+" must use format YYYY-MM-DD")
	}
	return &t, nil
}
