package models

import (
	"time"

	id "fleetdocs/pkg/domain"
	dErrors "fleetdocs/pkg/domain-errors"
)

// DocumentType is the fixed enumeration of compliance artifacts a driver can
// submit. The set is closed; unknown types are rejected at the boundary.
type DocumentType string

const (
	TypeLicense             DocumentType = "license"
	TypeLicenseBack         DocumentType = "license_back"
	TypeInsurance           DocumentType = "insurance"
	TypeRegistration        DocumentType = "registration"
	TypeInspection          DocumentType = "inspection"
	TypeProfilePhoto        DocumentType = "profile_photo"
	TypeVehicleRegistration DocumentType = "vehicle_registration"
	TypeVehicleInsurance    DocumentType = "vehicle_insurance"
	TypeBackgroundCheck     DocumentType = "background_check"
	TypeVehiclePhoto        DocumentType = "vehicle_photo"
	TypeProofOfAddress      DocumentType = "proof_of_address"
)

// DocumentCategory groups types for reporting. Derived from the type, never
// stored independently by callers.
type DocumentCategory string

const (
	CategoryIdentity   DocumentCategory = "identity"
	CategoryVehicle    DocumentCategory = "vehicle"
	CategoryCompliance DocumentCategory = "compliance"
)

var documentCategories = map[DocumentType]DocumentCategory{
	TypeLicense:             CategoryIdentity,
	TypeLicenseBack:         CategoryIdentity,
	TypeProfilePhoto:        CategoryIdentity,
	TypeProofOfAddress:      CategoryIdentity,
	TypeInsurance:           CategoryVehicle,
	TypeRegistration:        CategoryVehicle,
	TypeInspection:          CategoryVehicle,
	TypeVehicleRegistration: CategoryVehicle,
	TypeVehicleInsurance:    CategoryVehicle,
	TypeVehiclePhoto:        CategoryVehicle,
	TypeBackgroundCheck:     CategoryCompliance,
}

// Valid reports whether t belongs to the fixed enumeration.
func (t DocumentType) Valid() bool {
	_, ok := documentCategories[t]
	return ok
}

// Category returns the derived category for a valid type.
func (t DocumentType) Category() DocumentCategory {
	return documentCategories[t]
}

// ParseDocumentType validates a raw string into a DocumentType.
func ParseDocumentType(s string) (DocumentType, error) {
	t := DocumentType(s)
	if !t.Valid() {
		return "", dErrors.New(dErrors.CodeBadRequest, "invalid document type: "+s)
	}
	return t, nil
}

// DocumentStatus is the document lifecycle state. Every mutator consults the
// single transition table below; no handler compares status strings directly.
type DocumentStatus string

const (
	StatusPending     DocumentStatus = "pending"
	StatusUnderReview DocumentStatus = "under_review"
	StatusProcessing  DocumentStatus = "processing"
	StatusApproved    DocumentStatus = "approved"
	StatusRejected    DocumentStatus = "rejected"
	StatusExpired     DocumentStatus = "expired"
)

// statusTransitions is the one transition table. pending, under_review and
// processing are interchangeable "not yet finalized" states; approved can only
// expire; rejected and expired are terminal (a driver submits a new document
// instead of resurrecting an old one).
var statusTransitions = map[DocumentStatus][]DocumentStatus{
	StatusPending:     {StatusUnderReview, StatusProcessing, StatusApproved, StatusRejected},
	StatusUnderReview: {StatusPending, StatusProcessing, StatusApproved, StatusRejected},
	StatusProcessing:  {StatusPending, StatusUnderReview, StatusApproved, StatusRejected},
	StatusApproved:    {StatusExpired},
	StatusRejected:    {},
	StatusExpired:     {},
}

// Valid reports whether s is a known lifecycle state.
func (s DocumentStatus) Valid() bool {
	_, ok := statusTransitions[s]
	return ok
}

// CanTransitionTo reports whether the lifecycle permits moving to target.
func (s DocumentStatus) CanTransitionTo(target DocumentStatus) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// CountsTowardCompleteness reports whether a document in this status
// satisfies its required type for the verification aggregate. Only approved
// counts; rejected and expired count the same as missing.
func (s DocumentStatus) CountsTowardCompleteness() bool {
	return s == StatusApproved
}

// DriverDocument is the canonical record of one submitted compliance
// artifact.
//
// Invariants:
//   - RejectionReason is non-nil if and only if Status is rejected
//   - ReviewedBy/ReviewedAt are set only on transition to approved/rejected
//   - Status moves only along statusTransitions; nothing leaves expired
//   - ExpiryDate, once set, changes only through the review operation
type DriverDocument struct {
	ID       id.DocumentID `json:"id"`
	DriverID id.DriverID   `json:"driver_id"`

	Type     DocumentType     `json:"document_type"`
	Category DocumentCategory `json:"document_category"`
	Status   DocumentStatus   `json:"status"`

	// Storage reference. Opaque to the core; only the gateway dereferences it
	// to build access grants.
	StorageKey  string `json:"storage_key"`
	Bucket      string `json:"bucket,omitempty"`
	FileName    string `json:"file_name"`
	FileSize    int64  `json:"file_size,omitempty"`
	ContentType string `json:"content_type"`

	// Verification metadata, settable only during review.
	DocumentNumber   *string    `json:"document_number,omitempty"`
	IssuingAuthority *string    `json:"issuing_authority,omitempty"`
	IssueDate        *time.Time `json:"issue_date,omitempty"`
	ExpiryDate       *time.Time `json:"expiry_date,omitempty"`

	ReviewedBy      *id.UserID `json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time `json:"reviewed_at,omitempty"`
	RejectionReason *string    `json:"rejection_reason,omitempty"`
	Notes           *string    `json:"notes,omitempty"`

	ExpirationNotifiedAt *time.Time `json:"expiration_notified_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewPendingDocument constructs the registry row created alongside an upload
// grant.
func NewPendingDocument(docID id.DocumentID, driverID id.DriverID, docType DocumentType,
	storageKey, bucket, fileName, contentType string, fileSize int64, now time.Time) (*DriverDocument, error) {

	if !docType.Valid() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "invalid document type: "+string(docType))
	}
	if fileName == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "file name is required")
	}
	if contentType == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "content type is required")
	}
	if storageKey == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "storage key is required")
	}
	return &DriverDocument{
		ID:          docID,
		DriverID:    driverID,
		Type:        docType,
		Category:    docType.Category(),
		Status:      StatusPending,
		StorageKey:  storageKey,
		Bucket:      bucket,
		FileName:    fileName,
		FileSize:    fileSize,
		ContentType: contentType,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// ReviewFields carries the optional metadata an admin may supply during
// review. Nil fields keep the existing stored value.
type ReviewFields struct {
	RejectionReason  *string
	Notes            *string
	DocumentNumber   *string
	IssuingAuthority *string
	IssueDate        *time.Time
	ExpiryDate       *time.Time
}

// reviewTargets are the statuses the review operation may set. under_review
// is reachable through the same table but is not an admin decision here.
var reviewTargets = map[DocumentStatus]bool{
	StatusPending:    true,
	StatusProcessing: true,
	StatusApproved:   true,
	StatusRejected:   true,
}

// CanReview validates a review transition without mutating the document.
func (d *DriverDocument) CanReview(target DocumentStatus, fields ReviewFields) error {
	if !reviewTargets[target] {
		return dErrors.New(dErrors.CodeBadRequest, "status must be one of approved, rejected, pending, processing")
	}
	if target == StatusRejected && (fields.RejectionReason == nil || *fields.RejectionReason == "") {
		return dErrors.New(dErrors.CodeBadRequest, "rejection reason is required when rejecting")
	}
	if !d.Status.CanTransitionTo(target) {
		return dErrors.New(dErrors.CodeInvariantViolation,
			"document in status "+string(d.Status)+" cannot move to "+string(target))
	}
	return nil
}

// ApplyReview performs the transition. Call CanReview first; this method
// assumes the transition is legal.
func (d *DriverDocument) ApplyReview(reviewer id.UserID, target DocumentStatus, fields ReviewFields, now time.Time) {
	d.Status = target

	// Reviewer identity only marks final decisions, not queue shuffling.
	if target == StatusApproved || target == StatusRejected {
		d.ReviewedBy = &reviewer
		d.ReviewedAt = &now
	}
	if target == StatusRejected {
		d.RejectionReason = fields.RejectionReason
	} else {
		d.RejectionReason = nil
	}

	if fields.Notes != nil {
		d.Notes = fields.Notes
	}
	if fields.DocumentNumber != nil {
		d.DocumentNumber = fields.DocumentNumber
	}
	if fields.IssuingAuthority != nil {
		d.IssuingAuthority = fields.IssuingAuthority
	}
	if fields.IssueDate != nil {
		d.IssueDate = fields.IssueDate
	}
	if fields.ExpiryDate != nil {
		d.ExpiryDate = fields.ExpiryDate
	}

	d.UpdatedAt = now
}

// CanExpire checks the sweeper's demotion precondition: an approved document
// whose expiry date has passed.
func (d *DriverDocument) CanExpire(today time.Time) error {
	if !d.Status.CanTransitionTo(StatusExpired) {
		return dErrors.New(dErrors.CodeInvariantViolation, "only approved documents can expire")
	}
	if d.ExpiryDate == nil || !d.ExpiryDate.Before(today) {
		return dErrors.New(dErrors.CodeInvariantViolation, "document is not past its expiry date")
	}
	return nil
}

// ApplyExpiry demotes the document. Call CanExpire first.
func (d *DriverDocument) ApplyExpiry(now time.Time) {
	d.Status = StatusExpired
	d.UpdatedAt = now
}

// MarkExpirationNotified stamps the near-expiry notification. The stamp is
// set at most once; a second call reports the violation so callers never
// double-notify.
func (d *DriverDocument) MarkExpirationNotified(now time.Time) error {
	if d.ExpirationNotifiedAt != nil {
		return dErrors.New(dErrors.CodeInvariantViolation, "expiration already notified")
	}
	d.ExpirationNotifiedAt = &now
	d.UpdatedAt = now
	return nil
}

// CheckInvariants verifies the stored-record invariants. Stores run this
// before persisting so a broken record never reaches the table.
func (d *DriverDocument) CheckInvariants() error {
	if (d.Status == StatusRejected) != (d.RejectionReason != nil && *d.RejectionReason != "") {
		return dErrors.New(dErrors.CodeInvariantViolation, "rejection reason must be set exactly when status is rejected")
	}
	if !d.Status.Valid() {
		return dErrors.New(dErrors.CodeInvariantViolation, "unknown document status: "+string(d.Status))
	}
	if !d.Type.Valid() {
		return dErrors.New(dErrors.CodeInvariantViolation, "unknown document type: "+string(d.Type))
	}
	return nil
}
