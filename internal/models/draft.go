package models

import "time"

// IngestionMethod enumerates how evidence enters the platform.
type IngestionMethod string

const (
	MethodManualEntry    IngestionMethod = "MANUAL_ENTRY"
	MethodFileUpload     IngestionMethod = "FILE_UPLOAD"
	MethodERPExport      IngestionMethod = "ERP_EXPORT"
	MethodERPAPI         IngestionMethod = "ERP_API"
	MethodAPIPush        IngestionMethod = "API_PUSH"
	MethodSupplierPortal IngestionMethod = "SUPPLIER_PORTAL"
)

// IngestionMethods lists every supported method.
var IngestionMethods = []IngestionMethod{
	MethodManualEntry,
	MethodFileUpload,
	MethodERPExport,
	MethodERPAPI,
	MethodAPIPush,
	MethodSupplierPortal,
}

// DatasetType enumerates the regulatory dataset categories.
type DatasetType string

const (
	DatasetSupplierMaster DatasetType = "SUPPLIER_MASTER"
	DatasetProductMaster  DatasetType = "PRODUCT_MASTER"
	DatasetBOM            DatasetType = "BOM"
	DatasetEmissionsData  DatasetType = "EMISSIONS_DATA"
	DatasetTransaction    DatasetType = "TRANSACTION"
	DatasetOther          DatasetType = "OTHER"
)

// DatasetTypes lists every supported dataset type.
var DatasetTypes = []DatasetType{
	DatasetSupplierMaster,
	DatasetProductMaster,
	DatasetBOM,
	DatasetEmissionsData,
	DatasetTransaction,
	DatasetOther,
}

// DeclaredScope enumerates the organizational reach a draft declares.
type DeclaredScope string

const (
	ScopeEntireOrganization DeclaredScope = "ENTIRE_ORGANIZATION"
	ScopeLegalEntity        DeclaredScope = "LEGAL_ENTITY"
	ScopeSite               DeclaredScope = "SITE"
	ScopeProductFamily      DeclaredScope = "PRODUCT_FAMILY"
	ScopeUnknown            DeclaredScope = "UNKNOWN"
)

// DeclaredScopes lists every supported scope.
var DeclaredScopes = []DeclaredScope{
	ScopeEntireOrganization,
	ScopeLegalEntity,
	ScopeSite,
	ScopeProductFamily,
	ScopeUnknown,
}

// DraftStatus captures the draft lifecycle.
type DraftStatus string

const (
	DraftStatusDraft       DraftStatus = "DRAFT"
	DraftStatusSealed      DraftStatus = "SEALED"
	DraftStatusQuarantined DraftStatus = "QUARANTINED"
)

// RetentionPolicy defines how long sealed evidence is kept. Retention ends
// are derived with calendar arithmetic from the seal instant; a raw duration
// is never stored.
type RetentionPolicy string

const (
	Retention1Y  RetentionPolicy = "RETENTION_1Y"
	Retention3Y  RetentionPolicy = "RETENTION_3Y"
	Retention5Y  RetentionPolicy = "RETENTION_5Y"
	Retention10Y RetentionPolicy = "RETENTION_10Y"
)

// RetentionPolicies lists every supported policy.
var RetentionPolicies = []RetentionPolicy{Retention1Y, Retention3Y, Retention5Y, Retention10Y}

// Years returns the retention span in calendar years.
func (p RetentionPolicy) Years() int {
	switch p {
	case Retention1Y:
		return 1
	case Retention3Y:
		return 3
	case Retention5Y:
		return 5
	case Retention10Y:
		return 10
	default:
		return 0
	}
}

// Draft is a mutable, tenant-scoped proposal to ingest evidence. The binding
// fields (method, dataset type, declared scope, scope target) are fixed at
// creation; every other field may change until the draft is sealed.
type Draft struct {
	ID                  string          `db:"id" json:"draft_id"`
	TenantID            string          `db:"tenant_id" json:"tenant_id"`
	IngestionMethod     IngestionMethod `db:"ingestion_method" json:"ingestion_method"`
	SourceSystem        string          `db:"source_system" json:"source_system"`
	DatasetType         DatasetType     `db:"dataset_type" json:"dataset_type"`
	DeclaredScope       DeclaredScope   `db:"declared_scope" json:"declared_scope"`
	ScopeTargetID       *string         `db:"scope_target_id" json:"scope_target_id,omitempty"`
	Rationale           string          `db:"rationale" json:"rationale"`
	PurposeTags         StringSlice     `db:"purpose_tags" json:"purpose_tags"`
	RetentionPolicy     RetentionPolicy `db:"retention_policy" json:"retention_policy"`
	ContainsPersonal    bool            `db:"contains_personal_data" json:"contains_personal_data"`
	LegalBasis          *string         `db:"legal_basis" json:"legal_basis,omitempty"`
	QuarantineReason    *string         `db:"quarantine_reason" json:"quarantine_reason,omitempty"`
	ResolutionDueDate   *time.Time      `db:"resolution_due_date" json:"resolution_due_date,omitempty"`
	Payload             []byte          `db:"payload" json:"payload,omitempty"`
	ExternalReferenceID *string         `db:"external_reference_id" json:"external_reference_id,omitempty"`
	SnapshotTimestamp   *time.Time      `db:"snapshot_timestamp" json:"snapshot_timestamp,omitempty"`
	Status              DraftStatus     `db:"status" json:"status"`
	CreatedAt           time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time       `db:"updated_at" json:"updated_at"`
}

// Attachment belongs to exactly one draft. ContentHash is computed by the
// server while the upload streams in; a caller-declared hash is never trusted.
type Attachment struct {
	ID          string    `db:"id" json:"attachment_id"`
	TenantID    string    `db:"tenant_id" json:"tenant_id"`
	DraftID     string    `db:"draft_id" json:"draft_id"`
	Filename    string    `db:"filename" json:"filename"`
	SizeBytes   int64     `db:"size_bytes" json:"size_bytes"`
	ContentType string    `db:"content_type" json:"content_type"`
	ContentHash *string   `db:"content_hash" json:"content_hash,omitempty"`
	StorageRef  string    `db:"storage_ref" json:"storage_ref"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
