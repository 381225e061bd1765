package models

import "time"

// ProfileStatus marks whether an ingestion profile is usable.
type ProfileStatus string

const (
	ProfileActive  ProfileStatus = "ACTIVE"
	ProfileExpired ProfileStatus = "EXPIRED"
)

// IngestionProfile is the external contract deciding whether a tenant may
// ingest a given dataset type at all. The kernel only ever reads it.
type IngestionProfile struct {
	ID            string        `db:"id" json:"id"`
	TenantID      string        `db:"tenant_id" json:"tenant_id"`
	DatasetType   DatasetType   `db:"dataset_type" json:"dataset_type"`
	Status        ProfileStatus `db:"status" json:"status"`
	EntityType    string        `db:"entity_type" json:"entity_type"`
	IngestionPath string        `db:"ingestion_path" json:"ingestion_path"`
	AuthorityType string        `db:"authority_type" json:"authority_type"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	ExpiresAt     *time.Time    `db:"expires_at" json:"expires_at,omitempty"`
}
