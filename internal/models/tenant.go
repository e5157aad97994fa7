package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TenantStatus string

const (
	StatusProvisioning TenantStatus = "provisioning"
	StatusActive       TenantStatus = "active"
	StatusError        TenantStatus = "error"
	StatusDeleted      TenantStatus = "deleted"
)

// DefaultRequestsPerMinute applies when a tenant has no explicit limit.
const DefaultRequestsPerMinute = 1000

type TenantConfig struct {
	ProjectID         uuid.UUID    `gorm:"type:uuid;primary_key" json:"project_id"`
	OrgID             string       `gorm:"index;not null" json:"org_id"`
	Slug              string       `gorm:"uniqueIndex;not null" json:"slug"`
	WorkerRef         string       `gorm:"not null" json:"worker_ref"`
	Status            TenantStatus `gorm:"default:'provisioning'" json:"status"`
	RequestsPerMinute int          `json:"requests_per_minute"`
	Tier              string       `gorm:"default:'free'" json:"tier"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

func (t *TenantConfig) BeforeCreate(tx *gorm.DB) error {
	if t.ProjectID == uuid.Nil {
		t.ProjectID = uuid.New()
	}
	return nil
}

func (TenantConfig) TableName() string {
	return "tenant_configs"
}

func (t *TenantConfig) Dispatchable() bool {
	return t.Status == StatusActive
}
