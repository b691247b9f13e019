package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Customer is a read-only input to the pricing core. Only the tax locale
// and exemption fields participate in calculation.
type Customer struct {
	ID              snowflake.ID `json:"id" gorm:"primaryKey"`
	OrgID           snowflake.ID `json:"organization_id" gorm:"column:org_id;not null;index"`
	Name            string       `json:"name" gorm:"type:text;not null"`
	Email           string       `json:"email" gorm:"type:text"`
	Country         string       `json:"country" gorm:"type:text;not null"`
	State           *string      `json:"state,omitempty" gorm:"type:text"`
	IsTaxExempt     bool         `json:"is_tax_exempt" gorm:"not null;default:false"`
	TaxExemptExpiry *time.Time   `json:"tax_exempt_expiry,omitempty" gorm:""`
	CreatedAt       time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt       time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Customer) TableName() string { return "customers" }
