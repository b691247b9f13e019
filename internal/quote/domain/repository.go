package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	discountdomain "github.com/smallbiznis/quotient/internal/discount/domain"
	"gorm.io/gorm"
)

type Repository interface {
	InsertQuote(ctx context.Context, db *gorm.DB, quote *Quote) error
	FindQuote(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Quote, error)
	ListLines(ctx context.Context, db *gorm.DB, orgID, quoteID snowflake.ID) ([]*LineItem, error)
	FindLine(ctx context.Context, db *gorm.DB, orgID, quoteID, lineID snowflake.ID) (*LineItem, error)
	InsertLine(ctx context.Context, db *gorm.DB, line *LineItem) error
	UpdateLineQuantity(ctx context.Context, db *gorm.DB, orgID, lineID snowflake.ID, quantity int64) error
	DeleteLine(ctx context.Context, db *gorm.DB, orgID, lineID snowflake.ID) error
	ListApplied(ctx context.Context, db *gorm.DB, orgID, quoteID snowflake.ID) ([]*discountdomain.AppliedDiscount, error)
	InsertApplied(ctx context.Context, db *gorm.DB, applied *discountdomain.AppliedDiscount) error
	DeleteApplied(ctx context.Context, db *gorm.DB, orgID, quoteID, appliedID snowflake.ID) error

	// SaveRecompute persists every derived field a recompute pass wrote:
	// quote totals and gates, line prices, applied discount amounts.
	SaveRecompute(ctx context.Context, db *gorm.DB, snap *Snapshot) error

	UpdateStatus(ctx context.Context, db *gorm.DB, quote *Quote) error
}
