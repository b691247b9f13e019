package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	discountdomain "github.com/smallbiznis/quotient/internal/discount/domain"
	quotedomain "github.com/smallbiznis/quotient/internal/quote/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() quotedomain.Repository {
	return &repo{}
}

func (r *repo) InsertQuote(ctx context.Context, db *gorm.DB, quote *quotedomain.Quote) error {
	return db.WithContext(ctx).Create(quote).Error
}

func (r *repo) FindQuote(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*quotedomain.Quote, error) {
	var quote quotedomain.Quote
	err := db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		First(&quote).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &quote, nil
}

func (r *repo) ListLines(ctx context.Context, db *gorm.DB, orgID, quoteID snowflake.ID) ([]*quotedomain.LineItem, error) {
	var lines []*quotedomain.LineItem
	err := db.WithContext(ctx).
		Where("org_id = ? AND quote_id = ?", orgID, quoteID).
		Order("created_at ASC, id ASC").
		Find(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *repo) FindLine(ctx context.Context, db *gorm.DB, orgID, quoteID, lineID snowflake.ID) (*quotedomain.LineItem, error) {
	var line quotedomain.LineItem
	err := db.WithContext(ctx).
		Where("org_id = ? AND quote_id = ? AND id = ?", orgID, quoteID, lineID).
		First(&line).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &line, nil
}

func (r *repo) InsertLine(ctx context.Context, db *gorm.DB, line *quotedomain.LineItem) error {
	return db.WithContext(ctx).Create(line).Error
}

func (r *repo) UpdateLineQuantity(ctx context.Context, db *gorm.DB, orgID, lineID snowflake.ID, quantity int64) error {
	return db.WithContext(ctx).
		Model(&quotedomain.LineItem{}).
		Where("org_id = ? AND id = ?", orgID, lineID).
		Updates(map[string]any{
			"quantity":   quantity,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *repo) DeleteLine(ctx context.Context, db *gorm.DB, orgID, lineID snowflake.ID) error {
	// Child lines and line-scoped discounts go with the line.
	if err := db.WithContext(ctx).
		Where("org_id = ? AND parent_line_id = ?", orgID, lineID).
		Delete(&quotedomain.LineItem{}).Error; err != nil {
		return err
	}
	if err := db.WithContext(ctx).
		Where("org_id = ? AND line_item_id = ?", orgID, lineID).
		Delete(&discountdomain.AppliedDiscount{}).Error; err != nil {
		return err
	}
	return db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, lineID).
		Delete(&quotedomain.LineItem{}).Error
}

func (r *repo) ListApplied(ctx context.Context, db *gorm.DB, orgID, quoteID snowflake.ID) ([]*discountdomain.AppliedDiscount, error) {
	var applied []*discountdomain.AppliedDiscount
	err := db.WithContext(ctx).
		Where("org_id = ? AND quote_id = ?", orgID, quoteID).
		Order("created_at ASC, id ASC").
		Find(&applied).Error
	if err != nil {
		return nil, err
	}
	return applied, nil
}

func (r *repo) InsertApplied(ctx context.Context, db *gorm.DB, applied *discountdomain.AppliedDiscount) error {
	return db.WithContext(ctx).Create(applied).Error
}

func (r *repo) DeleteApplied(ctx context.Context, db *gorm.DB, orgID, quoteID, appliedID snowflake.ID) error {
	return db.WithContext(ctx).
		Where("org_id = ? AND quote_id = ? AND id = ?", orgID, quoteID, appliedID).
		Delete(&discountdomain.AppliedDiscount{}).Error
}

func (r *repo) SaveRecompute(ctx context.Context, db *gorm.DB, snap *quotedomain.Snapshot) error {
	now := time.Now().UTC()
	quote := snap.Quote

	err := db.WithContext(ctx).
		Model(&quotedomain.Quote{}).
		Where("org_id = ? AND id = ?", quote.OrgID, quote.ID).
		Updates(map[string]any{
			"subtotal":          quote.Subtotal,
			"discount_total":    quote.DiscountTotal,
			"tax_amount":        quote.TaxAmount,
			"tax_breakdown":     quote.TaxBreakdown,
			"total":             quote.Total,
			"requires_approval": quote.RequiresApproval,
			"approval_reasons":  quote.ApprovalReasons,
			"mrr":               quote.MRR,
			"arr":               quote.ARR,
			"tcv":               quote.TCV,
			"updated_at":        now,
		}).Error
	if err != nil {
		return err
	}

	for _, line := range snap.Lines {
		err = db.WithContext(ctx).
			Model(&quotedomain.LineItem{}).
			Where("org_id = ? AND id = ?", line.OrgID, line.ID).
			Updates(map[string]any{
				"list_price": line.ListPrice,
				"unit_price": line.UnitPrice,
				"discount":   line.Discount,
				"net_price":  line.NetPrice,
				"updated_at": now,
			}).Error
		if err != nil {
			return err
		}
	}

	for _, applied := range snap.Applied {
		err = db.WithContext(ctx).
			Model(&discountdomain.AppliedDiscount{}).
			Where("org_id = ? AND id = ?", applied.OrgID, applied.ID).
			Updates(map[string]any{
				"value":             applied.Value,
				"calculated_amount": applied.CalculatedAmount,
				"updated_at":        now,
			}).Error
		if err != nil {
			return err
		}
	}

	return nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, quote *quotedomain.Quote) error {
	return db.WithContext(ctx).
		Model(&quotedomain.Quote{}).
		Where("org_id = ? AND id = ?", quote.OrgID, quote.ID).
		Updates(map[string]any{
			"status":     quote.Status,
			"updated_at": time.Now().UTC(),
		}).Error
}
