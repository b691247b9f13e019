package service

import (
	"time"

	"github.com/shopspring/decimal"
	catalogdomain "github.com/smallbiznis/quotient/internal/catalog/domain"
	pricingdomain "github.com/smallbiznis/quotient/internal/pricing/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var hundred = decimal.NewFromInt(100)

type Params struct {
	fx.In

	Log *zap.Logger
}

type Service struct {
	log *zap.Logger
}

func New(p Params) pricingdomain.Service {
	return &Service{
		log: p.Log.Named("pricing.service"),
	}
}

// Resolve walks the entry's tiers in ascending min_quantity order, takes
// the first matching range, then lets an effective contract override the
// result. Quantity must be validated positive by the caller.
func (s *Service) Resolve(
	entry *catalogdomain.PriceBookEntry,
	quantity int64,
	contract *catalogdomain.Contract,
	at time.Time,
) (*pricingdomain.Resolution, error) {
	if entry == nil {
		return nil, pricingdomain.ErrEntryNotFound
	}
	if quantity <= 0 {
		return nil, pricingdomain.ErrInvalidQuantity
	}

	qty := decimal.NewFromInt(quantity)

	res := &pricingdomain.Resolution{
		UnitPrice: entry.ListPrice,
		ListPrice: entry.ListPrice,
	}

	var flatTier bool
	for i := range entry.Tiers {
		tier := &entry.Tiers[i]
		if !tier.Matches(quantity) {
			continue
		}
		res.TierApplied = true
		res.Tier = tier
		if tier.TierType == catalogdomain.FlatPrice {
			// The tier price is a total for the whole range, so the
			// effective unit price varies with quantity inside it.
			res.UnitPrice = tier.TierPrice.Div(qty)
			flatTier = true
		} else {
			res.UnitPrice = tier.TierPrice
		}
		break
	}

	if contract.IsEffectiveAt(at) {
		if fixed := contract.FixedPriceFor(entry.ProductID); fixed != nil {
			res.Contract = &pricingdomain.ContractOverride{
				ContractID:    contract.ID,
				PriceType:     pricingdomain.OverrideFixed,
				OriginalPrice: res.UnitPrice,
			}
			res.UnitPrice = *fixed
		} else if contract.DiscountPercent != nil {
			pct := *contract.DiscountPercent
			res.Contract = &pricingdomain.ContractOverride{
				ContractID:      contract.ID,
				PriceType:       pricingdomain.OverridePercentage,
				DiscountPercent: &pct,
				OriginalPrice:   res.UnitPrice,
			}
			res.UnitPrice = res.UnitPrice.Mul(decimal.NewFromInt(1).Sub(pct.Div(hundred)))
		}
	}

	if flatTier && res.Contract == nil {
		// Flat tiers keep their total untouched; unit price above is
		// informational only.
		res.TotalPrice = res.Tier.TierPrice
	} else {
		res.TotalPrice = res.UnitPrice.Mul(qty)
	}

	if entry.Cost != nil && !res.UnitPrice.IsZero() {
		margin := res.UnitPrice.Sub(*entry.Cost).Div(res.UnitPrice).Mul(hundred)
		res.Margin = &margin
	}

	return res, nil
}
