package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	catalogdomain "github.com/smallbiznis/quotient/internal/catalog/domain"
	"github.com/smallbiznis/quotient/internal/clock"
	"github.com/smallbiznis/quotient/internal/config"
	customerdomain "github.com/smallbiznis/quotient/internal/customer/domain"
	discountdomain "github.com/smallbiznis/quotient/internal/discount/domain"
	"github.com/smallbiznis/quotient/internal/observability/metrics"
	"github.com/smallbiznis/quotient/internal/orgcontext"
	quotedomain "github.com/smallbiznis/quotient/internal/quote/domain"
	ruledomain "github.com/smallbiznis/quotient/internal/rule/domain"
	"github.com/smallbiznis/quotient/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	EngineCfg   *config.EngineConfigHolder
	Repo        quotedomain.Repository
	CatalogRepo catalogdomain.Repository
	Discount    discountdomain.Service
	Aggregator  *Aggregator
	Metrics     *metrics.Metrics
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	engineCfg   *config.EngineConfigHolder
	repo        quotedomain.Repository
	catalogRepo catalogdomain.Repository
	discount    discountdomain.Service
	aggregator  *Aggregator
	metrics     *metrics.Metrics
}

func New(p Params) quotedomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("quote.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		engineCfg:   p.EngineCfg,
		repo:        p.Repo,
		catalogRepo: p.CatalogRepo,
		discount:    p.Discount,
		aggregator:  p.Aggregator,
		metrics:     p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req quotedomain.CreateRequest) (*quotedomain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, quotedomain.ErrInvalidOrganization
	}

	customerID, err := parseID(req.CustomerID)
	if err != nil {
		return nil, quotedomain.ErrInvalidID
	}
	priceBookID, err := parseID(req.PriceBookID)
	if err != nil {
		return nil, quotedomain.ErrInvalidID
	}

	customerStore := repository.ProvideStore[customerdomain.Customer](s.db)
	customer, err := customerStore.FindOne(ctx, &customerdomain.Customer{ID: customerID, OrgID: orgID})
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, quotedomain.ErrCustomerNotFound
	}

	term := req.TermMonths
	if term <= 0 {
		term = s.engineCfg.Get().DefaultTermMonths
	}

	now := s.clock.Now()
	quote := &quotedomain.Quote{
		ID:          s.genID.Generate(),
		OrgID:       orgID,
		CustomerID:  customerID,
		PriceBookID: priceBookID,
		Status:      quotedomain.StatusDraft,
		TermMonths:  term,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.InsertQuote(ctx, s.db, quote); err != nil {
		return nil, err
	}

	snap := &quotedomain.Snapshot{Quote: quote, Customer: customer}
	return s.toResponse(snap, nil), nil
}

func (s *Service) Get(ctx context.Context, id string) (*quotedomain.Response, error) {
	orgID, quoteID, err := s.identifiers(ctx, id)
	if err != nil {
		return nil, err
	}

	snap, err := s.loadSnapshot(ctx, s.db, orgID, quoteID)
	if err != nil {
		return nil, err
	}
	return s.toResponse(snap, nil), nil
}

func (s *Service) AddLineItem(ctx context.Context, quoteID string, req quotedomain.AddLineRequest) (*quotedomain.Response, error) {
	if req.Quantity < 1 {
		return nil, quotedomain.ErrInvalidQuantity
	}
	productID, err := parseID(req.ProductID)
	if err != nil {
		return nil, quotedomain.ErrInvalidID
	}

	return s.mutate(ctx, quoteID, ruledomain.OnProductAdd, func(tx *gorm.DB, quote *quotedomain.Quote) error {
		product, err := s.catalogRepo.FindProduct(ctx, tx, quote.OrgID, productID)
		if err != nil {
			return err
		}
		if product == nil {
			return quotedomain.ErrProductNotFound
		}

		var parentID *snowflake.ID
		if strings.TrimSpace(req.ParentLineID) != "" {
			id, err := parseID(req.ParentLineID)
			if err != nil {
				return quotedomain.ErrInvalidID
			}
			parent, err := s.repo.FindLine(ctx, tx, quote.OrgID, quote.ID, id)
			if err != nil {
				return err
			}
			if parent == nil {
				return quotedomain.ErrLineNotFound
			}
			parentID = &id
		}

		now := s.clock.Now()
		line := &quotedomain.LineItem{
			ID:           s.genID.Generate(),
			OrgID:        quote.OrgID,
			QuoteID:      quote.ID,
			ProductID:    productID,
			ParentLineID: parentID,
			Quantity:     req.Quantity,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		return s.repo.InsertLine(ctx, tx, line)
	})
}

func (s *Service) UpdateLineQuantity(ctx context.Context, quoteID, lineID string, quantity int64) (*quotedomain.Response, error) {
	if quantity < 1 {
		return nil, quotedomain.ErrInvalidQuantity
	}
	id, err := parseID(lineID)
	if err != nil {
		return nil, quotedomain.ErrInvalidID
	}

	return s.mutate(ctx, quoteID, ruledomain.OnQuantityChange, func(tx *gorm.DB, quote *quotedomain.Quote) error {
		line, err := s.repo.FindLine(ctx, tx, quote.OrgID, quote.ID, id)
		if err != nil {
			return err
		}
		if line == nil {
			return quotedomain.ErrLineNotFound
		}
		return s.repo.UpdateLineQuantity(ctx, tx, quote.OrgID, id, quantity)
	})
}

func (s *Service) RemoveLineItem(ctx context.Context, quoteID, lineID string) (*quotedomain.Response, error) {
	id, err := parseID(lineID)
	if err != nil {
		return nil, quotedomain.ErrInvalidID
	}

	return s.mutate(ctx, quoteID, ruledomain.OnQuoteSave, func(tx *gorm.DB, quote *quotedomain.Quote) error {
		line, err := s.repo.FindLine(ctx, tx, quote.OrgID, quote.ID, id)
		if err != nil {
			return err
		}
		if line == nil {
			return quotedomain.ErrLineNotFound
		}
		return s.repo.DeleteLine(ctx, tx, quote.OrgID, id)
	})
}

func (s *Service) ApplyDiscount(ctx context.Context, quoteID string, req quotedomain.ApplyDiscountRequest) (*quotedomain.Response, error) {
	resp, err := s.mutate(ctx, quoteID, ruledomain.OnQuoteSave, func(tx *gorm.DB, quote *quotedomain.Quote) error {
		snap, err := s.loadSnapshot(ctx, tx, quote.OrgID, quote.ID)
		if err != nil {
			return err
		}

		applyReq := discountdomain.ApplyRequest{
			OrgID:        quote.OrgID,
			QuoteID:      quote.ID,
			QuoteIsDraft: quote.Status == quotedomain.StatusDraft,
			Subtotal:     snap.Quote.Subtotal,
			Existing:     snap.Applied,
			Now:          s.clock.Now(),
		}

		if strings.TrimSpace(req.LineItemID) != "" {
			lineID, err := parseID(req.LineItemID)
			if err != nil {
				return quotedomain.ErrInvalidID
			}
			var line *quotedomain.LineItem
			for _, l := range snap.Lines {
				if l.ID == lineID {
					line = l
					break
				}
			}
			if line == nil {
				return quotedomain.ErrLineNotFound
			}
			applyReq.LineItemID = &lineID
			applyReq.LineQuantity = line.Quantity
			applyReq.LineBase = line.UnitPrice.Mul(decimal.NewFromInt(line.Quantity))
		}

		if strings.TrimSpace(req.DiscountID) != "" {
			discountID, err := parseID(req.DiscountID)
			if err != nil {
				return quotedomain.ErrInvalidID
			}
			discountStore := repository.ProvideStore[discountdomain.Discount](tx)
			catalogDiscount, err := discountStore.FindOne(ctx, &discountdomain.Discount{ID: discountID, OrgID: quote.OrgID})
			if err != nil {
				return err
			}
			if catalogDiscount == nil {
				return discountdomain.ErrDiscountNotFound
			}
			tierStore := repository.ProvideStore[discountdomain.DiscountTier](tx)
			tiers, err := tierStore.Find(ctx, &discountdomain.DiscountTier{DiscountID: discountID, OrgID: quote.OrgID})
			if err != nil {
				return err
			}
			for _, t := range tiers {
				catalogDiscount.Tiers = append(catalogDiscount.Tiers, *t)
			}
			applyReq.Discount = catalogDiscount
		} else {
			applyReq.Manual = req.Manual
		}

		applied, err := s.discount.Apply(applyReq)
		if err != nil {
			return err
		}
		applied.ID = s.genID.Generate()
		applied.CreatedAt = s.clock.Now()
		applied.UpdatedAt = applied.CreatedAt
		if err := s.repo.InsertApplied(ctx, tx, applied); err != nil {
			return err
		}

		s.metrics.DiscountsApplied.Inc()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *Service) RemoveDiscount(ctx context.Context, quoteID, appliedID string) (*quotedomain.Response, error) {
	id, err := parseID(appliedID)
	if err != nil {
		return nil, quotedomain.ErrInvalidID
	}

	return s.mutate(ctx, quoteID, ruledomain.OnQuoteSave, func(tx *gorm.DB, quote *quotedomain.Quote) error {
		applied, err := s.repo.ListApplied(ctx, tx, quote.OrgID, quote.ID)
		if err != nil {
			return err
		}
		found := false
		for _, a := range applied {
			if a.ID == id {
				found = true
				break
			}
		}
		if !found {
			return discountdomain.ErrAppliedNotFound
		}
		return s.repo.DeleteApplied(ctx, tx, quote.OrgID, quote.ID, id)
	})
}

func (s *Service) Recompute(ctx context.Context, quoteID string) (*quotedomain.Response, error) {
	return s.mutate(ctx, quoteID, ruledomain.OnQuoteSave, func(tx *gorm.DB, quote *quotedomain.Quote) error {
		return nil
	})
}

func (s *Service) Submit(ctx context.Context, quoteID string) (*quotedomain.Response, error) {
	orgID, id, err := s.identifiers(ctx, quoteID)
	if err != nil {
		return nil, err
	}

	var response *quotedomain.Response
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		quote, err := s.repo.FindQuote(ctx, tx, orgID, id)
		if err != nil {
			return err
		}
		if quote == nil {
			return quotedomain.ErrNotFound
		}
		if quote.Status != quotedomain.StatusDraft {
			return quotedomain.ErrQuoteNotDraft
		}

		snap, result, err := s.recomputeLocked(ctx, tx, orgID, id, ruledomain.OnQuoteSave)
		if err != nil {
			return err
		}
		if !result.Evaluation.Success {
			return quotedomain.ErrRuleBlocked
		}

		target := quotedomain.SubmitTarget(snap.Quote.RequiresApproval)
		snap.Quote.Status = target
		if err := s.repo.UpdateStatus(ctx, tx, snap.Quote); err != nil {
			return err
		}

		s.metrics.StatusTransitions.WithLabelValues(string(target)).Inc()
		response = s.toResponse(snap, result)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return response, nil
}

func (s *Service) Transition(ctx context.Context, quoteID string, next quotedomain.QuoteStatus) (*quotedomain.Response, error) {
	orgID, id, err := s.identifiers(ctx, quoteID)
	if err != nil {
		return nil, err
	}

	var response *quotedomain.Response
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		quote, err := s.repo.FindQuote(ctx, tx, orgID, id)
		if err != nil {
			return err
		}
		if quote == nil {
			return quotedomain.ErrNotFound
		}
		if !quote.Status.CanTransitionTo(next) {
			return quotedomain.ErrInvalidTransition
		}
		// Leaving DRAFT goes through Submit, which recomputes and reads
		// the approval gate; the raw edges are not reachable from here.
		if quote.Status == quotedomain.StatusDraft &&
			(next == quotedomain.StatusPendingApproval || next == quotedomain.StatusApproved) {
			return quotedomain.ErrInvalidTransition
		}

		if next == quotedomain.StatusFinalized {
			snap, result, err := s.recomputeLocked(ctx, tx, orgID, id, ruledomain.OnFinalize)
			if err != nil {
				return err
			}
			if !result.Evaluation.Success {
				return quotedomain.ErrRuleBlocked
			}
			snap.Quote.Status = next
			if err := s.repo.UpdateStatus(ctx, tx, snap.Quote); err != nil {
				return err
			}
			s.metrics.StatusTransitions.WithLabelValues(string(next)).Inc()
			response = s.toResponse(snap, result)
			return nil
		}

		quote.Status = next
		if err := s.repo.UpdateStatus(ctx, tx, quote); err != nil {
			return err
		}
		s.metrics.StatusTransitions.WithLabelValues(string(next)).Inc()

		snap, err := s.loadSnapshot(ctx, tx, orgID, id)
		if err != nil {
			return err
		}
		response = s.toResponse(snap, nil)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return response, nil
}

// mutate runs a draft-only mutation and the mandatory recompute that
// follows it inside one transaction.
func (s *Service) mutate(
	ctx context.Context,
	quoteID string,
	trigger ruledomain.RuleTrigger,
	fn func(tx *gorm.DB, quote *quotedomain.Quote) error,
) (*quotedomain.Response, error) {
	orgID, id, err := s.identifiers(ctx, quoteID)
	if err != nil {
		return nil, err
	}

	var response *quotedomain.Response
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		quote, err := s.repo.FindQuote(ctx, tx, orgID, id)
		if err != nil {
			return err
		}
		if quote == nil {
			return quotedomain.ErrNotFound
		}
		if quote.Status != quotedomain.StatusDraft {
			return quotedomain.ErrQuoteNotDraft
		}

		if err := fn(tx, quote); err != nil {
			return err
		}

		snap, result, err := s.recomputeLocked(ctx, tx, orgID, id, trigger)
		if err != nil {
			return err
		}
		response = s.toResponse(snap, result)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return response, nil
}

// recomputeLocked reloads the snapshot, runs the full pass and persists
// the derived fields. Callers hold the transaction.
func (s *Service) recomputeLocked(
	ctx context.Context,
	tx *gorm.DB,
	orgID, quoteID snowflake.ID,
	trigger ruledomain.RuleTrigger,
) (*quotedomain.Snapshot, *quotedomain.RecomputeResult, error) {
	started := time.Now()

	snap, err := s.loadSnapshot(ctx, tx, orgID, quoteID)
	if err != nil {
		return nil, nil, err
	}

	result, err := s.aggregator.Recompute(snap, trigger, s.clock.Now())
	if err != nil {
		return nil, nil, err
	}

	if err := s.repo.SaveRecompute(ctx, tx, snap); err != nil {
		return nil, nil, err
	}

	s.metrics.QuoteRecomputes.Inc()
	s.metrics.RuleEvaluations.Inc()
	s.metrics.RecomputeDuration.Observe(time.Since(started).Seconds())
	return snap, result, nil
}

func (s *Service) loadSnapshot(ctx context.Context, db *gorm.DB, orgID, quoteID snowflake.ID) (*quotedomain.Snapshot, error) {
	quote, err := s.repo.FindQuote(ctx, db, orgID, quoteID)
	if err != nil {
		return nil, err
	}
	if quote == nil {
		return nil, quotedomain.ErrNotFound
	}

	lines, err := s.repo.ListLines(ctx, db, orgID, quoteID)
	if err != nil {
		return nil, err
	}
	applied, err := s.repo.ListApplied(ctx, db, orgID, quoteID)
	if err != nil {
		return nil, err
	}

	customerStore := repository.ProvideStore[customerdomain.Customer](db)
	customer, err := customerStore.FindOne(ctx, &customerdomain.Customer{ID: quote.CustomerID, OrgID: orgID})
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, quotedomain.ErrCustomerNotFound
	}

	contract, err := s.catalogRepo.FindEffectiveContract(ctx, db, orgID, quote.CustomerID, s.clock.Now())
	if err != nil {
		return nil, err
	}

	productIDs := make([]snowflake.ID, 0, len(lines))
	seen := map[snowflake.ID]struct{}{}
	for _, line := range lines {
		if _, ok := seen[line.ProductID]; ok {
			continue
		}
		seen[line.ProductID] = struct{}{}
		productIDs = append(productIDs, line.ProductID)
	}

	products := map[snowflake.ID]*catalogdomain.Product{}
	priceBook := map[snowflake.ID]*catalogdomain.PriceBookEntry{}
	if len(productIDs) > 0 {
		productRows, err := s.catalogRepo.ListProducts(ctx, db, orgID, productIDs)
		if err != nil {
			return nil, err
		}
		for i := range productRows {
			products[productRows[i].ID] = &productRows[i]
		}

		entryRows, err := s.catalogRepo.ListPriceBookEntries(ctx, db, orgID, quote.PriceBookID, productIDs)
		if err != nil {
			return nil, err
		}
		for i := range entryRows {
			priceBook[entryRows[i].ProductID] = &entryRows[i]
		}
	}

	taxRates, err := s.catalogRepo.ListTaxRates(ctx, db, orgID)
	if err != nil {
		return nil, err
	}

	ruleStore := repository.ProvideStore[ruledomain.Rule](db)
	ruleRows, err := ruleStore.Find(ctx, &ruledomain.Rule{OrgID: orgID})
	if err != nil {
		return nil, err
	}
	rules := make([]ruledomain.Rule, 0, len(ruleRows))
	for _, r := range ruleRows {
		rules = append(rules, *r)
	}

	discounts := map[snowflake.ID]*discountdomain.Discount{}
	discountStore := repository.ProvideStore[discountdomain.Discount](db)
	tierStore := repository.ProvideStore[discountdomain.DiscountTier](db)
	for _, a := range applied {
		if a.DiscountID == nil {
			continue
		}
		if _, ok := discounts[*a.DiscountID]; ok {
			continue
		}
		d, err := discountStore.FindOne(ctx, &discountdomain.Discount{ID: *a.DiscountID, OrgID: orgID})
		if err != nil {
			return nil, err
		}
		if d == nil {
			continue
		}
		tiers, err := tierStore.Find(ctx, &discountdomain.DiscountTier{DiscountID: d.ID, OrgID: orgID})
		if err != nil {
			return nil, err
		}
		for _, t := range tiers {
			d.Tiers = append(d.Tiers, *t)
		}
		discounts[d.ID] = d
	}

	return &quotedomain.Snapshot{
		Quote:     quote,
		Lines:     lines,
		Applied:   applied,
		Customer:  customer,
		Contract:  contract,
		Products:  products,
		PriceBook: priceBook,
		TaxRates:  taxRates,
		Rules:     rules,
		Discounts: discounts,
	}, nil
}

func (s *Service) toResponse(snap *quotedomain.Snapshot, result *quotedomain.RecomputeResult) *quotedomain.Response {
	quote := snap.Quote

	resp := &quotedomain.Response{
		ID:               quote.ID.String(),
		CustomerID:       quote.CustomerID.String(),
		PriceBookID:      quote.PriceBookID.String(),
		Status:           quote.Status,
		TermMonths:       quote.TermMonths,
		Subtotal:         quote.Subtotal,
		DiscountTotal:    quote.DiscountTotal,
		TaxAmount:        quote.TaxAmount,
		TaxBreakdown:     quote.TaxBreakdown,
		Total:            quote.Total,
		RequiresApproval: quote.RequiresApproval,
		ApprovalReasons:  quote.ApprovalReasons,
		MRR:              quote.MRR,
		ARR:              quote.ARR,
		TCV:              quote.TCV,
		Lines:            make([]quotedomain.LineResponse, 0, len(snap.Lines)),
		Discounts:        make([]quotedomain.AppliedDiscountResponse, 0, len(snap.Applied)),
		CreatedAt:        quote.CreatedAt,
		UpdatedAt:        quote.UpdatedAt,
	}

	for _, line := range snap.Lines {
		lr := quotedomain.LineResponse{
			ID:        line.ID.String(),
			ProductID: line.ProductID.String(),
			Quantity:  line.Quantity,
			ListPrice: line.ListPrice,
			UnitPrice: line.UnitPrice,
			Discount:  line.Discount,
			NetPrice:  line.NetPrice,
		}
		if line.ParentLineID != nil {
			parent := line.ParentLineID.String()
			lr.ParentLineID = &parent
		}
		resp.Lines = append(resp.Lines, lr)
	}

	for _, a := range snap.Applied {
		ar := quotedomain.AppliedDiscountResponse{
			ID:               a.ID.String(),
			Type:             string(a.Type),
			Scope:            string(a.Scope),
			Value:            a.Value,
			CalculatedAmount: a.CalculatedAmount,
			Reason:           a.Reason,
		}
		if a.LineItemID != nil {
			id := a.LineItemID.String()
			ar.LineItemID = &id
		}
		if a.DiscountID != nil {
			id := a.DiscountID.String()
			ar.DiscountID = &id
		}
		resp.Discounts = append(resp.Discounts, ar)
	}

	if result != nil {
		resp.Warnings = result.Evaluation.Warnings
		resp.Errors = result.Evaluation.Errors
	}

	return resp
}

func (s *Service) identifiers(ctx context.Context, quoteID string) (snowflake.ID, snowflake.ID, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return 0, 0, quotedomain.ErrInvalidOrganization
	}
	id, err := parseID(quoteID)
	if err != nil {
		return 0, 0, quotedomain.ErrInvalidID
	}
	return orgID, id, nil
}

func parseID(value string) (snowflake.ID, error) {
	return snowflake.ParseString(strings.TrimSpace(value))
}
