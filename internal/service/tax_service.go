package service

import (
	"context"
	"time"

	"erpadmin/internal/model"
	"erpadmin/internal/repository"
	pkgerrors "erpadmin/pkg/errors"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

type CreateTaxRuleRequest struct {
	TaxType       string `json:"taxType" binding:"required,oneof=VAT FCT"`
	Rate          string `json:"rate" binding:"required"`          // fraction, e.g. "0.05"
	EffectiveFrom string `json:"effectiveFrom" binding:"required"` // YYYY-MM-DD
	EffectiveTo   string `json:"effectiveTo"`                      // YYYY-MM-DD, open ended when empty
	Description   string `json:"description"`
}

type TaxRuleResponse struct {
	ID            string  `json:"id"`
	TaxType       string  `json:"taxType"`
	Rate          string  `json:"rate"`
	Percent       string  `json:"percent"`
	EffectiveFrom string  `json:"effectiveFrom"`
	EffectiveTo   *string `json:"effectiveTo"`
	Description   string  `json:"description"`
	CreatedAt     string  `json:"createdAt"`
}

type ActiveTaxRateResponse struct {
	TaxType string `json:"taxType"`
	Rate    string `json:"rate"`
	RuleID  string `json:"ruleId"`
}

type TaxService interface {
	GetTaxRules(ctx context.Context, taxType string, page, limit int) ([]TaxRuleResponse, int64, error)
	CreateTaxRule(ctx context.Context, req CreateTaxRuleRequest) (TaxRuleResponse, error)
	// GetActiveTaxRate returns nil when no rule is in force today.
	GetActiveTaxRate(ctx context.Context, taxType string) (*ActiveTaxRateResponse, error)
	// VATPercent is the VAT rate in force at the given time as a percentage,
	// zero when no rule applies.
	VATPercent(ctx context.Context, at time.Time) (decimal.Decimal, error)
}

type taxService struct {
	infra Infra
	rules repository.TaxRuleRepository
}

func NewTaxService(infra Infra, rules repository.TaxRuleRepository) TaxService {
	return &taxService{infra: infra, rules: rules}
}

func (s *taxService) GetTaxRules(ctx context.Context, taxType string, page, limit int) ([]TaxRuleResponse, int64, error) {
	page, limit = normalizePage(page, limit)
	rules, total, err := s.rules.List(ctx, taxType, page, limit)
	if err != nil {
		return nil, 0, storageError(err, "tax rule")
	}

	out := make([]TaxRuleResponse, 0, len(rules))
	for i := range rules {
		out = append(out, toTaxRuleResponse(&rules[i]))
	}
	return out, total, nil
}

func (s *taxService) CreateTaxRule(ctx context.Context, req CreateTaxRuleRequest) (TaxRuleResponse, error) {
	rule, err := parseTaxRule(req)
	if err != nil {
		return TaxRuleResponse{}, err
	}

	err = s.infra.Tx.RunInTx(ctx, func(txCtx context.Context) error {
		clash, err := s.rules.Overlaps(txCtx, rule.TaxType, rule.EffectiveFrom, rule.EffectiveTo)
		if err != nil {
			return storageError(err, "tax rule")
		}
		if clash {
			return pkgerrors.Newf(pkgerrors.CodeConflict, "a %s rule already covers part of this period", rule.TaxType)
		}
		if err := s.rules.Create(txCtx, rule); err != nil {
			return storageError(err, "tax rule")
		}
		return s.infra.Audit.Record(txCtx, model.ActionCreateTaxRule, rule.ID.String(), rule.TaxType+" "+rule.Rate.StringFixed(4), req)
	})
	if err != nil {
		return TaxRuleResponse{}, err
	}
	return toTaxRuleResponse(rule), nil
}

func (s *taxService) GetActiveTaxRate(ctx context.Context, taxType string) (*ActiveTaxRateResponse, error) {
	rule, err := s.rules.ActiveAt(ctx, taxType, s.infra.now())
	if err != nil {
		return nil, storageError(err, "tax rule")
	}
	if rule == nil {
		return nil, nil
	}
	return &ActiveTaxRateResponse{TaxType: rule.TaxType, Rate: rule.Rate.StringFixed(4), RuleID: rule.ID.String()}, nil
}

func (s *taxService) VATPercent(ctx context.Context, at time.Time) (decimal.Decimal, error) {
	rule, err := s.rules.ActiveAt(ctx, model.TaxTypeVAT, at)
	if err != nil {
		return decimal.Zero, storageError(err, "tax rule")
	}
	if rule == nil {
		return decimal.Zero, nil
	}
	return rule.Percent(), nil
}

func parseTaxRule(req CreateTaxRuleRequest) (*model.TaxRule, error) {
	if req.TaxType != model.TaxTypeVAT && req.TaxType != model.TaxTypeFCT {
		return nil, invalid("taxType must be %s or %s", model.TaxTypeVAT, model.TaxTypeFCT)
	}
	rate, err := decimal.NewFromString(req.Rate)
	if err != nil {
		return nil, invalid("rate %q is not a number", req.Rate)
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return nil, invalid("rate must be a fraction between 0 and 1")
	}

	from, err := time.Parse(dateLayout, req.EffectiveFrom)
	if err != nil {
		return nil, invalid("effectiveFrom must be YYYY-MM-DD")
	}
	rule := &model.TaxRule{TaxType: req.TaxType, Rate: rate, EffectiveFrom: from, Description: req.Description}

	if req.EffectiveTo != "" {
		to, err := time.Parse(dateLayout, req.EffectiveTo)
		if err != nil {
			return nil, invalid("effectiveTo must be YYYY-MM-DD")
		}
		if to.Before(from) {
			return nil, invalid("effectiveTo must not precede effectiveFrom")
		}
		rule.EffectiveTo = &to
	}
	return rule, nil
}

func toTaxRuleResponse(r *model.TaxRule) TaxRuleResponse {
	resp := TaxRuleResponse{
		ID:            r.ID.String(),
		TaxType:       r.TaxType,
		Rate:          r.Rate.StringFixed(4),
		Percent:       r.Percent().String(),
		EffectiveFrom: r.EffectiveFrom.Format(dateLayout),
		Description:   r.Description,
		CreatedAt:     r.CreatedAt.Format(time.RFC3339),
	}
	if r.EffectiveTo != nil {
		to := r.EffectiveTo.Format(dateLayout)
		resp.EffectiveTo = &to
	}
	return resp
}
