package alerts

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"price_alert_backend/models"
	"price_alert_backend/services/pricing"
)

// PriceSource is the slice of the pricing service the evaluators need.
type PriceSource interface {
	GetQuote(ctx context.Context, symbol, assetType string) (*pricing.Quote, error)
	GetIndicator(ctx context.Context, symbol, assetType, indicator string, period int) (current, previous float64, err error)
}

// Result is the outcome of evaluating one alert against market data.
// A non-trigger outcome carries a Reason explaining why; a trigger
// carries a Reason describing what fired. UpdatedConditions is non-nil
// when the evaluation changed condition state (baseline capture,
// baseline reset) that the caller must persist.
type Result struct {
	Triggered         bool
	Reason            string
	Price             float64
	Snapshot          map[string]interface{}
	UpdatedConditions datatypes.JSONMap
}

// Evaluator decides whether one advanced alert should fire. The error
// return is reserved for data-fetch failures; malformed or unsupported
// configurations are reported through Result.Reason so a bad alert
// cannot poison the monitoring cycle.
type Evaluator interface {
	Evaluate(ctx context.Context, alert *models.AdvancedAlert) (Result, error)
}

// Registry dispatches advanced alerts to the evaluator for their kind.
type Registry struct {
	evaluators map[string]Evaluator
}

func NewRegistry(prices PriceSource) *Registry {
	return &Registry{
		evaluators: map[string]Evaluator{
			models.AlertKindPercentageChange:   &PercentageEvaluator{Prices: prices},
			models.AlertKindTechnicalIndicator: &TechnicalEvaluator{Prices: prices},
		},
	}
}

// Register adds or replaces the evaluator for an alert kind.
func (r *Registry) Register(kind string, ev Evaluator) {
	r.evaluators[kind] = ev
}

// Kinds lists the registered alert kinds.
func (r *Registry) Kinds() []string {
	kinds := make([]string, 0, len(r.evaluators))
	for kind := range r.evaluators {
		kinds = append(kinds, kind)
	}
	return kinds
}

func (r *Registry) Evaluate(ctx context.Context, alert *models.AdvancedAlert) (Result, error) {
	ev, ok := r.evaluators[alert.AlertKind]
	if !ok {
		return Result{Reason: "unsupported_type"}, nil
	}
	return ev.Evaluate(ctx, alert)
}

// EvaluateThreshold decides whether a simple alert fires at the given
// price. The comparison is inclusive on the threshold in both
// directions.
func EvaluateThreshold(alert *models.Alert, price decimal.Decimal) bool {
	switch alert.Direction {
	case models.DirectionAbove:
		return price.GreaterThanOrEqual(alert.ThresholdPrice)
	case models.DirectionBelow:
		return price.LessThanOrEqual(alert.ThresholdPrice)
	default:
		return false
	}
}
