package alerts

import (
	"context"
	"fmt"
	"math"

	"gorm.io/datatypes"

	"price_alert_backend/models"
)

// PercentageEvaluator fires when the price has moved by more than a
// configured percentage relative to a base price. Three bases are
// supported: a captured baseline, the previous close, and the rolling
// 24h change reported by the provider.
type PercentageEvaluator struct {
	Prices PriceSource
}

func (e *PercentageEvaluator) Evaluate(ctx context.Context, alert *models.AdvancedAlert) (Result, error) {
	threshold, ok := alert.ConditionFloat("threshold_percent")
	if !ok || threshold <= 0 {
		return Result{Reason: "invalid_threshold_percent"}, nil
	}
	base, _ := alert.ConditionString("base")
	if base == "" {
		base = models.BaseBaseline
	}
	direction, _ := alert.ConditionString("direction")
	if direction == "" {
		direction = models.ChangeAny
	}

	quote, err := e.Prices.GetQuote(ctx, alert.Symbol, alert.AssetType)
	if err != nil {
		return Result{}, err
	}

	var changePct float64
	var basePrice float64
	var updated datatypes.JSONMap

	switch base {
	case models.BaseBaseline:
		baseline, haveBaseline := alert.ConditionFloat("baseline_price")
		if !haveBaseline || baseline <= 0 {
			// First sighting: capture the baseline, never trigger
			updated = cloneConditions(alert.Conditions)
			updated["baseline_price"] = quote.Price
			return Result{
				Reason:            "baseline_captured",
				Price:             quote.Price,
				UpdatedConditions: updated,
			}, nil
		}
		basePrice = baseline
		changePct = (quote.Price - baseline) / baseline * 100

	case models.BasePreviousClose:
		if quote.PreviousClose <= 0 {
			return Result{Reason: "no_previous_close", Price: quote.Price}, nil
		}
		basePrice = quote.PreviousClose
		changePct = (quote.Price - quote.PreviousClose) / quote.PreviousClose * 100

	case models.Base24h:
		changePct = quote.Change24h

	default:
		return Result{Reason: fmt.Sprintf("invalid_base:%s", base)}, nil
	}

	triggered := false
	switch direction {
	case models.ChangeUp:
		triggered = changePct >= threshold
	case models.ChangeDown:
		triggered = changePct <= -threshold
	case models.ChangeAny:
		triggered = math.Abs(changePct) >= threshold
	default:
		return Result{Reason: fmt.Sprintf("invalid_direction:%s", direction)}, nil
	}

	snapshot := map[string]interface{}{
		"change_percent": changePct,
		"base":           base,
		"direction":      direction,
		"threshold":      threshold,
		"source":         quote.Source,
	}
	if basePrice > 0 {
		snapshot["base_price"] = basePrice
	}

	result := Result{
		Triggered: triggered,
		Price:     quote.Price,
		Snapshot:  snapshot,
	}
	if triggered {
		result.Reason = fmt.Sprintf("price moved %.2f%% (%s from %s), threshold %.2f%%",
			changePct, direction, base, threshold)
		if base == models.BaseBaseline {
			// Re-arm against the new level so the alert measures the
			// next move rather than refiring on the same one
			updated = cloneConditions(alert.Conditions)
			updated["baseline_price"] = quote.Price
			result.UpdatedConditions = updated
		}
	} else {
		result.Reason = "threshold_not_met"
	}
	return result, nil
}

func cloneConditions(conditions datatypes.JSONMap) datatypes.JSONMap {
	out := make(datatypes.JSONMap, len(conditions)+1)
	for k, v := range conditions {
		out[k] = v
	}
	return out
}
