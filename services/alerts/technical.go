package alerts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"price_alert_backend/models"
	"price_alert_backend/services/pricing"
)

// Default lookback periods per indicator
const (
	defaultRSIPeriod = 14
	defaultSMAPeriod = 20
)

// TechnicalEvaluator fires on indicator conditions computed from daily
// close series. Supported indicators: rsi, sma. Cross comparisons use
// the previous indicator value, so a cross fires exactly once as the
// series passes through the threshold.
type TechnicalEvaluator struct {
	Prices PriceSource
}

func (e *TechnicalEvaluator) Evaluate(ctx context.Context, alert *models.AdvancedAlert) (Result, error) {
	assetType := alert.AssetType
	if assetType == "" || assetType == models.AssetTypeAuto {
		assetType = pricing.DetectAssetType(alert.Symbol)
	}
	if assetType != models.AssetTypeStock {
		return Result{Reason: "indicators_supported_for_stocks_only"}, nil
	}

	indicator, _ := alert.ConditionString("indicator")
	indicator = strings.ToLower(indicator)
	switch indicator {
	case "rsi", "sma":
	default:
		return Result{Reason: fmt.Sprintf("unsupported_indicator:%s", indicator)}, nil
	}

	threshold, ok := alert.ConditionFloat("threshold")
	if !ok {
		return Result{Reason: "invalid_threshold"}, nil
	}
	comparison, _ := alert.ConditionString("comparison")
	if comparison == "" {
		comparison = models.CompareGreaterThan
	}

	period := 0
	if p, ok := alert.ConditionFloat("period"); ok {
		period = int(p)
	}
	if period <= 0 {
		if indicator == "rsi" {
			period = defaultRSIPeriod
		} else {
			period = defaultSMAPeriod
		}
	}

	current, previous, err := e.Prices.GetIndicator(ctx, alert.Symbol, assetType, indicator, period)
	if err != nil {
		// Too short a series is a property of the alert, not an
		// infrastructure failure
		if errors.Is(err, pricing.ErrInsufficientData) {
			return Result{Reason: "insufficient_points"}, nil
		}
		return Result{}, err
	}

	triggered, ok := CompareIndicator(comparison, current, previous, threshold)
	if !ok {
		return Result{Reason: fmt.Sprintf("invalid_comparison:%s", comparison)}, nil
	}

	result := Result{
		Triggered: triggered,
		Snapshot: map[string]interface{}{
			"indicator":      indicator,
			"period":         period,
			"current_value":  current,
			"previous_value": previous,
			"threshold":      threshold,
			"comparison":     comparison,
		},
	}
	if triggered {
		result.Reason = fmt.Sprintf("%s(%d) is %.2f, %s %.2f", indicator, period, current, comparison, threshold)
	} else {
		result.Reason = "condition_not_met"
	}
	return result, nil
}

// CompareIndicator applies one comparison to indicator values. The
// second return is false for an unknown comparison. greater_than and
// less_than are inclusive: a value sitting exactly on the threshold
// fires.
//
// Crosses require the previous value strictly on the far side and the
// current value at or past the threshold, so a series sitting exactly
// on the threshold does not fire twice.
func CompareIndicator(comparison string, current, previous, threshold float64) (triggered, known bool) {
	switch comparison {
	case models.CompareGreaterThan:
		return current >= threshold, true
	case models.CompareLessThan:
		return current <= threshold, true
	case models.CompareCrossesAbove:
		return previous < threshold && current >= threshold, true
	case models.CompareCrossesBelow:
		return previous > threshold && current <= threshold, true
	default:
		return false, false
	}
}
