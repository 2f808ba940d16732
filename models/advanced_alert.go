package models

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// Advanced alert kinds
const (
	AlertKindPercentageChange   = "percentage_change"
	AlertKindTechnicalIndicator = "technical_indicator"
)

// Percentage-change bases and directions
const (
	BaseBaseline      = "baseline"
	BasePreviousClose = "previous_close"
	Base24h           = "24h"

	ChangeUp   = "up"
	ChangeDown = "down"
	ChangeAny  = "any"
)

// Technical indicator comparisons
const (
	CompareGreaterThan  = "greater_than"
	CompareLessThan     = "less_than"
	CompareCrossesAbove = "crosses_above"
	CompareCrossesBelow = "crosses_below"
)

// AdvancedAlert is a condition-driven alert. Its behavior is determined
// by AlertKind and the kind-specific parameters stored in Conditions.
//
// For percentage_change the conditions hold threshold_percent, base,
// direction and, once captured, baseline_price. For technical_indicator
// they hold indicator, period, threshold, comparison and the previous
// indicator value used for cross detection.
type AdvancedAlert struct {
	ID              uint              `gorm:"primaryKey" json:"id"`
	Symbol          string            `gorm:"size:20;not null;index" json:"symbol"`
	AssetType       string            `gorm:"size:10;not null;default:stock" json:"asset_type"`
	AlertKind       string            `gorm:"size:30;not null" json:"alert_kind"`
	Conditions      datatypes.JSONMap `gorm:"not null" json:"conditions"`
	Timeframe       string            `gorm:"size:20" json:"timeframe,omitempty"` // informational label
	Active          bool              `gorm:"default:true;index" json:"active"`
	MaxTriggers     int               `gorm:"default:0" json:"max_triggers"` // 0 means unlimited
	ExpiresAt       *time.Time        `json:"expires_at"`
	TriggerCount    int               `gorm:"default:0" json:"trigger_count"`
	LastTriggeredAt *time.Time        `json:"last_triggered_at"`
	LastCheckedAt   *time.Time        `json:"last_checked_at"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

func (AdvancedAlert) TableName() string {
	return "advanced_alerts"
}

// ConditionFloat reads a numeric condition value. JSON numbers decode as
// float64 but ints can appear when conditions are built in code.
func (a *AdvancedAlert) ConditionFloat(key string) (float64, bool) {
	v, ok := a.Conditions[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// ConditionString reads a string condition value.
func (a *AdvancedAlert) ConditionString(key string) (string, bool) {
	v, ok := a.Conditions[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// ValidateConditions checks that the conditions map carries the required
// parameters for the alert kind. Called on create and update.
func (a *AdvancedAlert) ValidateConditions() error {
	switch a.AlertKind {
	case AlertKindPercentageChange:
		threshold, ok := a.ConditionFloat("threshold_percent")
		if !ok {
			return fmt.Errorf("percentage_change alert requires numeric threshold_percent")
		}
		if threshold <= 0 {
			return fmt.Errorf("threshold_percent must be positive, got %v", threshold)
		}
		if base, ok := a.ConditionString("base"); ok {
			switch base {
			case BaseBaseline, BasePreviousClose, Base24h:
			default:
				return fmt.Errorf("invalid base %q", base)
			}
		}
		if dir, ok := a.ConditionString("direction"); ok {
			switch dir {
			case ChangeUp, ChangeDown, ChangeAny:
			default:
				return fmt.Errorf("invalid direction %q", dir)
			}
		}
	case AlertKindTechnicalIndicator:
		indicator, ok := a.ConditionString("indicator")
		if !ok || indicator == "" {
			return fmt.Errorf("technical_indicator alert requires indicator")
		}
		if _, ok := a.ConditionFloat("threshold"); !ok {
			return fmt.Errorf("technical_indicator alert requires numeric threshold")
		}
		// A missing comparison is fine, evaluation defaults it to
		// greater_than
		if comparison, ok := a.ConditionString("comparison"); ok && comparison != "" {
			switch comparison {
			case CompareGreaterThan, CompareLessThan, CompareCrossesAbove, CompareCrossesBelow:
			default:
				return fmt.Errorf("invalid comparison %q", comparison)
			}
		}
		if period, ok := a.ConditionFloat("period"); ok && (period < 2 || period > 200) {
			return fmt.Errorf("period must be between 2 and 200, got %v", period)
		}
	default:
		return fmt.Errorf("unknown alert kind %q", a.AlertKind)
	}
	return nil
}
