// Package normalize turns raw tabular rows into canonical order records:
// per-column typed coercion, record assembly with row-level error recovery,
// duplicate removal, and status canonicalization.
package normalize

import (
	"strconv"
	"strings"
	"time"

	"channel-reconciler/internal/models"
	"channel-reconciler/internal/rules"
	apperrors "channel-reconciler/pkg/errors"
)

// DefaultTimeLayout is assumed for ORDER_TIME_NORMAL mappings whose
// ruleConfig does not name an explicit layout.
const DefaultTimeLayout = "2006-01-02 15:04:05"

// epochMillisThreshold separates second from millisecond epoch values.
// Values at or above this are treated as milliseconds.
const epochMillisThreshold = 1e12

// NormalizeField coerces one raw column value into a typed field value:
// pre-phase format rules, typed coercion per the mapping's rule type, then
// post-phase rules applied to the boundary string and re-coerced.
func NormalizeField(raw string, mapping *models.ColumnMapping, loc *time.Location) (models.FieldValue, error) {
	pre, err := rules.Apply(raw, mapping.FormatRules, models.PhasePre)
	if err != nil {
		return models.FieldValue{}, err
	}

	fv, err := coerce(pre, mapping, loc)
	if err != nil {
		return models.FieldValue{}, err
	}

	post, err := rules.Apply(fv.String(), mapping.FormatRules, models.PhasePost)
	if err != nil {
		return models.FieldValue{}, err
	}
	if post == fv.String() {
		return fv, nil
	}
	return recoerce(post, fv.Kind)
}

func coerce(value string, mapping *models.ColumnMapping, loc *time.Location) (models.FieldValue, error) {
	switch mapping.FieldType {
	case models.FieldOrderTime:
		return coerceTime(value, mapping, loc)
	case models.FieldOrderAmount:
		d, err := models.ParseAmount(value)
		if err != nil {
			return models.FieldValue{}, apperrors.RuleError(apperrors.CodeAmountParse,
				string(mapping.RuleType), value, err)
		}
		return models.AmountValue(d), nil
	case models.FieldOrderStatus:
		return models.StatusValue(strings.TrimSpace(value)), nil
	default:
		return models.StringValue(strings.TrimSpace(value)), nil
	}
}

func coerceTime(value string, mapping *models.ColumnMapping, loc *time.Location) (models.FieldValue, error) {
	trimmed := strings.TrimSpace(value)
	switch mapping.RuleType {
	case models.RuleTimeTimestamp:
		epoch, err := strconv.ParseInt(trimmed, 10, 64)
		if err != nil {
			return models.FieldValue{}, apperrors.RuleError(apperrors.CodeTimeParse,
				string(mapping.RuleType), value, err)
		}
		if epoch >= epochMillisThreshold {
			return models.TimeValue(time.UnixMilli(epoch).UTC()), nil
		}
		return models.TimeValue(time.Unix(epoch, 0).UTC()), nil
	default:
		layout := mapping.RuleConfig
		if layout == "" {
			layout = DefaultTimeLayout
		}
		t, err := time.ParseInLocation(layout, trimmed, loc)
		if err != nil {
			return models.FieldValue{}, apperrors.RuleError(apperrors.CodeTimeParse,
				string(mapping.RuleType), value, err)
		}
		return models.TimeValue(t.UTC()), nil
	}
}

// recoerce reparses a post-rule string back into the field's typed form.
// Times are expected in the canonical boundary layout and are kept in UTC.
func recoerce(value string, kind models.ValueKind) (models.FieldValue, error) {
	switch kind {
	case models.KindAmount:
		d, err := models.ParseAmount(value)
		if err != nil {
			return models.FieldValue{}, apperrors.RuleError(apperrors.CodeAmountParse,
				"post", value, err)
		}
		return models.AmountValue(d), nil
	case models.KindTime:
		t, err := time.ParseInLocation(models.TimeLayout, value, time.UTC)
		if err != nil {
			return models.FieldValue{}, apperrors.RuleError(apperrors.CodeTimeParse,
				"post", value, err)
		}
		return models.TimeValue(t), nil
	case models.KindStatus:
		return models.StatusValue(value), nil
	default:
		return models.StringValue(value), nil
	}
}
