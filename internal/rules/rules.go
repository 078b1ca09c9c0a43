// Package rules implements the ordered string transforms applied to raw
// column values before and after type coercion. Every operation is a pure
// function of the input string and the rule's operand.
package rules

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"channel-reconciler/internal/models"
	apperrors "channel-reconciler/pkg/errors"
)

// xenditLayouts are the vendor timestamp shapes accepted by XENDIT_TIME, in
// order of preference. Fractional seconds and zone offsets are tolerated and
// dropped on output.
var xenditLayouts = []string{
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
}

// Apply runs the rules whose phase matches, in list order, threading each
// rule's output into the next. The first failing rule aborts the chain.
func Apply(value string, chain []models.FormatRule, phase models.RulePhase) (string, error) {
	out := value
	for _, rule := range chain {
		if rule.Phase != phase {
			continue
		}
		next, err := applyOne(out, rule)
		if err != nil {
			return "", err
		}
		out = next
	}
	return out, nil
}

func applyOne(value string, rule models.FormatRule) (string, error) {
	switch rule.Operation {
	case models.OpDelPre:
		return delPre(value, rule)
	case models.OpDelAfter:
		return delAfter(value, rule)
	case models.OpDelChar:
		return strings.ReplaceAll(value, rule.Value, ""), nil
	case models.OpReplaceTwoChar:
		return replacePair(value, rule)
	case models.OpBraValue:
		return braValue(value), nil
	case models.OpDivideNumber:
		return divideNumber(value, rule)
	case models.OpAbsValue:
		return absValue(value, rule)
	case models.OpAddCharPre:
		return rule.Value + value, nil
	case models.OpAddCharAfter:
		return value + rule.Value, nil
	case models.OpXenditTime:
		return xenditTime(value, rule)
	default:
		return "", apperrors.RuleError(apperrors.CodeUnsupportedOperation,
			string(rule.Operation), value, nil)
	}
}

// charCount parses a rule operand as a non-negative character count
func charCount(rule models.FormatRule) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(rule.Value))
	if err != nil || n < 0 {
		return 0, apperrors.RuleError(apperrors.CodeFormat,
			string(rule.Operation), rule.Value, err)
	}
	return n, nil
}

func delPre(value string, rule models.FormatRule) (string, error) {
	n, err := charCount(rule)
	if err != nil {
		return "", err
	}
	runes := []rune(value)
	if n >= len(runes) {
		return "", nil
	}
	return string(runes[n:]), nil
}

func delAfter(value string, rule models.FormatRule) (string, error) {
	n, err := charCount(rule)
	if err != nil {
		return "", err
	}
	runes := []rune(value)
	if n >= len(runes) {
		return "", nil
	}
	return string(runes[:len(runes)-n]), nil
}

// replacePair expects the operand to name the old and new substrings
// separated by a single comma, "from,to".
func replacePair(value string, rule models.FormatRule) (string, error) {
	parts := strings.SplitN(rule.Value, ",", 2)
	if len(parts) != 2 {
		return "", apperrors.RuleError(apperrors.CodeFormat,
			string(rule.Operation), rule.Value, nil)
	}
	return strings.ReplaceAll(value, parts[0], parts[1]), nil
}

// braValue extracts the content of the first bracketed segment. Values
// without a bracket pair pass through unchanged.
func braValue(value string) string {
	open := strings.IndexByte(value, '[')
	if open < 0 {
		return value
	}
	end := strings.IndexByte(value[open+1:], ']')
	if end < 0 {
		return value
	}
	return value[open+1 : open+1+end]
}

func parseNumeric(value string, rule models.FormatRule) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return decimal.Zero, apperrors.RuleError(apperrors.CodeFormat,
			string(rule.Operation), value, err)
	}
	return d, nil
}

func divideNumber(value string, rule models.FormatRule) (string, error) {
	d, err := parseNumeric(value, rule)
	if err != nil {
		return "", err
	}
	divisor, derr := decimal.NewFromString(strings.TrimSpace(rule.Value))
	if derr != nil || divisor.IsZero() {
		return "", apperrors.RuleError(apperrors.CodeFormat,
			string(rule.Operation), rule.Value, derr)
	}
	return d.Div(divisor).String(), nil
}

func absValue(value string, rule models.FormatRule) (string, error) {
	d, err := parseNumeric(value, rule)
	if err != nil {
		return "", err
	}
	return d.Abs().String(), nil
}

// xenditTime reformats a vendor ISO-8601 timestamp into the canonical
// "2006-01-02 15:04:05" boundary form, dropping sub-second precision.
func xenditTime(value string, rule models.FormatRule) (string, error) {
	trimmed := strings.TrimSpace(value)
	for _, layout := range xenditLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t.Format(models.TimeLayout), nil
		}
	}
	return "", apperrors.RuleError(apperrors.CodeTimeParse,
		string(rule.Operation), value, nil)
}
