// Package models defines the configuration and record shapes shared by the
// reconciliation engine: channel configurations with per-column mapping
// rules, canonical order records, and reconciliation results.
//
// JSON field names are camelCase to stay wire-compatible with existing
// channel configuration documents.
package models

import (
	"fmt"
	"strings"
	"time"

	apperrors "channel-reconciler/pkg/errors"
)

// FieldType determines how a mapped column is coerced into a typed value
type FieldType string

const (
	FieldOrderTime   FieldType = "OrderTime"
	FieldOrderStatus FieldType = "OrderStatus"
	FieldOrderString FieldType = "OrderString"
	FieldOrderAmount FieldType = "OrderAmount"
)

// IsValid checks if the field type is one of the four supported kinds
func (ft FieldType) IsValid() bool {
	switch ft {
	case FieldOrderTime, FieldOrderStatus, FieldOrderString, FieldOrderAmount:
		return true
	default:
		return false
	}
}

// RuleType selects the parser used for a mapped column's field type
type RuleType string

const (
	RuleTimeNormal    RuleType = "ORDER_TIME_NORMAL"
	RuleTimeTimestamp RuleType = "ORDER_TIME_TIMESTAMP"
	RuleStatusNormal  RuleType = "ORDER_STATUS_NORMAL"
	RuleStringNormal  RuleType = "ORDER_STRING_NORMAL"
	RuleAmountNormal  RuleType = "ORDER_AMOUNT_NORMAL"
)

// IsValid checks if the rule type is known
func (rt RuleType) IsValid() bool {
	switch rt {
	case RuleTimeNormal, RuleTimeTimestamp, RuleStatusNormal, RuleStringNormal, RuleAmountNormal:
		return true
	default:
		return false
	}
}

// ruleFamilies maps each field type to the rule types its parser accepts
var ruleFamilies = map[FieldType][]RuleType{
	FieldOrderTime:   {RuleTimeNormal, RuleTimeTimestamp},
	FieldOrderStatus: {RuleStatusNormal},
	FieldOrderString: {RuleStringNormal},
	FieldOrderAmount: {RuleAmountNormal},
}

// Allows reports whether the rule type belongs to the field type's parser
// family.
func (ft FieldType) Allows(rt RuleType) bool {
	for _, allowed := range ruleFamilies[ft] {
		if rt == allowed {
			return true
		}
	}
	return false
}

// RulePhase says when a format rule runs relative to type coercion
type RulePhase string

const (
	PhasePre  RulePhase = "pre"
	PhasePost RulePhase = "post"
)

// Operation is a format rule's string transform
type Operation string

const (
	OpDelPre         Operation = "DEL_PRE"
	OpDelAfter       Operation = "DEL_AFTER"
	OpDelChar        Operation = "DEL_CHAR"
	OpReplaceTwoChar Operation = "REPLACE_TWO_CHAR"
	OpBraValue       Operation = "BRA_VALUE"
	OpDivideNumber   Operation = "DIVIDE_NUMBER"
	OpAbsValue       Operation = "ABS_VALUE"
	OpAddCharPre     Operation = "ADD_CHAR_PRE"
	OpAddCharAfter   Operation = "ADD_CHAR_AFTER"
	OpXenditTime     Operation = "XENDIT_TIME"
)

// FormatRule is one step of a mapping's ordered transform chain
type FormatRule struct {
	Phase     RulePhase `json:"type"`
	Operation Operation `json:"operation"`
	Value     string    `json:"value"`
}

// ColumnMapping maps one raw source column to one canonical field
type ColumnMapping struct {
	ID           string       `json:"id"`
	SourceColumn string       `json:"sourceColumn"`
	FieldType    FieldType    `json:"fieldType"`
	FieldName    string       `json:"fieldName"`
	RuleType     RuleType     `json:"ruleType"`
	RuleConfig   string       `json:"ruleConfig"`
	SaveOriginal bool         `json:"saveOriginal"`
	FormatRules  []FormatRule `json:"formatRules"`
}

// Validate checks the mapping's internal consistency
func (m *ColumnMapping) Validate() error {
	if strings.TrimSpace(m.FieldName) == "" {
		return apperrors.ConfigError(apperrors.CodeInvalidConfig,
			"mapping.fieldName", m.FieldName, nil)
	}
	if !m.FieldType.IsValid() {
		return apperrors.ConfigError(apperrors.CodeInvalidConfig,
			fmt.Sprintf("mapping %q fieldType", m.FieldName), string(m.FieldType), nil)
	}
	if !m.RuleType.IsValid() {
		return apperrors.ConfigError(apperrors.CodeInvalidConfig,
			fmt.Sprintf("mapping %q ruleType", m.FieldName), string(m.RuleType), nil)
	}
	if !m.FieldType.Allows(m.RuleType) {
		return apperrors.ConfigError(apperrors.CodeInvalidConfig,
			fmt.Sprintf("mapping %q ruleType", m.FieldName),
			fmt.Sprintf("%s not usable with %s", m.RuleType, m.FieldType), nil)
	}
	return nil
}

// SourceConfig describes one side's raw input shape
type SourceConfig struct {
	Header          int             `json:"header"`
	Timezone        string          `json:"timezone"`
	RemoveDuplicate bool            `json:"removeDuplicate"`
	Mappings        []ColumnMapping `json:"mappings"`
}

// Location resolves the source's timezone. An empty timezone means UTC.
func (sc *SourceConfig) Location() (*time.Location, error) {
	if strings.TrimSpace(sc.Timezone) == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(sc.Timezone)
	if err != nil {
		return nil, apperrors.ConfigError(apperrors.CodeInvalidConfig,
			"timezone", sc.Timezone, err)
	}
	return loc, nil
}

// Validate checks the source configuration
func (sc *SourceConfig) Validate() error {
	if sc.Header < 0 {
		return apperrors.ConfigError(apperrors.CodeInvalidConfig,
			"header", sc.Header, nil)
	}
	if len(sc.Mappings) == 0 {
		return apperrors.ConfigError(apperrors.CodeMissingConfig, "mappings", nil, nil)
	}
	if _, err := sc.Location(); err != nil {
		return err
	}
	seen := make(map[string]bool)
	for i := range sc.Mappings {
		m := &sc.Mappings[i]
		if err := m.Validate(); err != nil {
			return err
		}
		if seen[m.FieldName] {
			return apperrors.ConfigError(apperrors.CodeInvalidConfig,
				"mapping.fieldName", fmt.Sprintf("duplicate field name %q", m.FieldName), nil)
		}
		seen[m.FieldName] = true
	}
	return nil
}

// StatusMapping folds a set of raw status strings into one canonical status
type StatusMapping struct {
	SourceStatus []string `json:"sourceStatus"`
	TargetStatus string   `json:"targetStatus"`
}

// DefaultHistoryDays is applied when a config enables historical matching
// without naming a window.
const DefaultHistoryDays = 5

// MatchConfig configures the identifier join between the two sources
type MatchConfig struct {
	SourceAIDField       string          `json:"sourceAIdField"`
	SourceAStatusMapping []StatusMapping `json:"sourceAStatusMapping"`
	SourceBIDField       string          `json:"sourceBIdField"`
	SourceBStatusMapping []StatusMapping `json:"sourceBStatusMapping"`
	UseHistoricalSourceA bool            `json:"useHistoricalSourceA,omitempty"`
	UseHistoricalSourceB bool            `json:"useHistoricalSourceB,omitempty"`
	HistoryDays          int             `json:"historyDays,omitempty"`

	// AmountTolerance is an optional decimal string; when set, amount
	// comparison allows an absolute difference up to this value instead of
	// exact fixed-point equality.
	AmountTolerance string `json:"amountTolerance,omitempty"`
}

// ApplyDefaults fills the history window for configs that enable historical
// matching without specifying one, matching the behavior of stored configs
// written by earlier versions.
func (mc *MatchConfig) ApplyDefaults() {
	if (mc.UseHistoricalSourceA || mc.UseHistoricalSourceB) && mc.HistoryDays == 0 {
		mc.HistoryDays = DefaultHistoryDays
	}
}

// UsesHistory reports whether either side folds in historical records
func (mc *MatchConfig) UsesHistory() bool {
	return mc.UseHistoricalSourceA || mc.UseHistoricalSourceB
}

// validateStatusMappings rejects a raw status appearing in more than one
// mapping of the same list.
func validateStatusMappings(setting string, mappings []StatusMapping) error {
	seen := make(map[string]bool)
	for _, sm := range mappings {
		for _, raw := range sm.SourceStatus {
			if seen[raw] {
				return apperrors.ConfigError(apperrors.CodeAmbiguousStatusMapping, setting, raw, nil)
			}
			seen[raw] = true
		}
	}
	return nil
}

// Validate checks the match configuration
func (mc *MatchConfig) Validate() error {
	if strings.TrimSpace(mc.SourceAIDField) == "" {
		return apperrors.ConfigError(apperrors.CodeMissingConfig, "matchConfig.sourceAIdField", nil, nil)
	}
	if strings.TrimSpace(mc.SourceBIDField) == "" {
		return apperrors.ConfigError(apperrors.CodeMissingConfig, "matchConfig.sourceBIdField", nil, nil)
	}
	if err := validateStatusMappings("matchConfig.sourceAStatusMapping", mc.SourceAStatusMapping); err != nil {
		return err
	}
	if err := validateStatusMappings("matchConfig.sourceBStatusMapping", mc.SourceBStatusMapping); err != nil {
		return err
	}
	if mc.UsesHistory() && mc.HistoryDays <= 0 {
		return apperrors.ConfigError(apperrors.CodeInvalidHistoryWindow,
			"matchConfig.historyDays", mc.HistoryDays, nil)
	}
	if mc.AmountTolerance != "" {
		if _, err := ParseAmount(mc.AmountTolerance); err != nil {
			return apperrors.ConfigError(apperrors.CodeInvalidConfig,
				"matchConfig.amountTolerance", mc.AmountTolerance, err)
		}
	}
	return nil
}

// ChannelConfig owns the per-side source configurations and the match
// configuration for one reconciliation channel. The engine reads it as an
// immutable snapshot; it never mutates or persists configuration.
type ChannelConfig struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	SourceAName string       `json:"sourceAName"`
	SourceBName string       `json:"sourceBName"`
	Type        string       `json:"type"`
	CreatedAt   string       `json:"createdAt"`
	UpdatedAt   string       `json:"updatedAt"`
	SourceA     SourceConfig `json:"sourceAConfig"`
	SourceB     SourceConfig `json:"sourceBConfig"`
	Match       MatchConfig  `json:"matchConfig"`
}

// Validate performs the up-front configuration-shape checks. A failure here
// fails the entire run before any normalization begins.
func (cc *ChannelConfig) Validate() error {
	if err := cc.SourceA.Validate(); err != nil {
		return err
	}
	if err := cc.SourceB.Validate(); err != nil {
		return err
	}
	if err := cc.Match.Validate(); err != nil {
		return err
	}
	if !cc.SourceA.hasField(cc.Match.SourceAIDField) {
		return apperrors.ConfigError(apperrors.CodeInvalidConfig,
			"matchConfig.sourceAIdField",
			fmt.Sprintf("field %q is not mapped in source A", cc.Match.SourceAIDField), nil)
	}
	if !cc.SourceB.hasField(cc.Match.SourceBIDField) {
		return apperrors.ConfigError(apperrors.CodeInvalidConfig,
			"matchConfig.sourceBIdField",
			fmt.Sprintf("field %q is not mapped in source B", cc.Match.SourceBIDField), nil)
	}
	return nil
}

func (sc *SourceConfig) hasField(name string) bool {
	for i := range sc.Mappings {
		if sc.Mappings[i].FieldName == name {
			return true
		}
	}
	return false
}
