package models

import (
	"encoding/json"
	"strings"
	"testing"

	apperrors "channel-reconciler/pkg/errors"
)

func validSourceConfig() SourceConfig {
	return SourceConfig{
		Header:   1,
		Timezone: "Asia/Jakarta",
		Mappings: []ColumnMapping{
			{ID: "m1", SourceColumn: "Order ID", FieldType: FieldOrderString, FieldName: "id", RuleType: RuleStringNormal},
			{ID: "m2", SourceColumn: "Amount", FieldType: FieldOrderAmount, FieldName: "amount", RuleType: RuleAmountNormal},
			{ID: "m3", SourceColumn: "Created", FieldType: FieldOrderTime, FieldName: "time", RuleType: RuleTimeNormal, RuleConfig: "2006-01-02 15:04:05"},
			{ID: "m4", SourceColumn: "Status", FieldType: FieldOrderStatus, FieldName: "status", RuleType: RuleStatusNormal},
		},
	}
}

func validChannelConfig() *ChannelConfig {
	return &ChannelConfig{
		ID:      "cfg-1",
		Name:    "test channel",
		SourceA: validSourceConfig(),
		SourceB: validSourceConfig(),
		Match: MatchConfig{
			SourceAIDField: "id",
			SourceBIDField: "id",
			SourceAStatusMapping: []StatusMapping{
				{SourceStatus: []string{"PAID", "SETTLED"}, TargetStatus: "SUCCESS"},
			},
			SourceBStatusMapping: []StatusMapping{
				{SourceStatus: []string{"ok"}, TargetStatus: "SUCCESS"},
			},
		},
	}
}

func TestChannelConfigValidate(t *testing.T) {
	cfg := validChannelConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

func TestValidateAmbiguousStatusMapping(t *testing.T) {
	cfg := validChannelConfig()
	cfg.Match.SourceAStatusMapping = []StatusMapping{
		{SourceStatus: []string{"PAID"}, TargetStatus: "SUCCESS"},
		{SourceStatus: []string{"PAID"}, TargetStatus: "FAILED"},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected ambiguous status mapping to be rejected")
	}
	if !apperrors.HasCode(err, apperrors.CodeAmbiguousStatusMapping) {
		t.Errorf("expected CodeAmbiguousStatusMapping, got %v", err)
	}
}

func TestValidateRuleTypeFamily(t *testing.T) {
	cfg := validChannelConfig()
	cfg.SourceA.Mappings[1].RuleType = RuleTimeNormal

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected amount field with time rule type to be rejected")
	}
}

func TestValidateHistoryWindow(t *testing.T) {
	tests := []struct {
		name    string
		days    int
		useHist bool
		wantErr bool
	}{
		{"history disabled ignores window", 0, false, false},
		{"history enabled with window", 3, true, false},
		{"history enabled zero window", 0, true, true},
		{"history enabled negative window", -1, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validChannelConfig()
			cfg.Match.UseHistoricalSourceA = tt.useHist
			cfg.Match.HistoryDays = tt.days

			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if tt.wantErr && !apperrors.HasCode(err, apperrors.CodeInvalidHistoryWindow) {
				t.Errorf("expected CodeInvalidHistoryWindow, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateDuplicateFieldNames(t *testing.T) {
	cfg := validChannelConfig()
	cfg.SourceA.Mappings[1].FieldName = "id"

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected duplicate field name to be rejected")
	}
}

func TestValidateBadTimezone(t *testing.T) {
	cfg := validChannelConfig()
	cfg.SourceB.Timezone = "Mars/Olympus"

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected unknown timezone to be rejected")
	}
}

func TestApplyDefaultsHistoryDays(t *testing.T) {
	mc := MatchConfig{UseHistoricalSourceB: true}
	mc.ApplyDefaults()
	if mc.HistoryDays != DefaultHistoryDays {
		t.Errorf("expected default history window %d, got %d", DefaultHistoryDays, mc.HistoryDays)
	}

	mc = MatchConfig{}
	mc.ApplyDefaults()
	if mc.HistoryDays != 0 {
		t.Errorf("history window should stay 0 when history is disabled, got %d", mc.HistoryDays)
	}

	mc = MatchConfig{UseHistoricalSourceA: true, HistoryDays: 9}
	mc.ApplyDefaults()
	if mc.HistoryDays != 9 {
		t.Errorf("explicit history window overwritten: got %d", mc.HistoryDays)
	}
}

func TestChannelConfigJSONFieldNames(t *testing.T) {
	cfg := validChannelConfig()
	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}

	for _, key := range []string{
		`"sourceAConfig"`, `"sourceBConfig"`, `"matchConfig"`,
		`"sourceAIdField"`, `"sourceStatus"`, `"fieldType"`, `"ruleType"`,
	} {
		if !strings.Contains(string(data), key) {
			t.Errorf("serialized config missing key %s", key)
		}
	}
}
