package rules

import (
	"testing"

	"channel-reconciler/internal/models"
	apperrors "channel-reconciler/pkg/errors"
)

func pre(op models.Operation, value string) models.FormatRule {
	return models.FormatRule{Phase: models.PhasePre, Operation: op, Value: value}
}

func TestApplyOperations(t *testing.T) {
	tests := []struct {
		name  string
		input string
		rule  models.FormatRule
		want  string
	}{
		{"del pre", "TRX-1001", pre(models.OpDelPre, "4"), "1001"},
		{"del pre whole string", "ab", pre(models.OpDelPre, "5"), ""},
		{"del after", "1001-ID", pre(models.OpDelAfter, "3"), "1001"},
		{"del char", "1,000,000", pre(models.OpDelChar, ","), "1000000"},
		{"replace pair", "2024/01/05", pre(models.OpReplaceTwoChar, "/,-"), "2024-01-05"},
		{"bracket extract", "payment [INV001] done", pre(models.OpBraValue, ""), "INV001"},
		{"bracket enclosing", "[1001]", pre(models.OpBraValue, ""), "1001"},
		{"bracket absent is no-op", "1001", pre(models.OpBraValue, ""), "1001"},
		{"divide", "150000", pre(models.OpDivideNumber, "100"), "1500"},
		{"divide by one is no-op", "99.95", pre(models.OpDivideNumber, "1"), "99.95"},
		{"abs negative", "-250.75", pre(models.OpAbsValue, ""), "250.75"},
		{"abs positive is no-op", "250.75", pre(models.OpAbsValue, ""), "250.75"},
		{"add char pre", "1001", pre(models.OpAddCharPre, "INV"), "INV1001"},
		{"add char after", "INV", pre(models.OpAddCharAfter, "-X"), "INV-X"},
		{"xendit time", "2024-03-15T09:30:05", pre(models.OpXenditTime, ""), "2024-03-15 09:30:05"},
		{"xendit time with fraction", "2024-03-15T09:30:05.123456", pre(models.OpXenditTime, ""), "2024-03-15 09:30:05"},
		{"xendit time with zone", "2024-03-15T09:30:05+07:00", pre(models.OpXenditTime, ""), "2024-03-15 09:30:05"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Apply(tt.input, []models.FormatRule{tt.rule}, models.PhasePre)
			if err != nil {
				t.Fatalf("Apply() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Apply(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestApplyErrors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		rule     models.FormatRule
		wantCode apperrors.Code
	}{
		{"unknown operation", "x", pre("SHOUT", ""), apperrors.CodeUnsupportedOperation},
		{"bad count operand", "x", pre(models.OpDelPre, "many"), apperrors.CodeFormat},
		{"negative count operand", "x", pre(models.OpDelAfter, "-1"), apperrors.CodeFormat},
		{"malformed replace operand", "x", pre(models.OpReplaceTwoChar, "nodelimiter"), apperrors.CodeFormat},
		{"divide non-numeric input", "abc", pre(models.OpDivideNumber, "100"), apperrors.CodeFormat},
		{"divide by zero", "100", pre(models.OpDivideNumber, "0"), apperrors.CodeFormat},
		{"abs non-numeric input", "n/a", pre(models.OpAbsValue, ""), apperrors.CodeFormat},
		{"xendit bad timestamp", "15/03/2024", pre(models.OpXenditTime, ""), apperrors.CodeTimeParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Apply(tt.input, []models.FormatRule{tt.rule}, models.PhasePre)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !apperrors.HasCode(err, tt.wantCode) {
				t.Errorf("expected code %s, got %v", tt.wantCode, err)
			}
		})
	}
}

func TestApplyPhaseFiltering(t *testing.T) {
	chain := []models.FormatRule{
		{Phase: models.PhasePre, Operation: models.OpDelChar, Value: ","},
		{Phase: models.PhasePost, Operation: models.OpAddCharPre, Value: "Rp"},
	}

	got, err := Apply("1,500", chain, models.PhasePre)
	if err != nil {
		t.Fatalf("pre phase: %v", err)
	}
	if got != "1500" {
		t.Errorf("pre phase = %q, want %q", got, "1500")
	}

	got, err = Apply("1500", chain, models.PhasePost)
	if err != nil {
		t.Fatalf("post phase: %v", err)
	}
	if got != "Rp1500" {
		t.Errorf("post phase = %q, want %q", got, "Rp1500")
	}
}

func TestApplyIsOrderSensitive(t *testing.T) {
	r1 := pre(models.OpDelPre, "1")
	r2 := pre(models.OpAddCharPre, "#")

	forward, err := Apply("abc", []models.FormatRule{r1, r2}, models.PhasePre)
	if err != nil {
		t.Fatal(err)
	}
	reversed, err := Apply("abc", []models.FormatRule{r2, r1}, models.PhasePre)
	if err != nil {
		t.Fatal(err)
	}
	if forward == reversed {
		t.Errorf("reordering non-commuting rules should change output, both gave %q", forward)
	}
}

func TestApplyComposes(t *testing.T) {
	r1 := pre(models.OpDelChar, ",")
	r2 := pre(models.OpDivideNumber, "100")

	step1, err := Apply("1,250,000", []models.FormatRule{r1}, models.PhasePre)
	if err != nil {
		t.Fatal(err)
	}
	stepwise, err := Apply(step1, []models.FormatRule{r2}, models.PhasePre)
	if err != nil {
		t.Fatal(err)
	}
	chained, err := Apply("1,250,000", []models.FormatRule{r1, r2}, models.PhasePre)
	if err != nil {
		t.Fatal(err)
	}
	if stepwise != chained {
		t.Errorf("chain application diverged: stepwise %q, chained %q", stepwise, chained)
	}
}
