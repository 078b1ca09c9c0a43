package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestFieldValueString(t *testing.T) {
	ts := time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name  string
		value FieldValue
		want  string
	}{
		{"time boundary form", TimeValue(ts), "2024-03-15 09:30:00"},
		{"amount keeps scale", AmountValue(decimal.RequireFromString("10.50")), "10.5"},
		{"large amount no exponent", AmountValue(decimal.RequireFromString("125000000")), "125000000"},
		{"string verbatim", StringValue("INV/001"), "INV/001"},
		{"status verbatim", StatusValue("SUCCESS"), "SUCCESS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.value.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFieldValueEqual(t *testing.T) {
	if !AmountValue(decimal.RequireFromString("10.0")).Equal(AmountValue(decimal.RequireFromString("10.00"))) {
		t.Error("amounts with different scale should compare equal")
	}
	if AmountValue(decimal.NewFromInt(1)).Equal(StringValue("1")) {
		t.Error("values of different kinds should not compare equal")
	}

	jakarta, err := time.LoadLocation("Asia/Jakarta")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	utc := TimeValue(time.Date(2024, 3, 15, 2, 30, 0, 0, time.UTC))
	local := TimeValue(time.Date(2024, 3, 15, 9, 30, 0, 0, jakarta))
	if !utc.Equal(local) {
		t.Error("same instant in different zones should compare equal")
	}
}

func TestFieldValueJSONRoundTrip(t *testing.T) {
	rec := NewOrderRecord()
	rec.SetField("time", TimeValue(time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)))
	rec.SetField("amount", AmountValue(decimal.RequireFromString("99.95")))
	rec.SetField("id", StringValue("ORD-1"))
	rec.ID = "ORD-1"
	rec.Status = "SUCCESS"

	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal record: %v", err)
	}

	var got OrderRecord
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal record: %v", err)
	}

	for name, want := range rec.Fields {
		gotFV, ok := got.Field(name)
		if !ok {
			t.Fatalf("field %q lost in round trip", name)
		}
		if !gotFV.Equal(want) {
			t.Errorf("field %q changed: got %v, want %v", name, gotFV, want)
		}
	}
	if got.ID != rec.ID || got.Status != rec.Status {
		t.Errorf("metadata changed: got id=%q status=%q", got.ID, got.Status)
	}
}

func TestOrderRecordFirstTypedFields(t *testing.T) {
	rec := NewOrderRecord()
	rec.SetField("ref", StringValue("x"))
	rec.SetField("fee", AmountValue(decimal.NewFromInt(2)))
	rec.SetField("amount", AmountValue(decimal.NewFromInt(100)))

	amt, ok := rec.Amount()
	if !ok {
		t.Fatal("expected an amount field")
	}
	if !amt.Equal(decimal.NewFromInt(2)) {
		t.Errorf("Amount() should return the first amount field in order, got %s", amt)
	}

	if _, ok := rec.Time(); ok {
		t.Error("Time() should report absence when no time field exists")
	}
}

func TestOrderRecordKey(t *testing.T) {
	build := func(id, amount string) *OrderRecord {
		rec := NewOrderRecord()
		rec.SetField("id", StringValue(id))
		rec.SetField("amount", AmountValue(decimal.RequireFromString(amount)))
		rec.Status = "SUCCESS"
		return rec
	}

	if build("A", "10").Key() != build("A", "10").Key() {
		t.Error("identical records should share a key")
	}
	if build("A", "10").Key() == build("A", "11").Key() {
		t.Error("records differing in one field should not share a key")
	}

	other := build("A", "10")
	other.Status = "FAILED"
	if build("A", "10").Key() == other.Key() {
		t.Error("records differing only in status should not share a key")
	}
}

func TestMatchedPairAmountDiff(t *testing.T) {
	a := NewOrderRecord()
	a.SetField("amount", AmountValue(decimal.RequireFromString("100.00")))
	b := NewOrderRecord()
	b.SetField("amount", AmountValue(decimal.RequireFromString("100.25")))

	diff, ok := MatchedPair{A: a, B: b}.AmountDiff()
	if !ok {
		t.Fatal("expected a diff when both sides carry amounts")
	}
	if !diff.Equal(decimal.RequireFromString("0.25")) {
		t.Errorf("diff = %s, want 0.25", diff)
	}

	noAmount := NewOrderRecord()
	if _, ok := (MatchedPair{A: a, B: noAmount}).AmountDiff(); ok {
		t.Error("expected no diff when one side has no amount")
	}
}

func TestStatsVerify(t *testing.T) {
	good := ReconciliationStats{
		MatchedCount: 3, DiffAmountCount: 1,
		OnlyInSourceACount: 2, OnlyInSourceBCount: 0,
		TotalSourceA: 6, TotalSourceB: 4,
	}
	if err := good.Verify(); err != nil {
		t.Errorf("consistent stats rejected: %v", err)
	}

	bad := good
	bad.TotalSourceB = 5
	if err := bad.Verify(); err == nil {
		t.Error("expected inconsistent stats to be rejected")
	}
}
