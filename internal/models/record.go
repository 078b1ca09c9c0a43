package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	apperrors "channel-reconciler/pkg/errors"
)

// StatusUnmapped is the canonical status assigned when a record's raw status
// matches no configured status mapping.
const StatusUnmapped = "UNMAPPED"

// TimeLayout is the boundary form for timestamps in exports and stored rows
const TimeLayout = "2006-01-02 15:04:05"

// ParseAmount parses a fixed-point decimal amount string
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return d, nil
}

// ValueKind is the runtime type of a FieldValue
type ValueKind string

const (
	KindTime   ValueKind = "time"
	KindAmount ValueKind = "amount"
	KindString ValueKind = "string"
	KindStatus ValueKind = "status"
)

// FieldValue is one typed field of a canonical record. Exactly one of the
// payload members is meaningful, selected by Kind.
type FieldValue struct {
	Kind   ValueKind
	Time   time.Time
	Amount decimal.Decimal
	Text   string
}

// TimeValue builds a time-typed field value
func TimeValue(t time.Time) FieldValue {
	return FieldValue{Kind: KindTime, Time: t}
}

// AmountValue builds an amount-typed field value
func AmountValue(d decimal.Decimal) FieldValue {
	return FieldValue{Kind: KindAmount, Amount: d}
}

// StringValue builds a string-typed field value
func StringValue(s string) FieldValue {
	return FieldValue{Kind: KindString, Text: s}
}

// StatusValue builds a status-typed field value holding the canonical status
func StatusValue(s string) FieldValue {
	return FieldValue{Kind: KindStatus, Text: s}
}

// String renders the value in its boundary form: timestamps as
// "2006-01-02 15:04:05", amounts as plain decimal strings without exponent
// notation, strings and statuses verbatim.
func (fv FieldValue) String() string {
	switch fv.Kind {
	case KindTime:
		return fv.Time.Format(TimeLayout)
	case KindAmount:
		return fv.Amount.String()
	default:
		return fv.Text
	}
}

// Equal compares two field values. Amounts compare numerically so that
// "10.0" and "10.00" are equal; times compare as instants.
func (fv FieldValue) Equal(other FieldValue) bool {
	if fv.Kind != other.Kind {
		return false
	}
	switch fv.Kind {
	case KindTime:
		return fv.Time.Equal(other.Time)
	case KindAmount:
		return fv.Amount.Equal(other.Amount)
	default:
		return fv.Text == other.Text
	}
}

// fieldValueJSON is the stored wire shape of a FieldValue
type fieldValueJSON struct {
	Kind  ValueKind `json:"kind"`
	Value string    `json:"value"`
}

// MarshalJSON encodes the value as a kind/value pair so that typed fields
// survive a round trip through the historical store.
func (fv FieldValue) MarshalJSON() ([]byte, error) {
	out := fieldValueJSON{Kind: fv.Kind}
	switch fv.Kind {
	case KindTime:
		out.Value = fv.Time.UTC().Format(time.RFC3339Nano)
	case KindAmount:
		out.Value = fv.Amount.String()
	default:
		out.Value = fv.Text
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a kind/value pair back into a typed value
func (fv *FieldValue) UnmarshalJSON(data []byte) error {
	var in fieldValueJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	fv.Kind = in.Kind
	switch in.Kind {
	case KindTime:
		t, err := time.Parse(time.RFC3339Nano, in.Value)
		if err != nil {
			return fmt.Errorf("decode time value %q: %w", in.Value, err)
		}
		fv.Time = t
	case KindAmount:
		d, err := decimal.NewFromString(in.Value)
		if err != nil {
			return fmt.Errorf("decode amount value %q: %w", in.Value, err)
		}
		fv.Amount = d
	case KindString, KindStatus:
		fv.Text = in.Value
	default:
		return fmt.Errorf("decode field value: unknown kind %q", in.Kind)
	}
	return nil
}

// OrderRecord is one canonical record produced by the normalization pipeline.
// Fields is keyed by the configured field names; FieldOrder preserves mapping
// order for deterministic export.
type OrderRecord struct {
	Fields     map[string]FieldValue `json:"fields"`
	FieldOrder []string              `json:"fieldOrder"`

	// ID is the value of the configured identifier field, in boundary form
	ID string `json:"id"`

	// RawStatus is the status string after format rules but before status
	// mapping; Status is the canonical mapped status or StatusUnmapped.
	RawStatus string `json:"rawStatus,omitempty"`
	Status    string `json:"status,omitempty"`

	// Original holds the preserved raw column values for mappings with
	// saveOriginal set, keyed by field name.
	Original map[string]string `json:"original,omitempty"`

	// Historical marks records merged in from the historical store rather
	// than parsed from the current upload.
	Historical bool `json:"historical,omitempty"`
}

// NewOrderRecord builds an empty record ready to receive fields
func NewOrderRecord() *OrderRecord {
	return &OrderRecord{Fields: make(map[string]FieldValue)}
}

// SetField stores a field value, tracking first-set order
func (r *OrderRecord) SetField(name string, value FieldValue) {
	if _, exists := r.Fields[name]; !exists {
		r.FieldOrder = append(r.FieldOrder, name)
	}
	r.Fields[name] = value
}

// Field looks up a field value by name
func (r *OrderRecord) Field(name string) (FieldValue, bool) {
	fv, ok := r.Fields[name]
	return fv, ok
}

// firstOfKind returns the first field of the given kind in mapping order
func (r *OrderRecord) firstOfKind(kind ValueKind) (FieldValue, bool) {
	for _, name := range r.FieldOrder {
		if fv, ok := r.Fields[name]; ok && fv.Kind == kind {
			return fv, true
		}
	}
	return FieldValue{}, false
}

// Time returns the record's first time-typed field, if any
func (r *OrderRecord) Time() (time.Time, bool) {
	fv, ok := r.firstOfKind(KindTime)
	if !ok {
		return time.Time{}, false
	}
	return fv.Time, true
}

// Amount returns the record's first amount-typed field, if any
func (r *OrderRecord) Amount() (decimal.Decimal, bool) {
	fv, ok := r.firstOfKind(KindAmount)
	if !ok {
		return decimal.Zero, false
	}
	return fv.Amount, true
}

// Key returns a deterministic full-field identity string used for duplicate
// removal. Two records with equal fields in equal order produce equal keys.
func (r *OrderRecord) Key() string {
	var b strings.Builder
	for _, name := range r.FieldOrder {
		fv := r.Fields[name]
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(string(fv.Kind))
		b.WriteByte(':')
		b.WriteString(fv.String())
		b.WriteByte('\x1f')
	}
	b.WriteString("status:")
	b.WriteString(r.Status)
	return b.String()
}

// MatchedPair joins one record from each source on a shared identifier
type MatchedPair struct {
	A *OrderRecord `json:"sourceA"`
	B *OrderRecord `json:"sourceB"`
}

// AmountDiff returns the absolute amount difference between the pair's
// records, and whether both sides carry an amount.
func (p MatchedPair) AmountDiff() (decimal.Decimal, bool) {
	a, okA := p.A.Amount()
	b, okB := p.B.Amount()
	if !okA || !okB {
		return decimal.Zero, false
	}
	return a.Sub(b).Abs(), true
}

// ReconciliationResult partitions all input records into the four outcome
// buckets. Matched holds identifier matches with agreeing amounts; DiffAmount
// holds identifier matches whose amounts disagree beyond tolerance.
type ReconciliationResult struct {
	Matched    []MatchedPair       `json:"matched"`
	DiffAmount []MatchedPair       `json:"diffAmount"`
	OnlyInA    []*OrderRecord      `json:"onlyInSourceA"`
	OnlyInB    []*OrderRecord      `json:"onlyInSourceB"`
	Stats      ReconciliationStats `json:"stats"`
}

// ReconciliationStats summarizes one run. The identities
// matched+diff+onlyInA == totalA and matched+diff+onlyInB == totalB hold for
// every run.
type ReconciliationStats struct {
	MatchedCount       int `json:"matchedCount"`
	DiffAmountCount    int `json:"diffAmountCount"`
	OnlyInSourceACount int `json:"onlyInSourceACount"`
	OnlyInSourceBCount int `json:"onlyInSourceBCount"`
	TotalSourceA       int `json:"totalSourceA"`
	TotalSourceB       int `json:"totalSourceB"`
}

// Verify checks the count identities against the result buckets
func (s ReconciliationStats) Verify() error {
	if s.MatchedCount+s.DiffAmountCount+s.OnlyInSourceACount != s.TotalSourceA {
		return apperrors.InternalError("verify stats",
			fmt.Errorf("source A counts do not add up: %d+%d+%d != %d",
				s.MatchedCount, s.DiffAmountCount, s.OnlyInSourceACount, s.TotalSourceA))
	}
	if s.MatchedCount+s.DiffAmountCount+s.OnlyInSourceBCount != s.TotalSourceB {
		return apperrors.InternalError("verify stats",
			fmt.Errorf("source B counts do not add up: %d+%d+%d != %d",
				s.MatchedCount, s.DiffAmountCount, s.OnlyInSourceBCount, s.TotalSourceB))
	}
	return nil
}
