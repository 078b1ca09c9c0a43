package matcher

import (
	"testing"

	"channel-reconciler/internal/models"
)

func TestIdentifierIndexClaimOrder(t *testing.T) {
	r1 := record("X", "1")
	r2 := record("X", "2")
	r3 := record("Y", "3")
	idx := newIdentifierIndex([]*models.OrderRecord{r1, r2, r3})

	got, ok := idx.claim("X")
	if !ok || got != r1 {
		t.Fatal("first claim should pop the first insertion")
	}
	got, ok = idx.claim("X")
	if !ok || got != r2 {
		t.Fatal("second claim should pop the next insertion")
	}
	if _, ok := idx.claim("X"); ok {
		t.Error("exhausted identifier should not claim")
	}
	if _, ok := idx.claim("missing"); ok {
		t.Error("unknown identifier should not claim")
	}

	rest := idx.unclaimed()
	if len(rest) != 1 || rest[0] != r3 {
		t.Errorf("unclaimed = %v, want only the Y record", rest)
	}
}
