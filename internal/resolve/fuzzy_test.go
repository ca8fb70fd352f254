package resolve_test

import (
	"errors"
	"testing"

	"github.com/queryforge/queryforge-cli/internal/resolve"
)

func TestFuzzyMatch_ExactHit(t *testing.T) {
	items := []resolve.Named{
		{Key: "DE_Subscribers", Name: "Subscribers Master"},
		{Key: "DE_Orders", Name: "Orders Master"},
	}
	key, err := resolve.FuzzyMatch("Subscribers Master", items)
	if err != nil {
		t.Fatal(err)
	}
	if key != "DE_Subscribers" {
		t.Fatalf("expected DE_Subscribers, got %s", key)
	}
}

func TestFuzzyMatch_ExactKeyWins(t *testing.T) {
	items := []resolve.Named{
		{Key: "DE_Subscribers", Name: "Subscribers Master"},
		{Key: "DE_Orders", Name: "DE_Subscribers"},
	}
	key, err := resolve.FuzzyMatch("DE_Subscribers", items)
	if err != nil {
		t.Fatal(err)
	}
	if key != "DE_Subscribers" {
		t.Fatalf("expected key match to win, got %s", key)
	}
}

func TestFuzzyMatch_PartialHit(t *testing.T) {
	items := []resolve.Named{
		{Key: "DE_Subscribers", Name: "Subscribers Master"},
		{Key: "DE_Orders", Name: "Orders Master"},
	}
	key, err := resolve.FuzzyMatch("subsc", items)
	if err != nil {
		t.Fatal(err)
	}
	if key != "DE_Subscribers" {
		t.Fatalf("expected DE_Subscribers, got %s", key)
	}
}

func TestFuzzyMatch_CaseInsensitive(t *testing.T) {
	items := []resolve.Named{
		{Key: "DE_Subscribers", Name: "Subscribers Master"},
	}
	key, err := resolve.FuzzyMatch("SUBSCRIBERS", items)
	if err != nil {
		t.Fatal(err)
	}
	if key != "DE_Subscribers" {
		t.Fatalf("expected DE_Subscribers, got %s", key)
	}
}

func TestFuzzyMatch_NoMatch(t *testing.T) {
	items := []resolve.Named{
		{Key: "DE_Subscribers", Name: "Subscribers Master"},
	}
	_, err := resolve.FuzzyMatch("billing", items)
	if err == nil {
		t.Fatal("expected error for no match")
	}
}

func TestFuzzyMatch_Ambiguous(t *testing.T) {
	items := []resolve.Named{
		{Key: "DE_Subs_US", Name: "Subscribers US"},
		{Key: "DE_Subs_EU", Name: "Subscribers EU"},
	}
	_, err := resolve.FuzzyMatch("subscribers", items)
	if err == nil {
		t.Fatal("expected ambiguity error")
	}
	var ae *resolve.AmbiguousError
	if !errors.As(err, &ae) {
		t.Fatalf("expected AmbiguousError, got %T: %v", err, err)
	}
	if len(ae.Matches) == 0 {
		t.Fatalf("expected candidates in ambiguity error: %+v", ae)
	}
}

func TestFuzzyMatch_PrefersExactOverFuzzy(t *testing.T) {
	items := []resolve.Named{
		{Key: "DE_Orders", Name: "Orders"},
		{Key: "DE_Orders_Archive", Name: "Orders Archive"},
	}
	key, err := resolve.FuzzyMatch("Orders", items)
	if err != nil {
		t.Fatal(err)
	}
	if key != "DE_Orders" {
		t.Fatalf("expected exact match DE_Orders, got %s", key)
	}
}

func TestFuzzyMatch_EmptyQuery(t *testing.T) {
	items := []resolve.Named{{Key: "DE_Subscribers", Name: "Subscribers"}}
	_, err := resolve.FuzzyMatch("", items)
	if err == nil {
		t.Fatal("expected error for empty query")
	}
}

func TestFuzzyMatch_EmptyItems(t *testing.T) {
	_, err := resolve.FuzzyMatch("subscribers", nil)
	if err == nil {
		t.Fatal("expected error for empty items")
	}
}

func TestFuzzyMatchAll_ReturnsRanked(t *testing.T) {
	items := []resolve.Named{
		{Key: "DE_Subscribers", Name: "Subscribers Master"},
		{Key: "DE_Sends", Name: "Sends Master"},
		{Key: "DE_Shipping", Name: "Shipping"},
	}
	matches := resolve.FuzzyMatchAll("s", items, 10)
	if len(matches) == 0 {
		t.Fatal("expected at least one match")
	}
	for _, m := range matches {
		if m.Key == "" {
			t.Fatal("match should have non-empty key")
		}
	}
}

func TestFuzzyMatchAll_LimitCapsResults(t *testing.T) {
	items := []resolve.Named{
		{Key: "DE_A", Name: "Sync A"},
		{Key: "DE_B", Name: "Sync B"},
		{Key: "DE_C", Name: "Sync C"},
	}
	matches := resolve.FuzzyMatchAll("sync", items, 2)
	if len(matches) > 2 {
		t.Fatalf("expected at most 2 matches, got %d", len(matches))
	}
}
