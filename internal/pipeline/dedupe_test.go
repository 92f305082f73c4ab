package pipeline

import (
	"reflect"
	"testing"

	"github.com/jantolip/consensus/pkg/models"
)

func rec(id, name string, stocks ...string) models.FundRecord {
	return models.FundRecord{ID: id, Name: name, TopUSStocks: stocks}
}

func names(records []models.FundRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Name
	}
	return out
}

func TestDedupeFirstSeenWins(t *testing.T) {
	in := []models.FundRecord{
		rec("1", "Fund A"),
		rec("2", "Fund A Plus"), // 90 vs "Fund A" — dropped at 85
		rec("3", "Fund B"),      // 83 vs "Fund A" — kept
	}

	got := Dedupe(in, 85)
	want := []string{"Fund A", "Fund B"}
	if !reflect.DeepEqual(names(got), want) {
		t.Errorf("Dedupe = %v, want %v", names(got), want)
	}
}

func TestDedupePreservesInputOrder(t *testing.T) {
	in := []models.FundRecord{
		rec("1", "Zebra Fund"),
		rec("2", "Alpha Fund"),
		rec("3", "Middle Fund"),
	}

	got := Dedupe(in, 95)
	if !reflect.DeepEqual(names(got), []string{"Zebra Fund", "Alpha Fund", "Middle Fund"}) {
		t.Errorf("order not preserved: %v", names(got))
	}
}

func TestDedupeThreshold100RemovesOnlyExactDuplicates(t *testing.T) {
	in := []models.FundRecord{
		rec("1", "Fund A"),
		rec("2", "Fund A"),      // exact duplicate — dropped
		rec("3", "Fund A Plus"), // near-duplicate — kept at 100
	}

	got := Dedupe(in, 100)
	want := []string{"Fund A", "Fund A Plus"}
	if !reflect.DeepEqual(names(got), want) {
		t.Errorf("Dedupe at 100 = %v, want %v", names(got), want)
	}
}

func TestDedupeThreshold0KeepsAtMostOne(t *testing.T) {
	in := []models.FundRecord{
		rec("1", "Completely Different"),
		rec("2", "Nothing Alike"),
		rec("3", "Third Fund"),
	}

	got := Dedupe(in, 0)
	if len(got) != 1 {
		t.Fatalf("Dedupe at 0 kept %d records, want 1", len(got))
	}
	if got[0].Name != "Completely Different" {
		t.Errorf("survivor = %q, want the first record", got[0].Name)
	}
}

func TestDedupeEmptyInput(t *testing.T) {
	if got := Dedupe(nil, 85); len(got) != 0 {
		t.Errorf("Dedupe(nil) = %v, want empty", got)
	}
}

func TestDedupeSingleRecord(t *testing.T) {
	in := []models.FundRecord{rec("1", "Only Fund")}
	got := Dedupe(in, 0)
	if len(got) != 1 {
		t.Errorf("single record must always survive, got %d", len(got))
	}
}
