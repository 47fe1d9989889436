package history

import (
	"testing"
)

func TestRecordBoundsList(t *testing.T) {
	var list []Entry
	for i := 0; i < 8; i++ {
		list = Record(list, "sankey", map[string]string{
			"dataset": "CLPFUv2.0",
			"year":    string(rune('0' + i)),
		}, 5)
	}

	if len(list) != 5 {
		t.Fatalf("expected list bounded at 5, got %d", len(list))
	}
	if list[0]["year"] != "7" {
		t.Errorf("expected newest entry first, got year %q", list[0]["year"])
	}
	if list[4]["year"] != "3" {
		t.Errorf("expected oldest surviving entry last, got year %q", list[4]["year"])
	}
}

func TestRecordPromotesDuplicate(t *testing.T) {
	fields := func(year string) map[string]string {
		return map[string]string{"dataset": "CLPFUv2.0", "year": year}
	}

	var list []Entry
	list = Record(list, "sankey", fields("1971"), 5)
	list = Record(list, "sankey", fields("1980"), 5)
	list = Record(list, "sankey", fields("1990"), 5)

	// Re-running the middle query moves it to the front without growing
	// the list.
	list = Record(list, "sankey", fields("1980"), 5)

	if len(list) != 3 {
		t.Fatalf("expected 3 entries after duplicate re-record, got %d", len(list))
	}
	if list[0]["year"] != "1980" {
		t.Errorf("expected promoted entry first, got year %q", list[0]["year"])
	}
	if list[1]["year"] != "1990" || list[2]["year"] != "1971" {
		t.Errorf("unexpected remainder order: %v", list)
	}
}

func TestRecordDistinguishesPlotType(t *testing.T) {
	fields := map[string]string{"dataset": "CLPFUv2.0", "year": "1971"}

	var list []Entry
	list = Record(list, "sankey", fields, 5)
	list = Record(list, "matrices", fields, 5)

	if len(list) != 2 {
		t.Fatalf("same fields under different plot types must not dedupe, got %d entries", len(list))
	}
}

func TestDelete(t *testing.T) {
	var list []Entry
	list = Record(list, "sankey", map[string]string{"year": "1971"}, 5)
	list = Record(list, "sankey", map[string]string{"year": "1980"}, 5)

	got, err := Delete(list, 0)
	if err != nil {
		t.Fatalf("Delete(0) failed: %v", err)
	}
	if len(got) != 1 || got[0]["year"] != "1971" {
		t.Errorf("unexpected list after delete: %v", got)
	}

	for _, index := range []int{-1, 1, 99} {
		if _, err := Delete(got, index); err == nil {
			t.Errorf("Delete(%d) on 1-entry list should fail", index)
		}
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	var list []Entry
	list = Record(list, "xy_plot", map[string]string{
		"dataset":    "CLPFUv2.0",
		"efficiency": "etapf",
		"country":    "Ghana,South Africa",
	}, 5)

	blob, err := Encode(list)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	got := Decode(blob)
	if len(got) != 1 {
		t.Fatalf("expected 1 entry after round trip, got %d", len(got))
	}
	if !got[0].equal(list[0]) {
		t.Errorf("round trip changed entry: %v != %v", got[0], list[0])
	}
}

func TestDecodeToleratesGarbage(t *testing.T) {
	cases := []string{
		"",
		"not base64 %%%",
		"bm90IGpzb24=", // valid base64, invalid JSON
	}
	for _, blob := range cases {
		if got := Decode(blob); got != nil {
			t.Errorf("Decode(%q) = %v, want nil", blob, got)
		}
	}
}
