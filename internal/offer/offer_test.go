package offer

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseCatalog(t *testing.T) {
	c, err := ParseCatalog([]byte(`
offers:
  - task: deliver
    conditions: [escort, fast]
  - task: clean
`))
	if err != nil {
		t.Fatalf("ParseCatalog() error = %v", err)
	}
	if len(c.Offers) != 2 {
		t.Fatalf("len(Offers) = %d, want 2", len(c.Offers))
	}
	if c.Offers[0].Task != "deliver" || len(c.Offers[0].Conditions) != 2 {
		t.Errorf("Offers[0] = %+v", c.Offers[0])
	}
	if c.Offers[1].Conditions == nil {
		t.Error("missing conditions should decode as an empty list")
	}
}

func TestParseCatalog_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"bad yaml", "offers: [\n"},
		{"missing task", "offers:\n  - conditions: [a]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseCatalog([]byte(tt.data)); err == nil {
				t.Error("ParseCatalog() should fail")
			}
		})
	}
}

func TestLoadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "offers.yaml")
	if err := os.WriteFile(path, []byte("offers:\n  - task: deliver\n"), 0644); err != nil {
		t.Fatal(err)
	}
	c, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog() error = %v", err)
	}
	if len(c.Offers) != 1 {
		t.Errorf("len(Offers) = %d, want 1", len(c.Offers))
	}

	if _, err := LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadCatalog(missing) should fail")
	}
}

func TestQueue_CatalogOrder(t *testing.T) {
	offers := []Offer{{Task: "a"}, {Task: "b"}, {Task: "c"}}
	q := NewQueue(offers, nil)

	if q.Max().Task != "a" {
		t.Errorf("Max() = %v, want a", q.Max())
	}
	var got []string
	for q.HasNext() {
		got = append(got, q.Next().Task)
	}
	if len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Errorf("order = %v, want [a b c]", got)
	}
	if !q.Next().IsZero() {
		t.Error("Next() after exhaustion should return the zero Offer")
	}
	if q.Remaining() != 0 {
		t.Errorf("Remaining() = %d, want 0", q.Remaining())
	}

	q.Reset()
	if q.Remaining() != 3 || !q.HasNext() {
		t.Error("Reset() should rewind the queue")
	}
}

func TestQueue_SortedByValue(t *testing.T) {
	weights := map[string]float64{"low": 1, "mid": 5, "high": 9, "mid2": 5}
	value := func(o Offer) float64 { return weights[o.Task] }

	q := NewQueue([]Offer{{Task: "low"}, {Task: "mid"}, {Task: "high"}, {Task: "mid2"}}, value)

	want := []string{"high", "mid", "mid2", "low"}
	if q.Max().Task != "high" {
		t.Errorf("Max() = %v, want high", q.Max())
	}
	for i, w := range want {
		if got := q.Next().Task; got != w {
			t.Errorf("Next() #%d = %q, want %q", i, got, w)
		}
	}

	// Valuer changes take effect on Reset.
	weights["low"] = 100
	q.Reset()
	if q.Max().Task != "low" {
		t.Errorf("Max() after reweight = %v, want low", q.Max())
	}
}

func TestQueue_Empty(t *testing.T) {
	q := NewQueue(nil, nil)
	if q.HasNext() {
		t.Error("HasNext() on empty queue = true")
	}
	if !q.Max().IsZero() {
		t.Error("Max() on empty queue should be the zero Offer")
	}
	if q.Len() != 0 {
		t.Errorf("Len() = %d, want 0", q.Len())
	}
}

func TestQueue_DoesNotAliasInput(t *testing.T) {
	offers := []Offer{{Task: "a"}, {Task: "b"}}
	q := NewQueue(offers, func(o Offer) float64 {
		if o.Task == "b" {
			return 1
		}
		return 0
	})
	if offers[0].Task != "a" {
		t.Error("NewQueue sorted the caller's slice")
	}
	if q.Max().Task != "b" {
		t.Errorf("Max() = %v, want b", q.Max())
	}
}
