package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
)

func TestRecordComplete(t *testing.T) {
	tests := []struct {
		name string
		rec  *ProductRecord
		want bool
	}{
		{"all fields", &ProductRecord{"Perfume X", "A floral scent.", AttributeMap{"Volume": "50ml"}}, true},
		{"description sentinel", &ProductRecord{"Perfume X", NotFound, AttributeMap{"Volume": "50ml"}}, false},
		{"name sentinel", &ProductRecord{NotFound, "A floral scent.", AttributeMap{}}, false},
		{"specifications sentinel", &ProductRecord{"Perfume X", "A floral scent.", nil}, false},
		{"empty name", &ProductRecord{"  ", "A floral scent.", AttributeMap{}}, false},
		{"nested sentinel accepted", &ProductRecord{"Perfume X", "A floral scent.", AttributeMap{"Color": NotFound}}, true},
		{"empty specifications present", &ProductRecord{"Perfume X", "A floral scent.", AttributeMap{}}, true},
		{"nil record", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rec.Complete(); got != tt.want {
				t.Errorf("Complete() = %v, want %v (missing %v)", got, tt.want, tt.rec.MissingFields())
			}
		})
	}
}

func TestRecordFromObject(t *testing.T) {
	raw := `{
		"product_name": "Widget Y",
		"description": ["First paragraph.", "Second paragraph."],
		"specifications": {
			"Color": "Red",
			"Weight": 1.5,
			"Sizes": ["S", "M", "L"],
			"Dimensions": {"Width": "10cm", "Color": "Crimson"},
			"Empty": null
		}
	}`
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		t.Fatal(err)
	}
	rec := RecordFromObject(obj)

	if rec.ProductName != "Widget Y" {
		t.Errorf("ProductName = %q", rec.ProductName)
	}
	if rec.Description != "First paragraph.\nSecond paragraph." {
		t.Errorf("Description = %q", rec.Description)
	}
	want := AttributeMap{
		"Color":  "Crimson",
		"Weight": "1.5",
		"Sizes":  "S, M, L",
		"Width":  "10cm",
	}
	if len(rec.Specifications) != len(want) {
		t.Fatalf("Specifications = %v, want %v", rec.Specifications, want)
	}
	for k, v := range want {
		if rec.Specifications[k] != v {
			t.Errorf("Specifications[%q] = %q, want %q", k, rec.Specifications[k], v)
		}
	}
}

func TestRecordFromObjectSpecificationShapes(t *testing.T) {
	tests := []struct {
		name  string
		specs any
		want  AttributeMap
	}{
		{"sentinel string", NotFound, nil},
		{"missing", nil, nil},
		{"empty object", map[string]any{}, AttributeMap{}},
		{"key value text", "Color: Red\nSize: M", AttributeMap{"Color": "Red", "Size": "M"}},
		{"key value list", []any{"Color: Red", "Vegan"}, AttributeMap{"Color": "Red", "Item 2": "Vegan"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RecordFromObject(map[string]any{"specifications": tt.specs}).Specifications
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("Specifications = %#v, want %#v", got, tt.want)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Specifications = %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("[%q] = %q, want %q", k, got[k], v)
				}
			}
		})
	}
}

func TestRecordJSONSentinelSpecifications(t *testing.T) {
	data, err := json.Marshal(ProductRecord{ProductName: "A", Description: "B"})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"product_name":"A","description":"B","specifications":"Not found"}`
	if string(data) != want {
		t.Errorf("Marshal = %s, want %s", data, want)
	}

	var back ProductRecord
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back.Specifications != nil {
		t.Errorf("round trip Specifications = %v, want nil", back.Specifications)
	}
}

func TestCodeOf(t *testing.T) {
	storeErr := NewPipelineError(ErrCodeStore, "upsert failed", errors.New("conn reset"))
	wrapped := fmt.Errorf("enrich P1: %w", storeErr)

	if got := CodeOf(wrapped); got != ErrCodeStore {
		t.Errorf("CodeOf(wrapped) = %q, want %q", got, ErrCodeStore)
	}
	if !IsStoreError(wrapped) {
		t.Error("IsStoreError(wrapped) = false")
	}
	if got := CodeOf(errors.New("plain")); got != ErrCodeInternal {
		t.Errorf("CodeOf(plain) = %q, want %q", got, ErrCodeInternal)
	}
	if got := CodeOf(nil); got != "" {
		t.Errorf("CodeOf(nil) = %q, want empty", got)
	}
}

func TestBatchSummaryStatus(t *testing.T) {
	tests := []struct {
		s    BatchSummary
		want string
	}{
		{BatchSummary{Total: 3, Succeeded: 3}, "completed"},
		{BatchSummary{Total: 3, Succeeded: 1, Exhausted: 2}, "partial"},
		{BatchSummary{Total: 3, Failed: 3}, "failed"},
		{BatchSummary{}, "completed"},
	}
	for _, tt := range tests {
		if got := tt.s.Status(); got != tt.want {
			t.Errorf("%+v.Status() = %q, want %q", tt.s, got, tt.want)
		}
	}
}
