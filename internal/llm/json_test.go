package llm

import (
	"reflect"
	"testing"
)

func TestDecodeJSON(t *testing.T) {
	type classification struct {
		Sector string   `json:"sector"`
		Tags   []string `json:"tags"`
	}

	tests := []struct {
		name string
		raw  string
		want classification
	}{
		{
			name: "clean object",
			raw:  `{"sector": "healthcare", "tags": ["cost-reduction"]}`,
			want: classification{Sector: "healthcare", Tags: []string{"cost-reduction"}},
		},
		{
			name: "code fenced",
			raw:  "```json\n{\"sector\": \"healthcare\", \"tags\": []}\n```",
			want: classification{Sector: "healthcare", Tags: []string{}},
		},
		{
			name: "wrapped in prose",
			raw:  `Sure! Here is the classification you asked for: {"sector": "consumer", "tags": null} Hope that helps.`,
			want: classification{Sector: "consumer"},
		},
		{
			name: "trailing comma",
			raw:  `{"sector": "industrials", "tags": ["sourcing"],}`,
			want: classification{Sector: "industrials", Tags: []string{"sourcing"}},
		},
		{
			name: "unquoted key",
			raw:  `{sector": "healthcare", "tags": []}`,
			want: classification{Sector: "healthcare", Tags: []string{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got classification
			if err := DecodeJSON(tt.raw, &got); err != nil {
				t.Fatalf("DecodeJSON() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("DecodeJSON() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDecodeJSON_Array(t *testing.T) {
	var got []int
	if err := DecodeJSON("the scores are: [90, 20, 60]", &got); err != nil {
		t.Fatalf("DecodeJSON() error = %v", err)
	}
	if !reflect.DeepEqual(got, []int{90, 20, 60}) {
		t.Errorf("DecodeJSON() = %v", got)
	}
}

func TestDecodeJSON_NoJSON(t *testing.T) {
	var got map[string]any
	if err := DecodeJSON("I could not produce a classification.", &got); err == nil {
		t.Fatal("expected error when completion contains no JSON")
	}
}

func TestDecodeJSON_Unrepairable(t *testing.T) {
	var got map[string]any
	if err := DecodeJSON(`{"sector": }`, &got); err == nil {
		t.Fatal("expected error for unrepairable JSON")
	}
}
