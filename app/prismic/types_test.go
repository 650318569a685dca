package prismic

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDocumentUnmarshalTimestamps(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected *time.Time
		wantErr  bool
	}{
		{
			name:     "prismic offset",
			input:    `{"uid":"a","first_publication_date":"2021-03-25T19:25:28+0000"}`,
			expected: ptr(time.Date(2021, 3, 25, 19, 25, 28, 0, time.UTC)),
		},
		{
			name:     "rfc3339",
			input:    `{"uid":"a","first_publication_date":"2021-03-25T16:25:28-03:00"}`,
			expected: ptr(time.Date(2021, 3, 25, 19, 25, 28, 0, time.UTC)),
		},
		{
			name:  "null",
			input: `{"uid":"a","first_publication_date":null}`,
		},
		{
			name:    "garbage",
			input:   `{"uid":"a","first_publication_date":"yesterday"}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var doc Document
			err := json.Unmarshal([]byte(tt.input), &doc)
			if tt.wantErr {
				if err == nil {
					t.Error("Expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error, got: %v", err)
			}
			if doc.UID != "a" {
				t.Errorf("Expected uid 'a', got '%s'", doc.UID)
			}
			if tt.expected == nil {
				if doc.FirstPublicationDate != nil {
					t.Errorf("Expected nil date, got %v", doc.FirstPublicationDate)
				}
				return
			}
			if doc.FirstPublicationDate == nil || !doc.FirstPublicationDate.Equal(*tt.expected) {
				t.Errorf("Expected %v, got %v", tt.expected, doc.FirstPublicationDate)
			}
		})
	}
}

func TestContentGroupHeadingForms(t *testing.T) {
	input := `[
		{"heading": "Plain heading", "body": [{"type": "paragraph", "text": "one"}]},
		{"heading": [{"type": "heading2", "text": "Rich"}, {"type": "heading2", "text": "heading"}], "body": []},
		{"heading": null, "body": []}
	]`

	var groups []ContentGroup
	if err := json.Unmarshal([]byte(input), &groups); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	expected := []string{"Plain heading", "Rich heading", ""}
	for i, heading := range expected {
		if groups[i].Heading != heading {
			t.Errorf("Expected heading %d to be '%s', got '%s'", i, heading, groups[i].Heading)
		}
	}
	if len(groups[0].Body) != 1 || groups[0].Body[0].Text != "one" {
		t.Errorf("Unexpected body: %+v", groups[0].Body)
	}
}

func TestAPIInfoMasterRef(t *testing.T) {
	info := APIInfo{Refs: []Ref{{Ref: "draft"}, {Ref: "live", IsMasterRef: true}}}
	if got := info.MasterRef(); got != "live" {
		t.Errorf("Expected 'live', got '%s'", got)
	}
	if got := (APIInfo{}).MasterRef(); got != "" {
		t.Errorf("Expected empty master ref, got '%s'", got)
	}
}

func ptr[T any](v T) *T {
	return &v
}
