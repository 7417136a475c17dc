package ree

import (
	"errors"
	"testing"

	"electric_balance_backend/platform/apperr"
	"electric_balance_backend/platform/validator"
)

const validPayload = `{
  "data": {"type": "Balance de energía eléctrica"},
  "included": [
    {
      "type": "Renovable",
      "id": "Renovable",
      "attributes": {
        "title": "Renovable",
        "content": [
          {
            "type": "Eólica",
            "id": "10291",
            "groupId": "Renovable",
            "attributes": {
              "title": "Eólica",
              "description": "Producción eólica",
              "values": [
                {"value": 12345.678, "percentage": 0.25, "datetime": "2024-01-01T00:00:00.000+01:00"},
                {"value": 100, "percentage": 0.5, "datetime": "2024-01-02T00:00:00.000+01:00"}
              ]
            }
          }
        ]
      }
    },
    {
      "type": "Demanda",
      "id": "Demanda",
      "attributes": {
        "title": "Demanda",
        "content": [
          {
            "type": "Demanda en b.c.",
            "id": "10211",
            "groupId": "Demanda",
            "attributes": {
              "title": "Demanda en b.c.",
              "values": [
                {"value": 700000, "percentage": 1, "datetime": "2024-01-01T00:00:00.000+01:00"}
              ]
            }
          }
        ]
      }
    }
  ]
}`

func TestDecodeAndFlatten(t *testing.T) {
	payload, err := Decode(validator.New(), []byte(validPayload))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	rows := payload.Flatten()
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}

	first := rows[0]
	if first.Type != "Renovable" || first.Subtype != "Eólica" {
		t.Fatalf("unexpected tags %q/%q", first.Type, first.Subtype)
	}
	if first.Value != "12345.678" || first.Percentage != "0.25" {
		t.Fatalf("expected numbers kept verbatim, got %s/%s", first.Value, first.Percentage)
	}
	if first.Datetime != "2024-01-01T00:00:00.000+01:00" {
		t.Fatalf("unexpected datetime %s", first.Datetime)
	}
	if first.Description == nil || *first.Description != "Producción eólica" {
		t.Fatalf("expected description to be broadcast, got %v", first.Description)
	}
	if rows[1].Description == nil || *rows[1].Description != "Producción eólica" {
		t.Fatalf("expected second row to share the description")
	}
	if rows[2].Description != nil {
		t.Fatalf("expected no description on demand row")
	}
}

func TestDecodeEmptyIncluded(t *testing.T) {
	payload, err := Decode(validator.New(), []byte(`{"included":[]}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rows := payload.Flatten(); len(rows) != 0 {
		t.Fatalf("expected no rows, got %d", len(rows))
	}
}

func TestDecodeRejectsMalformedStructure(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "missing included",
			body: `{"data":{}}`,
			want: "included",
		},
		{
			name: "numeric string value",
			body: `{"included":[{"type":"Renovable","id":"R","attributes":{"title":"R","content":[{"type":"Eólica","id":"1","groupId":"R","attributes":{"title":"E","values":[{"value":"12","percentage":0.1,"datetime":"2024-01-01T00:00:00.000+01:00"}]}}]}}]}`,
			want: "included[0].attributes.content[0].attributes.values[0].value",
		},
		{
			name: "bad datetime",
			body: `{"included":[{"type":"Renovable","id":"R","attributes":{"title":"R","content":[{"type":"Eólica","id":"1","groupId":"R","attributes":{"title":"E","values":[{"value":12,"percentage":0.1,"datetime":"yesterday"}]}}]}}]}`,
			want: "included[0].attributes.content[0].attributes.values[0].datetime",
		},
		{
			name: "missing group attributes",
			body: `{"included":[{"type":"Renovable","id":"R"}]}`,
			want: "included[0].attributes",
		},
		{
			name: "wrong container type",
			body: `{"included":{"type":"Renovable"}}`,
			want: "included",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := Decode(validator.New(), []byte(tt.body))
			if payload != nil {
				t.Fatalf("expected no payload on failure")
			}
			if !apperr.Is(err, apperr.KindSchema) {
				t.Fatalf("expected schema error, got %v", err)
			}

			var appErr *apperr.Error
			if !errors.As(err, &appErr) {
				t.Fatalf("expected *apperr.Error, got %T", err)
			}
			report, ok := appErr.Details.([]validator.FieldError)
			if !ok || len(report) == 0 {
				t.Fatalf("expected a report, got %#v", appErr.Details)
			}
			if !hasProperty(report, tt.want) {
				t.Fatalf("expected report to name %q, got %+v", tt.want, report)
			}
		})
	}
}

func TestDecodeReportsEveryDeviation(t *testing.T) {
	body := `{"included":[{"type":"Renovable","id":"R","attributes":{"title":"R","content":[{"type":"Eólica","id":"1","groupId":"R","attributes":{"title":"E","values":[
		{"value":"x","percentage":0.1,"datetime":"2024-01-01"},
		{"value":1,"percentage":null,"datetime":"2024-01-02"}
	]}}]}}]}`

	_, err := Decode(validator.New(), []byte(body))
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *apperr.Error, got %v", err)
	}
	report := appErr.Details.([]validator.FieldError)
	for _, want := range []string{
		"included[0].attributes.content[0].attributes.values[0].value",
		"included[0].attributes.content[0].attributes.values[1].percentage",
	} {
		if !hasProperty(report, want) {
			t.Fatalf("expected report to name %q", want)
		}
	}
}

func TestDecodeCollectsTypeMismatchesWithMissingFields(t *testing.T) {
	body := `{"included":[
		{"type":123,"id":"R","attributes":{"title":"R","content":[]}},
		{"type":"Renovable","id":"R2","attributes":{"title":"R2","content":[
			{"type":456,"id":"1","groupId":"R2","attributes":{"title":"E","values":[]}}]}},
		{"type":"Demanda","id":"D","attributes":{"title":"D","content":[
			{"type":"Demanda en b.c.","id":"2","groupId":"D","attributes":{"title":"B","values":[
				{"value":1,"percentage":1}]}}]}}
	]}`

	_, err := Decode(validator.New(), []byte(body))
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind != apperr.KindSchema {
		t.Fatalf("expected schema error, got %v", err)
	}
	report := appErr.Details.([]validator.FieldError)

	want := map[string]string{
		"included[0].type":                                                "Type must be a string",
		"included[1].attributes.content[0].type":                          "Type must be a string",
		"included[2].attributes.content[0].attributes.values[0].datetime": "Datetime must not be empty",
	}
	leaves := collectLeaves(report)
	if len(leaves) != len(want) {
		t.Fatalf("expected %d violations, got %+v", len(want), leaves)
	}
	for property, message := range want {
		leaf, ok := leaves[property]
		if !ok {
			t.Fatalf("expected report to name %q, got %+v", property, leaves)
		}
		if len(leaf.Constraints) != 1 || leaf.Constraints[0] != message {
			t.Fatalf("%s: expected %q, got %v", property, message, leaf.Constraints)
		}
	}
}

func TestDecodeReportsContainerKinds(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		property string
		value    interface{}
	}{
		{"top level array", `[]`, "", "array"},
		{"object instead of content array", `{"included":[{"type":"R","id":"R","attributes":{"title":"R","content":{}}}]}`, "included[0].attributes.content", "object"},
		{"string instead of attributes object", `{"included":[{"type":"R","id":"R","attributes":"x"}]}`, "included[0].attributes", "x"},
		{"number instead of group entry", `{"included":[7]}`, "included[0]", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(validator.New(), []byte(tt.body))
			var appErr *apperr.Error
			if !errors.As(err, &appErr) {
				t.Fatalf("expected *apperr.Error, got %v", err)
			}
			leaf, ok := collectLeaves(appErr.Details.([]validator.FieldError))[tt.property]
			if !ok {
				t.Fatalf("expected report to name %q, got %+v", tt.property, appErr.Details)
			}
			if tt.value != nil && leaf.Value != tt.value {
				t.Fatalf("expected reported value %v, got %v", tt.value, leaf.Value)
			}
		})
	}
}

func collectLeaves(report []validator.FieldError) map[string]validator.FieldError {
	leaves := make(map[string]validator.FieldError)
	var walk func([]validator.FieldError)
	walk = func(nodes []validator.FieldError) {
		for _, fe := range nodes {
			if len(fe.Constraints) > 0 {
				leaves[fe.Property] = fe
			}
			walk(fe.Children)
		}
	}
	walk(report)
	return leaves
}

func hasProperty(report []validator.FieldError, property string) bool {
	for _, fe := range report {
		if fe.Property == property || hasProperty(fe.Children, property) {
			return true
		}
	}
	return false
}
