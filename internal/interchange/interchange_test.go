package interchange

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/solatis/rulebook/internal/types"
)

const carotid = `[
  {"id": 10, "name": "Carotid", "rules": [
    {"id": 11, "unitName": "cm/s", "findingName": "Stenosis", "comparator": ">=", "measurement": "PSV", "comparedValue": "125", "action": "Normal"},
    {"id": 12, "unitName": "", "findingName": "No flow", "comparator": "is", "measurement": "Flow", "comparedValue": -1, "action": "Reflux"}
  ]}
]`

func TestParseImport(t *testing.T) {
	ruleSets, err := ParseImport([]byte(carotid))
	require.NoError(t, err)
	require.Len(t, ruleSets, 1)

	rs := ruleSets[0]
	assert.Equal(t, types.ID(10), rs.ID)
	assert.Equal(t, "Carotid", rs.Name)
	require.Len(t, rs.Rules, 2)
	assert.Equal(t, 125.0, rs.Rules[0].ComparedValue)
	assert.Equal(t, types.ComparatorIs, rs.Rules[1].Comparator)
	assert.Equal(t, types.ActionReflux, rs.Rules[1].Action)
}

func TestParseImport_Empty(t *testing.T) {
	ruleSets, err := ParseImport([]byte(`[]`))
	require.NoError(t, err)
	assert.Empty(t, ruleSets)
}

func TestParseImport_Errors(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantPrefix string
	}{
		{"malformed", `[{"id": 1,`, "Error parsing JSON: "},
		{"not json", `rulesets please`, "Error parsing JSON: "},
		{"object", `{"rule_sets": []}`, "Invalid JSON format. Expected an array of rulesets."},
		{"number", `42`, "Invalid JSON format. Expected an array of rulesets."},
		{"null", `null`, "Invalid JSON format. Expected an array of rulesets."},
		{"bad threshold", `[{"id": 1, "name": "x", "rules": [{"id": 2, "comparedValue": "high"}]}]`, "Error parsing JSON: "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseImport([]byte(tt.input))
			require.Error(t, err)

			var importErr *ImportError
			require.True(t, errors.As(err, &importErr), "error %T is not *ImportError", err)
			assert.True(t, strings.HasPrefix(importErr.Message, tt.wantPrefix), "message = %q", importErr.Message)
		})
	}
}

func TestParseImport_WrapsCoercionError(t *testing.T) {
	_, err := ParseImport([]byte(`[{"id": "first", "name": "x", "rules": []}]`))
	assert.ErrorIs(t, err, types.ErrCoercionFailed)
}

func TestParseImport_FractionalIDs(t *testing.T) {
	ruleSets, err := ParseImport([]byte(`[{"id": 1712345678901, "name": "Carotid_(1)", "rules": [
		{"id": 1712345678901.4187, "unitName": "cm/s", "findingName": "Stenosis", "comparator": ">=", "measurement": "PSV", "comparedValue": 125, "action": "Normal"}
	]}]`))
	require.NoError(t, err)
	require.Len(t, ruleSets, 1)
	require.Len(t, ruleSets[0].Rules, 1)
	assert.Equal(t, types.ID(1712345678902), ruleSets[0].Rules[0].ID)
	assert.Equal(t, "Stenosis", ruleSets[0].Rules[0].FindingName)
}

func TestParseDocument(t *testing.T) {
	ruleSets, err := ParseDocument([]byte(`{"rule_sets": ` + carotid + `}`))
	require.NoError(t, err)
	require.Len(t, ruleSets, 1)
	assert.Equal(t, "Carotid", ruleSets[0].Name)

	ruleSets, err = ParseDocument([]byte(`{"rule_sets": []}`))
	require.NoError(t, err)
	assert.Empty(t, ruleSets)
}

func TestParseDocument_Malformed(t *testing.T) {
	for _, input := range []string{`{}`, `{"ruleSets": []}`, `{"rule_sets": null}`} {
		_, err := ParseDocument([]byte(input))
		assert.ErrorIs(t, err, types.ErrMalformedDocument, "input %s", input)
	}

	_, err := ParseDocument([]byte(`[1, 2]`))
	require.Error(t, err)
	assert.NotErrorIs(t, err, types.ErrMalformedDocument)
}

func TestExport_JSONReimports(t *testing.T) {
	original, err := ParseImport([]byte(carotid))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Export(&buf, original, FormatJSON))

	again, err := ParseImport(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, original, again)
}

func TestExport_WireFieldNames(t *testing.T) {
	var buf bytes.Buffer
	rs := []types.RuleSet{{ID: 1, Name: "A", Rules: []types.Rule{{ID: 2, Comparator: types.ComparatorLT, ComparedValue: 3}}}}
	require.NoError(t, Export(&buf, rs, FormatJSON))

	for _, key := range []string{`"id"`, `"name"`, `"rules"`, `"unitName"`, `"findingName"`, `"comparator"`, `"measurement"`, `"comparedValue"`, `"action"`} {
		assert.Contains(t, buf.String(), key)
	}
}

func TestExport_NilRulesAsEmptyList(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Export(&buf, []types.RuleSet{{ID: 1, Name: "A"}}, FormatJSON))
	assert.Contains(t, buf.String(), `"rules": []`)
	assert.NotContains(t, buf.String(), "null")
}

func TestExport_Document(t *testing.T) {
	original, err := ParseImport([]byte(carotid))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Export(&buf, original, FormatDocument))

	again, err := ParseDocument(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, original, again)
}

func TestExport_YAML(t *testing.T) {
	original, err := ParseImport([]byte(carotid))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Export(&buf, original, FormatYAML))
	assert.Contains(t, buf.String(), "comparedValue: 125")

	var decoded []types.RuleSet
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, original, decoded)
}

func TestParseFormat(t *testing.T) {
	for _, name := range []string{"json", "yaml", "document"} {
		f, err := ParseFormat(name)
		require.NoError(t, err)
		assert.Equal(t, Format(name), f)
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)
}
