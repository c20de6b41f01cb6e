package template

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/romiem/ai-bands/cmd/application"
	"github.com/romiem/ai-bands/pkg/errors"
	"github.com/romiem/ai-bands/pkg/schema"
)

func execute(t *testing.T, app application.Application, args ...string) (string, error) {
	t.Helper()
	cmd := NewCommand(app)
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestTemplate(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr bool
	}{
		{name: "explicit date", args: []string{"--date", "2026-03-14"}, want: "2026-03-14"},
		{name: "bad date", args: []string{"--date", "14/03/2026"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, &application.Mock{}, tt.args...)
			if tt.wantErr {
				assert.True(t, errors.IsValidationError(err))
				return
			}
			require.NoError(t, err)

			var rec map[string]any
			require.NoError(t, json.Unmarshal([]byte(out), &rec))
			assert.Equal(t, tt.want, rec["dateAdded"])
			assert.Equal(t, []any{}, rec["tags"])
			assert.Nil(t, rec["spotify"])
		})
	}
}

func TestTemplateUsesAppSchema(t *testing.T) {
	mini, err := schema.Parse([]byte(`{"properties": {"name": {"type": "string"}, "bandcamp": {"type": ["string", "null"], "format": "uri"}}}`), "mini")
	require.NoError(t, err)
	app := &application.Mock{SchemaFunc: func() (*schema.Schema, error) { return mini, nil }}

	out, err := execute(t, app)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name": "", "bandcamp": null}`, out)
}

func TestTemplateSchemaError(t *testing.T) {
	app := &application.Mock{SchemaFunc: func() (*schema.Schema, error) {
		return nil, &errors.NotFoundError{Resource: "schema", ID: "missing.json"}
	}}
	_, err := execute(t, app)
	assert.True(t, errors.IsNotFound(err))
}
