package schema

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"elbp_record_service/internal/domain/record"
)

func writeSchema(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeSchema(t, dir, "session.yaml", `
record_type: SESSION
fields:
  - name: Notes
    type: text
    rules: required
  - name: Targets
    type: multiselect
    options: ["101", "205"]
`)
	writeSchema(t, dir, "challenge.yaml", `
record_type: CHALLENGE
fields:
  - name: Description
    type: text
`)

	forms, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir returned error: %v", err)
	}
	if len(forms) != 2 {
		t.Fatalf("expected 2 forms, got %d", len(forms))
	}
	session, ok := forms[record.TypeSession]
	if !ok {
		t.Fatal("no form loaded for SESSION")
	}
	if got := session.FieldNames(); len(got) != 2 || got[0] != "Notes" || got[1] != "Targets" {
		t.Errorf("unexpected SESSION field names: %v", got)
	}
	if _, ok := forms[record.TypeChallenge]; !ok {
		t.Error("no form loaded for CHALLENGE")
	}
}

func TestLoadDirErrors(t *testing.T) {
	tests := []struct {
		name    string
		files   map[string]string
		wantErr string
	}{
		{
			name:    "empty dir",
			files:   map[string]string{},
			wantErr: "no schema files found",
		},
		{
			name: "unknown field type",
			files: map[string]string{
				"session.yaml": `
record_type: SESSION
fields:
  - name: Notes
    type: richtext
`,
			},
			wantErr: `field "Notes" has unknown type "richtext"`,
		},
		{
			name: "unknown record type",
			files: map[string]string{
				"misc.yaml": `
record_type: HOMEWORK
fields: []
`,
			},
			wantErr: "unknown record type",
		},
		{
			name: "select without options",
			files: map[string]string{
				"session.yaml": `
record_type: SESSION
fields:
  - name: Mood
    type: select
`,
			},
			wantErr: `field "Mood" requires options`,
		},
		{
			name: "duplicate record type across files",
			files: map[string]string{
				"a.yaml": "record_type: SESSION\nfields: []\n",
				"b.yaml": "record_type: SESSION\nfields: []\n",
			},
			wantErr: "record type SESSION already defined",
		},
		{
			name: "malformed yaml",
			files: map[string]string{
				"session.yaml": "record_type: [unclosed\n",
			},
			wantErr: "failed to parse schema file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for name, content := range tt.files {
				writeSchema(t, dir, name, content)
			}
			_, err := LoadDir(dir)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}
