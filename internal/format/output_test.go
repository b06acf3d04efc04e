package format

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

type people []string

func (p people) Table() Table {
	t := Table{Headers: []string{"Name"}}
	for _, n := range p {
		t.Rows = append(t.Rows, []string{n})
		t.Struck = append(t.Struck, false)
	}
	return t
}

func TestWrite_JSONEnvelope(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, Envelope{Data: people{"ann"}}, "json", false); err != nil {
		t.Fatalf("Write: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid json %q: %v", buf.String(), err)
	}
	if _, ok := got["data"]; !ok {
		t.Fatalf("missing data key: %v", got)
	}
	if _, ok := got["meta"]; ok {
		t.Fatalf("empty meta should be omitted: %v", got)
	}
}

func TestWrite_Table(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, Envelope{Data: people{"ann", "bob"}}, "table", false); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Name", "ann", "bob"} {
		if !strings.Contains(out, want) {
			t.Fatalf("table missing %q:\n%s", want, out)
		}
	}
}

func TestWrite_TableFallsBackToJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, map[string]any{"data": 1}, "table", false); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !json.Valid(buf.Bytes()) {
		t.Fatalf("expected json fallback, got %q", buf.String())
	}
}

func TestWrite_UnknownFormat(t *testing.T) {
	if err := Write(&bytes.Buffer{}, 1, "edn", false); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}
