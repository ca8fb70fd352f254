package dryrun

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestIsEnabled(t *testing.T) {
	ctx := context.Background()
	if IsEnabled(ctx) {
		t.Error("dry-run should be off by default")
	}
	if !IsEnabled(WithDryRun(ctx, true)) {
		t.Error("dry-run should be on after WithDryRun(true)")
	}
	if IsEnabled(WithDryRun(WithDryRun(ctx, true), false)) {
		t.Error("inner WithDryRun(false) should win")
	}
}

func TestPreviewWrite(t *testing.T) {
	p := &Preview{
		Action: "create",
		Target: `query activity "Nightly"`,
		Fields: map[string]string{
			"target": "Subscribers_Agg",
			"name":   "Nightly",
		},
		Notes: []string{"activity will not be started"},
	}

	var buf bytes.Buffer
	p.Write(&buf)
	out := buf.String()

	if !strings.Contains(out, `Dry run: would create query activity "Nightly"`) {
		t.Errorf("missing header: %q", out)
	}
	if !strings.Contains(out, "No changes made.") {
		t.Errorf("missing footer: %q", out)
	}
	if !strings.Contains(out, "note: activity will not be started") {
		t.Errorf("missing note: %q", out)
	}
	// Fields render sorted by name.
	nameIdx := strings.Index(out, "name: Nightly")
	targetIdx := strings.Index(out, "target: Subscribers_Agg")
	if nameIdx == -1 || targetIdx == -1 || nameIdx > targetIdx {
		t.Errorf("fields missing or unsorted: %q", out)
	}
}

func TestPreviewWrite_Empty(t *testing.T) {
	p := &Preview{Action: "delete", Target: "query activity q-1"}

	var buf bytes.Buffer
	p.Write(&buf)
	out := buf.String()

	if !strings.Contains(out, "Dry run: would delete query activity q-1") {
		t.Errorf("output = %q", out)
	}
	if strings.Contains(out, "note:") {
		t.Errorf("unexpected notes: %q", out)
	}
}
