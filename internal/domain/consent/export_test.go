package consent

import (
	"bytes"
	"context"
	"testing"
)

func TestRenderPDF(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()
	if _, err := ledger.Grant(ctx, []Type{TypeAnalyticsTracking}, nil); err != nil {
		t.Fatalf("grant: %v", err)
	}
	export, err := ledger.ExportAll(ctx)
	if err != nil {
		t.Fatalf("exportAll: %v", err)
	}

	pdf, err := RenderPDF(export)
	if err != nil {
		t.Fatalf("renderPDF: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Fatal("expected PDF output")
	}
}
