package proofs

import (
	"strings"
	"testing"
)

func TestDiffDocuments(t *testing.T) {
	before := operation()
	after := withProof(before, Document{"type": SignatureAlgorithm, "jws": "abc..def"})

	out, err := DiffDocuments("op.json", before, after)
	if err != nil {
		t.Fatalf("DiffDocuments failed: %v", err)
	}
	if !strings.HasPrefix(out, "--- a/op.json\n+++ b/op.json\n") {
		t.Errorf("missing file headers:\n%s", out)
	}
	if !strings.Contains(out, "@@") || !strings.Contains(out, "jws") {
		t.Errorf("diff does not show the proof:\n%s", out)
	}

	same, err := DiffDocuments("op.json", before, operation())
	if err != nil {
		t.Fatalf("DiffDocuments failed: %v", err)
	}
	if same != "" {
		t.Errorf("identical documents should produce no diff, got:\n%s", same)
	}
}
