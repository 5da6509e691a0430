package proofs

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// DiffDocuments renders a unified diff between the indented JSON forms of
// two documents. It returns an empty string when they are identical.
func DiffDocuments(name string, before, after Document) (string, error) {
	a, err := json.MarshalIndent(before, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode original document: %w", err)
	}
	b, err := json.MarshalIndent(after, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode updated document: %w", err)
	}
	beforeStr, afterStr := string(a)+"\n", string(b)+"\n"
	if beforeStr == afterStr {
		return "", nil
	}

	dmp := diffmatchpatch.New()

	// Line-mode diff keeps JSON members intact
	ca, cb, lineArray := dmp.DiffLinesToChars(beforeStr, afterStr)
	diffs := dmp.DiffMain(ca, cb, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	patches := dmp.PatchMake(beforeStr, diffs)
	if len(patches) == 0 {
		return "", nil
	}

	var result strings.Builder
	result.WriteString(fmt.Sprintf("--- a/%s\n", name))
	result.WriteString(fmt.Sprintf("+++ b/%s\n", name))
	result.WriteString(dmp.PatchToText(patches))

	return result.String(), nil
}
