package retrieval

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint returns a deterministic chunk hash over a row's column values.
// Identical columns always produce the same hash, so re-embedding unchanged
// rows upserts in place instead of appending.
func Fingerprint(columns map[string]any) (string, error) {
	// json.Marshal sorts map keys, giving a canonical byte form.
	canonical, err := json.Marshal(columns)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize row metadata: %w", err)
	}
	return fmt.Sprintf("xxh64:%016x", xxhash.Sum64(canonical)), nil
}

// BuildContent renders a row's columns as the text to embed: one
// "column: value" line per column, sorted by column name so the output is
// deterministic.
func BuildContent(columns map[string]any) string {
	names := make([]string, 0, len(columns))
	for name := range columns {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		fmt.Fprintf(&sb, "%s: %v\n", name, columns[name])
	}
	return strings.TrimRight(sb.String(), "\n")
}
