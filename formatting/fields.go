package formatting

import "strings"

// Field returns the first non-blank trimmed value among the given column
// headers. Sheets rename columns over time, so callers list every spelling.
func Field(row map[string]string, keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(row[key]); v != "" {
			return v
		}
	}
	return ""
}
