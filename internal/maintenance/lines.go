package maintenance

import "strings"

var lineBreaks = strings.NewReplacer("\r\n", "\n", "\r", "\n", "\f", "\n", "\v", "\n", "\u2028", "\n", "\u2029", "\n", "\u0085", "\n")

// Lines flattens page texts into non-empty, right-trimmed lines. Report
// footers ("Database: ...", "Printed by ...") are dropped.
func Lines(pages []string) []string {
	var out []string
	for _, page := range pages {
		if strings.TrimSpace(page) == "" {
			continue
		}
		for _, raw := range strings.Split(lineBreaks.Replace(page), "\n") {
			ln := strings.TrimRightFunc(raw, isSpace)
			if strings.TrimSpace(ln) == "" {
				continue
			}
			low := strings.ToLower(strings.TrimSpace(ln))
			if strings.HasPrefix(low, "database:") || strings.HasPrefix(low, "printed by") {
				continue
			}
			out = append(out, ln)
		}
	}
	return out
}
