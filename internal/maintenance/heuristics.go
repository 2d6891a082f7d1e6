package maintenance

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Digits are Unicode decimal digits. Word boundaries count any letter or
// number as a word rune (see isWordRune).
var (
	reSetTypeCode  = regexp.MustCompile(`\((\p{Nd}+)\)`)
	reStatusMarker = regexp.MustCompile(`[*\p{Nd}]`)
	reTaskCode     = regexp.MustCompile(`^\*?\p{Nd}{6,8}$`)
	rePartNoPrefix = regexp.MustCompile(`^\p{Nd}{6,}-\p{Nd}{3,}`)
	rePartNo       = regexp.MustCompile(`^\p{Nd}{6,}-\p{Nd}{3,}$`)
	reDigits       = regexp.MustCompile(`^\p{Nd}+$`)
	reUOM          = regexp.MustCompile(`^[A-Za-z]{1,4}$`)
	reQty          = regexp.MustCompile(`^[0-9]+(?:\.[0-9]+)?$`)
	reDigit        = regexp.MustCompile(`\p{Nd}`)
	reDocRefPunct  = regexp.MustCompile(`[:;/.\-]`)

	reNoReference = regexp.MustCompile(`^(?P<desc>(?:.*[^\p{L}\p{N}_])?)No reference\s+(?P<num>\p{Nd}+)\s+(?P<unit>Hours?|Weeks?|Months?|Days?)$`)
	reDocInterval = regexp.MustCompile(`^(?P<desc>.*)\s(?P<doc>[A-Z0-9./-]{1,10})\s+(?P<num>\p{Nd}+)\s+(?P<unit>Hours?|Weeks?|Months?|Days?)$`)
	reNoInterval  = regexp.MustCompile(`(?i)^(?P<desc>.*)\s(?P<doc>[A-Z0-9./-]{1,10})\s+No Interval$`)
)

var intervalUnits = map[string]struct{}{
	"hour": {}, "hours": {},
	"day": {}, "days": {},
	"week": {}, "weeks": {},
	"month": {}, "months": {},
}

func isSpace(r rune) bool { return unicode.IsSpace(r) }

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsNumber(r) || r == '_'
}

func isLowerRune(r rune) bool {
	return unicode.IsLower(r) || unicode.Is(unicode.Other_Lowercase, r)
}

func isUpperRune(r rune) bool {
	return unicode.IsUpper(r) || unicode.Is(unicode.Other_Uppercase, r)
}

func squash(s string) string { return strings.Join(strings.Fields(s), " ") }

// IsTaskHeader reports whether line is the column header of the task table.
func IsTaskHeader(line string) bool {
	low := strings.ToLower(squash(line))
	return strings.Contains(low, "task code") && strings.Contains(low, "task action")
}

// IsSparesHeader reports whether line is the column header of the spare parts table.
func IsSparesHeader(line string) bool {
	low := strings.ToLower(squash(line))
	return strings.Contains(low, "part no") && strings.Contains(low, "task code") && strings.Contains(low, "qty required")
}

// IsMetadata reports page furniture lines.
func IsMetadata(line string) bool {
	low := strings.ToLower(strings.TrimSpace(line))
	return strings.HasPrefix(low, "database:") || strings.HasPrefix(low, "printed by") || strings.HasPrefix(low, "page ")
}

func isAssetLine(line string) bool {
	return strings.HasPrefix(strings.ToLower(line), "asset:")
}

// parseAsset splits "Asset: 9000171371 TP A3/F-040V" into code and type.
func parseAsset(line string) (code, assetType string) {
	_, rest, _ := strings.Cut(line, ":")
	parts := strings.Fields(rest)
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

// IsComponentLine detects the grey location rows, e.g.
// "1 Pre-Maintenance Checks: (9000171371) ... \ [648575-0400] ...".
func IsComponentLine(line string) bool {
	stripped := strings.TrimSpace(line)
	if stripped == "" {
		return false
	}
	return strings.Contains(line, `\`) || strings.Contains(line, "[") || strings.HasPrefix(stripped, "(")
}

func parseComponent(line string) component {
	before, after, _ := strings.Cut(line, `\`)
	return component{
		Location1:   strings.TrimSpace(before),
		Location2:   strings.TrimSpace(after),
		SetTypeCode: lastSetTypeCode(line),
		Path:        strings.TrimSpace(line),
	}
}

func lastSetTypeCode(s string) string {
	m := reSetTypeCode.FindAllStringSubmatch(s, -1)
	if len(m) == 0 {
		return ""
	}
	return m[len(m)-1][1]
}

// stripStatusPrefix drops bullets and markers before the first digit or '*'.
func stripStatusPrefix(line string) string {
	loc := reStatusMarker.FindStringIndex(line)
	if loc == nil {
		return strings.TrimSpace(line)
	}
	return strings.TrimSpace(line[loc[0]:])
}

// IsTaskRow detects the first line of a task, e.g. "*9465150 ENGR Check Check ...".
func IsTaskRow(line string) bool {
	if IsMetadata(line) || IsComponentLine(line) {
		return false
	}
	tokens := strings.Fields(stripStatusPrefix(line))
	if len(tokens) < 3 {
		return false
	}
	code := tokens[0]
	if strings.Contains(code, "/") || !reTaskCode.MatchString(code) {
		return false
	}
	return isUpperWord(tokens[1])
}

// isUpperWord is true for a non-empty, letters-only, upper-case token.
func isUpperWord(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return hasOnlyUpperCase(s)
}

// hasOnlyUpperCase is true when s has at least one upper-case rune and no
// lower-case or title-case one.
func hasOnlyUpperCase(s string) bool {
	cased := false
	for _, r := range s {
		if isLowerRune(r) || unicode.IsTitle(r) {
			return false
		}
		if isUpperRune(r) {
			cased = true
		}
	}
	return cased
}

// NormalizeTaskCode removes the leading '*' marker.
func NormalizeTaskCode(code string) string {
	return strings.TrimPrefix(code, "*")
}

// gatherTaskBlock joins the task row at idx with its continuation lines and
// returns the combined text and the index of the next unconsumed line.
func gatherTaskBlock(lines []string, idx int) (string, int) {
	buf := []string{lines[idx]}
	i := idx + 1
	for ; i < len(lines); i++ {
		ln := lines[i]
		if strings.TrimSpace(ln) == "" {
			continue
		}
		if IsMetadata(ln) || IsTaskHeader(ln) {
			break
		}
		if IsTaskRow(ln) || IsComponentLine(ln) || isAssetLine(ln) {
			break
		}
		buf = append(buf, ln)
	}
	return strings.Join(buf, " "), i
}

// taskFields is the parsed form of a task row.
type taskFields struct {
	Code        string
	Trade       string
	Action      string
	Description string
	DocRef      string
	Interval    string
}

// parseTaskRow splits a (possibly multi-line) task row into its columns.
// Handles "... No reference 1000 Hours", "... MM 1000 Hours" and
// "... MM No Interval" endings before falling back to a token heuristic.
func parseTaskRow(full string) taskFields {
	tokens := strings.Fields(stripStatusPrefix(full))
	if len(tokens) < 3 {
		return taskFields{}
	}
	f := taskFields{Code: tokens[0], Trade: tokens[1], Action: tokens[2]}
	rest := strings.TrimSpace(strings.Join(tokens[3:], " "))

	if m := namedMatch(reNoReference, rest); m != nil {
		f.Description = strings.TrimSpace(m["desc"])
		f.DocRef = "No reference"
		f.Interval = m["num"] + " " + m["unit"]
		return f
	}
	if m := namedMatch(reDocInterval, rest); m != nil {
		f.Description = strings.TrimSpace(m["desc"])
		f.DocRef = strings.TrimSpace(m["doc"])
		f.Interval = m["num"] + " " + m["unit"]
		return f
	}
	if m := namedMatch(reNoInterval, rest); m != nil {
		f.Description = strings.TrimSpace(m["desc"])
		f.DocRef = strings.TrimSpace(m["doc"])
		f.Interval = "No Interval"
		return f
	}

	body, interval := splitInterval(strings.Fields(rest))
	f.Description, f.DocRef = splitDocRef(body)
	f.Interval = interval
	return f
}

func namedMatch(re *regexp.Regexp, s string) map[string]string {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for i, name := range re.SubexpNames() {
		if name != "" {
			out[name] = m[i]
		}
	}
	return out
}

func splitInterval(tokens []string) ([]string, string) {
	n := len(tokens)
	if n == 0 {
		return nil, ""
	}
	if n >= 2 && strings.EqualFold(tokens[n-2], "no") && strings.EqualFold(tokens[n-1], "interval") {
		return tokens[:n-2], "No Interval"
	}
	if n >= 2 && reDigits.MatchString(tokens[n-2]) {
		if _, ok := intervalUnits[strings.ToLower(tokens[n-1])]; ok {
			return tokens[:n-2], tokens[n-2] + " " + tokens[n-1]
		}
	}
	return tokens, ""
}

func splitDocRef(tokens []string) (desc, docRef string) {
	n := len(tokens)
	if n == 0 {
		return "", ""
	}
	for i := 0; i < n-1; i++ {
		if strings.EqualFold(tokens[i], "no") && strings.EqualFold(tokens[i+1], "reference") {
			return strings.TrimSpace(strings.Join(tokens[:i], " ")), "No reference"
		}
	}
	from := 0
	if n > 5 {
		from = n - 5
	}
	start := n - 1
	for i := from; i < n; i++ {
		tok := tokens[i]
		if reDigit.MatchString(tok) || reDocRefPunct.MatchString(tok) ||
			(hasOnlyUpperCase(tok) && utf8.RuneCountInString(tok) <= 4) {
			start = i
			break
		}
	}
	return strings.TrimSpace(strings.Join(tokens[:start], " ")), strings.TrimSpace(strings.Join(tokens[start:], " "))
}

// IsPartLine detects a spare part row by its "1234567-0000" part number.
func IsPartLine(line string) bool {
	prev := ' '
	for i, r := range line {
		if unicode.Is(unicode.Nd, r) && !isWordRune(prev) {
			if m := rePartNoPrefix.FindString(line[i:]); m != "" {
				next, size := utf8.DecodeRuneInString(line[i+len(m):])
				if size == 0 || !isWordRune(next) {
					return true
				}
			}
		}
		prev = r
	}
	return false
}

func gatherPartBlock(lines []string, idx int) (string, int) {
	buf := []string{lines[idx]}
	i := idx + 1
	for ; i < len(lines); i++ {
		nxt := lines[i]
		if strings.TrimSpace(nxt) == "" {
			continue
		}
		if IsSparesHeader(nxt) || IsMetadata(nxt) || isAssetLine(nxt) || IsPartLine(nxt) {
			break
		}
		buf = append(buf, nxt)
	}
	return strings.Join(buf, " "), i
}

// parsePartBlock parses the spare part record starting at lines[idx].
func parsePartBlock(lines []string, idx int) (*partBlock, int) {
	combined, next := gatherPartBlock(lines, idx)
	tokens := strings.Fields(combined)

	partIdx := -1
	for j, tok := range tokens {
		if rePartNo.MatchString(tok) {
			partIdx = j
			break
		}
	}
	if partIdx < 0 {
		return nil, next
	}

	taskIdx := -1
	for j := partIdx + 1; j < len(tokens); j++ {
		if reTaskCode.MatchString(tokens[j]) {
			taskIdx = j
			break
		}
	}

	p := &partBlock{PartNo: tokens[partIdx]}
	descEnd := len(tokens)
	var comp []string
	if taskIdx >= 0 {
		p.TaskCode = NormalizeTaskCode(tokens[taskIdx])
		if taskIdx+1 < len(tokens) {
			p.TaskAction = tokens[taskIdx+1]
		}
		descEnd = taskIdx
		if taskIdx+2 < len(tokens) {
			comp = tokens[taskIdx+2:]
		}
	}
	p.PartDescription = strings.TrimSpace(strings.Join(tokens[partIdx+1:descEnd], " "))

	if n := len(comp); n > 0 && reUOM.MatchString(comp[n-1]) {
		p.UOM = comp[n-1]
		comp = comp[:n-1]
	}
	if n := len(comp); n > 0 && reQty.MatchString(comp[n-1]) {
		p.QtyRequired = comp[n-1]
		comp = comp[:n-1]
	}
	p.ComponentPath = strings.TrimSpace(strings.Join(comp, " "))
	return p, next
}
