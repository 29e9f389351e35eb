package slides

import (
	"regexp"
	"strings"
)

var alnumRe = regexp.MustCompile(`[A-Za-z0-9]`)
var hasSpaceRe = regexp.MustCompile(`\s`)

// CleanOCRLines drops OCR noise: lines shorter than 2 characters,
// lines longer than 20 characters with no whitespace (usually a
// mis-recognized run of symbols), and lines containing no
// alphanumeric character.
func CleanOCRLines(raw string) []string {
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if len(line) < 2 {
			continue
		}
		if len(line) > 20 && !hasSpaceRe.MatchString(line) {
			continue
		}
		if !alnumRe.MatchString(line) {
			continue
		}
		out = append(out, line)
	}
	return out
}

// OCRConfidence approximates confidence as the alphanumeric character
// ratio of the cleaned text, clamped to [0,1].
func OCRConfidence(lines []string) float64 {
	joined := strings.Join(lines, "")
	if len(joined) == 0 {
		return 0
	}
	var alnum int
	for _, r := range joined {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			alnum++
		}
	}
	return clamp(float64(alnum)/float64(len(joined)), 0, 1)
}
