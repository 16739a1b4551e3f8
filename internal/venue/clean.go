package venue

import (
	"regexp"
	"strings"
)

var (
	yearPattern        = regexp.MustCompile(`\b\d{4}\b|\[\d{4}\]|\b\d{4}\s+\d+(?:st|nd|rd|th)?`)
	proceedingsPattern = regexp.MustCompile(`Proceedings of( the)?|Proceeding of the|Proceedings\.?`)
	ordinalPattern     = regexp.MustCompile(`\b(?:\d+(?:st|nd|rd|th)|First|Second|Third|Fourth|Fifth|Sixth|Seventh|Eighth|Ninth|Tenth|Eleventh|Twelfth|Thirteenth)\b`)
	catalogPattern     = regexp.MustCompile(`\(Cat\.\s*No\..*?\)`)
	trailingYear       = regexp.MustCompile(`, \d{4}(?:\.|$)`)
	volumeSuffix       = regexp.MustCompile(`(?:- |, )(?:Proceedings|Volume \d+)`)
	spaces             = regexp.MustCompile(`\s+`)
	dashes             = regexp.MustCompile(`\s*-\s*`)
	colons             = regexp.MustCompile(`\s*:\s*`)
	commas             = regexp.MustCompile(`\s*,\s*`)
)

// CleanName normalizes a venue name so that yearly editions of the same
// venue compare equal. It strips years, edition ordinals, "Proceedings of"
// prefixes and IEEE catalogue numbers, then tidies whitespace and punctuation.
//
//	CleanName("Proceedings of the 2015 ACM SIGMOD International Conference")
//	// "ACM SIGMOD International Conference"
func CleanName(name string) string {
	name = strings.Trim(name, `"`)
	name = yearPattern.ReplaceAllString(name, "")
	name = proceedingsPattern.ReplaceAllString(name, "")
	name = ordinalPattern.ReplaceAllString(name, "")
	name = catalogPattern.ReplaceAllString(name, "")
	name = trailingYear.ReplaceAllString(name, "")
	name = volumeSuffix.ReplaceAllString(name, "")
	name = spaces.ReplaceAllString(name, " ")
	name = dashes.ReplaceAllString(name, " ")
	name = colons.ReplaceAllString(name, ": ")
	name = commas.ReplaceAllString(name, ", ")
	name = strings.TrimPrefix(name, "/")
	return strings.Trim(name, ` .,;:-"`)
}
