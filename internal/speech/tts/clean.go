package tts

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	nonAlnumRE = regexp.MustCompile(`[^a-zA-Z0-9\s]`)
	spacesRE   = regexp.MustCompile(`\s+`)
	digitsRE   = regexp.MustCompile(`\d+`)
)

// CleanText prepares reply text for the synthesizer: punctuation is removed,
// everything is lowercased, and digit runs are spelled out as words, since
// the speech model reads "five" far more reliably than "5".
func CleanText(text string) string {
	cleaned := nonAlnumRE.ReplaceAllString(text, "")
	cleaned = spacesRE.ReplaceAllString(cleaned, " ")
	cleaned = strings.ToLower(cleaned)
	cleaned = digitsRE.ReplaceAllStringFunc(cleaned, func(digits string) string {
		n, err := strconv.Atoi(digits)
		if err != nil {
			return digits
		}
		return spellNumber(n)
	})
	return strings.TrimSpace(cleaned)
}

var ones = []string{
	"zero", "one", "two", "three", "four", "five", "six", "seven", "eight",
	"nine", "ten", "eleven", "twelve", "thirteen", "fourteen", "fifteen",
	"sixteen", "seventeen", "eighteen", "nineteen",
}

var tens = []string{
	"", "", "twenty", "thirty", "forty", "fifty", "sixty", "seventy",
	"eighty", "ninety",
}

// spellNumber renders a non-negative integer as english words. The sign never
// occurs here because punctuation (including "-") is stripped before digit
// runs are replaced.
func spellNumber(n int) string {
	switch {
	case n < 20:
		return ones[n]
	case n < 100:
		s := tens[n/10]
		if n%10 != 0 {
			s += " " + ones[n%10]
		}
		return s
	case n < 1000:
		s := ones[n/100] + " hundred"
		if n%100 != 0 {
			s += " " + spellNumber(n%100)
		}
		return s
	case n < 1_000_000:
		s := spellNumber(n/1000) + " thousand"
		if n%1000 != 0 {
			s += " " + spellNumber(n%1000)
		}
		return s
	case n < 1_000_000_000:
		s := spellNumber(n/1_000_000) + " million"
		if n%1_000_000 != 0 {
			s += " " + spellNumber(n%1_000_000)
		}
		return s
	default:
		// Beyond any coordinate or repeat count the pipeline produces.
		return strconv.Itoa(n)
	}
}
