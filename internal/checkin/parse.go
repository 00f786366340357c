package checkin

import (
	"strconv"
	"strings"
)

// SKIPPED is the sentinel value stored for any question answered with the literal "skip".
const SKIPPED = "SKIPPED"

var writtenNumerals = map[string]float64{
	"zero": 0, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"eleven": 11, "twelve": 12, "thirteen": 13, "fourteen": 14, "fifteen": 15,
	"sixteen": 16, "seventeen": 17, "eighteen": 18, "nineteen": 19, "twenty": 20,
}

// parseNumeric accepts direct numbers, written numerals (zero..twenty), "X and a half" /
// "X and half", multi-word "X point Y" decimals, and NN% (returned as the raw magnitude).
// It deliberately rejects anything it cannot resolve unambiguously, e.g. "three and a quarter".
func parseNumeric(raw string) (float64, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return 0, false
	}

	if strings.HasSuffix(s, "%") {
		s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			return v, true
		}
		return 0, false
	}

	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v, true
	}

	if v, ok := parseAndAHalf(s); ok {
		return v, true
	}

	if v, ok := parsePointPhrase(s); ok {
		return v, true
	}

	if v, ok := writtenNumerals[s]; ok {
		return v, true
	}

	return 0, false
}

// parseAndAHalf handles "<numeral> and a half" / "<numeral> and half".
func parseAndAHalf(s string) (float64, bool) {
	for _, suffix := range []string{" and a half", " and half"} {
		if strings.HasSuffix(s, suffix) {
			head := strings.TrimSpace(strings.TrimSuffix(s, suffix))
			base, ok := baseNumber(head)
			if !ok {
				return 0, false
			}
			return base + 0.5, true
		}
	}
	return 0, false
}

// parsePointPhrase handles multi-word "<numeral> point <numeral>" decimal composition,
// e.g. "three point five" -> 3.5. Each side must resolve to a single digit/word.
func parsePointPhrase(s string) (float64, bool) {
	parts := strings.SplitN(s, " point ", 2)
	if len(parts) != 2 {
		return 0, false
	}
	whole, ok := baseNumber(strings.TrimSpace(parts[0]))
	if !ok {
		return 0, false
	}
	fracWord := strings.TrimSpace(parts[1])
	fracDigits := fracWord
	if d, ok := writtenNumerals[fracWord]; ok {
		fracDigits = strconv.Itoa(int(d))
	}
	if len(strings.Fields(fracDigits)) != 1 {
		return 0, false
	}
	for _, r := range fracDigits {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	frac, err := strconv.ParseFloat("0."+fracDigits, 64)
	if err != nil {
		return 0, false
	}
	if whole < 0 {
		return whole - frac, true
	}
	return whole + frac, true
}

func baseNumber(s string) (float64, bool) {
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v, true
	}
	if v, ok := writtenNumerals[s]; ok {
		return v, true
	}
	return 0, false
}

var yesWords = map[string]bool{
	"yes": true, "y": true, "yeah": true, "yep": true, "true": true, "1": true,
	"absolutely": true, "definitely": true, "sure": true, "of course": true,
	"i did": true, "i have": true, "100": true, "100%": true, "correct": true,
	"affirmative": true, "indeed": true, "certainly": true, "positively": true,
}

var noWords = map[string]bool{
	"no": true, "n": true, "nah": true, "nope": true, "false": true, "0": true,
	"not really": true, "definitely not": true, "not sure": true, "i didn't": true,
	"i did not": true, "i haven't": true, "i have not": true, "0%": true,
	"incorrect": true, "negative": true, "certainly not": true,
}

func parseYesNo(raw string) (bool, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if yesWords[s] {
		return true, true
	}
	if noWords[s] {
		return false, true
	}
	return false, false
}

// ParseYesNo exposes the yes/no synonym table to callers outside this package (the
// task-reminder follow-up flow asks a plain yes/no question without going through a catalog
// question key).
func ParseYesNo(raw string) (bool, bool) { return parseYesNo(raw) }
