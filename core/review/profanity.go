package review

import (
	"strings"
	"unicode"
)

// Profanity roots matched against normalized text. Russian entries are
// stem forms so inflected variants match too.
var profanityRoots = []string{
	"хуй", "хуя", "хуе", "хуи", "хую",
	"пизд", "пезд",
	"блять", "бляд", "блят",
	"еба", "ебу", "ебе", "ебл", "ебн",
	"сука", "суч", "сучк", "сучар",
	"муда", "мудо", "муди", "мудак",
	"залуп",
	"шлюх", "шалав",
	"педик", "педер", "пидар", "пидор", "пидр",
	"гандон", "гондон",
	"дерьм", "говн", "срат", "срал", "сран", "засран",
	"жоп",
	"трах",
	"долбо", "долбан",
	"заеб", "отъеб", "отьеб", "въеб", "вьеб", "уеб",
	"выеб", "недоеб", "перееб",
}

var englishProfanity = []string{
	"fuck", "shit", "bitch", "ass", "damn", "cunt", "dick", "cock",
	"pussy", "whore", "slut", "bastard", "nigger", "nigga", "fag",
	"asshole", "motherfucker", "bullshit", "piss", "crap",
}

// charReplacements maps leetspeak and obfuscation characters to the
// Cyrillic letters they stand in for. Separator characters map to nothing.
var charReplacements = map[rune]rune{
	'0': 'о', 'o': 'о',
	'3': 'е', 'e': 'е', 'ё': 'е',
	'4': 'а', 'a': 'а', '@': 'а',
	'1': 'и', 'i': 'и', '!': 'и',
	'6': 'б', 'b': 'б',
	'y': 'у', 'u': 'у',
	'x': 'х', 'h': 'х',
	'p': 'р',
	'c': 'с', '$': 'с',
	'k': 'к',
	'm': 'м',
	'n': 'н',
	'*': -1, '.': -1, '-': -1, '_': -1, ' ': -1,
}

// NormalizeText lowercases text, undoes leetspeak substitutions, strips
// separators and squeezes runs of 3+ identical runes down to one, so that
// e.g. "f.u-c_k" and "ффуууу" obfuscations still match.
func NormalizeText(text string) string {
	var runes []rune
	for _, r := range strings.ToLower(text) {
		if repl, ok := charReplacements[r]; ok {
			if repl == -1 {
				continue
			}
			r = repl
		}
		runes = append(runes, r)
	}

	var b strings.Builder
	b.Grow(len(runes))
	for i := 0; i < len(runes); {
		j := i
		for j < len(runes) && runes[j] == runes[i] {
			j++
		}
		n := j - i
		if n > 2 {
			n = 1
		}
		for k := 0; k < n; k++ {
			b.WriteRune(runes[i])
		}
		i = j
	}
	return b.String()
}

// ContainsProfanity reports whether text contains profanity, along with the
// matched roots.
func ContainsProfanity(text string) (bool, []string) {
	if text == "" {
		return false, nil
	}

	normalized := NormalizeText(text)
	lower := strings.ToLower(text)

	seen := make(map[string]bool)
	var found []string
	add := func(word string) {
		if !seen[word] {
			seen[word] = true
			found = append(found, word)
		}
	}

	for _, root := range profanityRoots {
		if strings.Contains(normalized, root) {
			add(root)
		}
	}
	for _, word := range englishProfanity {
		if strings.Contains(lower, word) || strings.Contains(normalized, word) {
			add(word)
		}
	}
	return len(found) > 0, found
}

// CensorText replaces each word containing profanity with asterisks of the
// same length.
func CensorText(text string) string {
	if text == "" {
		return text
	}

	isWordRune := func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
	}

	var b strings.Builder
	b.Grow(len(text))
	runes := []rune(text)
	for i := 0; i < len(runes); {
		if !isWordRune(runes[i]) {
			b.WriteRune(runes[i])
			i++
			continue
		}
		j := i
		for j < len(runes) && isWordRune(runes[j]) {
			j++
		}
		word := string(runes[i:j])
		if dirty, _ := ContainsProfanity(word); dirty {
			b.WriteString(strings.Repeat("*", j-i))
		} else {
			b.WriteString(word)
		}
		i = j
	}
	return b.String()
}
