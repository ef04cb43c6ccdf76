// Package kana classifies and converts Japanese syllabary text.
package kana

import (
	"strings"
	"unicode"
)

const hiraganaToKatakana = 'ァ' - 'ぁ'

// neutral runes appear in both syllabaries and in readings.
func neutral(r rune) bool {
	switch r {
	case 'ー', '・', '゛', '゜', ' ', '　':
		return true
	}
	return false
}

// IsKatakana reports whether s is non-empty and written only in katakana.
func IsKatakana(s string) bool {
	return only(s, func(r rune) bool { return unicode.In(r, unicode.Katakana) })
}

// IsHiragana reports whether s is non-empty and written only in hiragana.
func IsHiragana(s string) bool {
	return only(s, func(r rune) bool { return unicode.In(r, unicode.Hiragana) })
}

func only(s string, in func(rune) bool) bool {
	seen := false
	for _, r := range s {
		if neutral(r) {
			continue
		}
		if !in(r) {
			return false
		}
		seen = true
	}
	return seen
}

// ToKatakana converts the hiragana of s to katakana and leaves the rest.
func ToKatakana(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'ぁ' && r <= 'ゖ' {
			return r + hiraganaToKatakana
		}
		return r
	}, s)
}
