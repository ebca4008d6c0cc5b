// SPDX-License-Identifier: MIT
package crop

import (
	"math"
	"strconv"
	"strings"
)

// ToMinutesSeconds splits t into whole minutes and seconds rounded to two
// decimals.
func ToMinutesSeconds(t float64) (int, float64) {
	if math.IsNaN(t) || t < 0 {
		t = 0
	}
	m := math.Floor(t / 60)
	s := math.Round(math.Mod(t, 60)*100) / 100
	return int(m), s
}

// FromMinutesSeconds parses minute and second fields. Each field is read up
// to its first invalid character and malformed text counts as 0, so "1x"
// parses as 1 and "abc" as 0.
func FromMinutesSeconds(minutes, seconds string) float64 {
	return float64(leadingInt(minutes))*60 + leadingFloat(seconds)
}

// FormatMinutesSeconds renders t as M:SS.ss.
func FormatMinutesSeconds(t float64) string {
	m, s := ToMinutesSeconds(t)
	sec := strconv.FormatFloat(s, 'f', 2, 64)
	if s < 10 {
		sec = "0" + sec
	}
	return strconv.Itoa(m) + ":" + sec
}

func leadingInt(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && isDigit(s[end]) {
		end++
	}
	if end == digits {
		return 0
	}
	v, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return v
}

func leadingFloat(s string) float64 {
	s = strings.TrimSpace(s)
	end := decimalPrefix(s)
	if end == 0 {
		return 0
	}
	v, err := strconv.ParseFloat(s[:end], 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// decimalPrefix returns the length of the longest prefix of s of the form
// [+-]digits[.digits][(e|E)[+-]digits], or 0 when s has no leading number.
func decimalPrefix(s string) int {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && isDigit(s[i]) {
			i++
			digits++
		}
	}
	if digits == 0 {
		return 0
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		if j < len(s) && isDigit(s[j]) {
			for j < len(s) && isDigit(s[j]) {
				j++
			}
			i = j
		}
	}
	return i
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
