package stt

import (
	"fmt"
	"strings"
	"unicode"
)

// ErrorRate holds the edit-distance breakdown of a hypothesis against a
// reference, counted in words (WER) or characters (CER).
type ErrorRate struct {
	Rate          float64 // 0.0 = perfect, can exceed 1.0
	Substitutions int
	Insertions    int
	Deletions     int
	RefUnits      int // words or characters in the reference
}

// String formats the rate for CLI output.
func (e ErrorRate) String() string {
	return fmt.Sprintf("%.1f%% (S=%d I=%d D=%d N=%d)",
		e.Rate*100, e.Substitutions, e.Insertions, e.Deletions, e.RefUnits)
}

// ComputeWER calculates the word error rate between reference and hypothesis text.
// Both strings are normalized: lowercased, punctuation stripped, whitespace collapsed.
// WER = (Substitutions + Insertions + Deletions) / ReferenceWordCount.
func ComputeWER(reference, hypothesis string) ErrorRate {
	return editRate(normalizeWords(reference), normalizeWords(hypothesis))
}

// ComputeCER calculates the character error rate, ignoring whitespace and
// punctuation. It is the usual measure for Korean and other languages
// where word segmentation is unreliable.
func ComputeCER(reference, hypothesis string) ErrorRate {
	return editRate(normalizeChars(reference), normalizeChars(hypothesis))
}

func editRate(ref, hyp []string) ErrorRate {
	n := len(ref)
	if n == 0 {
		return ErrorRate{}
	}
	m := len(hyp)

	// DP table for minimum edit distance.
	d := make([][]int, n+1)
	for i := range d {
		d[i] = make([]int, m+1)
		d[i][0] = i
	}
	for j := 0; j <= m; j++ {
		d[0][j] = j
	}
	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			if ref[i-1] == hyp[j-1] {
				d[i][j] = d[i-1][j-1]
				continue
			}
			d[i][j] = 1 + min(d[i-1][j-1], d[i-1][j], d[i][j-1])
		}
	}

	// Backtrace to split the distance into operations.
	var r ErrorRate
	i, j := n, m
	for i > 0 || j > 0 {
		switch {
		case i > 0 && j > 0 && ref[i-1] == hyp[j-1]:
			i--
			j--
		case i > 0 && j > 0 && d[i][j] == d[i-1][j-1]+1:
			r.Substitutions++
			i--
			j--
		case i > 0 && d[i][j] == d[i-1][j]+1:
			r.Deletions++
			i--
		default:
			r.Insertions++
			j--
		}
	}

	r.RefUnits = n
	r.Rate = float64(r.Substitutions+r.Insertions+r.Deletions) / float64(n)
	return r
}

// normalizeWords lowercases text, strips punctuation, and splits into words.
func normalizeWords(s string) []string {
	return strings.Fields(stripPunct(strings.ToLower(s)))
}

func normalizeChars(s string) []string {
	var out []string
	for _, r := range stripPunct(strings.ToLower(s)) {
		if unicode.IsSpace(r) {
			continue
		}
		out = append(out, string(r))
	}
	return out
}

func stripPunct(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) {
			return -1
		}
		return r
	}, s)
}
