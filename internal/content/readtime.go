// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package content

import "strings"

// DefaultWordsPerMinute is the editorial reading speed assumption.
const DefaultWordsPerMinute = 200

// Estimator computes reading time in whole minutes.
type Estimator struct {
	// WordsPerMinute overrides DefaultWordsPerMinute when positive.
	WordsPerMinute int
}

// NewEstimator returns an Estimator using wpm, or the default when wpm <= 0.
func NewEstimator(wpm int) Estimator {
	return Estimator{WordsPerMinute: wpm}
}

// Estimate returns ceil(words / wpm) over all headings and body blocks.
func (e Estimator) Estimate(sections []Section) int {
	wpm := e.WordsPerMinute
	if wpm <= 0 {
		wpm = DefaultWordsPerMinute
	}

	words := CountWords(sections)
	if words == 0 {
		return 0
	}
	return (words + wpm - 1) / wpm
}

// EstimateReadingTime estimates with DefaultWordsPerMinute.
func EstimateReadingTime(sections []Section) int {
	return Estimator{}.Estimate(sections)
}

// CountWords returns the whitespace-separated word count of every heading and
// body block text.
func CountWords(sections []Section) int {
	total := 0
	for _, section := range sections {
		total += len(strings.Fields(section.Heading))
		for _, block := range section.Body {
			total += len(strings.Fields(block.Text))
		}
	}
	return total
}
