// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// wrapText wraps plain (unstyled) text to width display cells, breaking at
// spaces where possible. It is the fallback when markdown rendering fails.
func wrapText(text string, width int) string {
	if width <= 0 {
		return text
	}

	var out strings.Builder
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			out.WriteByte('\n')
		}
		if runewidth.StringWidth(line) <= width {
			out.WriteString(line)
			continue
		}
		out.WriteString(wrapLine(line, width))
	}
	return out.String()
}

// wrapLine wraps one line. Words wider than width are hard-broken.
func wrapLine(line string, width int) string {
	var (
		out     strings.Builder
		cur     strings.Builder
		curW    int
		started bool
	)

	emit := func() {
		if started {
			out.WriteByte('\n')
		}
		out.WriteString(strings.TrimRight(cur.String(), " "))
		cur.Reset()
		curW = 0
		started = true
	}

	for _, word := range strings.SplitAfter(line, " ") {
		tw := runewidth.StringWidth(strings.TrimRight(word, " "))
		if curW > 0 && curW+tw > width {
			emit()
		}
		if tw <= width-curW {
			cur.WriteString(word)
			curW += runewidth.StringWidth(word)
			continue
		}
		for _, r := range strings.TrimRight(word, " ") {
			rw := runewidth.RuneWidth(r)
			if curW+rw > width {
				emit()
			}
			cur.WriteRune(r)
			curW += rw
		}
		if strings.HasSuffix(word, " ") {
			cur.WriteByte(' ')
			curW++
		}
	}
	if cur.Len() > 0 || !started {
		emit()
	}
	return out.String()
}

// truncate shortens s to width display cells with an ellipsis.
func truncate(s string, width int) string {
	if runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}
