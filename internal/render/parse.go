// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import "strings"

// SegmentKind distinguishes prose from fenced code.
type SegmentKind int

const (
	SegmentProse SegmentKind = iota
	SegmentCode
)

// Segment is a contiguous run of one message's text.
type Segment struct {
	Kind     SegmentKind
	Language string
	Text     string

	// Closed is false for a code fence still open at the end of the text,
	// which happens while a response is streaming.
	Closed bool
}

// Split breaks markdown text into prose and fenced code segments in
// document order. Code segment text keeps a trailing newline, the same
// text a reader copying the block would get.
func Split(text string) []Segment {
	var (
		segs      []Segment
		prose     []string
		code      []string
		language  string
		inCode    bool
		fenceLead string
	)

	flushProse := func() {
		if len(prose) == 0 {
			return
		}
		joined := strings.Join(prose, "\n")
		if strings.TrimSpace(joined) != "" {
			segs = append(segs, Segment{Kind: SegmentProse, Text: joined, Closed: true})
		}
		prose = nil
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimLeft(line, " \t")
		if inCode {
			if strings.HasPrefix(trimmed, fenceLead) && strings.TrimSpace(strings.TrimLeft(trimmed, "`~")) == "" {
				segs = append(segs, codeSegment(language, code, true))
				code = nil
				language = ""
				inCode = false
				continue
			}
			code = append(code, line)
			continue
		}

		if lead := fencePrefix(trimmed); lead != "" {
			flushProse()
			inCode = true
			fenceLead = lead
			language = strings.TrimSpace(strings.TrimPrefix(trimmed, lead))
			if i := strings.IndexAny(language, " \t{"); i >= 0 {
				language = language[:i]
			}
			continue
		}
		prose = append(prose, line)
	}

	if inCode {
		segs = append(segs, codeSegment(language, code, false))
	}
	flushProse()
	return segs
}

// CodeBlocks returns only the code segments of text.
func CodeBlocks(text string) []Segment {
	var out []Segment
	for _, s := range Split(text) {
		if s.Kind == SegmentCode {
			out = append(out, s)
		}
	}
	return out
}

func codeSegment(language string, lines []string, closed bool) Segment {
	text := strings.Join(lines, "\n")
	if len(lines) > 0 {
		text += "\n"
	}
	return Segment{Kind: SegmentCode, Language: language, Text: text, Closed: closed}
}

// fencePrefix returns the opening fence (three or more backticks or
// tildes) that line starts with, or "".
func fencePrefix(line string) string {
	for _, ch := range []byte{'`', '~'} {
		n := 0
		for n < len(line) && line[n] == ch {
			n++
		}
		if n >= 3 {
			if ch == '`' && strings.ContainsRune(line[n:], '`') {
				// Inline code such as ```x``` on one line is not a fence.
				return ""
			}
			return line[:n]
		}
	}
	return ""
}
