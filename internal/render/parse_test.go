// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name  string
		input string
		kinds []SegmentKind
		code  []string
	}{
		{
			name:  "prose only",
			input: "just text",
			kinds: []SegmentKind{SegmentProse},
		},
		{
			name:  "single block",
			input: "before\n```go\nfmt.Println()\n```\nafter",
			kinds: []SegmentKind{SegmentProse, SegmentCode, SegmentProse},
			code:  []string{"fmt.Println()\n"},
		},
		{
			name:  "tilde fence",
			input: "~~~\nls\n~~~",
			kinds: []SegmentKind{SegmentCode},
			code:  []string{"ls\n"},
		},
		{
			name:  "unclosed fence",
			input: "```sh\nmake",
			kinds: []SegmentKind{SegmentCode},
			code:  []string{"make\n"},
		},
		{
			name:  "inline triple backticks are prose",
			input: "use ```x``` here",
			kinds: []SegmentKind{SegmentProse},
		},
		{
			name:  "backtick inside tilde fence",
			input: "~~~\necho `date`\n```\n~~~",
			kinds: []SegmentKind{SegmentCode},
			code:  []string{"echo `date`\n```\n"},
		},
		{
			name:  "empty block",
			input: "```\n```",
			kinds: []SegmentKind{SegmentCode},
			code:  []string{""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segs := Split(tt.input)
			if len(segs) != len(tt.kinds) {
				t.Fatalf("got %d segments, want %d: %+v", len(segs), len(tt.kinds), segs)
			}
			var code []string
			for i, s := range segs {
				if s.Kind != tt.kinds[i] {
					t.Errorf("segment %d kind = %v, want %v", i, s.Kind, tt.kinds[i])
				}
				if s.Kind == SegmentCode {
					code = append(code, s.Text)
				}
			}
			if strings.Join(code, "|") != strings.Join(tt.code, "|") {
				t.Errorf("code = %q, want %q", code, tt.code)
			}
		})
	}
}

func TestSplitLanguageTag(t *testing.T) {
	segs := CodeBlocks("```python title=\"x\"\nprint(1)\n```")
	if len(segs) != 1 {
		t.Fatalf("got %d blocks", len(segs))
	}
	if segs[0].Language != "python" {
		t.Errorf("Language = %q, want python", segs[0].Language)
	}
	if !segs[0].Closed {
		t.Error("block should be closed")
	}
}

func TestWrapText(t *testing.T) {
	out := wrapText("the quick brown fox jumps over the lazy dog", 10)
	for _, line := range strings.Split(out, "\n") {
		if w := runewidth.StringWidth(line); w > 10 {
			t.Errorf("line %q is %d cells wide", line, w)
		}
	}
	if strings.ReplaceAll(out, "\n", " ") != "the quick brown fox jumps over the lazy dog" {
		t.Errorf("wrapping lost content: %q", out)
	}
}

func TestWrapTextHardBreak(t *testing.T) {
	out := wrapText("aaaaaaaaaaaa bb", 5)
	want := "aaaaa\naaaaa\naa bb"
	if out != want {
		t.Errorf("wrapText() = %q, want %q", out, want)
	}
}

func TestWrapTextWide(t *testing.T) {
	out := wrapText("日本語のテキスト", 6)
	for _, line := range strings.Split(out, "\n") {
		if w := runewidth.StringWidth(line); w > 6 {
			t.Errorf("line %q is %d cells wide", line, w)
		}
	}
}
