// Package questionnaire extracts individual questions from a free-form
// questionnaire document. It understands numbered items (1., 1), Q1.,
// Question 1.), question-mark blocks, and short header blocks that mark
// section boundaries.
package questionnaire

import (
	"regexp"
	"strconv"
	"strings"
)

// ParsedQuestion is one extracted questionnaire item in document order.
type ParsedQuestion struct {
	SectionID    string
	SectionTitle string
	QuestionText string
	OrderIndex   int
}

var (
	spaceRuns   = regexp.MustCompile(`[ \t]+`)
	newlineRuns = regexp.MustCompile(`\n{3,}`)
	blockSplit  = regexp.MustCompile(`\n\s*\n`)

	// 1. / 1) / 2.3. / Q1. / Question 1)
	numberedItem = regexp.MustCompile(`(?is)^(?:Q(?:uestion)?\s*)?(\d+(?:\.\d+)*)[.)]\s*(.+)$`)
)

// Parse extracts questions from plain questionnaire text. It keeps a running
// section context: short blocks without a question mark become section
// headers, numbered items move the section id to their top-level number.
func Parse(text string) []ParsedQuestion {
	text = spaceRuns.ReplaceAllString(text, " ")
	text = newlineRuns.ReplaceAllString(text, "\n\n")

	var out []ParsedQuestion
	sectionID, sectionTitle := "0", "General"

	add := func(id, title, question string) {
		out = append(out, ParsedQuestion{
			SectionID:    id,
			SectionTitle: title,
			QuestionText: question,
			OrderIndex:   len(out),
		})
	}

	for _, block := range blockSplit.Split(text, -1) {
		block = strings.TrimSpace(block)
		if len(block) < 5 {
			continue
		}
		singleLine := strings.Join(strings.Fields(block), " ")

		// short block without a question mark marks a new section
		if len(singleLine) < 80 && !strings.Contains(singleLine, "?") {
			sectionTitle = truncate(singleLine, 200)
			sectionID = strconv.Itoa(len(out))
			continue
		}

		if m := numberedItem.FindStringSubmatch(singleLine); m != nil {
			sectionID = topLevel(m[1])
			if rest := strings.TrimSpace(m[2]); len(rest) > 2 {
				add(sectionID, sectionTitle, rest)
			}
			continue
		}

		if strings.Contains(singleLine, "?") {
			add(sectionID, sectionTitle, singleLine)
			continue
		}

		// fall back to line-by-line numbered items
		for _, line := range strings.Split(block, "\n") {
			line = strings.TrimSpace(line)
			if len(line) < 5 {
				continue
			}
			m := numberedItem.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			sectionID = topLevel(m[1])
			if rest := strings.TrimSpace(m[2]); len(rest) > 2 {
				add(sectionID, sectionTitle, rest)
			}
		}
	}
	return out
}

// topLevel reduces a dotted item number like 2.3.1 to its leading segment.
func topLevel(num string) string {
	if i := strings.IndexByte(num, '.'); i >= 0 {
		return num[:i]
	}
	return num
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
