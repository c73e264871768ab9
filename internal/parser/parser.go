// Package parser splits a weekly message body into its marked sections.
package parser

import (
	"strings"
)

// Section kinds.
const (
	KindIntro       = "intro"
	KindVerse       = "verse"
	KindExplanation = "explanation"
	KindApplication = "application"
	KindConclusion  = "conclusion"
	KindParagraph   = "paragraph"
)

// Section is one paragraph of a weekly message.
type Section struct {
	Kind    string `json:"kind"`
	Heading string `json:"heading,omitempty"`
	Text    string `json:"text"`
}

type marker struct {
	label   string
	kind    string
	heading string
}

// Order matters: the first marker found in a paragraph wins.
var markers = []marker{
	{"Introdução:", KindIntro, "Introdução"},
	{"Explicação:", KindExplanation, "Explicação"},
	{"Aplicação:", KindApplication, "Aplicação"},
	{"Conclusão:", KindConclusion, "Conclusão"},
	{"Versículo:", KindVerse, ""},
}

// Parse splits body on blank lines and classifies each paragraph by the
// first marker it contains. Paragraphs without a marker are returned as
// KindParagraph. Empty paragraphs are dropped.
func Parse(body string) []Section {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	var out []Section
	for _, para := range strings.Split(body, "\n\n") {
		if strings.TrimSpace(para) == "" {
			continue
		}
		out = append(out, classify(para))
	}
	return out
}

func classify(para string) Section {
	for _, m := range markers {
		if strings.Contains(para, m.label) {
			return Section{
				Kind:    m.kind,
				Heading: m.heading,
				Text:    strings.TrimSpace(strings.Replace(para, m.label, "", 1)),
			}
		}
	}
	return Section{Kind: KindParagraph, Text: strings.TrimSpace(para)}
}

// Summary returns the first sentence-sized chunk of the intro section, or
// of the first paragraph when there is no intro.
func Summary(sections []Section, limit int) string {
	if len(sections) == 0 {
		return ""
	}
	text := sections[0].Text
	for _, s := range sections {
		if s.Kind == KindIntro {
			text = s.Text
			break
		}
	}
	text = strings.Join(strings.Fields(text), " ")
	if limit <= 0 || len([]rune(text)) <= limit {
		return text
	}
	all := []rune(text)
	r := all[:limit]
	if all[limit] == ' ' {
		return string(r) + "…"
	}
	if i := strings.LastIndex(string(r), " "); i > 0 {
		return string(r)[:i] + "…"
	}
	return string(r) + "…"
}
