package parser

import (
	"testing"
)

const sample = `Introdução:
Vivemos em uma cultura que valoriza os começos.

Versículo: Eclesiastes 7:8 - "Melhor é o fim das coisas do que o princípio delas."

Explicação:
Deus está interessado em como terminamos.

Aplicação:
Não desanime.

Conclusão:
O fim será melhor.

Amém.`

func TestParseSections(t *testing.T) {
	got := Parse(sample)
	want := []struct{ kind, heading, text string }{
		{KindIntro, "Introdução", "Vivemos em uma cultura que valoriza os começos."},
		{KindVerse, "", `Eclesiastes 7:8 - "Melhor é o fim das coisas do que o princípio delas."`},
		{KindExplanation, "Explicação", "Deus está interessado em como terminamos."},
		{KindApplication, "Aplicação", "Não desanime."},
		{KindConclusion, "Conclusão", "O fim será melhor."},
		{KindParagraph, "", "Amém."},
	}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d: %+v", len(got), len(want), got)
	}
	for i, w := range want {
		if got[i].Kind != w.kind || got[i].Heading != w.heading || got[i].Text != w.text {
			t.Errorf("section %d = %+v, want %+v", i, got[i], w)
		}
	}
}

func TestParseCRLFAndBlankParagraphs(t *testing.T) {
	got := Parse("Introdução: a\r\n\r\n\r\n\r\nb")
	if len(got) != 2 {
		t.Fatalf("len = %d: %+v", len(got), got)
	}
	if got[0].Kind != KindIntro || got[0].Text != "a" {
		t.Errorf("first = %+v", got[0])
	}
}

func TestParseEmpty(t *testing.T) {
	if got := Parse("   "); len(got) != 0 {
		t.Errorf("got %+v, want none", got)
	}
}

func TestSummary(t *testing.T) {
	sections := Parse(sample)
	if got := Summary(sections, 0); got != "Vivemos em uma cultura que valoriza os começos." {
		t.Errorf("Summary = %q", got)
	}
	if got := Summary(sections, 14); got != "Vivemos em uma…" {
		t.Errorf("truncated Summary = %q", got)
	}
	if got := Summary(nil, 10); got != "" {
		t.Errorf("empty Summary = %q", got)
	}
}
