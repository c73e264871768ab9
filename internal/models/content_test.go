package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestContactDigitsOnly(t *testing.T) {
	c := Contact{PhoneNumber: "+55 11 96354-4213"}
	if got := c.DigitsOnly(); got != "5511963544213" {
		t.Errorf("DigitsOnly = %q", got)
	}
}

func TestContactFirstName(t *testing.T) {
	if got := (Contact{Name: "Bruno Dos Santos"}).FirstName(); got != "Bruno" {
		t.Errorf("FirstName = %q", got)
	}
	if got := (Contact{}).FirstName(); got != "" {
		t.Errorf("FirstName of empty = %q", got)
	}
}

func TestDefaultDocumentWireNames(t *testing.T) {
	doc := DefaultDocument(time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC))
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{`"versiculo"`, `"palavraSemana"`, `"agenda"`, `"contatos"`, `"links"`, `"eventosEspeciais"`, `"meditacaoDiaria"`, `"dataAtualizacao"`, `"inscricoes":[]`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("missing %s in %s", key, data)
		}
	}
}

func TestDefaultDocumentUniqueIDs(t *testing.T) {
	doc := DefaultDocument(time.Now())
	seen := map[string]bool{}
	for _, e := range doc.Calendar {
		if seen[e.ID] {
			t.Errorf("duplicate calendar id %s", e.ID)
		}
		seen[e.ID] = true
	}
	if doc.FindVideo(doc.Meditations[1].ID) != 1 {
		t.Error("FindVideo did not locate second video")
	}
	if doc.FindVideo("missing") != -1 {
		t.Error("FindVideo should return -1 for unknown id")
	}
}
