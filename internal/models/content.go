// Package models defines the portal content document and its entities.
package models

import (
	"strings"
	"time"
	"unicode"
)

// Calendar entry kinds.
const (
	EntryRecurring = "recorrente"
	EntrySpecial   = "especial"
)

// Meditation video kinds.
const (
	VideoYouTube = "youtube"
	VideoUpload  = "upload"
)

// RegistrationPending is the status given to every new registration.
const RegistrationPending = "pendente"

// Document is the single persisted root holding all editable content.
type Document struct {
	Verse         Verse             `json:"versiculo"`
	WeeklyMessage WeeklyMessage     `json:"palavraSemana"`
	Calendar      []CalendarEntry   `json:"agenda"`
	Contacts      []Contact         `json:"contatos"`
	Links         map[string]string `json:"links"`
	Campaign      Campaign          `json:"eventosEspeciais"`
	Meditations   []MeditationVideo `json:"meditacaoDiaria"`
}

// Verse is a scripture quote with its reference.
type Verse struct {
	Text          string     `json:"texto"`
	Reference     string     `json:"referencia"`
	LastUpdatedAt *time.Time `json:"dataAtualizacao,omitempty"`
}

// WeeklyMessage is the message of the week. Body carries section markers
// (Introdução:, Versículo:, Explicação:, Aplicação:, Conclusão:).
type WeeklyMessage struct {
	Title         string     `json:"titulo"`
	Body          string     `json:"mensagem"`
	LastUpdatedAt *time.Time `json:"dataAtualizacao,omitempty"`
}

// CalendarEntry is one item of the event calendar. Date (DD/MM) is set
// only for special entries.
type CalendarEntry struct {
	ID          string `json:"id"`
	Kind        string `json:"tipo"`
	Title       string `json:"titulo"`
	Schedule    string `json:"horario"`
	Description string `json:"descricao"`
	Icon        string `json:"icone,omitempty"`
	Date        string `json:"data,omitempty"`
}

// Contact is a member of the contact directory.
type Contact struct {
	ID          int    `json:"id"`
	Name        string `json:"nome"`
	Role        string `json:"cargo"`
	PhoneNumber string `json:"numero"`
}

// DigitsOnly returns the phone number stripped of everything but digits.
func (c Contact) DigitsOnly() string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, c.PhoneNumber)
}

// FirstName returns the first word of the contact name.
func (c Contact) FirstName() string {
	if f := strings.Fields(c.Name); len(f) > 0 {
		return f[0]
	}
	return ""
}

// Campaign is a time-boxed special event with its own registration drive.
type Campaign struct {
	Active        bool           `json:"ativo"`
	Title         string         `json:"titulo"`
	Period        string         `json:"periodo"`
	Theme         string         `json:"tema"`
	Verse         *Verse         `json:"versiculo,omitempty"`
	Description   string         `json:"descricao"`
	StartDate     string         `json:"dataInicio,omitempty"`
	EndDate       string         `json:"dataFim,omitempty"`
	Registrations []Registration `json:"inscricoes"`
}

// Registration is one sign-up for the active campaign.
type Registration struct {
	ID           string    `json:"id"`
	Name         string    `json:"nome"`
	Phone        string    `json:"telefone"`
	Email        string    `json:"email,omitempty"`
	PartySize    int       `json:"quantidade"`
	RegisteredAt time.Time `json:"dataInscricao"`
	Status       string    `json:"status"`
}

// MeditationVideo is a short devotional video or audio entry.
type MeditationVideo struct {
	ID          string `json:"id"`
	Title       string `json:"titulo"`
	Duration    string `json:"duracao"`
	Description string `json:"descricao"`
	Kind        string `json:"tipo"`
	URL         string `json:"url"`
	Category    string `json:"categoria"`
	Date        string `json:"data"`
	ViewCount   int    `json:"views"`
}

// FindVideo returns the index of the video with the given id, or -1.
func (d *Document) FindVideo(id string) int {
	for i, v := range d.Meditations {
		if v.ID == id {
			return i
		}
	}
	return -1
}
