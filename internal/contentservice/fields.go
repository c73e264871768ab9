package contentservice

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/starford/aviva/internal/apperr"
	"github.com/starford/aviva/internal/models"
)

// Field slugs as exposed under /api/{slug}.
const (
	FieldVerse         = "versiculo"
	FieldWeeklyMessage = "palavra-semana"
	FieldCalendar      = "agenda"
	FieldContacts      = "contatos"
	FieldLinks         = "links"
	FieldCampaign      = "eventos-especiais"
	FieldMeditations   = "meditacao"
	FieldRegistrations = "inscricoes"
)

var dayMonthRe = regexp.MustCompile(`^(0?[1-9]|[12][0-9]|3[01])/(0?[1-9]|1[0-2])$`)

// field describes one top-level document attribute. A nil read or replace
// means the operation is not exposed for that slug.
type field struct {
	read    func(*models.Document) any
	replace func(doc *models.Document, raw []byte, now time.Time) error
	message string
}

var fields = map[string]field{
	FieldVerse: {
		replace: replaceVerse,
		message: "Versículo atualizado com sucesso",
	},
	FieldWeeklyMessage: {
		read:    func(d *models.Document) any { return d.WeeklyMessage },
		replace: replaceWeeklyMessage,
		message: "Palavra da semana atualizada com sucesso",
	},
	FieldCalendar: {
		read:    func(d *models.Document) any { return d.Calendar },
		replace: replaceCalendar,
		message: "Agenda atualizada com sucesso",
	},
	FieldContacts: {
		read:    func(d *models.Document) any { return d.Contacts },
		replace: replaceContacts,
		message: "Contatos atualizados com sucesso",
	},
	FieldLinks: {
		replace: replaceLinks,
		message: "Links atualizados com sucesso",
	},
	FieldCampaign: {
		read:    func(d *models.Document) any { return d.Campaign },
		replace: replaceCampaign,
		message: "Eventos especiais atualizados com sucesso",
	},
	FieldMeditations: {
		read:    func(d *models.Document) any { return d.Meditations },
		replace: replaceMeditations,
		message: "Meditação diária atualizada com sucesso",
	},
	FieldRegistrations: {
		read: func(d *models.Document) any { return d.Campaign.Registrations },
	},
}

// Readable reports whether slug can be fetched on its own.
func Readable(slug string) bool {
	f, ok := fields[slug]
	return ok && f.read != nil
}

// Writable reports whether slug can be replaced wholesale.
func Writable(slug string) bool {
	f, ok := fields[slug]
	return ok && f.replace != nil
}

func decode(raw []byte, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return apperr.Invalid(fmt.Errorf("invalid JSON body: %w", err))
	}
	return nil
}

func replaceVerse(doc *models.Document, raw []byte, now time.Time) error {
	var v models.Verse
	if err := decode(raw, &v); err != nil {
		return err
	}
	if err := validation.ValidateStruct(&v,
		validation.Field(&v.Text, validation.Required),
		validation.Field(&v.Reference, validation.Required),
	); err != nil {
		return apperr.Invalid(err)
	}
	v.LastUpdatedAt = &now
	doc.Verse = v
	return nil
}

func replaceWeeklyMessage(doc *models.Document, raw []byte, now time.Time) error {
	var m models.WeeklyMessage
	if err := decode(raw, &m); err != nil {
		return err
	}
	m.LastUpdatedAt = &now
	doc.WeeklyMessage = m
	return nil
}

func replaceCalendar(doc *models.Document, raw []byte, now time.Time) error {
	var entries []models.CalendarEntry
	if err := decode(raw, &entries); err != nil {
		return err
	}
	if entries == nil {
		entries = []models.CalendarEntry{}
	}
	seen := make(map[string]struct{}, len(entries))
	for i := range entries {
		e := &entries[i]
		if e.ID == "" {
			e.ID = strconv.FormatInt(now.UnixMilli()+int64(i), 10)
		}
		if _, dup := seen[e.ID]; dup {
			return apperr.Invalid(fmt.Errorf("agenda[%d]: duplicate id %q", i, e.ID))
		}
		seen[e.ID] = struct{}{}
		special := e.Kind == models.EntrySpecial
		if err := validation.ValidateStruct(e,
			validation.Field(&e.Kind, validation.Required, validation.In(models.EntryRecurring, models.EntrySpecial)),
			validation.Field(&e.Title, validation.Required),
			validation.Field(&e.Date,
				validation.When(special, validation.Required, validation.Match(dayMonthRe)),
				validation.When(!special, validation.Empty),
			),
		); err != nil {
			return apperr.Invalid(fmt.Errorf("agenda[%d]: %w", i, err))
		}
	}
	doc.Calendar = entries
	return nil
}

func replaceContacts(doc *models.Document, raw []byte, _ time.Time) error {
	var contacts []models.Contact
	if err := decode(raw, &contacts); err != nil {
		return err
	}
	if contacts == nil {
		contacts = []models.Contact{}
	}
	seen := make(map[int]struct{}, len(contacts))
	for i := range contacts {
		c := &contacts[i]
		if c.ID == 0 {
			c.ID = i + 1
		}
		if _, dup := seen[c.ID]; dup {
			return apperr.Invalid(fmt.Errorf("contatos[%d]: duplicate id %d", i, c.ID))
		}
		seen[c.ID] = struct{}{}
		if err := validation.ValidateStruct(c,
			validation.Field(&c.Name, validation.Required),
			validation.Field(&c.PhoneNumber, validation.Required),
		); err != nil {
			return apperr.Invalid(fmt.Errorf("contatos[%d]: %w", i, err))
		}
	}
	doc.Contacts = contacts
	return nil
}

func replaceLinks(doc *models.Document, raw []byte, _ time.Time) error {
	var links map[string]string
	if err := decode(raw, &links); err != nil {
		return err
	}
	if links == nil {
		links = map[string]string{}
	}
	doc.Links = links
	return nil
}

// replaceCampaign keeps the stored registrations when the payload carries none.
func replaceCampaign(doc *models.Document, raw []byte, _ time.Time) error {
	var c models.Campaign
	if err := decode(raw, &c); err != nil {
		return err
	}
	if c.Verse != nil && c.Verse.Text == "" && c.Verse.Reference == "" {
		c.Verse = nil
	}
	if c.Registrations == nil {
		c.Registrations = doc.Campaign.Registrations
	}
	if c.Registrations == nil {
		c.Registrations = []models.Registration{}
	}
	doc.Campaign = c
	return nil
}

// replaceMeditations never lets a known video's view count go down.
func replaceMeditations(doc *models.Document, raw []byte, now time.Time) error {
	var videos []models.MeditationVideo
	if err := decode(raw, &videos); err != nil {
		return err
	}
	if videos == nil {
		videos = []models.MeditationVideo{}
	}
	previous := make(map[string]int, len(doc.Meditations))
	for _, v := range doc.Meditations {
		previous[v.ID] = v.ViewCount
	}
	seen := make(map[string]struct{}, len(videos))
	for i := range videos {
		v := &videos[i]
		if v.ID == "" {
			v.ID = uuid.NewString()
		}
		if _, dup := seen[v.ID]; dup {
			return apperr.Invalid(fmt.Errorf("meditacao[%d]: duplicate id %q", i, v.ID))
		}
		seen[v.ID] = struct{}{}
		if v.Kind == "" {
			v.Kind = models.VideoYouTube
		}
		if v.Date == "" {
			v.Date = now.Format(time.DateOnly)
		}
		if err := validation.ValidateStruct(v,
			validation.Field(&v.Title, validation.Required),
			validation.Field(&v.Kind, validation.In(models.VideoYouTube, models.VideoUpload)),
			validation.Field(&v.URL, validation.Required),
			validation.Field(&v.ViewCount, validation.Min(0)),
		); err != nil {
			return apperr.Invalid(fmt.Errorf("meditacao[%d]: %w", i, err))
		}
		if prev, ok := previous[v.ID]; ok && prev > v.ViewCount {
			v.ViewCount = prev
		}
	}
	doc.Meditations = videos
	return nil
}
