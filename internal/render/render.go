// Package render turns a synced Document into the portal's home page.
//
// Every section is rebuilt from the snapshot on each call; nothing is diffed
// against a previous render.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"github.com/starford/aviva/internal/models"
	"github.com/starford/aviva/internal/parser"
)

// Where a snapshot's document came from.
const (
	SourceNetwork  = "network"
	SourceCache    = "cache"
	SourceFallback = "fallback"
)

// MaxVideoPreviews is how many meditation videos the home page shows.
const MaxVideoPreviews = 3

// SummaryLength bounds the weekly message teaser.
const SummaryLength = 180

// Snapshot is the input of one render pass.
type Snapshot struct {
	Document  models.Document
	Source    string
	FetchedAt time.Time
	Online    bool
}

var monthNames = [...]string{"Jan", "Fev", "Mar", "Abr", "Mai", "Jun", "Jul", "Ago", "Set", "Out", "Nov", "Dez"}

// Raw HTML in message bodies is escaped since WithUnsafe is not set.
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

//go:embed templates/*
var tplFS embed.FS

var tpl = template.Must(template.ParseFS(tplFS, "templates/*.html"))

// Page is the view model of the home page.
type Page struct {
	AppName    string
	Stylesheet template.CSS
	Status     Status
	Source     string
	FetchedAt  time.Time
	Verse      VerseView
	Campaign   *CampaignView
	Message    MessageView
	Calendar   []CalendarItem
	Videos     []VideoView
	Contacts   []ContactView
	Links      []LinkView
}

// Status is the connectivity indicator.
type Status struct {
	Online bool
	Label  string
	Class  string
	Icon   string
}

// VerseView is a verse card; OfflineBadge marks content shown without a network.
type VerseView struct {
	Text         string
	Reference    string
	OfflineBadge bool
}

// CampaignView is nil on the page when the campaign is inactive.
type CampaignView struct {
	Period      string
	Title       string
	Theme       string
	Verse       *VerseView
	Description string
}

// MessageView is the weekly message split into titled sections.
type MessageView struct {
	Title    string
	Summary  string
	Sections []SectionView
}

// SectionView is one message section rendered to HTML.
type SectionView struct {
	Kind    string
	Heading string
	HTML    template.HTML
}

// CalendarItem is either a recurring entry (Schedule) or a dated one (Day, Month).
type CalendarItem struct {
	Recurring   bool
	Title       string
	Schedule    string
	Description string
	Icon        string
	Day         string
	Month       string
}

// VideoView is a meditation preview.
type VideoView struct {
	ID          string
	Title       string
	Duration    string
	Category    string
	Description string
	Kind        string
	URL         string
}

// ContactView is a contact card; Disabled renders the WhatsApp button inert.
type ContactView struct {
	Name     string
	Role     string
	Number   string
	WhatsApp string
	Disabled bool
}

// LinkView is an outbound button.
type LinkView struct {
	ID    string
	Label string
	URL   string
}

var outboundLinks = []struct{ key, id, label string }{
	{"oracao", "linkOracao", "Pedido de Oração"},
	{"aconselhamento", "linkAconselhamento", "Aconselhamento"},
	{"visitante", "linkVisitante", "Sou Visitante"},
	{"youtube", "linkYouTube", "YouTube"},
}

// Build maps a snapshot to the page view model.
func Build(s Snapshot, appName string) Page {
	doc := s.Document
	p := Page{
		AppName:   appName,
		Status:    status(s.Online),
		Source:    s.Source,
		FetchedAt: s.FetchedAt,
		Verse: VerseView{
			Text:         doc.Verse.Text,
			Reference:    doc.Verse.Reference,
			OfflineBadge: !s.Online,
		},
		Message: buildMessage(doc.WeeklyMessage),
	}

	if c := doc.Campaign; c.Active {
		cv := &CampaignView{Period: c.Period, Title: c.Title, Theme: c.Theme, Description: c.Description}
		if c.Verse != nil {
			cv.Verse = &VerseView{Text: c.Verse.Text, Reference: c.Verse.Reference}
		}
		p.Campaign = cv
	}

	for _, e := range doc.Calendar {
		p.Calendar = append(p.Calendar, buildCalendarItem(e))
	}

	videos := doc.Meditations
	if len(videos) > MaxVideoPreviews {
		videos = videos[:MaxVideoPreviews]
	}
	for _, v := range videos {
		p.Videos = append(p.Videos, VideoView{
			ID: v.ID, Title: v.Title, Duration: v.Duration, Category: v.Category,
			Description: v.Description, Kind: v.Kind, URL: v.URL,
		})
	}

	for _, c := range doc.Contacts {
		p.Contacts = append(p.Contacts, ContactView{
			Name:     c.Name,
			Role:     c.Role,
			Number:   c.PhoneNumber,
			WhatsApp: WhatsAppLink(c),
			Disabled: !s.Online,
		})
	}

	for _, l := range outboundLinks {
		href := doc.Links[l.key]
		if href == "" {
			href = "#"
		}
		p.Links = append(p.Links, LinkView{ID: l.id, Label: l.label, URL: href})
	}
	return p
}

func status(online bool) Status {
	if online {
		return Status{Online: true, Label: "Online", Class: "connection-status online", Icon: "fas fa-wifi"}
	}
	return Status{Label: "Offline", Class: "connection-status offline", Icon: "fas fa-wifi-slash"}
}

func buildMessage(m models.WeeklyMessage) MessageView {
	sections := parser.Parse(m.Body)
	mv := MessageView{Title: m.Title, Summary: parser.Summary(sections, SummaryLength)}
	for _, s := range sections {
		mv.Sections = append(mv.Sections, SectionView{Kind: s.Kind, Heading: s.Heading, HTML: markdown(s.Text)})
	}
	return mv
}

func markdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

func buildCalendarItem(e models.CalendarEntry) CalendarItem {
	item := CalendarItem{Title: e.Title, Schedule: e.Schedule, Description: e.Description, Icon: e.Icon}
	if e.Kind == models.EntryRecurring {
		item.Recurring = true
		if item.Icon == "" {
			item.Icon = "fas fa-church"
		}
		return item
	}
	item.Day, item.Month = SplitDayMonth(e.Date)
	return item
}

// SplitDayMonth splits "DD/MM" into the day and the Portuguese month
// abbreviation. An unparsable month yields "".
func SplitDayMonth(date string) (day, month string) {
	d, m, ok := strings.Cut(date, "/")
	if !ok {
		return date, ""
	}
	n, err := strconv.Atoi(strings.TrimSpace(m))
	if err != nil || n < 1 || n > len(monthNames) {
		return d, ""
	}
	return d, monthNames[n-1]
}

// WhatsAppLink builds the chat link for a contact with a greeting addressed
// to the contact's first name.
func WhatsAppLink(c models.Contact) string {
	text := fmt.Sprintf("Olá %s! Gostaria de mais informações sobre %s", c.FirstName(), c.Role)
	return "https://wa.me/" + c.DigitsOnly() + "?text=" + strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
}

// WriteHTML renders p as a full HTML document.
func WriteHTML(w io.Writer, p Page) error {
	if err := tpl.ExecuteTemplate(w, "page.html", p); err != nil {
		return fmt.Errorf("render: execute template: %w", err)
	}
	return nil
}
