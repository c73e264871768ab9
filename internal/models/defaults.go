package models

import (
	"strconv"
	"time"
)

const seedWeeklyMessage = `Introdução:
Vivemos em uma cultura que valoriza muito os começos, mas a Bíblia nos ensina que o fim é mais importante do que o início.

Versículo: Eclesiastes 7:8 - "Melhor é o fim das coisas do que o princípio delas; melhor é o paciente de espírito do que o altivo de espírito."

Explicação:
Deus está mais interessado em como terminamos do que em como começamos. Muitos começam bem, mas poucos terminam bem. A paciência, a perseverança e a fidelidade são essenciais para terminarmos bem a corrida.

Aplicação:
Não desanime se seu começo foi difícil. Não se acomode se seu início foi bom. Mantenha os olhos no alvo, na presença de Deus, na meta celestial. Continue fiel até o fim.

Conclusão:
O fim será melhor quando mantivermos nossa fé, nossa esperança e nosso amor em Cristo Jesus. Ele que começou a boa obra em nós há de completá-la até o dia de Cristo Jesus.`

// DefaultDocument returns the document written on first start.
func DefaultDocument(now time.Time) Document {
	now = now.UTC()
	id := func(offset int64) string {
		return strconv.FormatInt(now.UnixMilli()+offset, 10)
	}
	today := now.Format(time.DateOnly)

	return Document{
		Verse: Verse{
			Text:          "Bendito seja o Deus e Pai de nosso Senhor Jesus Cristo, que, segundo a sua grande misericórdia, nos gerou de novo para uma viva esperança, pela ressurreição de Jesus Cristo dentre os mortos.",
			Reference:     "1 Pedro 1:3",
			LastUpdatedAt: &now,
		},
		WeeklyMessage: WeeklyMessage{
			Title:         "O FIM É MELHOR DO QUE O COMEÇO",
			Body:          seedWeeklyMessage,
			LastUpdatedAt: &now,
		},
		Calendar: []CalendarEntry{
			{ID: id(0), Kind: EntryRecurring, Title: "Culto de Oração", Schedule: "Quarta-feira às 20h", Description: "Momento de intercessão pela igreja, família e nação.", Icon: "fas fa-hands-praying"},
			{ID: id(1), Kind: EntryRecurring, Title: "Culto de Celebração", Schedule: "Domingo às 18h30", Description: "Culto principal com louvor, palavra e celebração.", Icon: "fas fa-church"},
			{ID: id(2), Kind: EntryRecurring, Title: "Escola Bíblica", Schedule: "Domingo às 17h", Description: "Estudo sistemático da Palavra de Deus.", Icon: "fas fa-book-bible"},
		},
		Contacts: []Contact{
			{ID: 1, Name: "Bruno Dos Santos", Role: "Líder - Aviva Teens", PhoneNumber: "+55 11 96354-4213"},
			{ID: 2, Name: "Caroline Ramos", Role: "Líder - Aviva Teens", PhoneNumber: "+55 11 96315-3635"},
			{ID: 3, Name: "Dejair", Role: "Presbítero - Louvor e Adoração", PhoneNumber: "+55 69 9381-6282"},
			{ID: 4, Name: "Fabiano", Role: "Presbítero - Aviva Casais", PhoneNumber: "+55 11 94736-5680"},
			{ID: 5, Name: "Juliane Lirio Farias", Role: "Obreira - Aviva Kids", PhoneNumber: "+55 11 99107-8595"},
			{ID: 6, Name: "Pr Will", Role: "Pastor - Aviva Jovens", PhoneNumber: "+55 11 98268-5622"},
			{ID: 7, Name: "Pra Tatiani", Role: "Pastora - Aviva Jovens", PhoneNumber: "+55 11 95984-4501"},
			{ID: 8, Name: "Rose Ribeiro", Role: "Pastora - Aviva Kids", PhoneNumber: "+55 11 98956-4020"},
			{ID: 9, Name: "Stefane", Role: "Presbítera - Aviva Obreiros", PhoneNumber: "+55 11 94069-6532"},
			{ID: 10, Name: "Vanessa Sede", Role: "Presbítera - Aviva Casais", PhoneNumber: "+55 11 97663-2641"},
		},
		Links: map[string]string{
			"oracao":         "https://forms.gle/oracao",
			"aconselhamento": "https://forms.gle/aconselhamento",
			"visitante":      "https://forms.gle/visitante",
			"youtube":        "https://www.youtube.com/c/CristoAVIVAEsperan%C3%A7a",
			"facebook":       "https://www.facebook.com/MCVEOFICIAL",
			"instagram":      "https://www.instagram.com/mcvesede",
			"whatsapp":       "https://wa.me/5511991167256",
		},
		Campaign: Campaign{
			Active: true,
			Title:  "Campanha das Primícias",
			Period: "Janeiro 2026",
			Theme:  "Consagrando o Primeiro ao Senhor",
			Verse: &Verse{
				Text:      "Honra ao SENHOR com os teus bens e com as primícias de toda a tua renda; e se encherão os teus celeiros abundantemente, e transbordarão de mosto os teus lagares.",
				Reference: "Provérbios 3:9-10",
			},
			Description:   "Venha consagrar o primeiro mês do ano ao Senhor! Uma semana especial de cultos e consagração para começarmos o ano na presença de Deus.",
			StartDate:     "2026-01-01",
			EndDate:       "2026-01-31",
			Registrations: []Registration{},
		},
		Meditations: []MeditationVideo{
			{ID: id(0), Title: "Paz para a Alma", Duration: "1 min", Description: "Comece seu dia com paz interior e serenidade.", Kind: VideoYouTube, URL: "https://www.youtube.com/embed/0vrS1-MJus4", Category: "Paz", Date: today},
			{ID: id(1), Title: "Renovação Espiritual", Duration: "2 min", Description: "Momento de renovação e conexão com Deus.", Kind: VideoYouTube, URL: "https://www.youtube.com/embed/0vrS1-MJus4", Category: "Renovação", Date: today},
		},
	}
}

// FallbackDocument is the built-in content shown when neither the server
// nor a fresh local copy is available.
func FallbackDocument() Document {
	return Document{
		Verse: Verse{
			Text:      "Porque para mim o viver é Cristo, e o morrer é lucro.",
			Reference: "Filipenses 1:21",
		},
		Campaign: Campaign{
			Active:      true,
			Period:      "Janeiro 2026",
			Title:       "Campanha das Primícias",
			Theme:       "Consagrando o Primeiro ao Senhor",
			Description: "Venha consagrar o primeiro mês do ano ao Senhor!",
		},
		WeeklyMessage: WeeklyMessage{
			Title: "O FIM É MELHOR DO QUE O COMEÇO",
			Body:  "Versículo: Eclesiastes 7:8...",
		},
		Calendar:    []CalendarEntry{},
		Meditations: []MeditationVideo{},
		Contacts:    []Contact{},
		Links:       map[string]string{},
	}
}
