package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/aviva/internal/contentservice"
	"github.com/starford/aviva/internal/media"
	"github.com/starford/aviva/internal/models"
	"github.com/starford/aviva/internal/storage"
	"github.com/starford/aviva/internal/testutil"
)

type testEnv struct {
	svc       *contentservice.Service
	router    http.Handler
	uploadDir string
}

// newTestEnv sets up a seeded content service, upload dir and router.
func newTestEnv(t *testing.T, maxUpload int64) *testEnv {
	t.Helper()
	c := testutil.TestContent(t, maxUpload, nil)
	return &testEnv{svc: c.Service, router: NewRouter(c.Service, c.Uploads, nil), uploadDir: c.UploadDir}
}

func (e *testEnv) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) document(t *testing.T) models.Document {
	t.Helper()
	w := e.do(t, http.MethodGet, "/data", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /data = %d", w.Code)
	}
	var doc models.Document
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestGetDocument(t *testing.T) {
	e := newTestEnv(t, 0)

	w := e.do(t, http.MethodGet, "/data", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	tag := w.Header().Get("ETag")
	if len(tag) < 3 || !strings.HasPrefix(tag, `"`) || !strings.HasSuffix(tag, `"`) {
		t.Errorf("ETag = %q, want quoted revision", tag)
	}
	if cc := w.Header().Get("Cache-Control"); cc != "no-store" {
		t.Errorf("Cache-Control = %q", cc)
	}
	var doc models.Document
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatal(err)
	}
	if len(doc.Contacts) == 0 || doc.Verse.Text == "" {
		t.Error("expected seeded document")
	}
}

func TestReplaceVerseRoundTrip(t *testing.T) {
	e := newTestEnv(t, 0)

	w := e.do(t, http.MethodPost, "/versiculo", map[string]string{"texto": "C", "referencia": "D"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp MessageResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if !resp.Success || resp.Message != "Versículo atualizado com sucesso" {
		t.Errorf("resp = %+v", resp)
	}

	doc := e.document(t)
	if doc.Verse.Text != "C" || doc.Verse.Reference != "D" {
		t.Errorf("verse = %+v", doc.Verse)
	}
	if doc.Verse.LastUpdatedAt == nil || time.Since(*doc.Verse.LastUpdatedAt) > time.Minute {
		t.Errorf("dataAtualizacao = %v, want fresh", doc.Verse.LastUpdatedAt)
	}
}

func TestReplaceFieldRoundTrip(t *testing.T) {
	e := newTestEnv(t, 0)

	contacts := []models.Contact{{ID: 1, Name: "Ana", Role: "Diaconisa", PhoneNumber: "+55 11 90000-0000"}}
	if w := e.do(t, http.MethodPost, "/contatos", contacts); w.Code != http.StatusOK {
		t.Fatalf("contatos = %d, body = %s", w.Code, w.Body.String())
	}
	links := map[string]string{"oracao": "https://example.org/oracao"}
	if w := e.do(t, http.MethodPost, "/links", links); w.Code != http.StatusOK {
		t.Fatalf("links = %d", w.Code)
	}

	doc := e.document(t)
	if len(doc.Contacts) != 1 || doc.Contacts[0].Name != "Ana" {
		t.Errorf("contacts = %+v", doc.Contacts)
	}
	if doc.Links["oracao"] != "https://example.org/oracao" {
		t.Errorf("links = %v", doc.Links)
	}

	w := e.do(t, http.MethodGet, "/contatos", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /contatos = %d", w.Code)
	}
	var got []models.Contact
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if len(got) != 1 || got[0].Name != "Ana" {
		t.Errorf("GET /contatos = %+v", got)
	}
}

func TestReplaceEveryFieldRoundTrip(t *testing.T) {
	tests := []struct {
		field string
		body  any
		check func(models.Document) bool
	}{
		{
			field: "palavra-semana",
			body:  map[string]string{"titulo": "Fé", "mensagem": "Introdução: crer."},
			check: func(d models.Document) bool {
				return d.WeeklyMessage.Title == "Fé" && d.WeeklyMessage.Body == "Introdução: crer." &&
					d.WeeklyMessage.LastUpdatedAt != nil
			},
		},
		{
			field: "agenda",
			body: []models.CalendarEntry{
				{ID: "c1", Kind: models.EntryRecurring, Title: "Culto", Schedule: "Dom 19h"},
				{ID: "c2", Kind: models.EntrySpecial, Title: "Vigília", Date: "24/12"},
			},
			check: func(d models.Document) bool {
				return len(d.Calendar) == 2 && d.Calendar[0].Schedule == "Dom 19h" && d.Calendar[1].Date == "24/12"
			},
		},
		{
			field: "eventos-especiais",
			body:  models.Campaign{Active: true, Title: "Retiro", Period: "Março", Theme: "Renovo"},
			check: func(d models.Document) bool {
				return d.Campaign.Active && d.Campaign.Title == "Retiro" && d.Campaign.Theme == "Renovo"
			},
		},
		{
			field: "meditacao",
			body: []models.MeditationVideo{
				{ID: "v1", Title: "Paz", Kind: models.VideoYouTube, URL: "https://youtu.be/x", Category: "Oração"},
			},
			check: func(d models.Document) bool {
				return len(d.Meditations) == 1 && d.Meditations[0].ID == "v1" && d.Meditations[0].Category == "Oração"
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			e := newTestEnv(t, 0)
			if w := e.do(t, http.MethodPost, "/"+tt.field, tt.body); w.Code != http.StatusOK {
				t.Fatalf("POST = %d, body = %s", w.Code, w.Body.String())
			}
			if doc := e.document(t); !tt.check(doc) {
				t.Errorf("document after POST /%s = %+v", tt.field, doc)
			}
			if w := e.do(t, http.MethodGet, "/"+tt.field, nil); w.Code != http.StatusOK {
				t.Errorf("GET /%s = %d", tt.field, w.Code)
			}
		})
	}
}

func TestReplaceField_MalformedJSON(t *testing.T) {
	e := newTestEnv(t, 0)

	w := e.do(t, http.MethodPost, "/agenda", "{not json")
	if w.Code != http.StatusBadRequest {
		t.Errorf("malformed = %d, want 400", w.Code)
	}
}

func TestUnknownField(t *testing.T) {
	e := newTestEnv(t, 0)

	if w := e.do(t, http.MethodGet, "/nada", nil); w.Code != http.StatusNotFound {
		t.Errorf("GET unknown = %d, want 404", w.Code)
	}
	if w := e.do(t, http.MethodPost, "/nada", map[string]string{}); w.Code != http.StatusNotFound {
		t.Errorf("POST unknown = %d, want 404", w.Code)
	}
	// The verse is writable but only readable through /data.
	if w := e.do(t, http.MethodGet, "/versiculo", nil); w.Code != http.StatusNotFound {
		t.Errorf("GET /versiculo = %d, want 404", w.Code)
	}
}

func TestReplaceFieldWithOptimisticLocking(t *testing.T) {
	e := newTestEnv(t, 0)

	tag := e.do(t, http.MethodGet, "/data", nil).Header().Get("ETag")

	body := `{"titulo":"Nova","mensagem":"Texto"}`
	req := httptest.NewRequest(http.MethodPost, "/palavra-semana", strings.NewReader(body))
	req.Header.Set("If-Match", tag)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("update with current tag = %d, body = %s", w.Code, w.Body.String())
	}
	if w.Header().Get("ETag") == tag {
		t.Error("ETag should change after update")
	}

	// Same tag is stale now.
	req = httptest.NewRequest(http.MethodPost, "/palavra-semana", strings.NewReader(body))
	req.Header.Set("If-Match", tag)
	w = httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	if w.Code != http.StatusConflict {
		t.Errorf("update with stale tag = %d, want 409", w.Code)
	}

	// Without If-Match the write goes through.
	if w := e.do(t, http.MethodPost, "/palavra-semana", body); w.Code != http.StatusOK {
		t.Errorf("update without If-Match = %d, want 200", w.Code)
	}
}

func TestRegistrations(t *testing.T) {
	e := newTestEnv(t, 0)

	w := e.do(t, http.MethodGet, "/inscricoes", nil)
	if w.Code != http.StatusOK || strings.TrimSpace(w.Body.String()) != "[]" {
		t.Fatalf("empty list = %d %s", w.Code, w.Body.String())
	}

	w = e.do(t, http.MethodPost, "/inscricoes", map[string]any{
		"nome": "Maria", "telefone": "11999990000", "quantidade": "2",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("create = %d, body = %s", w.Code, w.Body.String())
	}
	var resp RegistrationResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if !resp.Success || resp.Registration.ID == "" || resp.Registration.PartySize != 2 {
		t.Errorf("resp = %+v", resp)
	}
	if resp.Registration.Status != models.RegistrationPending {
		t.Errorf("status = %q", resp.Registration.Status)
	}

	w = e.do(t, http.MethodGet, "/inscricoes", nil)
	var regs []models.Registration
	_ = json.Unmarshal(w.Body.Bytes(), &regs)
	if len(regs) != 1 || regs[0].Name != "Maria" {
		t.Errorf("list = %+v", regs)
	}
}

func TestRegistration_Invalid(t *testing.T) {
	e := newTestEnv(t, 0)

	if w := e.do(t, http.MethodPost, "/inscricoes", map[string]string{"nome": "Sem telefone"}); w.Code != http.StatusBadRequest {
		t.Errorf("missing phone = %d, want 400", w.Code)
	}
	if w := e.do(t, http.MethodPost, "/inscricoes", "nope"); w.Code != http.StatusBadRequest {
		t.Errorf("malformed = %d, want 400", w.Code)
	}
}

func TestRecordView(t *testing.T) {
	e := newTestEnv(t, 0)
	id := e.document(t).Meditations[0].ID

	for i := 1; i <= 2; i++ {
		w := e.do(t, http.MethodPost, "/video/"+id+"/view", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("view %d = %d", i, w.Code)
		}
		var resp ViewResponse
		_ = json.Unmarshal(w.Body.Bytes(), &resp)
		if resp.Views != i {
			t.Errorf("views = %d, want %d", resp.Views, i)
		}
	}
	if got := e.document(t).Meditations[0].ViewCount; got != 2 {
		t.Errorf("stored views = %d, want 2", got)
	}
	if w := e.do(t, http.MethodPost, "/video/ghost/view", nil); w.Code != http.StatusNotFound {
		t.Errorf("unknown id = %d, want 404", w.Code)
	}
}

func TestBackups(t *testing.T) {
	e := newTestEnv(t, 0)

	w := e.do(t, http.MethodGet, "/backups", nil)
	if w.Code != http.StatusOK || strings.TrimSpace(w.Body.String()) != "[]" {
		t.Fatalf("empty backups = %d %s", w.Code, w.Body.String())
	}

	w = e.do(t, http.MethodPost, "/backup", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("backup = %d", w.Code)
	}
	var resp BackupResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if !resp.Success || !strings.HasPrefix(resp.File, "backups/backup-") {
		t.Errorf("resp = %+v", resp)
	}

	w = e.do(t, http.MethodGet, "/backups", nil)
	var items []storage.FileInfo
	_ = json.Unmarshal(w.Body.Bytes(), &items)
	if len(items) != 1 || items[0].Size == 0 {
		t.Errorf("backups = %+v", items)
	}
}

// Upload tests.

func uploadVideo(t *testing.T, router http.Handler, filename, ctype string, content []byte, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	if filename != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="video"; filename="`+filename+`"`)
		h.Set("Content-Type", ctype)
		part, err := mw.CreatePart(h)
		if err != nil {
			t.Fatal(err)
		}
		_, _ = part.Write(content)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/upload-video", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestUploadAndDeleteVideo(t *testing.T) {
	e := newTestEnv(t, 0)
	before := len(e.document(t).Meditations)

	w := uploadVideo(t, e.router, "culto.mp4", "video/mp4", []byte("fake-mp4"), map[string]string{
		"titulo":    "Oração da manhã",
		"categoria": "Oração",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("upload = %d, body = %s", w.Code, w.Body.String())
	}
	var resp UploadResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	v := resp.Video
	if v.Title != "Oração da manhã" || v.Category != "Oração" || v.Duration != "0 min" || v.Kind != models.VideoUpload {
		t.Errorf("video = %+v", v)
	}
	if !strings.HasPrefix(v.URL, media.URLPrefix+"video-") || !strings.HasSuffix(v.URL, ".mp4") {
		t.Errorf("url = %q", v.URL)
	}

	doc := e.document(t)
	if len(doc.Meditations) != before+1 || doc.Meditations[0].ID != v.ID {
		t.Fatalf("upload not prepended: %+v", doc.Meditations)
	}
	onDisk := filepath.Join(e.uploadDir, strings.TrimPrefix(v.URL, media.URLPrefix))
	data, err := os.ReadFile(onDisk)
	if err != nil || string(data) != "fake-mp4" {
		t.Fatalf("file on disk = %q, %v", data, err)
	}

	if w := e.do(t, http.MethodDelete, "/video/"+v.ID, nil); w.Code != http.StatusOK {
		t.Fatalf("delete = %d", w.Code)
	}
	if _, err := os.Stat(onDisk); !os.IsNotExist(err) {
		t.Errorf("file still on disk: %v", err)
	}
	if len(e.document(t).Meditations) != before {
		t.Error("record not removed")
	}
	if w := e.do(t, http.MethodDelete, "/video/"+v.ID, nil); w.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", w.Code)
	}
}

func TestUpload_EnglishFieldNames(t *testing.T) {
	e := newTestEnv(t, 0)

	w := uploadVideo(t, e.router, "a.webm", "video/webm", []byte("x"), map[string]string{
		"title":    "Evening",
		"duration": "3 min",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("upload = %d, body = %s", w.Code, w.Body.String())
	}
	var resp UploadResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Video.Title != "Evening" || resp.Video.Duration != "3 min" {
		t.Errorf("video = %+v", resp.Video)
	}
}

func TestUpload_Rejected(t *testing.T) {
	e := newTestEnv(t, 1024)
	before := len(e.document(t).Meditations)

	tests := []struct {
		name     string
		filename string
		ctype    string
		size     int
	}{
		{"unsupported type", "doc.pdf", "application/pdf", 10},
		{"too large", "big.mp4", "video/mp4", 4096},
		{"missing file", "", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := uploadVideo(t, e.router, tt.filename, tt.ctype, bytes.Repeat([]byte("a"), tt.size), nil)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400, body = %s", w.Code, w.Body.String())
			}
		})
	}

	if len(e.document(t).Meditations) != before {
		t.Error("rejected uploads must not add records")
	}
	entries, _ := os.ReadDir(e.uploadDir)
	if len(entries) != 0 {
		t.Errorf("upload dir has %d files, want 0", len(entries))
	}
}

func TestDeleteYouTubeVideo(t *testing.T) {
	e := newTestEnv(t, 0)
	id := e.document(t).Meditations[0].ID

	if w := e.do(t, http.MethodDelete, "/video/"+id, nil); w.Code != http.StatusOK {
		t.Fatalf("delete = %d", w.Code)
	}
	for _, v := range e.document(t).Meditations {
		if v.ID == id {
			t.Error("video still listed")
		}
	}
}

func TestSSEEventsMounted(t *testing.T) {
	svc := testutil.TestContent(t, 0, nil).Service
	sseHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
	})
	router := NewRouter(svc, nil, sseHandler)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/events", nil))
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}
}
