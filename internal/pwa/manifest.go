// Package pwa serves the installable web app: its manifest, the generated
// service-worker script and the static pages.
package pwa

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Icon is one manifest icon entry.
type Icon struct {
	Src   string `json:"src"`
	Sizes string `json:"sizes"`
	Type  string `json:"type"`
}

// Manifest is the web app manifest.
type Manifest struct {
	Name            string   `json:"name"`
	ShortName       string   `json:"short_name"`
	Description     string   `json:"description"`
	StartURL        string   `json:"start_url"`
	Display         string   `json:"display"`
	Orientation     string   `json:"orientation"`
	BackgroundColor string   `json:"background_color"`
	ThemeColor      string   `json:"theme_color"`
	Icons           []Icon   `json:"icons"`
	Categories      []string `json:"categories"`
	Lang            string   `json:"lang"`
}

// AppInfo is the configurable part of the manifest.
type AppInfo struct {
	Name            string
	ShortName       string
	Description     string
	BackgroundColor string
	ThemeColor      string
	Lang            string
	Icon            string
	IconType        string
}

// NewManifest fills the fixed manifest fields around info.
func NewManifest(info AppInfo) Manifest {
	iconType := info.IconType
	if iconType == "" {
		iconType = "image/jpeg"
	}
	return Manifest{
		Name:            info.Name,
		ShortName:       info.ShortName,
		Description:     info.Description,
		StartURL:        "/",
		Display:         "standalone",
		Orientation:     "portrait",
		BackgroundColor: info.BackgroundColor,
		ThemeColor:      info.ThemeColor,
		Icons: []Icon{
			{Src: info.Icon, Sizes: "192x192", Type: iconType},
			{Src: info.Icon, Sizes: "512x512", Type: iconType},
		},
		Categories: []string{"lifestyle", "religious"},
		Lang:       info.Lang,
	}
}

// ManifestHandler serves GET /manifest.json.
func ManifestHandler(m Manifest) http.HandlerFunc {
	body, err := json.Marshal(m)
	return func(w http.ResponseWriter, _ *http.Request) {
		if err != nil {
			slog.Error("manifest encode failed", slog.String("error", err.Error()))
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		_, _ = w.Write(body)
	}
}
