package internal

import (
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/aviva/internal/offline"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Content   ContentConfig     `yaml:"content"`
	Media     MediaConfig       `yaml:"media"`
	Web       WebConfig         `yaml:"web"`
	Offline   OfflineConfig     `yaml:"offline"`
	KeepAlive KeepAliveConfig   `yaml:"keepalive"`
	Client    ClientConfig      `yaml:"client"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for _, v := range []validation.Validatable{
		&c.App, &c.Content, &c.Media, &c.Web, &c.Offline, &c.KeepAlive, &c.Client,
	} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// ContentConfig locates the content document and its backups.
type ContentConfig struct {
	DataDir    string `yaml:"data_dir"`
	Document   string `yaml:"document"`
	BackupsDir string `yaml:"backups_dir"`
	// Watch reloads the document when it is edited outside the server.
	Watch bool `yaml:"watch"`
}

// Validate validates the content configuration.
func (c *ContentConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.DataDir, validation.Required),
		validation.Field(&c.Document, validation.Required),
		validation.Field(&c.BackupsDir, validation.Required),
	)
}

// MediaConfig controls video and audio uploads.
type MediaConfig struct {
	UploadDir    string   `yaml:"upload_dir"`
	MaxBytes     int64    `yaml:"max_bytes"`
	AllowedTypes []string `yaml:"allowed_types"`
}

// Validate validates the media configuration.
func (c *MediaConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.UploadDir, validation.Required),
		validation.Field(&c.MaxBytes, validation.Required, validation.Min(int64(1))),
		validation.Field(&c.AllowedTypes, validation.Required, validation.Each(validation.Required)),
	)
}

// WebConfig describes the installable web app.
type WebConfig struct {
	PublicDir       string `yaml:"public_dir"`
	Name            string `yaml:"name"`
	ShortName       string `yaml:"short_name"`
	Description     string `yaml:"description"`
	BackgroundColor string `yaml:"background_color"`
	ThemeColor      string `yaml:"theme_color"`
	Lang            string `yaml:"lang"`
	Icon            string `yaml:"icon"`
	Version         string `yaml:"version"`
}

// Validate validates the web configuration.
func (c *WebConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.PublicDir, validation.Required),
		validation.Field(&c.Name, validation.Required),
		validation.Field(&c.ShortName, validation.Required),
		validation.Field(&c.BackgroundColor, validation.Required, validation.Match(hexColorRe)),
		validation.Field(&c.ThemeColor, validation.Required, validation.Match(hexColorRe)),
		validation.Field(&c.Version, validation.Required),
	)
}

// OfflineConfig is the cache policy shared by /sw.js and the render client.
type OfflineConfig struct {
	CacheVersion   string   `yaml:"cache_version"`
	Precache       []string `yaml:"precache"`
	BypassPrefixes []string `yaml:"bypass_prefixes"`
}

// CacheName returns the versioned cache name.
func (c *OfflineConfig) CacheName() string {
	return offline.CacheNamePrefix + c.CacheVersion
}

// Validate validates the offline configuration.
func (c *OfflineConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.CacheVersion, validation.Required),
		validation.Field(&c.Precache, validation.Required, validation.Each(validation.Required, validation.By(absolutePath))),
		validation.Field(&c.BypassPrefixes, validation.Each(validation.Required, validation.By(absolutePath))),
	)
}

// KeepAliveConfig controls the self-ping. A zero interval disables it.
type KeepAliveConfig struct {
	Interval time.Duration `yaml:"interval"`
	URL      string        `yaml:"url"`
}

// Validate validates the keep-alive configuration.
func (c *KeepAliveConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Interval, validation.Min(time.Duration(0))),
		validation.Field(&c.URL, validation.When(c.Interval > 0, validation.Required, validation.By(httpURL))),
	)
}

// ClientConfig configures the render command.
type ClientConfig struct {
	BaseURL       string        `yaml:"base_url"`
	CacheDB       string        `yaml:"cache_db"`
	Output        string        `yaml:"output"`
	PollInterval  time.Duration `yaml:"poll_interval"`
	Freshness     time.Duration `yaml:"freshness"`
	ProbeInterval time.Duration `yaml:"probe_interval"`
	Stylesheet    string        `yaml:"stylesheet"`
}

// Validate validates the client configuration.
func (c *ClientConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required, validation.By(httpURL)),
		validation.Field(&c.CacheDB, validation.Required),
		validation.Field(&c.Output, validation.Required),
		validation.Field(&c.PollInterval, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.Freshness, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.ProbeInterval, validation.Required, validation.Min(time.Second)),
	)
}

var hexColorRe = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

func httpURL(v any) error {
	s, _ := v.(string)
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("must be an http(s) URL")
	}
	return nil
}

func absolutePath(v any) error {
	s, _ := v.(string)
	u, err := url.Parse(s)
	if err != nil || u.IsAbs() || len(s) == 0 || s[0] != '/' {
		return fmt.Errorf("must be a path starting with /")
	}
	return nil
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 3000,
			},
		},
		Content: ContentConfig{
			DataDir:    "./data",
			Document:   "data.json",
			BackupsDir: "backups",
			Watch:      true,
		},
		Media: MediaConfig{
			UploadDir:    "./public/uploads",
			MaxBytes:     100 << 20,
			AllowedTypes: []string{"video/mp4", "video/webm", "video/ogg", "audio/mpeg", "audio/ogg"},
		},
		Web: WebConfig{
			PublicDir:       "./public",
			Name:            "AVIVA - Portal dos Membros",
			ShortName:       "AVIVA",
			Description:     "Portal do Ministério Cristo a Viva Esperança",
			BackgroundColor: "#0f172a",
			ThemeColor:      "#1e293b",
			Lang:            "pt-BR",
			Icon:            "/logo.jpeg",
			Version:         "1.0.0",
		},
		Offline: OfflineConfig{
			CacheVersion: "v1",
			Precache: []string{
				"/", "/index.html", "/styles.css", "/script.js",
				"/manifest.json", "/logo.jpeg", "/admin.html", "/meditacao.html",
			},
			BypassPrefixes: []string{"/api/", "/uploads/"},
		},
		Client: ClientConfig{
			BaseURL:       "http://localhost:3000",
			CacheDB:       "./aviva-client.db",
			Output:        "./render/index.html",
			PollInterval:  5 * time.Minute,
			Freshness:     time.Hour,
			ProbeInterval: 30 * time.Second,
			Stylesheet:    "/styles.css",
		},
	}
}
