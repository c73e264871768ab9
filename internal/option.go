package internal

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config *Config
	once   bool
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithOnce makes RunRender sync and render a single time.
func WithOnce(once bool) Option {
	return func(a *application) {
		a.once = once
	}
}

func newApplication(opts []Option) (*application, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, errConfigRequired
	}
	return app, nil
}
