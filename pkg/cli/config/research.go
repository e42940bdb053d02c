package config

import (
	"log/slog"
	"os"

	"github.com/hera-health/hera/pkg/domain/model"
	"github.com/hera-health/hera/pkg/service/router"
	"github.com/hera-health/hera/pkg/usecase"
	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"
)

// ResearchFile is the TOML document customizing research retrieval
type ResearchFile struct {
	Topics     []string    `toml:"topics"`
	Fallback   []string    `toml:"fallback"`
	Thresholds *Thresholds `toml:"thresholds"`
	Routes     []Route     `toml:"route"`
}

// Thresholds overrides the knowledge gap thresholds
type Thresholds struct {
	Loose  float64 `toml:"loose"`
	Strict float64 `toml:"strict"`
}

// Validate checks that both thresholds are similarities and ordered
func (t *Thresholds) Validate() error {
	if t.Loose <= 0 || t.Loose > 1 || t.Strict <= 0 || t.Strict > 1 {
		return goerr.Wrap(ErrInvalidThreshold, "thresholds must be in (0, 1]",
			goerr.V("loose", t.Loose),
			goerr.V("strict", t.Strict))
	}
	if t.Loose > t.Strict {
		return goerr.Wrap(ErrInvalidThreshold, "loose threshold must not exceed strict threshold",
			goerr.V("loose", t.Loose),
			goerr.V("strict", t.Strict))
	}
	return nil
}

// Route is a curated source list for topics containing one of the keywords
type Route struct {
	Name     string   `toml:"name"`
	Keywords []string `toml:"keywords"`
	URLs     []string `toml:"urls"`
}

// Validate checks the ResearchFile
func (f *ResearchFile) Validate() error {
	names := make(map[string]bool)
	for i, r := range f.Routes {
		route := r.toModel()
		if err := route.Validate(); err != nil {
			return goerr.Wrap(err, "invalid route", goerr.V(RouteIndexKey, i))
		}
		if names[r.Name] {
			return goerr.Wrap(ErrDuplicateRoute, "route names must be unique", goerr.V(RouteNameKey, r.Name))
		}
		names[r.Name] = true
	}

	if f.Thresholds != nil {
		if err := f.Thresholds.Validate(); err != nil {
			return err
		}
	}

	for i, topic := range f.Topics {
		if topic == "" {
			return goerr.Wrap(ErrInvalidConfig, "topic must not be empty", goerr.V("topic_index", i))
		}
	}
	return nil
}

func (r Route) toModel() model.TopicRoute {
	return model.TopicRoute{
		Name:     r.Name,
		Keywords: r.Keywords,
		URLs:     r.URLs,
	}
}

// LoadResearchFile loads the research configuration from a TOML file
func LoadResearchFile(path string) (*ResearchFile, error) {
	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, goerr.Wrap(ErrConfigNotFound, "research config not found", goerr.V(ConfigPathKey, path))
		}
		return nil, goerr.Wrap(err, "failed to read config file", goerr.V(ConfigPathKey, path))
	}

	var file ResearchFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, goerr.Wrap(err, "failed to parse TOML config", goerr.V(ConfigPathKey, path))
	}

	if err := file.Validate(); err != nil {
		return nil, goerr.Wrap(err, "config validation failed", goerr.V(ConfigPathKey, path))
	}

	return &file, nil
}

// TopicRoutes returns the configured routes in priority order
func (f *ResearchFile) TopicRoutes() []model.TopicRoute {
	routes := make([]model.TopicRoute, len(f.Routes))
	for i, r := range f.Routes {
		routes[i] = r.toModel()
	}
	return routes
}

// Router builds the topic router. Built-in routes and fallback sources are
// kept for the sections the file leaves out.
func (f *ResearchFile) Router() (*router.Router, error) {
	var opts []router.Option
	if len(f.Routes) > 0 {
		opts = append(opts, router.WithRoutes(f.TopicRoutes()))
	}
	if len(f.Fallback) > 0 {
		opts = append(opts, router.WithFallback(f.Fallback))
	}

	r, err := router.New(opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build topic router")
	}
	return r, nil
}

// Options converts the file into research options. Sections left out keep
// the built-in defaults.
func (f *ResearchFile) Options() ([]usecase.ResearchOption, error) {
	r, err := f.Router()
	if err != nil {
		return nil, err
	}
	opts := []usecase.ResearchOption{usecase.WithRouter(r)}

	if f.Thresholds != nil {
		opts = append(opts, usecase.WithThresholds(model.Thresholds{
			Loose:  f.Thresholds.Loose,
			Strict: f.Thresholds.Strict,
		}))
	}

	if len(f.Topics) > 0 {
		opts = append(opts, usecase.WithDefaultTopics(f.Topics))
	}

	return opts, nil
}

// Research holds the CLI flag pointing at the research TOML file
type Research struct {
	path string
}

// Flags returns CLI flags for research configuration
func (x *Research) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Category:    "Research",
			Usage:       "Path to the research TOML file (routes, topics, thresholds)",
			Sources:     cli.EnvVars("HERA_CONFIG"),
			Destination: &x.path,
		},
	}
}

// LogAttrs returns log attributes for the research configuration
func (x *Research) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("config", x.path),
	}
}

// Configure loads the research file. Built-in defaults apply when no path
// is set.
func (x *Research) Configure() ([]usecase.ResearchOption, error) {
	if x.path == "" {
		return nil, nil
	}

	file, err := LoadResearchFile(x.path)
	if err != nil {
		return nil, err
	}
	return file.Options()
}
