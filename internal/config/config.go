package config

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/navstack/internal/errors"
	"github.com/vango-dev/navstack/pkg/router"
)

const (
	// ConfigFileName is the name of the JSON route table.
	ConfigFileName = "navstack.json"

	// YAMLConfigFileName is the name of the YAML route table.
	YAMLConfigFileName = "navstack.yaml"

	// DefaultPort is the default navigation server port.
	DefaultPort = 8080

	// DefaultHost is the default navigation server host.
	DefaultHost = "localhost"

	// DefaultMetricsNamespace prefixes every exported metric.
	DefaultMetricsNamespace = "navstack"

	// DefaultLogLevel is used when no level is configured.
	DefaultLogLevel = "info"

	// DefaultLogFormat is used when no format is configured.
	DefaultLogFormat = "text"
)

// fileNames lists the route table names Load looks for, in order.
var fileNames = []string{ConfigFileName, YAMLConfigFileName, "navstack.yml"}

// Config represents a complete navstack route table file.
type Config struct {
	// Name is the application name.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Version is the route table version.
	Version string `json:"version,omitempty" yaml:"version,omitempty"`

	// Routes are the top-level routes, in match order.
	Routes []RouteConfig `json:"routes" yaml:"routes"`

	// Redirects are checked before matching on every hop.
	Redirects []RedirectRule `json:"redirects,omitempty" yaml:"redirects,omitempty"`

	// Resolver tunes resolution.
	Resolver ResolverConfig `json:"resolver,omitempty" yaml:"resolver,omitempty"`

	// Server contains navigation server settings.
	Server ServerConfig `json:"server,omitempty" yaml:"server,omitempty"`

	// Log contains logging settings.
	Log LogConfig `json:"log,omitempty" yaml:"log,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// RouteConfig declares one route.
type RouteConfig struct {
	// Path is the route template, e.g. "/family/:fid" or "person/:pid(\\d+)".
	Path string `json:"path" yaml:"path"`

	// Name identifies the route for reverse lookup.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Title is the page title. Parameter references are expanded.
	Title string `json:"title,omitempty" yaml:"title,omitempty"`

	// Data is copied verbatim into the page descriptor.
	Data map[string]any `json:"data,omitempty" yaml:"data,omitempty"`

	// Redirect makes the route redirect instead of producing a page.
	Redirect string `json:"redirect,omitempty" yaml:"redirect,omitempty"`

	// Guard restricts the route and its descendants.
	Guard *GuardConfig `json:"guard,omitempty" yaml:"guard,omitempty"`

	// Children are nested routes with paths relative to this one.
	Children []RouteConfig `json:"children,omitempty" yaml:"children,omitempty"`
}

// GuardConfig is a CEL condition with the location to go to when it fails.
type GuardConfig struct {
	// When must evaluate to true for the route to build.
	When string `json:"when" yaml:"when"`

	// Redirect is the target when When is false.
	Redirect string `json:"redirect" yaml:"redirect"`
}

// RedirectRule redirects every location matching From.
type RedirectRule struct {
	// From is a route template matched against the whole path.
	From string `json:"from" yaml:"from"`

	// To is the target. Parameter references are expanded.
	To string `json:"to" yaml:"to"`

	// When optionally restricts the rule with a CEL condition.
	When string `json:"when,omitempty" yaml:"when,omitempty"`
}

// ResolverConfig tunes resolution.
type ResolverConfig struct {
	// MaxRedirects bounds redirect chains. Zero means the router default.
	MaxRedirects int `json:"maxRedirects,omitempty" yaml:"maxRedirects,omitempty"`
}

// ServerConfig contains navigation server settings.
type ServerConfig struct {
	// Host is the host to bind to.
	Host string `json:"host,omitempty" yaml:"host,omitempty"`

	// Port is the port to listen on.
	Port int `json:"port,omitempty" yaml:"port,omitempty"`

	// MetricsNamespace prefixes exported metrics.
	MetricsNamespace string `json:"metricsNamespace,omitempty" yaml:"metricsNamespace,omitempty"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level,omitempty" yaml:"level,omitempty"`

	// Format is text or json.
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Version: "0.1.0",
		Resolver: ResolverConfig{
			MaxRedirects: router.DefaultMaxRedirects,
		},
		Server: ServerConfig{
			Host:             DefaultHost,
			Port:             DefaultPort,
			MetricsNamespace: DefaultMetricsNamespace,
		},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// Load reads the route table from the specified directory.
// It looks for navstack.json, then navstack.yaml and navstack.yml.
func Load(dir string) (*Config, error) {
	for _, name := range fileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return nil, errors.New("E120").
		WithDetail("No navstack.json or navstack.yaml found in " + dir).
		WithSuggestion("Run 'navstack init' to create a route table")
}

// LoadFile reads the route table from the specified file path. The format
// follows the extension; anything but .yaml and .yml is read as JSON.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E120").
				WithDetail("No route table found at " + path).
				WithSuggestion("Run 'navstack init' to create a route table")
		}
		return nil, errors.New("E122").Wrap(err)
	}

	cfg, err := Parse(path, data)
	if err != nil {
		return nil, err
	}
	cfg.configPath = path
	return cfg, nil
}

// Parse decodes a route table. name is used for the format and for error
// positions.
func Parse(name string, data []byte) (*Config, error) {
	cfg := New()
	if isYAML(name) {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.New("E121").
				WithDetail("Failed to parse " + filepath.Base(name) + ": " + err.Error()).
				WithSuggestion("Check that the file is valid YAML")
		}
	} else {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			return nil, jsonError(name, data, err)
		}
	}

	cfg.applyDefaults()
	return cfg, nil
}

// jsonError points at the offending byte when the decoder reports one.
func jsonError(name string, data []byte, err error) *errors.NavError {
	e := errors.New("E121").
		WithDetail("Failed to parse " + filepath.Base(name) + ": " + err.Error()).
		WithSuggestion("Check that the file is valid JSON")

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case stderrors.As(err, &syntaxErr):
		e.WithOffset(name, data, syntaxErr.Offset)
	case stderrors.As(err, &typeErr):
		e.WithOffset(name, data, typeErr.Offset)
	}
	return e
}

func isYAML(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}

// Save writes the route table to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	if IsS3(c.configPath) {
		return errors.Newf(errors.CategoryConfig, "%s is remote, use SaveS3", c.configPath)
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the route table to the specified path, as YAML when the
// extension says so and as indented JSON otherwise.
func (c *Config) SaveTo(path string) error {
	var data []byte
	var err error
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
		// Add newline at end of file
		data = append(data, '\n')
	}
	if err != nil {
		return errors.New("E122").Wrap(err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E122").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Resolver.MaxRedirects == 0 {
		c.Resolver.MaxRedirects = router.DefaultMaxRedirects
	}
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.MetricsNamespace == "" {
		c.Server.MetricsNamespace = DefaultMetricsNamespace
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
}

// Validate checks values the router cannot check itself. Route templates
// and names are validated when the tree is compiled.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return errors.New("E122").
			WithDetail("Port must be between 0 and 65535")
	}
	if c.Resolver.MaxRedirects < 0 {
		return errors.New("E122").
			WithDetail("resolver.maxRedirects must not be negative")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return errors.New("E122").
			WithDetail("Unknown log level " + strconv.Quote(c.Log.Level)).
			WithSuggestion("Use one of debug, info, warn, error")
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return errors.New("E122").
			WithDetail("Unknown log format " + strconv.Quote(c.Log.Format)).
			WithSuggestion("Use text or json")
	}

	for i, rule := range c.Redirects {
		if rule.From == "" || rule.To == "" {
			return errors.New("E122").
				WithDetail("redirects[" + strconv.Itoa(i) + "] needs both from and to")
		}
	}
	return validateRoutes(c.Routes, "routes")
}

func validateRoutes(routes []RouteConfig, at string) error {
	for i, rc := range routes {
		where := at + "[" + strconv.Itoa(i) + "]"
		if rc.Redirect != "" && len(rc.Children) > 0 {
			return errors.New("E122").
				WithDetail(where + " redirects, so its children can never be built").
				WithSuggestion("Move the children to the redirect target")
		}
		if rc.Guard != nil && (rc.Guard.When == "" || rc.Guard.Redirect == "") {
			return errors.New("E122").
				WithDetail(where + ".guard needs both when and redirect")
		}
		if err := validateRoutes(rc.Children, where+".children"); err != nil {
			return err
		}
	}
	return nil
}

// Exists checks if a route table exists in the given directory.
func Exists(dir string) bool {
	for _, name := range fileNames {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// FindProjectRoot walks up directories to find the project root.
// Returns the directory containing the route table, or an error if not found.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("E120").
				WithDetail("No route table found in " + startDir + " or any parent directory").
				WithSuggestion("Run 'navstack init' to create one")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads the route table from the current working directory.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		return nil, err
	}

	return Load(root)
}
