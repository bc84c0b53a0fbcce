package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaSource string

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SENSORSYNC_"

// DefaultEnvFile is read when present and no env file is named explicitly.
const DefaultEnvFile = ".env"

// Options controls Load.
type Options struct {
	// Path is the YAML file. Empty skips the file layer.
	Path string

	// EnvFile is a dotenv file. Empty reads DefaultEnvFile if it exists;
	// a named file must exist.
	EnvFile string

	// LookupEnv reads the process environment. Defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// Load builds a validated configuration from defaults, the YAML file, the
// env file and the environment.
func Load(opts Options) (*Config, error) {
	cfg := Default()

	if opts.Path != "" {
		if err := decodeFile(opts.Path, cfg); err != nil {
			return nil, err
		}
	}

	dotenv, err := readEnvFile(opts.EnvFile)
	if err != nil {
		return nil, err
	}

	lookup := opts.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	// The process environment wins over the env file.
	getenv := func(key string) (string, bool) {
		if v, ok := lookup(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}

	if err := applyEnv(cfg, getenv); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &Error{Message: fmt.Sprintf("read config file %s", path), Err: err}
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil // empty file
		}
		return &Error{Message: fmt.Sprintf("parse config file %s", path), Err: err}
	}
	return nil
}

func readEnvFile(path string) (map[string]string, error) {
	if path == "" {
		if _, err := os.Stat(DefaultEnvFile); err != nil {
			return nil, nil
		}
		path = DefaultEnvFile
	}
	env, err := godotenv.Read(path)
	if err != nil {
		return nil, &Error{Message: fmt.Sprintf("read env file %s", path), Err: err}
	}
	return env, nil
}

// envBinding maps one SENSORSYNC_* variable onto a setting.
type envBinding struct {
	name  string
	field string
	set   func(cfg *Config, v string) error
}

var envBindings = []envBinding{
	{"BASE_URL", "source.base_url", func(c *Config, v string) error { c.Source.BaseURL = v; return nil }},
	{"FEED", "source.feed", func(c *Config, v string) error { c.Source.Feed = v; return nil }},
	{"BATCH_LIMIT", "source.batch_limit", intSetter(func(c *Config) *int { return &c.Source.BatchLimit })},
	{"TIMEOUT", "source.timeout", durationSetter(func(c *Config) *time.Duration { return &c.Source.Timeout })},
	{"RETRY_MAX_ATTEMPTS", "source.retry.max_attempts", intSetter(func(c *Config) *int { return &c.Source.Retry.MaxAttempts })},
	{"EARLIEST_DATE", "sync.earliest_date", func(c *Config, v string) error { c.Sync.EarliestDate = v; return nil }},
	{"MAX_PAGES", "sync.max_pages", intSetter(func(c *Config) *int { return &c.Sync.MaxPages })},
	{"STORE_PATH", "store.path", func(c *Config, v string) error { c.Store.Path = v; return nil }},
	{"LOG_LEVEL", "log.level", func(c *Config, v string) error { c.Log.Level = strings.ToLower(v); return nil }},
	{"LOG_FILE", "log.file", func(c *Config, v string) error { c.Log.File = v; return nil }},
	{"METRICS_TEXTFILE", "metrics.textfile", func(c *Config, v string) error { c.Metrics.Textfile = v; return nil }},
}

func intSetter(field func(*Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return err
		}
		*field(c) = n
		return nil
	}
}

func durationSetter(field func(*Config) *time.Duration) func(*Config, string) error {
	return func(c *Config, v string) error {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return err
		}
		*field(c) = d
		return nil
	}
}

func applyEnv(cfg *Config, getenv func(string) (string, bool)) error {
	for _, b := range envBindings {
		v, ok := getenv(EnvPrefix + b.name)
		if !ok {
			continue
		}
		if err := b.set(cfg, v); err != nil {
			return &Error{Field: b.field, Message: fmt.Sprintf("invalid %s%s", EnvPrefix, b.name), Err: err}
		}
	}
	return nil
}

// Validate checks cfg against the embedded schema.
func Validate(cfg *Config) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return &Error{Message: "compile schema", Err: err}
	}

	def := schema.LookupPath(cue.ParsePath("#Config"))
	value := ctx.Encode(cfg)
	if err := value.Err(); err != nil {
		return &Error{Message: "encode configuration", Err: err}
	}

	unified := def.Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		errs := cueerrors.Errors(err)
		if len(errs) == 0 {
			return &Error{Message: err.Error()}
		}
		first := errs[0]
		return &Error{
			Field:   strings.Join(first.Path(), "."),
			Message: first.Error(),
		}
	}
	return nil
}
