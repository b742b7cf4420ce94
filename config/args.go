package config

import (
	"io"
	"reflect"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
)

// Unlimited is the "no limit" sentinel for Limit and FetchCap.
const Unlimited = -1

// Pipeline selectors accepted by --function.
const (
	FunctionCourses  = "courses"
	FunctionSubjects = "subjects"
	FunctionTerms    = "terms"
)

// Sinks accepted by --sink.
const (
	SinkPocketBase = "pocketbase"
	SinkPostgres   = "postgres"
)

// Functions is the closed set of pipelines, in help order.
var Functions = []string{FunctionCourses, FunctionSubjects, FunctionTerms}

// ErrFunctionNotFound is returned when --function is missing or unknown.
var ErrFunctionNotFound = errors.New("function not found")

// ScraperConfig is the per-invocation configuration built from command-line flags.
// It is not modified once the pipeline starts.
type ScraperConfig struct {
	Function   string        `json:"function" flag:"function" validate:"required,oneof=courses subjects terms"`
	Save       bool          `json:"save" flag:"save"`
	Limit      int           `json:"limit" flag:"limit" validate:"gte=-1"`
	Term       string        `json:"term" flag:"term" validate:"required_if=Function courses"`
	BatchSize  int           `json:"batchSize" flag:"batchSize" validate:"gte=1"`
	Offset     int           `json:"offset" flag:"offset" validate:"gte=0"`
	FetchCap   int           `json:"fetchCap" flag:"fetch-cap" validate:"gte=-1"`
	Sink       string        `json:"sink" flag:"sink" validate:"oneof=pocketbase postgres"`
	RawCSV     string        `json:"rawCsv,omitempty" flag:"raw-csv"`
	Timeout    time.Duration `json:"timeout" flag:"timeout" validate:"gte=0"`
	ConfigFile string        `json:"-" flag:"config"`
	Help       bool          `json:"-" flag:"help"`
}

// DefaultScraperConfig returns the documented defaults.
func DefaultScraperConfig() ScraperConfig {
	return ScraperConfig{
		Limit:     Unlimited,
		Term:      "1040",
		BatchSize: 100,
		Offset:    0,
		FetchCap:  Unlimited,
		Sink:      SinkPocketBase,
		Timeout:   10 * time.Minute,
	}
}

// HasLimit reports whether output should be truncated.
func (c ScraperConfig) HasLimit() bool { return c.Limit != Unlimited }

// RegisterFlags binds every recognised flag to cfg, using cfg's current values as defaults.
func RegisterFlags(fs *pflag.FlagSet, cfg *ScraperConfig) {
	fs.StringVar(&cfg.Function, "function", cfg.Function, "pipeline to run: "+strings.Join(Functions, ", "))
	fs.BoolVar(&cfg.Save, "save", cfg.Save, "persist results to the backend")
	fs.IntVar(&cfg.Limit, "limit", cfg.Limit, "keep the first N records by name after sorting (-1 = unlimited)")
	fs.StringVar(&cfg.Term, "term", cfg.Term, "term whose sections are scanned (courses only)")
	fs.IntVar(&cfg.BatchSize, "batchSize", cfg.BatchSize, "number of courses persisted in this run (courses only)")
	fs.IntVar(&cfg.Offset, "offset", cfg.Offset, "index of the first course persisted in this run (courses only)")
	fs.IntVar(&cfg.FetchCap, "fetch-cap", cfg.FetchCap, "stop reading the feed after N raw records (-1 = read everything)")
	fs.StringVar(&cfg.Sink, "sink", cfg.Sink, "where --save writes: pocketbase or postgres")
	fs.StringVar(&cfg.RawCSV, "raw-csv", cfg.RawCSV, "also dump every raw record to this CSV file")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "abort the run after this long (0 = no timeout)")
	fs.StringVar(&cfg.ConfigFile, "config", cfg.ConfigFile, "optional config file (yaml, json or toml)")
	fs.BoolVarP(&cfg.Help, "help", "h", cfg.Help, "show help")
}

// ParseArgs turns a raw argument vector into a ScraperConfig. Unknown flags are ignored
// and missing ones keep their defaults. It does not validate; see Validate.
func ParseArgs(args []string) (ScraperConfig, error) {
	cfg := DefaultScraperConfig()

	fs := pflag.NewFlagSet("classconnect-scraper", pflag.ContinueOnError)
	fs.ParseErrorsWhitelist.UnknownFlags = true
	fs.SetOutput(io.Discard)
	RegisterFlags(fs, &cfg)

	if err := fs.Parse(args); err != nil {
		return cfg, errors.Wrap(err, "parse arguments")
	}
	return cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("flag")
	})
	return v
}

// Validate checks cfg against the accepted flag values. A missing or unknown function
// yields ErrFunctionNotFound.
func (c ScraperConfig) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errors.Wrap(err, "validate arguments")
	}

	for _, fe := range verrs {
		if fe.Field() == "function" {
			return errors.WithHintf(
				errors.Wrapf(ErrFunctionNotFound, "function %q", c.Function),
				"pass --function with one of: %s", strings.Join(Functions, ", "),
			)
		}
	}

	fe := verrs[0]
	if fe.Param() != "" {
		return errors.Newf("invalid --%s %v: must satisfy %s=%s", fe.Field(), fe.Value(), fe.Tag(), fe.Param())
	}
	return errors.Newf("invalid --%s %v: %s", fe.Field(), fe.Value(), fe.Tag())
}
