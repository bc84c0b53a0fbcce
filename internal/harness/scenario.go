package harness

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/sensorsync/internal/config"
	"github.com/roach88/sensorsync/internal/engine"
	"github.com/roach88/sensorsync/internal/record"
	"github.com/roach88/sensorsync/internal/testutil"
)

// Scenario defines a sync scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// RunID is a fixed run ID for deterministic traces.
	// If empty, defaults to "test-run-default".
	RunID string `yaml:"run_id,omitempty"`

	// Config tunes the engine. Unset fields take production defaults.
	Config EngineConfig `yaml:"config,omitempty"`

	// Seed records are written to the store before the first run.
	Seed []record.SensorRecord `yaml:"seed,omitempty"`

	// Pages script the source. Several pages with the same cursor are
	// returned in order, the last one repeating.
	Pages []PageStep `yaml:"pages"`

	// Runs is the number of engine runs to perform. Defaults to 1.
	Runs int `yaml:"runs,omitempty"`

	// Assertions validate the final store and run outcomes.
	Assertions []Assertion `yaml:"assertions"`
}

// EngineConfig mirrors the sync section of the configuration file.
type EngineConfig struct {
	EarliestDate   *string `yaml:"earliest_date,omitempty"`
	MaxPages       int     `yaml:"max_pages,omitempty"`
	StuckThreshold int     `yaml:"stuck_threshold,omitempty"`
}

// PageStep scripts one source reply.
type PageStep struct {
	// Before is the cursor this reply answers. Empty is the newest page.
	Before string `yaml:"before"`

	// Samples is the page content, newest first.
	Samples []SampleSpec `yaml:"samples,omitempty"`

	// Error makes the fetch fail instead: "malformed" or "unavailable".
	Error string `yaml:"error,omitempty"`
}

// SampleSpec is one sample on a scripted page. Either Value holds the raw
// payload, or the readings are given and the payload is built from them.
type SampleSpec struct {
	CreatedAt   string  `yaml:"created_at"`
	Value       string  `yaml:"value,omitempty"`
	Temperature float64 `yaml:"temperature,omitempty"`
	Humidity    float64 `yaml:"humidity,omitempty"`
	Soil        float64 `yaml:"soil,omitempty"`
}

// Raw converts s to the sample a source would return.
func (s SampleSpec) Raw() record.RawSample {
	if s.Value != "" {
		return record.RawSample{CreatedAt: s.CreatedAt, Value: s.Value}
	}
	return testutil.Sample(s.CreatedAt, s.Temperature, s.Humidity, s.Soil)
}

// Page error kinds.
const (
	PageErrorMalformed   = "malformed"
	PageErrorUnavailable = "unavailable"
)

// Assertion validates the final store or a run outcome.
type Assertion struct {
	// Type specifies the assertion type:
	// - "mode": run used the given mode
	// - "stop_reason": run ended collection for the given reason
	// - "run_error": run failed with the given code ("" asserts success)
	// - "stored_count": store holds exactly Count records
	// - "stored_keys": store holds exactly Keys, in any order
	// - "fetch_count": source was asked for Count pages across all runs
	// - "min_created_at": no stored record is older than Value
	Type string `yaml:"type"`

	// Run selects the run (1-based) for mode, stop_reason and run_error.
	// Zero selects the last run.
	Run int `yaml:"run,omitempty"`

	// Mode is the expected mode (used by mode).
	Mode string `yaml:"mode,omitempty"`

	// Reason is the expected stop reason (used by stop_reason).
	Reason string `yaml:"reason,omitempty"`

	// Code is the expected error code (used by run_error).
	Code string `yaml:"code,omitempty"`

	// Count is the expected number (used by stored_count and fetch_count).
	Count int `yaml:"count,omitempty"`

	// Keys are the expected record keys (used by stored_keys).
	Keys []string `yaml:"keys,omitempty"`

	// Value is the expected lower bound (used by min_created_at).
	Value string `yaml:"value,omitempty"`
}

// Assertion type constants.
const (
	AssertMode         = "mode"
	AssertStopReason   = "stop_reason"
	AssertRunError     = "run_error"
	AssertStoredCount  = "stored_count"
	AssertStoredKeys   = "stored_keys"
	AssertFetchCount   = "fetch_count"
	AssertMinCreatedAt = "min_created_at"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// earliestDate returns the configured floor, defaulting to production's.
func (s *Scenario) earliestDate() string {
	if s.Config.EarliestDate != nil {
		return *s.Config.EarliestDate
	}
	return config.DefaultEarliestDate
}

// runCount returns the number of runs to perform.
func (s *Scenario) runCount() int {
	if s.Runs <= 0 {
		return 1
	}
	return s.Runs
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Pages) == 0 {
		return fmt.Errorf("pages list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if s.Runs < 0 {
		return fmt.Errorf("runs must be non-negative")
	}

	for i, rec := range s.Seed {
		if strings.TrimSpace(rec.CreatedAt) == "" {
			return fmt.Errorf("seed[%d]: created_at is required", i)
		}
	}

	for i, page := range s.Pages {
		switch page.Error {
		case "", PageErrorMalformed, PageErrorUnavailable:
		default:
			return fmt.Errorf("pages[%d]: unknown error kind %q", i, page.Error)
		}
		if page.Error != "" && len(page.Samples) > 0 {
			return fmt.Errorf("pages[%d]: samples and error are mutually exclusive", i)
		}
		for j, sample := range page.Samples {
			if sample.CreatedAt == "" {
				return fmt.Errorf("pages[%d].samples[%d]: created_at is required", i, j)
			}
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion, s.runCount()); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, runs int) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if a.Run < 0 || a.Run > runs {
		return fmt.Errorf("assertions[%d]: run %d out of range 1..%d", index, a.Run, runs)
	}

	switch a.Type {
	case AssertMode:
		if a.Mode != string(engine.ModeBackfill) && a.Mode != string(engine.ModeIncremental) {
			return fmt.Errorf("assertions[%d]: mode must be %q or %q", index, engine.ModeBackfill, engine.ModeIncremental)
		}
	case AssertStopReason:
		if a.Reason == "" {
			return fmt.Errorf("assertions[%d]: reason is required for stop_reason", index)
		}
	case AssertRunError:
		// An empty code asserts the run succeeded.
	case AssertStoredCount, AssertFetchCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertStoredKeys:
		if a.Keys == nil {
			return fmt.Errorf("assertions[%d]: keys is required for stored_keys (use [] for none)", index)
		}
	case AssertMinCreatedAt:
		if a.Value == "" {
			return fmt.Errorf("assertions[%d]: value is required for min_created_at", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
