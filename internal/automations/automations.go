// Package automations loads named, scheduled agent prompts and records
// their run history. It does not schedule or execute automations; it only
// defines what an automation is,
// validates it, and appends to its run log — the same append-only JSONL
// idiom internal/thread uses for conversation events.
package automations

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Definition is one automation loaded from <config_home>/automations/<name>.toml.
type Definition struct {
	Name        string `mapstructure:"-"`
	Prompt      string `mapstructure:"prompt"`
	Model       string `mapstructure:"model"`
	Schedule    string `mapstructure:"schedule"` // cron expression, informational only
	MaxAttempts int    `mapstructure:"max_attempts"`
}

// Validate checks that the prompt is non-empty and max_attempts is not
// negative.
func (d Definition) Validate() error {
	if d.Prompt == "" {
		return fmt.Errorf("automation %q: prompt must not be empty", d.Name)
	}
	if d.MaxAttempts < 0 {
		return fmt.Errorf("automation %q: max_attempts must be >= 0", d.Name)
	}
	return nil
}

func dir(configHome string) string {
	return filepath.Join(configHome, "automations")
}

// List loads every automation definition under <config_home>/automations/.
func List(configHome string) ([]Definition, error) {
	entries, err := os.ReadDir(dir(configHome))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var defs []Definition
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".toml" {
			continue
		}
		name := e.Name()[:len(e.Name())-len(".toml")]
		def, err := Load(configHome, name)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// Load reads one automation definition by name.
func Load(configHome, name string) (Definition, error) {
	v := viper.New()
	v.SetConfigFile(filepath.Join(dir(configHome), name+".toml"))
	v.SetConfigType("toml")
	v.SetDefault("max_attempts", 1)
	if err := v.ReadInConfig(); err != nil {
		return Definition{}, fmt.Errorf("reading automation %q: %w", name, err)
	}
	var def Definition
	if err := v.Unmarshal(&def); err != nil {
		return Definition{}, fmt.Errorf("parsing automation %q: %w", name, err)
	}
	def.Name = name
	return def, nil
}

// RunRecord is one line of <config_home>/automations_runs.jsonl.
type RunRecord struct {
	Automation string    `json:"automation"`
	Trigger    string    `json:"trigger"` // "manual" or "daemon"
	ThreadID   string    `json:"thread_id,omitempty"`
	Attempt    int       `json:"attempt"`
	MaxAttempt int       `json:"max_attempts"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	DurationMs int64     `json:"duration_ms"`
	OK         bool      `json:"ok"`
	Error      string    `json:"error,omitempty"`
	Schedule   string    `json:"schedule,omitempty"`
	Model      string    `json:"model,omitempty"`
}

func runLogPath(configHome string) string {
	return filepath.Join(configHome, "automations_runs.jsonl")
}

// AppendRun writes one RunRecord as a single JSON line.
func AppendRun(configHome string, rec RunRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	f, err := os.OpenFile(runLogPath(configHome), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(data)
	return err
}

// Runs reads every recorded run, oldest first.
func Runs(configHome string) ([]RunRecord, error) {
	data, err := os.ReadFile(runLogPath(configHome))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var recs []RunRecord
	dec := json.NewDecoder(bytes.NewReader(data))
	for {
		var rec RunRecord
		if err := dec.Decode(&rec); err != nil {
			break
		}
		recs = append(recs, rec)
	}
	return recs, nil
}
