package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Persona is a named interviewer style.
type Persona struct {
	Name              string        `yaml:"name"`
	Description       string        `yaml:"description"`
	QuestionTimeLimit time.Duration `yaml:"question_time_limit"`
	// SilenceThreshold is the pause length counted as a silence instance.
	SilenceThreshold time.Duration `yaml:"silence_threshold"`
	// AutoSubmitDelay is how long the candidate may stay quiet before a
	// spoken answer is submitted on their behalf.
	AutoSubmitDelay  time.Duration `yaml:"auto_submit_delay"`
	AnalyticsEnabled bool          `yaml:"analytics_enabled"`
	// TimerAutoSubmit submits the current answer when the countdown reaches zero.
	TimerAutoSubmit bool `yaml:"timer_auto_submit"`
}

// DefaultAutoSubmitDelay applies when a persona leaves AutoSubmitDelay unset.
const DefaultAutoSubmitDelay = 2 * time.Second

// Personas is a catalog keyed by lower-case name.
type Personas map[string]Persona

// DefaultPersonas returns the built-in catalog.
func DefaultPersonas() Personas {
	return Personas{
		"friendly": {
			Name:              "friendly",
			Description:       "Relaxed pacing, no recording or live analytics.",
			QuestionTimeLimit: 180 * time.Second,
			SilenceThreshold:  5 * time.Second,
			AutoSubmitDelay:   3 * time.Second,
		},
		"strict": {
			Name:              "strict",
			Description:       "Standard time limits with full behavioral analytics.",
			QuestionTimeLimit: 120 * time.Second,
			SilenceThreshold:  3 * time.Second,
			AutoSubmitDelay:   DefaultAutoSubmitDelay,
			AnalyticsEnabled:  true,
			TimerAutoSubmit:   true,
		},
		"high-pressure": {
			Name:              "high-pressure",
			Description:       "Short limits, quick auto-submit, full analytics.",
			QuestionTimeLimit: 60 * time.Second,
			SilenceThreshold:  2 * time.Second,
			AutoSubmitDelay:   DefaultAutoSubmitDelay,
			AnalyticsEnabled:  true,
			TimerAutoSubmit:   true,
		},
	}
}

// Lookup returns the persona with the given name, case-insensitively.
func (p Personas) Lookup(name string) (Persona, bool) {
	persona, ok := p[strings.ToLower(strings.TrimSpace(name))]
	return persona, ok
}

// Names returns the persona names, sorted.
func (p Personas) Names() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type personasFile struct {
	Personas []Persona `yaml:"personas"`
}

// LoadPersonas returns the built-in catalog, overlaid with the personas
// defined in path when path is non-empty.
func LoadPersonas(path string) (Personas, error) {
	catalog := DefaultPersonas()
	if path == "" {
		return catalog, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading personas: %w", err)
	}
	var file personasFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing personas: %w", err)
	}

	for _, p := range file.Personas {
		if p.Name == "" {
			return nil, fmt.Errorf("parsing personas: persona without name")
		}
		if p.QuestionTimeLimit <= 0 {
			return nil, fmt.Errorf("persona %q: question_time_limit must be positive", p.Name)
		}
		if p.AutoSubmitDelay <= 0 {
			p.AutoSubmitDelay = DefaultAutoSubmitDelay
		}
		if p.SilenceThreshold <= 0 {
			p.SilenceThreshold = DefaultAutoSubmitDelay
		}
		p.Name = strings.ToLower(p.Name)
		catalog[p.Name] = p
	}
	return catalog, nil
}
