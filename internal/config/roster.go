package config

import (
	"fmt"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Roster is the externally maintained table of known coaches and
// students. It replaces compiled-in name maps: operators edit the YAML
// and restart the daemon, no redeploy needed.
type Roster struct {
	// Version is an operator-chosen revision marker, logged at startup.
	Version string  `koanf:"version"`
	Coaches []Coach `koanf:"coaches"`
}

// Coach is one known coach with optional extra name variations and the
// students they work with.
type Coach struct {
	Name       string    `koanf:"name"`
	Variations []string  `koanf:"variations"`
	Students   []Student `koanf:"students"`
}

// Student is one known student. Program, when present, describes the
// coaching program timeline used by week inference.
type Student struct {
	Name       string   `koanf:"name"`
	Variations []string `koanf:"variations"`
	Program    *Program `koanf:"program"`
}

// Program describes a coaching program's timeline for one student.
type Program struct {
	StartDate  string `koanf:"start_date"` // YYYY-MM-DD
	TotalWeeks int    `koanf:"total_weeks"`
}

// Start parses the program start date. The bool is false when the date
// is absent or malformed.
func (p *Program) Start() (time.Time, bool) {
	if p == nil || p.StartDate == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", p.StartDate)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// LoadRoster reads a roster YAML document from path.
func LoadRoster(path string) (*Roster, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("%w: roster %s: %w", ErrLoadConfig, path, err)
	}
	var r Roster
	if err := k.UnmarshalWithConf("", &r, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: roster %s: %w", ErrLoadConfig, path, err)
	}
	if err := r.validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *Roster) validate() error {
	if len(r.Coaches) == 0 {
		return fmt.Errorf("%w: roster has no coaches", ErrInvalidConfig)
	}
	seen := make(map[string]struct{}, len(r.Coaches))
	for _, c := range r.Coaches {
		if c.Name == "" {
			return fmt.Errorf("%w: roster coach with empty name", ErrInvalidConfig)
		}
		if _, dup := seen[c.Name]; dup {
			return fmt.Errorf("%w: duplicate coach %q", ErrInvalidConfig, c.Name)
		}
		seen[c.Name] = struct{}{}
		for _, s := range c.Students {
			if s.Name == "" {
				return fmt.Errorf("%w: coach %q has student with empty name", ErrInvalidConfig, c.Name)
			}
			if s.Program != nil {
				if _, ok := s.Program.Start(); !ok {
					return fmt.Errorf("%w: student %q has malformed program start_date %q",
						ErrInvalidConfig, s.Name, s.Program.StartDate)
				}
				if s.Program.TotalWeeks < 1 {
					return fmt.Errorf("%w: student %q program total_weeks must be positive",
						ErrInvalidConfig, s.Name)
				}
			}
		}
	}
	return nil
}
