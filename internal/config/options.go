package config

import (
	"github.com/imamik/osclean/internal/filter"
)

// Options holds the command-line flags of a clean run. Zero values mean
// "not given on the command line".
type Options struct {
	RCFile      string
	Cloud       string
	File        string
	ConfigFile  string
	Filter      string
	DryRun      bool
	Yes         bool
	NoSweep     bool
	NoVerify    bool
	Export      string
	MetricsFile string
	Pushgateway string
	Verbose     bool
}

// Settings is the resolved configuration the engine runs with.
type Settings struct {
	Filter   string
	Sweep    bool
	Verify   bool
	Timeouts *Timeouts
}

// Resolve merges defaults, the optional config file, environment overrides
// and flags, in that order of precedence, and validates the result.
func Resolve(opts Options) (*Settings, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	s := &Settings{
		Filter:   filter.DefaultPattern,
		Sweep:    true,
		Verify:   true,
		Timeouts: DefaultTimeouts(),
	}

	if opts.ConfigFile != "" {
		f, err := LoadFile(opts.ConfigFile)
		if err != nil {
			return nil, err
		}
		s.apply(f)
	}

	s.Timeouts.WithEnv()

	if opts.Filter != "" {
		s.Filter = opts.Filter
	}
	if opts.NoSweep {
		s.Sweep = false
	}
	if opts.NoVerify {
		s.Verify = false
	}

	if err := s.Timeouts.Validate(); err != nil {
		return nil, err
	}
	if _, err := filter.New(s.Filter); err != nil {
		return nil, &Error{Field: "filter", Msg: "invalid regular expression", Err: err}
	}
	return s, nil
}

func (s *Settings) apply(f *File) {
	if f.Filter != "" {
		s.Filter = f.Filter
	}
	if f.Sweep != nil {
		s.Sweep = *f.Sweep
	}
	if f.Verify != nil {
		s.Verify = *f.Verify
	}
	s.Timeouts.merge(f.Timeouts)
}
