//go:build pprof

package profile

import "github.com/pkg/profile"

// settings collects the options passed to [profile.Start].
type settings []func(*profile.Profile)

func (p Profiler) settings() settings {
	fn, ok := mode[p.Mode]
	if !ok {
		return nil
	}

	s := settings{fn, profile.NoShutdownHook}

	if p.Path != "" {
		s = append(s, profile.ProfilePath(p.Path))
	}

	if p.Quiet {
		s = append(s, profile.Quiet)
	}

	return s
}
