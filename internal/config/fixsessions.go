package config

import (
	"fmt"

	"gopkg.in/ini.v1"
)

// FixSession is one [SESSION] block's required triple (spec.md §6).
type FixSession struct {
	Name         string
	BeginString  string
	SenderCompID string
	TargetCompID string
}

// LoadFixSessions reads a "[DEFAULT]/[SESSION]" INI file with
// gopkg.in/ini.v1. A section missing BeginString, SenderCompID,
// or TargetCompID is malformed and aborts startup (spec.md §6), returned
// as an error rather than a panic since this runs during config load,
// before any engine exists to panic.
func LoadFixSessions(path string) ([]FixSession, error) {
	f, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load fix sessions file %q: %w", path, err)
	}

	def := f.Section(ini.DefaultSection)

	var sessions []FixSession
	for _, sec := range f.Sections() {
		if sec.Name() == ini.DefaultSection {
			continue
		}

		begin := valueOrDefault(sec, def, "BeginString")
		sender := valueOrDefault(sec, def, "SenderCompID")
		target := valueOrDefault(sec, def, "TargetCompID")

		if begin == "" || sender == "" || target == "" {
			return nil, fmt.Errorf("malformed fix session %q: BeginString/SenderCompID/TargetCompID all required", sec.Name())
		}

		sessions = append(sessions, FixSession{
			Name:         sec.Name(),
			BeginString:  begin,
			SenderCompID: sender,
			TargetCompID: target,
		})
	}

	if len(sessions) == 0 {
		return nil, fmt.Errorf("fix sessions file %q declares no [SESSION] sections", path)
	}

	return sessions, nil
}

func valueOrDefault(sec, def *ini.Section, key string) string {
	if sec.HasKey(key) {
		return sec.Key(key).String()
	}
	if def.HasKey(key) {
		return def.Key(key).String()
	}
	return ""
}
