// Package profiles stores named remote/secret/local triples so a
// developer can run "hookhub connect -profile name" instead of
// repeating flags, reading and writing a single YAML file.
package profiles

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Profile is one saved connection target.
type Profile struct {
	Remote string `yaml:"remote"`
	Secret string `yaml:"secret"`
	Local  string `yaml:"local"`
}

// Prepare validates Profile's URLs and normalises their paths: remote
// must use ws/wss and is forced to "/__hookhub__/"; local must use
// http/https, is forced to "/" and loses any query (the per-request
// path and query are substituted at forward time, not carried by the
// profile).
func (p Profile) Prepare() (Profile, error) {
	remote, err := url.Parse(p.Remote)
	if err != nil {
		return Profile{}, fmt.Errorf("profiles: invalid remote URL %q: %w", p.Remote, err)
	}
	if remote.Scheme != "ws" && remote.Scheme != "wss" {
		return Profile{}, fmt.Errorf("profiles: remote must use ws or wss scheme, got %q", remote.Scheme)
	}
	local, err := url.Parse(p.Local)
	if err != nil {
		return Profile{}, fmt.Errorf("profiles: invalid local URL %q: %w", p.Local, err)
	}
	if local.Scheme != "http" && local.Scheme != "https" {
		return Profile{}, fmt.Errorf("profiles: local must use http or https scheme, got %q", local.Scheme)
	}

	remote.Path = "/__hookhub__/"
	local.Path = "/"
	local.RawQuery = ""

	return Profile{Remote: remote.String(), Secret: p.Secret, Local: local.String()}, nil
}

// Store is a YAML file of name -> Profile.
type Store struct {
	path     string
	profiles map[string]Profile
}

// Open loads path, treating a missing file as an empty store.
func Open(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Store{path: path, profiles: map[string]Profile{}}, nil
		}
		return nil, fmt.Errorf("profiles: read %s: %w", path, err)
	}

	profiles := map[string]Profile{}
	if err := yaml.Unmarshal(data, &profiles); err != nil {
		return nil, fmt.Errorf("profiles: decode %s: %w", path, err)
	}
	return &Store{path: path, profiles: profiles}, nil
}

// Get returns the named profile, prepared (validated and normalised).
func (s *Store) Get(name string) (Profile, bool, error) {
	p, ok := s.profiles[name]
	if !ok {
		return Profile{}, false, nil
	}
	prepared, err := p.Prepare()
	if err != nil {
		return Profile{}, false, err
	}
	return prepared, true, nil
}

// List returns a copy of every stored profile keyed by name, as
// stored (not prepared). Map iteration order is unspecified; callers
// that need a stable order sort the names themselves.
func (s *Store) List() map[string]Profile {
	out := make(map[string]Profile, len(s.profiles))
	for name, p := range s.profiles {
		out[name] = p
	}
	return out
}

// Add stores a new profile under name. It refuses to overwrite an
// existing one, matching the original tool's behaviour.
func (s *Store) Add(name string, p Profile) error {
	if _, exists := s.profiles[name]; exists {
		return fmt.Errorf("profiles: profile %q already exists", name)
	}
	s.profiles[name] = p
	return s.save()
}

// Delete removes a profile by name. Deleting a nonexistent profile is
// an error, matching the original tool's behaviour.
func (s *Store) Delete(name string) error {
	if _, exists := s.profiles[name]; !exists {
		return fmt.Errorf("profiles: profile %q does not exist", name)
	}
	delete(s.profiles, name)
	return s.save()
}

func (s *Store) save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("profiles: create store dir: %w", err)
	}
	data, err := yaml.Marshal(s.profiles)
	if err != nil {
		return fmt.Errorf("profiles: encode: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("profiles: write %s: %w", s.path, err)
	}
	return nil
}
