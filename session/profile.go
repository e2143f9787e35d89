// Package session keeps the signed-in profile in ~/.newsroom/profile.yaml.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// Status is what the server last said about the profile.
type Status string

const (
	StatusSignedOut       Status = "signed_out"
	StatusSignedIn        Status = "signed_in"
	StatusExpired         Status = "expired"
	StatusPendingApproval Status = "pending_approval"
)

// profileFile is the on-disk form of a Profile.
type profileFile struct {
	Host   string `yaml:"host,omitempty"`
	Token  string `yaml:"token,omitempty"`
	Status Status `yaml:"status,omitempty"`
}

// Profile is a session backed by a file. It implements newsroom.Session.
type Profile struct {
	mu   sync.Mutex
	path string
	data profileFile
}

// DefaultPath returns profile.yaml inside dir.
func DefaultPath(dir string) string {
	return filepath.Join(dir, "profile.yaml")
}

// Load reads the profile at path. A missing file is a signed-out profile.
func Load(path string) (*Profile, error) {
	p := &Profile{path: path}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return p, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}

	if err := yaml.Unmarshal(data, &p.data); err != nil {
		return nil, fmt.Errorf("failed to parse profile: %w", err)
	}
	return p, nil
}

// SignIn stores a token for host and saves the profile.
func (p *Profile) SignIn(host, token string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.data = profileFile{Host: host, Token: token, Status: StatusSignedIn}
	return p.save()
}

// SignOut forgets the token and saves the profile.
func (p *Profile) SignOut() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.data = profileFile{Host: p.data.Host, Status: StatusSignedOut}
	return p.save()
}

// Host returns the server the token belongs to.
func (p *Profile) Host() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.data.Host
}

// Status returns the last known status.
func (p *Profile) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.data.Status == "" {
		if p.data.Token == "" {
			return StatusSignedOut
		}
		return StatusSignedIn
	}
	return p.data.Status
}

// CurrentToken implements newsroom.Session.
func (p *Profile) CurrentToken() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.data.Token, p.data.Token != ""
}

// OnUnauthorized implements newsroom.Session. The token is dropped so the
// next command asks to sign in again.
func (p *Profile) OnUnauthorized() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.data.Token = ""
	p.data.Status = StatusExpired
	_ = p.save()
}

// OnPendingApproval implements newsroom.Session. The token is kept; it will
// work once the account is approved.
func (p *Profile) OnPendingApproval() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.data.Status = StatusPendingApproval
	_ = p.save()
}

// save writes the profile. Callers hold mu.
func (p *Profile) save() error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0o700); err != nil {
		return fmt.Errorf("failed to create profile directory: %w", err)
	}

	data, err := yaml.Marshal(&p.data)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}

	if err := os.WriteFile(p.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write profile: %w", err)
	}
	return nil
}
