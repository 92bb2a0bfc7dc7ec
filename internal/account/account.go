// Package account picks which account's session to use.
package account

import (
	"context"
	"strings"

	"github.com/fruitsalade/syncsession/internal/logging"
)

// SelectedAccountKey is the preference holding the selected account name.
const SelectedAccountKey = "select_oc_account"

// Account is a locally known account. The session layer treats Name as an
// opaque identifier; the remaining fields are what a client needs to talk to
// the account's server.
type Account struct {
	Name       string `yaml:"name"`
	ServerURL  string `yaml:"server_url"`
	Username   string `yaml:"username"`
	AuthMethod string `yaml:"auth_method"` // basic, bearer, none
	Secret     string `yaml:"secret,omitempty"`
}

// Store enumerates locally known accounts. Order is stable for a single call
// but otherwise undefined.
type Store interface {
	Accounts(ctx context.Context) ([]Account, error)
}

// Preferences is a string key-value preference store.
type Preferences interface {
	GetString(key string) (string, bool)
	SetString(key, value string) error
}

// Resolve picks an account name:
//  1. requested, if non-blank and known (exact match);
//  2. otherwise preference, if it names a known account;
//  3. otherwise the first known account.
//
// It returns false only when known is empty.
func Resolve(requested string, known []string, preference string) (string, bool) {
	if strings.TrimSpace(requested) != "" {
		for _, name := range known {
			if name == requested {
				return name, true
			}
		}
	}
	if preference != "" {
		for _, name := range known {
			if name == preference {
				return name, true
			}
		}
	}
	if len(known) == 0 {
		return "", false
	}
	return known[0], true
}

// Manager resolves accounts against a Store and a Preferences store.
type Manager struct {
	store Store
	prefs Preferences
}

// NewManager creates a new account manager.
func NewManager(store Store, prefs Preferences) *Manager {
	return &Manager{store: store, prefs: prefs}
}

// List returns all known accounts.
func (m *Manager) List(ctx context.Context) ([]Account, error) {
	return m.store.Accounts(ctx)
}

// Get resolves requested (which may be blank) to a known account. A nil
// account with a nil error means no accounts exist.
func (m *Manager) Get(ctx context.Context, requested string) (*Account, error) {
	accounts, err := m.store.Accounts(ctx)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(accounts))
	for i, a := range accounts {
		names[i] = a.Name
	}
	pref, _ := m.prefs.GetString(SelectedAccountKey)

	name, ok := Resolve(requested, names, pref)
	if !ok {
		return nil, nil
	}
	if requested != "" && name != requested {
		logging.Debug("requested account not found, using fallback",
			logging.String("requested", requested),
			logging.String("resolved", name))
	}
	for i := range accounts {
		if accounts[i].Name == name {
			return &accounts[i], nil
		}
	}
	return nil, nil
}

// Lookup returns the account named exactly name, or nil if there is none.
// Unlike Get it never falls back to another account.
func (m *Manager) Lookup(ctx context.Context, name string) (*Account, error) {
	accounts, err := m.store.Accounts(ctx)
	if err != nil {
		return nil, err
	}
	for i := range accounts {
		if accounts[i].Name == name {
			return &accounts[i], nil
		}
	}
	return nil, nil
}

// Current resolves the selected account without an explicit request.
func (m *Manager) Current(ctx context.Context) (*Account, error) {
	return m.Get(ctx, "")
}

// Select persists name as the selected account. Selecting an unknown name
// is allowed; resolution falls back until the account appears.
func (m *Manager) Select(name string) error {
	return m.prefs.SetString(SelectedAccountKey, name)
}
