// Package server negotiates a server's version, TLS posture and
// authentication method.
package server

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/coreos/go-semver/semver"
	"github.com/fruitsalade/syncsession/internal/errs"
)

// AuthenticationMethod is the scheme a server requires for WebDAV access.
type AuthenticationMethod string

const (
	AuthBasic  AuthenticationMethod = "basic"
	AuthBearer AuthenticationMethod = "bearer"
	AuthNone   AuthenticationMethod = "none"
)

// ParseAuthenticationMethod parses the string form of an AuthenticationMethod.
func ParseAuthenticationMethod(s string) (AuthenticationMethod, error) {
	switch m := AuthenticationMethod(strings.ToLower(strings.TrimSpace(s))); m {
	case AuthBasic, AuthBearer, AuthNone:
		return m, nil
	}
	return "", fmt.Errorf("unknown authentication method %q", s)
}

func (m AuthenticationMethod) String() string { return string(m) }

// MinimumSupported is the oldest server version the client works with.
var MinimumSupported = Version{Major: 10}

// Version is a server's semantic version plus display metadata.
type Version struct {
	Major   int
	Minor   int
	Micro   int
	String  string // display string, e.g. "10.5.0"
	Edition string // e.g. "Community"
}

// ParseVersion parses a raw server version such as "10.5.0.10". Components
// past the third are build numbers and are ignored; missing ones are zero.
func ParseVersion(raw, display, edition string) (Version, error) {
	parts := strings.Split(strings.TrimSpace(raw), ".")
	if len(parts) == 0 || parts[0] == "" {
		return Version{}, errs.Malformed("server version", fmt.Errorf("empty version"))
	}
	for len(parts) < 3 {
		parts = append(parts, "0")
	}
	for _, p := range parts[:3] {
		if _, err := strconv.Atoi(p); err != nil {
			return Version{}, errs.Malformed("server version", fmt.Errorf("invalid component %q in %q", p, raw))
		}
	}

	sv, err := semver.NewVersion(strings.Join(parts[:3], "."))
	if err != nil {
		return Version{}, errs.Malformed("server version", err)
	}
	if display == "" {
		display = sv.String()
	}
	return Version{
		Major:   int(sv.Major),
		Minor:   int(sv.Minor),
		Micro:   int(sv.Patch),
		String:  display,
		Edition: edition,
	}, nil
}

func (v Version) semver() semver.Version {
	return semver.Version{Major: int64(v.Major), Minor: int64(v.Minor), Patch: int64(v.Micro)}
}

// Compare returns -1, 0 or 1 comparing v to other by major.minor.micro.
func (v Version) Compare(other Version) int {
	return v.semver().Compare(other.semver())
}

// AtLeast reports whether v >= other.
func (v Version) AtLeast(other Version) bool {
	return v.Compare(other) >= 0
}

// IsSupported reports whether the client supports this server version.
func (v Version) IsSupported() bool {
	return v.AtLeast(MinimumSupported)
}

// Info describes a negotiated server. It is immutable once built.
type Info struct {
	Version              Version
	BaseURL              string
	AuthenticationMethod AuthenticationMethod
	IsSecureConnection   bool
}

// NormalizeProtocolPrefix returns path with its scheme replaced by the one
// matching secure. The server's observed TLS behavior wins over whatever
// scheme the caller typed.
func NormalizeProtocolPrefix(path string, secure bool) string {
	p := strings.TrimSpace(path)
	lower := strings.ToLower(p)
	switch {
	case strings.HasPrefix(lower, "https://"):
		p = p[len("https://"):]
	case strings.HasPrefix(lower, "http://"):
		p = p[len("http://"):]
	}
	p = strings.TrimRight(p, "/")
	if secure {
		return "https://" + p
	}
	return "http://" + p
}
