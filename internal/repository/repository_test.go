package repository

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/fruitsalade/syncsession/internal/capability"
	"github.com/fruitsalade/syncsession/internal/errs"
	"github.com/fruitsalade/syncsession/internal/localstore"
	"github.com/fruitsalade/syncsession/internal/server"
	"github.com/fruitsalade/syncsession/internal/sharing"
	"github.com/fruitsalade/syncsession/internal/user"
)

// fakeRemote serves canned values and counts calls per operation.
type fakeRemote struct {
	mu    sync.Mutex
	calls map[string]int

	caps    map[string]*capability.Capability
	quotas  map[string]*user.Quota
	failFor map[string]error
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		calls:   make(map[string]int),
		caps:    make(map[string]*capability.Capability),
		quotas:  make(map[string]*user.Quota),
		failFor: make(map[string]error),
	}
}

func (f *fakeRemote) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeRemote) record(op, account string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	return f.failFor[account]
}

func (f *fakeRemote) GetCapabilities(ctx context.Context, account string) (*capability.Capability, error) {
	if err := f.record("capabilities", account); err != nil {
		return nil, err
	}
	c := *f.caps[account]
	return &c, nil
}

func (f *fakeRemote) GetUserInfo(ctx context.Context, account string) (*user.Info, error) {
	if err := f.record("info", account); err != nil {
		return nil, err
	}
	return &user.Info{ID: account, DisplayName: strings.ToUpper(account)}, nil
}

func (f *fakeRemote) GetUserQuota(ctx context.Context, account string) (*user.Quota, error) {
	if err := f.record("quota", account); err != nil {
		return nil, err
	}
	q := *f.quotas[account]
	return &q, nil
}

func (f *fakeRemote) GetUserAvatar(ctx context.Context, account string, size int) (*user.Avatar, error) {
	if err := f.record("avatar", account); err != nil {
		return nil, err
	}
	return &user.Avatar{Data: []byte{byte(size)}, MimeType: "image/png"}, nil
}

func (f *fakeRemote) GetSharees(ctx context.Context, account, search string, page, perPage int) ([]sharing.Sharee, error) {
	if err := f.record("sharees", account); err != nil {
		return nil, err
	}
	return []sharing.Sharee{{Label: search, ShareType: sharing.ShareTypeUser, ShareWith: search, IsExactMatch: true}}, nil
}

// countingCache wraps a Memory store and counts writes.
type countingCache struct {
	*localstore.Memory
	mu         sync.Mutex
	quotaSaves int
	capsSaves  int
	failSave   error
}

func newCountingCache() *countingCache {
	return &countingCache{Memory: localstore.NewMemory()}
}

func (c *countingCache) SaveQuota(ctx context.Context, account string, q *user.Quota) error {
	c.mu.Lock()
	c.quotaSaves++
	fail := c.failSave
	c.mu.Unlock()
	if fail != nil {
		return fail
	}
	return c.Memory.SaveQuota(ctx, account, q)
}

func (c *countingCache) SaveCapabilities(ctx context.Context, account string, caps *capability.Capability) error {
	c.mu.Lock()
	c.capsSaves++
	fail := c.failSave
	c.mu.Unlock()
	if fail != nil {
		return fail
	}
	return c.Memory.SaveCapabilities(ctx, account, caps)
}

func sampleCaps(account, version string) *capability.Capability {
	c := capability.New(account)
	c.VersionMajor = 10
	c.VersionString = version
	c.DavChunkingVersion = "1.0"
	c.FilesBigFileChunking = capability.True
	c.FilesSharingAPIEnabled = capability.True
	return c
}

func TestRefreshThenStoredCapabilities(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	remote.caps["alice"] = sampleCaps("alice", "10.5.0")
	cache := newCountingCache()
	repo := NewCapabilityRepository(remote, cache)

	stored, err := repo.GetStoredCapabilities(ctx, "alice")
	if err != nil || stored != nil {
		t.Fatalf("expected nothing stored before refresh, got (%+v, %v)", stored, err)
	}

	if err := repo.RefreshCapabilitiesForAccount(ctx, "alice"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stored, err = repo.GetStoredCapabilities(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(stored, remote.caps["alice"]) {
		t.Errorf("stored value differs from fetched:\n got  %+v\n want %+v", stored, remote.caps["alice"])
	}
	if remote.count("capabilities") != 1 {
		t.Errorf("stored read must not call the server, got %d calls", remote.count("capabilities"))
	}
}

func TestGetCapabilitiesReturnsFreshValue(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	cache := newCountingCache()
	cache.Memory.SaveCapabilities(ctx, "alice", sampleCaps("alice", "10.4.0"))
	remote.caps["alice"] = sampleCaps("alice", "10.5.0")
	repo := NewCapabilityRepository(remote, cache)

	got, err := repo.GetCapabilitiesForAccount(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if got.VersionString != "10.5.0" {
		t.Errorf("expected fresh version, got %s", got.VersionString)
	}
	stored, _ := repo.GetStoredCapabilities(ctx, "alice")
	if stored.VersionString != "10.5.0" {
		t.Errorf("expected cache to hold fresh version, got %s", stored.VersionString)
	}
}

func TestFailedRefreshKeepsCache(t *testing.T) {
	ctx := context.Background()
	for _, failure := range []error{
		errs.NoConnection("get capabilities", errors.New("dial tcp: refused")),
		fmt.Errorf("get capabilities: %w", &errs.HTTPError{StatusCode: 401}),
		errs.Malformed("get capabilities", errors.New("unexpected EOF")),
	} {
		t.Run(errorKind(failure), func(t *testing.T) {
			remote := newFakeRemote()
			remote.failFor["alice"] = failure
			cache := newCountingCache()
			v1 := sampleCaps("alice", "10.4.0")
			cache.Memory.SaveCapabilities(ctx, "alice", v1)
			cache.Memory.SaveQuota(ctx, "alice", &user.Quota{Available: 10, Used: 1})

			caps := NewCapabilityRepository(remote, cache)
			err := caps.RefreshCapabilitiesForAccount(ctx, "alice")
			if !errors.Is(err, failure) {
				t.Fatalf("expected error to propagate unchanged, got %v", err)
			}
			stored, _ := caps.GetStoredCapabilities(ctx, "alice")
			if !reflect.DeepEqual(stored, v1) {
				t.Errorf("cache changed after failed refresh: %+v", stored)
			}

			users := NewUserRepository(remote, cache)
			if _, err := users.GetUserQuota(ctx, "alice"); !errors.Is(err, failure) {
				t.Fatalf("expected quota error to propagate, got %v", err)
			}
			q, _ := users.GetStoredUserQuota(ctx, "alice")
			if q == nil || *q != (user.Quota{Available: 10, Used: 1}) {
				t.Errorf("quota cache changed after failed refresh: %+v", q)
			}
			if cache.capsSaves != 0 || cache.quotaSaves != 0 {
				t.Errorf("no cache write expected, got caps=%d quota=%d", cache.capsSaves, cache.quotaSaves)
			}
		})
	}
}

func errorKind(err error) string {
	switch {
	case errs.IsUnauthorized(err):
		return "unauthorized"
	case errors.Is(err, errs.ErrMalformedResponse):
		return "malformed"
	}
	return "no_connection"
}

func TestGetUserQuotaCallCounts(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	remote.quotas["alice"] = &user.Quota{Available: 750, Used: 250}
	cache := newCountingCache()
	repo := NewUserRepository(remote, cache)

	for i := 1; i <= 3; i++ {
		q, err := repo.GetUserQuota(ctx, "alice")
		if err != nil {
			t.Fatal(err)
		}
		if *q != *remote.quotas["alice"] {
			t.Errorf("unexpected quota %+v", q)
		}
		if remote.count("quota") != i || cache.quotaSaves != i {
			t.Errorf("call %d: expected %d remote calls and saves, got %d and %d",
				i, i, remote.count("quota"), cache.quotaSaves)
		}
	}

	stored, err := repo.GetStoredUserQuota(ctx, "alice")
	if err != nil || stored == nil || *stored != *remote.quotas["alice"] {
		t.Errorf("expected stored quota, got (%+v, %v)", stored, err)
	}
	if remote.count("quota") != 3 {
		t.Error("stored read must not call the server")
	}
}

func TestCacheWriteFailure(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	remote.quotas["alice"] = &user.Quota{Available: 1, Used: 1}
	cache := newCountingCache()
	cache.failSave = errors.New("disk full")

	_, err := NewUserRepository(remote, cache).GetUserQuota(ctx, "alice")
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Errorf("expected cache error, got %v", err)
	}
}

func TestUserPassThrough(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	cache := newCountingCache()
	repo := NewUserRepository(remote, cache)

	info, err := repo.GetUserInfo(ctx, "alice")
	if err != nil || info.ID != "alice" {
		t.Errorf("unexpected info (%+v, %v)", info, err)
	}
	avatar, err := repo.GetUserAvatar(ctx, "alice", 64)
	if err != nil || avatar.Data[0] != 64 {
		t.Errorf("unexpected avatar (%+v, %v)", avatar, err)
	}
	if cache.quotaSaves != 0 {
		t.Error("info and avatar must not be cached")
	}

	sharees, err := NewShareeRepository(remote).GetSharees(ctx, "alice", "bob", 1, 30)
	if err != nil || len(sharees) != 1 || sharees[0].ShareWith != "bob" {
		t.Errorf("unexpected sharees (%+v, %v)", sharees, err)
	}
}

func TestRefreshAll(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	for _, name := range []string{"alice", "bob", "carol"} {
		remote.caps[name] = sampleCaps(name, "10.5.0")
		remote.quotas[name] = &user.Quota{Available: 100, Used: int64(len(name))}
	}
	remote.failFor["bob"] = errs.NoConnection("get", errors.New("timeout"))
	cache := newCountingCache()

	err := RefreshAll(ctx, []string{"alice", "bob", "carol"},
		NewCapabilityRepository(remote, cache), NewUserRepository(remote, cache), 2)
	if err == nil || !strings.Contains(err.Error(), "account bob") {
		t.Fatalf("expected bob's failure, got %v", err)
	}
	if !errs.IsConnectivity(err) {
		t.Error("joined error should keep the connectivity kind")
	}

	for _, name := range []string{"alice", "carol"} {
		q, _ := cache.GetQuota(ctx, name)
		c, _ := cache.GetCapabilities(ctx, name)
		if q == nil || c == nil {
			t.Errorf("%s should have been refreshed", name)
		}
	}
	if q, _ := cache.GetQuota(ctx, "bob"); q != nil {
		t.Error("bob should have nothing cached")
	}
}

type negotiationRemote struct{}

func (negotiationRemote) GetStatus(ctx context.Context, path string) (*server.Status, error) {
	return &server.Status{Version: server.Version{Major: 10, Minor: 5, String: "10.5.0"}, IsSecure: true}, nil
}

func (negotiationRemote) GetAuthenticationMethod(ctx context.Context, baseURL string) (server.AuthenticationMethod, error) {
	return server.AuthBearer, nil
}

func TestServerInfoRepository(t *testing.T) {
	repo := NewServerInfoRepository(server.NewNegotiator(negotiationRemote{}))
	info, err := repo.GetServerInfo(context.Background(), "http://host/path")
	if err != nil {
		t.Fatal(err)
	}
	want := &server.Info{
		Version:              server.Version{Major: 10, Minor: 5, String: "10.5.0"},
		BaseURL:              "https://host/path",
		AuthenticationMethod: server.AuthBearer,
		IsSecureConnection:   true,
	}
	if !reflect.DeepEqual(info, want) {
		t.Errorf("expected %+v, got %+v", want, info)
	}
}
