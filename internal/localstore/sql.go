package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/fruitsalade/syncsession/internal/capability"
	"github.com/fruitsalade/syncsession/internal/user"
)

// Dialect selects placeholder syntax.
type Dialect int

const (
	DialectSQLite Dialect = iota
	DialectPostgres
)

// SQLStore is a Store on database/sql. Both dialects support
// INSERT ... ON CONFLICT DO UPDATE, which gives whole-row upserts.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

// OpenSQLite opens (and creates) a sqlite cache file.
func OpenSQLite(path string) (*SQLStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	// Writes are serialized by sqlite anyway; one connection avoids
	// SQLITE_BUSY between pooled connections.
	db.SetMaxOpenConns(1)
	return newSQLStore(db, DialectSQLite)
}

// OpenPostgres opens a cache in a PostgreSQL database.
func OpenPostgres(databaseURL string) (*SQLStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)
	return newSQLStore(db, DialectPostgres)
}

func newSQLStore(db *sql.DB, dialect Dialect) (*SQLStore, error) {
	s := NewSQLStore(db, dialect)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping cache: %w", err)
	}
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLStore wraps an open database. Call Migrate before use.
func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// capabilityColumns lists the capabilities table columns after account_name,
// in the order of capabilityValues and capabilityRow.dest.
var capabilityColumns = []string{
	"version_major",
	"version_minor",
	"version_micro",
	"version_string",
	"version_edition",
	"core_poll_interval",
	"dav_chunking_version",
	"sharing_api_enabled",
	"sharing_public_enabled",
	"sharing_public_password_enforced",
	"sharing_public_password_enforced_read_only",
	"sharing_public_password_enforced_read_write",
	"sharing_public_password_enforced_upload_only",
	"sharing_public_expire_date_enabled",
	"sharing_public_expire_date_days",
	"sharing_public_expire_date_enforced",
	"sharing_public_upload",
	"sharing_public_multiple",
	"sharing_public_supports_upload_only",
	"sharing_resharing",
	"sharing_federation_outgoing",
	"sharing_federation_incoming",
	"files_bigfilechunking",
	"files_undelete",
	"files_versioning",
}

func capabilityValues(c *capability.Capability) []interface{} {
	return []interface{}{
		c.VersionMajor,
		c.VersionMinor,
		c.VersionMicro,
		c.VersionString,
		c.VersionEdition,
		c.CorePollInterval,
		c.DavChunkingVersion,
		c.FilesSharingAPIEnabled.Value(),
		c.FilesSharingPublicEnabled.Value(),
		c.FilesSharingPublicPasswordEnforced.Value(),
		c.FilesSharingPublicPasswordEnforcedReadOnly.Value(),
		c.FilesSharingPublicPasswordEnforcedReadWrite.Value(),
		c.FilesSharingPublicPasswordEnforcedUploadOnly.Value(),
		c.FilesSharingPublicExpireDateEnabled.Value(),
		c.FilesSharingPublicExpireDateDays,
		c.FilesSharingPublicExpireDateEnforced.Value(),
		c.FilesSharingPublicUpload.Value(),
		c.FilesSharingPublicMultiple.Value(),
		c.FilesSharingPublicSupportsUploadOnly.Value(),
		c.FilesSharingResharing.Value(),
		c.FilesSharingFederationOutgoing.Value(),
		c.FilesSharingFederationIncoming.Value(),
		c.FilesBigFileChunking.Value(),
		c.FilesUndelete.Value(),
		c.FilesVersioning.Value(),
	}
}

// capabilityRow receives a scanned capabilities row. Tri-state columns are
// scanned as ints and decoded with capability.FromValue.
type capabilityRow struct {
	c     *capability.Capability
	flags [17]int
}

func (r *capabilityRow) dest() []interface{} {
	c := r.c
	return []interface{}{
		&c.VersionMajor,
		&c.VersionMinor,
		&c.VersionMicro,
		&c.VersionString,
		&c.VersionEdition,
		&c.CorePollInterval,
		&c.DavChunkingVersion,
		&r.flags[0],
		&r.flags[1],
		&r.flags[2],
		&r.flags[3],
		&r.flags[4],
		&r.flags[5],
		&r.flags[6],
		&c.FilesSharingPublicExpireDateDays,
		&r.flags[7],
		&r.flags[8],
		&r.flags[9],
		&r.flags[10],
		&r.flags[11],
		&r.flags[12],
		&r.flags[13],
		&r.flags[14],
		&r.flags[15],
		&r.flags[16],
	}
}

func (r *capabilityRow) decode() *capability.Capability {
	c := r.c
	flags := []*capability.BooleanType{
		&c.FilesSharingAPIEnabled,
		&c.FilesSharingPublicEnabled,
		&c.FilesSharingPublicPasswordEnforced,
		&c.FilesSharingPublicPasswordEnforcedReadOnly,
		&c.FilesSharingPublicPasswordEnforcedReadWrite,
		&c.FilesSharingPublicPasswordEnforcedUploadOnly,
		&c.FilesSharingPublicExpireDateEnabled,
		&c.FilesSharingPublicExpireDateEnforced,
		&c.FilesSharingPublicUpload,
		&c.FilesSharingPublicMultiple,
		&c.FilesSharingPublicSupportsUploadOnly,
		&c.FilesSharingResharing,
		&c.FilesSharingFederationOutgoing,
		&c.FilesSharingFederationIncoming,
		&c.FilesBigFileChunking,
		&c.FilesUndelete,
		&c.FilesVersioning,
	}
	for i, f := range flags {
		*f = capability.FromValue(r.flags[i])
	}
	return c
}

// Migrate creates the cache tables if they do not exist.
func (s *SQLStore) Migrate(ctx context.Context) error {
	var cols strings.Builder
	for _, col := range capabilityColumns {
		typ := "INTEGER NOT NULL DEFAULT -1"
		switch col {
		case "version_string", "version_edition", "dav_chunking_version":
			typ = "TEXT NOT NULL DEFAULT ''"
		case "version_major", "version_minor", "version_micro", "core_poll_interval", "sharing_public_expire_date_days":
			typ = "INTEGER NOT NULL DEFAULT 0"
		}
		fmt.Fprintf(&cols, ",\n\t\t%s %s", col, typ)
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS capabilities (
		account_name TEXT PRIMARY KEY` + cols.String() + `,
		updated_at BIGINT NOT NULL
	)`,
		`CREATE TABLE IF NOT EXISTS user_quotas (
		account_name TEXT PRIMARY KEY,
		available BIGINT NOT NULL,
		used BIGINT NOT NULL,
		updated_at BIGINT NOT NULL
	)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate cache: %w", err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders for the store's dialect.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func upsertQuery(table string, columns []string) string {
	all := append([]string{"account_name"}, columns...)
	all = append(all, "updated_at")
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(all)), ", ")

	sets := make([]string, 0, len(all)-1)
	for _, col := range all[1:] {
		sets = append(sets, col+" = excluded."+col)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (account_name) DO UPDATE SET %s",
		table, strings.Join(all, ", "), placeholders, strings.Join(sets, ", "))
}

var (
	capabilitiesUpsert = upsertQuery("capabilities", capabilityColumns)
	capabilitiesSelect = "SELECT " + strings.Join(capabilityColumns, ", ") + " FROM capabilities WHERE account_name = ?"
	quotaUpsert        = upsertQuery("user_quotas", []string{"available", "used"})
	quotaSelect        = "SELECT available, used FROM user_quotas WHERE account_name = ?"
)

// SaveCapabilities replaces the capabilities row for account.
func (s *SQLStore) SaveCapabilities(ctx context.Context, account string, c *capability.Capability) error {
	args := append([]interface{}{account}, capabilityValues(c)...)
	args = append(args, time.Now().Unix())
	if _, err := s.db.ExecContext(ctx, s.rebind(capabilitiesUpsert), args...); err != nil {
		return fmt.Errorf("save capabilities: %w", err)
	}
	return nil
}

// GetCapabilities returns the cached capabilities for account, or nil.
func (s *SQLStore) GetCapabilities(ctx context.Context, account string) (*capability.Capability, error) {
	row := &capabilityRow{c: &capability.Capability{AccountName: account}}
	err := s.db.QueryRowContext(ctx, s.rebind(capabilitiesSelect), account).Scan(row.dest()...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get capabilities: %w", err)
	}
	return row.decode(), nil
}

// SaveQuota replaces the quota row for account.
func (s *SQLStore) SaveQuota(ctx context.Context, account string, q *user.Quota) error {
	_, err := s.db.ExecContext(ctx, s.rebind(quotaUpsert), account, q.Available, q.Used, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("save quota: %w", err)
	}
	return nil
}

// GetQuota returns the cached quota for account, or nil.
func (s *SQLStore) GetQuota(ctx context.Context, account string) (*user.Quota, error) {
	q := &user.Quota{}
	err := s.db.QueryRowContext(ctx, s.rebind(quotaSelect), account).Scan(&q.Available, &q.Used)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get quota: %w", err)
	}
	return q, nil
}
