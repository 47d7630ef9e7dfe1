package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/carcrm-cli/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/carcrm-cli/internal/core/domain"
	"github.com/custodia-labs/carcrm-cli/internal/core/ports/driven"
)

// Template kinds in the templates table.
const (
	kindForm  = "form"
	kindExcel = "excel"
)

// Store is a unified SQLite-based storage that provides access to
// all metadata store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.carcrm/data/carcrm.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".carcrm", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "carcrm.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// CustomerStore returns a CustomerStore interface backed by this store.
func (s *Store) CustomerStore() driven.CustomerStore {
	return &customerStore{store: s}
}

// TemplateStore returns a TemplateStore interface backed by this store.
func (s *Store) TemplateStore() driven.TemplateStore {
	return &templateStore{store: s}
}

// QueueStore returns a QueueStore interface backed by this store.
func (s *Store) QueueStore() driven.QueueStore {
	return &queueStore{store: s}
}

// CredentialStore returns a CredentialStore interface backed by this store.
func (s *Store) CredentialStore() driven.CredentialStore {
	return &credentialStore{store: s}
}

// RemoteIDCache returns a RemoteIDCache interface backed by this store.
func (s *Store) RemoteIDCache() driven.RemoteIDCache {
	return &remoteIDCache{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort and run migrations
	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		// Read and execute migration
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Customer Store ====================

// customerStore implements driven.CustomerStore.
type customerStore struct {
	store *Store
}

var _ driven.CustomerStore = (*customerStore)(nil)

// Save stores or updates a customer. The row key is the normalized id
// so numerically equal ids collapse to one record.
func (s *customerStore) Save(ctx context.Context, c domain.Customer) error {
	if c.ID == "" {
		return domain.ErrInvalidInput
	}

	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling customer: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO customers (id, data, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at
	`, domain.NormalizeID(c.ID), string(data), c.CreatedAt, c.UpdatedAt)

	if err != nil {
		return fmt.Errorf("saving customer: %w", err)
	}
	return nil
}

// Get retrieves a customer by id.
func (s *customerStore) Get(ctx context.Context, id string) (*domain.Customer, error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT data FROM customers WHERE id = ?", domain.NormalizeID(id))

	var data string
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning customer: %w", err)
	}

	var c domain.Customer
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		return nil, fmt.Errorf("unmarshaling customer: %w", err)
	}
	return &c, nil
}

// Delete removes a customer. Deleting an absent id is a no-op.
func (s *customerStore) Delete(ctx context.Context, id string) error {
	_, err := s.store.db.ExecContext(ctx,
		"DELETE FROM customers WHERE id = ?", domain.NormalizeID(id))
	if err != nil {
		return fmt.Errorf("deleting customer: %w", err)
	}
	return nil
}

// List returns the full collection in creation order.
func (s *customerStore) List(ctx context.Context) ([]domain.Customer, error) {
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT data FROM customers ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("querying customers: %w", err)
	}
	defer rows.Close()

	customers := []domain.Customer{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning customer: %w", err)
		}
		var c domain.Customer
		if err := json.Unmarshal([]byte(data), &c); err != nil {
			return nil, fmt.Errorf("unmarshaling customer: %w", err)
		}
		customers = append(customers, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating customers: %w", err)
	}

	return customers, nil
}

// ReplaceAll atomically swaps the whole collection.
func (s *customerStore) ReplaceAll(ctx context.Context, customers []domain.Customer) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM customers"); err != nil {
		return fmt.Errorf("clearing customers: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO customers (id, data, created_at, updated_at)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, c := range customers {
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		c.UpdatedAt = now

		data, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("marshalling customer: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, domain.NormalizeID(c.ID), string(data), c.CreatedAt, c.UpdatedAt); err != nil {
			return fmt.Errorf("inserting customer %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// ==================== Template Store ====================

// templateStore implements driven.TemplateStore. Both template kinds
// share one table, discriminated by the kind column.
type templateStore struct {
	store *Store
}

var _ driven.TemplateStore = (*templateStore)(nil)

func (s *templateStore) ListForms(ctx context.Context) ([]domain.FormTemplate, error) {
	return listTemplates[domain.FormTemplate](ctx, s.store, kindForm)
}

func (s *templateStore) SaveForm(ctx context.Context, t domain.FormTemplate) error {
	return saveTemplate(ctx, s.store, kindForm, t.ID, t)
}

func (s *templateStore) DeleteForm(ctx context.Context, id string) error {
	return deleteTemplate(ctx, s.store, kindForm, id)
}

func (s *templateStore) ReplaceForms(ctx context.Context, templates []domain.FormTemplate) error {
	ids := make([]string, len(templates))
	vals := make([]any, len(templates))
	for i, t := range templates {
		ids[i] = t.ID
		vals[i] = t
	}
	return replaceTemplates(ctx, s.store, kindForm, ids, vals)
}

func (s *templateStore) ListExcel(ctx context.Context) ([]domain.ExcelTemplate, error) {
	return listTemplates[domain.ExcelTemplate](ctx, s.store, kindExcel)
}

func (s *templateStore) SaveExcel(ctx context.Context, t domain.ExcelTemplate) error {
	return saveTemplate(ctx, s.store, kindExcel, t.ID, t)
}

func (s *templateStore) DeleteExcel(ctx context.Context, id string) error {
	return deleteTemplate(ctx, s.store, kindExcel, id)
}

func (s *templateStore) ReplaceExcel(ctx context.Context, templates []domain.ExcelTemplate) error {
	ids := make([]string, len(templates))
	vals := make([]any, len(templates))
	for i, t := range templates {
		ids[i] = t.ID
		vals[i] = t
	}
	return replaceTemplates(ctx, s.store, kindExcel, ids, vals)
}

func listTemplates[T any](ctx context.Context, store *Store, kind string) ([]T, error) {
	rows, err := store.db.QueryContext(ctx,
		"SELECT data FROM templates WHERE kind = ? ORDER BY id", kind)
	if err != nil {
		return nil, fmt.Errorf("querying %s templates: %w", kind, err)
	}
	defer rows.Close()

	templates := []T{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning template: %w", err)
		}
		var t T
		if err := json.Unmarshal([]byte(data), &t); err != nil {
			return nil, fmt.Errorf("unmarshaling template: %w", err)
		}
		templates = append(templates, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating templates: %w", err)
	}

	return templates, nil
}

func saveTemplate(ctx context.Context, store *Store, kind, id string, t any) error {
	if id == "" {
		return domain.ErrInvalidInput
	}

	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshalling template: %w", err)
	}

	_, err = store.db.ExecContext(ctx, `
		INSERT INTO templates (kind, id, data)
		VALUES (?, ?, ?)
		ON CONFLICT(kind, id) DO UPDATE SET data = excluded.data
	`, kind, domain.NormalizeID(id), string(data))

	if err != nil {
		return fmt.Errorf("saving template: %w", err)
	}
	return nil
}

func deleteTemplate(ctx context.Context, store *Store, kind, id string) error {
	_, err := store.db.ExecContext(ctx,
		"DELETE FROM templates WHERE kind = ? AND id = ?", kind, domain.NormalizeID(id))
	if err != nil {
		return fmt.Errorf("deleting template: %w", err)
	}
	return nil
}

func replaceTemplates(ctx context.Context, store *Store, kind string, ids []string, templates []any) error {
	tx, err := store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM templates WHERE kind = ?", kind); err != nil {
		return fmt.Errorf("clearing %s templates: %w", kind, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO templates (kind, id, data) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for i, t := range templates {
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("marshalling template: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, kind, domain.NormalizeID(ids[i]), string(data)); err != nil {
			return fmt.Errorf("inserting template %s: %w", ids[i], err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// ==================== Credential Store ====================

// credentialStore implements driven.CredentialStore. At most one row
// exists.
type credentialStore struct {
	store *Store
}

var _ driven.CredentialStore = (*credentialStore)(nil)

// Save overwrites any prior credential.
func (s *credentialStore) Save(ctx context.Context, cred domain.Credential) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO credentials (id, access_token, refresh_token, expires_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at
	`, cred.AccessToken, cred.RefreshToken, cred.ExpiresAt.UTC())

	if err != nil {
		return fmt.Errorf("saving credential: %w", err)
	}
	return nil
}

// Load returns the stored credential, or domain.ErrNotFound.
func (s *credentialStore) Load(ctx context.Context) (*domain.Credential, error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT access_token, refresh_token, expires_at FROM credentials WHERE id = 1")

	var cred domain.Credential
	if err := row.Scan(&cred.AccessToken, &cred.RefreshToken, &cred.ExpiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning credential: %w", err)
	}
	return &cred, nil
}

// Clear removes the credential. Idempotent.
func (s *credentialStore) Clear(ctx context.Context) error {
	if _, err := s.store.db.ExecContext(ctx, "DELETE FROM credentials WHERE id = 1"); err != nil {
		return fmt.Errorf("clearing credential: %w", err)
	}
	return nil
}

// ==================== Remote ID Cache ====================

// remoteIDCache implements driven.RemoteIDCache.
type remoteIDCache struct {
	store *Store
}

var _ driven.RemoteIDCache = (*remoteIDCache)(nil)

// Get returns the cached id for a logical name.
func (s *remoteIDCache) Get(ctx context.Context, name string) (string, bool, error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT object_id FROM remote_ids WHERE name = ?", name)

	var id string
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("scanning remote id: %w", err)
	}
	return id, true, nil
}

// Put stores or replaces the id for a logical name.
func (s *remoteIDCache) Put(ctx context.Context, name, id string) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO remote_ids (name, object_id)
		VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET object_id = excluded.object_id
	`, name, id)

	if err != nil {
		return fmt.Errorf("saving remote id: %w", err)
	}
	return nil
}

// Delete removes one entry. Idempotent.
func (s *remoteIDCache) Delete(ctx context.Context, name string) error {
	if _, err := s.store.db.ExecContext(ctx, "DELETE FROM remote_ids WHERE name = ?", name); err != nil {
		return fmt.Errorf("deleting remote id: %w", err)
	}
	return nil
}

// Clear removes all entries.
func (s *remoteIDCache) Clear(ctx context.Context) error {
	if _, err := s.store.db.ExecContext(ctx, "DELETE FROM remote_ids"); err != nil {
		return fmt.Errorf("clearing remote ids: %w", err)
	}
	return nil
}
