package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/dalproject/dald/internal/core/project"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// =============================================================================
// SQLiteRepository
// =============================================================================

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sqlx.DB
}

// NewSQLiteRepository creates a new SQLite repository and runs migrations.
func NewSQLiteRepository(dsn string) (*SQLiteRepository, error) {
	db, err := sqlx.Open("sqlite3", dsn+"?_foreign_keys=on")
	if err != nil {
		return nil, NewStoreError("NewSQLiteRepository", "", "failed to open database", ErrConnectionFailed)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteRepository", "", "failed to ping database", ErrConnectionFailed)
	}

	if err := runMigrations(db.DB); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteRepository", "", err.Error(), ErrMigrationFailed)
	}

	return &SQLiteRepository{db: db}, nil
}

// runMigrations runs database migrations using embedded SQL files.
func runMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteRepository) Close() error {
	return s.db.Close()
}

// =============================================================================
// Row Mapping
// =============================================================================

// projectRow represents a project row in the database. Collection-valued
// fields are stored as JSON columns.
type projectRow struct {
	ID           string  `db:"id"`
	Owner        string  `db:"owner"`
	Name         string  `db:"name"`
	Metadata     *string `db:"metadata"`
	Datasets     *string `db:"datasets"`
	Workflows    *string `db:"workflows"`
	Models       *string `db:"models"`
	Extension    string  `db:"extension"`
	ALConfig     *string `db:"al_config"`
	ChainAddress string  `db:"chain_address"`
	Contributors *string `db:"contributors"`
	ContentHash  string  `db:"content_hash"`
	Status       string  `db:"status"`
	CreatedAt    string  `db:"created_at"`
	UpdatedAt    string  `db:"updated_at"`
}

func toProjectRow(cfg *project.Configuration) (*projectRow, error) {
	row := &projectRow{
		ID:           cfg.ID,
		Owner:        cfg.Owner,
		Name:         cfg.Name,
		Extension:    string(cfg.Extension),
		ChainAddress: cfg.ChainAddress,
		ContentHash:  cfg.ContentHash,
		Status:       string(cfg.Status),
		CreatedAt:    cfg.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:    cfg.UpdatedAt.UTC().Format(time.RFC3339),
	}

	var err error
	if row.Metadata, err = marshalColumn(cfg.Metadata, len(cfg.Metadata) > 0); err != nil {
		return nil, err
	}
	if row.Datasets, err = marshalColumn(cfg.Datasets, len(cfg.Datasets) > 0); err != nil {
		return nil, err
	}
	if row.Workflows, err = marshalColumn(cfg.Workflows, len(cfg.Workflows) > 0); err != nil {
		return nil, err
	}
	if row.Models, err = marshalColumn(cfg.Models, len(cfg.Models) > 0); err != nil {
		return nil, err
	}
	if row.ALConfig, err = marshalColumn(cfg.AL, cfg.AL != nil); err != nil {
		return nil, err
	}
	if row.Contributors, err = marshalColumn(cfg.Contributors, len(cfg.Contributors) > 0); err != nil {
		return nil, err
	}

	return row, nil
}

func (r *projectRow) toConfiguration() (*project.Configuration, error) {
	cfg := &project.Configuration{
		ID:           r.ID,
		Owner:        r.Owner,
		Name:         r.Name,
		Extension:    project.ExtensionKind(r.Extension),
		ChainAddress: r.ChainAddress,
		ContentHash:  r.ContentHash,
		Status:       project.Status(r.Status),
	}

	if err := unmarshalColumn(r.Metadata, &cfg.Metadata); err != nil {
		return nil, err
	}
	if err := unmarshalColumn(r.Datasets, &cfg.Datasets); err != nil {
		return nil, err
	}
	if err := unmarshalColumn(r.Workflows, &cfg.Workflows); err != nil {
		return nil, err
	}
	if err := unmarshalColumn(r.Models, &cfg.Models); err != nil {
		return nil, err
	}
	if err := unmarshalColumn(r.ALConfig, &cfg.AL); err != nil {
		return nil, err
	}
	if err := unmarshalColumn(r.Contributors, &cfg.Contributors); err != nil {
		return nil, err
	}

	var err error
	if cfg.CreatedAt, err = time.Parse(time.RFC3339, r.CreatedAt); err != nil {
		return nil, NewStoreError("toConfiguration", r.ID, "invalid created_at", ErrInvalidData)
	}
	if cfg.UpdatedAt, err = time.Parse(time.RFC3339, r.UpdatedAt); err != nil {
		return nil, NewStoreError("toConfiguration", r.ID, "invalid updated_at", ErrInvalidData)
	}

	return cfg, nil
}

func marshalColumn(v any, present bool) (*string, error) {
	if !present {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, NewStoreError("marshalColumn", "", err.Error(), ErrInvalidData)
	}
	s := string(data)
	return &s, nil
}

func unmarshalColumn(col *string, dest any) error {
	if col == nil || *col == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(*col), dest); err != nil {
		return NewStoreError("unmarshalColumn", "", err.Error(), ErrInvalidData)
	}
	return nil
}

// =============================================================================
// Project Operations
// =============================================================================

const projectColumns = `id, owner, name, metadata, datasets, workflows, models,
	extension, al_config, chain_address, contributors, content_hash, status,
	created_at, updated_at`

func (s *SQLiteRepository) CreateProject(ctx context.Context, cfg *project.Configuration) error {
	now := time.Now().UTC()
	if cfg.CreatedAt.IsZero() {
		cfg.CreatedAt = now
	}
	cfg.UpdatedAt = now
	if cfg.Status == "" {
		cfg.Status = project.StatusNotDeployed
	}

	row, err := toProjectRow(cfg)
	if err != nil {
		return err
	}

	_, err = s.db.NamedExecContext(ctx, `
		INSERT INTO projects (id, owner, name, metadata, datasets, workflows, models,
			extension, al_config, chain_address, contributors, content_hash, status,
			created_at, updated_at)
		VALUES (:id, :owner, :name, :metadata, :datasets, :workflows, :models,
			:extension, :al_config, :chain_address, :contributors, :content_hash, :status,
			:created_at, :updated_at)`, row)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return NewStoreError("CreateProject", cfg.ID, "duplicate project id", ErrDuplicateID)
		}
		return NewStoreError("CreateProject", cfg.ID, err.Error(), err)
	}
	return nil
}

func (s *SQLiteRepository) GetProject(ctx context.Context, id string) (*project.Configuration, error) {
	var row projectRow
	err := s.db.GetContext(ctx, &row, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewStoreError("GetProject", id, "no such project", ErrNotFound)
		}
		return nil, NewStoreError("GetProject", id, err.Error(), err)
	}
	return row.toConfiguration()
}

func (s *SQLiteRepository) SaveProject(ctx context.Context, cfg *project.Configuration) error {
	cfg.UpdatedAt = time.Now().UTC()

	row, err := toProjectRow(cfg)
	if err != nil {
		return err
	}

	result, err := s.db.NamedExecContext(ctx, `
		UPDATE projects SET
			owner = :owner, name = :name, metadata = :metadata, datasets = :datasets,
			workflows = :workflows, models = :models, extension = :extension,
			al_config = :al_config, chain_address = :chain_address,
			contributors = :contributors, content_hash = :content_hash,
			status = :status, updated_at = :updated_at
		WHERE id = :id`, row)
	if err != nil {
		return NewStoreError("SaveProject", cfg.ID, err.Error(), err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return NewStoreError("SaveProject", cfg.ID, err.Error(), err)
	}
	if affected == 0 {
		return NewStoreError("SaveProject", cfg.ID, "no such project", ErrNotFound)
	}
	return nil
}

func (s *SQLiteRepository) DeleteProject(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return NewStoreError("DeleteProject", id, err.Error(), err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return NewStoreError("DeleteProject", id, err.Error(), err)
	}
	if affected == 0 {
		return NewStoreError("DeleteProject", id, "no such project", ErrNotFound)
	}
	return nil
}

func (s *SQLiteRepository) ListProjects(ctx context.Context, opts ListOptions) ([]project.Configuration, error) {
	opts = opts.Normalize()

	var rows []projectRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+projectColumns+` FROM projects
		ORDER BY created_at DESC LIMIT ? OFFSET ?`, opts.Limit, opts.Offset)
	if err != nil {
		return nil, NewStoreError("ListProjects", "", err.Error(), err)
	}
	return rowsToConfigurations(rows)
}

func (s *SQLiteRepository) ListProjectsByOwner(ctx context.Context, owner string, opts ListOptions) ([]project.Configuration, error) {
	opts = opts.Normalize()

	var rows []projectRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+projectColumns+` FROM projects
		WHERE owner = ? COLLATE NOCASE
		ORDER BY created_at DESC LIMIT ? OFFSET ?`, owner, opts.Limit, opts.Offset)
	if err != nil {
		return nil, NewStoreError("ListProjectsByOwner", "", err.Error(), err)
	}
	return rowsToConfigurations(rows)
}

func rowsToConfigurations(rows []projectRow) ([]project.Configuration, error) {
	configs := make([]project.Configuration, 0, len(rows))
	for i := range rows {
		cfg, err := rows[i].toConfiguration()
		if err != nil {
			return nil, err
		}
		configs = append(configs, *cfg)
	}
	return configs, nil
}
