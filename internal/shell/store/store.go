package store

import (
	"context"

	"github.com/dalproject/dald/internal/core/project"
)

// =============================================================================
// Repository Interface
// =============================================================================

// Repository defines the persistence interface for project configurations.
// The deployer depends on this interface only; any key-value store or
// embedded database can stand behind it.
type Repository interface {
	CreateProject(ctx context.Context, cfg *project.Configuration) error
	GetProject(ctx context.Context, id string) (*project.Configuration, error)
	SaveProject(ctx context.Context, cfg *project.Configuration) error
	DeleteProject(ctx context.Context, id string) error
	ListProjects(ctx context.Context, opts ListOptions) ([]project.Configuration, error)
	ListProjectsByOwner(ctx context.Context, owner string, opts ListOptions) ([]project.Configuration, error)

	// Lifecycle
	Close() error
}

// =============================================================================
// Options
// =============================================================================

// ListOptions defines pagination options.
type ListOptions struct {
	Limit  int
	Offset int
}

// DefaultListOptions returns default list options.
func DefaultListOptions() ListOptions {
	return ListOptions{
		Limit:  100,
		Offset: 0,
	}
}

// Normalize ensures list options have valid values.
func (o ListOptions) Normalize() ListOptions {
	if o.Limit <= 0 {
		o.Limit = 100
	}
	if o.Limit > 1000 {
		o.Limit = 1000
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}
