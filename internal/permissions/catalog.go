package permissions

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/talentgate/internal/models"
	apperrors "github.com/charlesng35/talentgate/pkg/errors"
)

// Catalog serves the persisted permission universe. It is read-only at runtime.
type Catalog struct {
	db *gorm.DB
}

// NewCatalog constructs a Catalog backed by the provided database handle.
func NewCatalog(db *gorm.DB) (*Catalog, error) {
	if db == nil {
		return nil, errors.New("permission catalog: db is required")
	}
	return &Catalog{db: db}, nil
}

// ListPermissions returns every active permission.
func (c *Catalog) ListPermissions(ctx context.Context) ([]models.Permission, error) {
	return c.list(ensureContext(ctx), "")
}

// ListPermissionsByCategory returns the active permissions tagged with category.
func (c *Catalog) ListPermissionsByCategory(ctx context.Context, category string) ([]models.Permission, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return []models.Permission{}, nil
	}
	return c.list(ensureContext(ctx), category)
}

func (c *Catalog) list(ctx context.Context, category string) ([]models.Permission, error) {
	query := c.db.WithContext(ctx).Where("is_active = ?", true)
	if category != "" {
		query = query.Where("category = ?", category)
	}

	perms := []models.Permission{}
	if err := query.Order("category ASC, resource ASC, action ASC").Find(&perms).Error; err != nil {
		return nil, apperrors.StoreUnavailable("list permissions", err)
	}
	return perms, nil
}
