package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/relaydesk/accessd/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Tenant{},
		&models.User{},
		&models.Role{},
		&models.Permission{},
		&models.RoleBinding{},
		&models.UserRole{},
		&models.AuditLog{},
		&models.CacheEntry{},
	)
}

// catalogEntry describes one seeded permission.
type catalogEntry struct {
	Resource    string
	Action      string
	Description string
}

// systemCatalog is the permission set the engagement platform ships with.
// (resource, action) pairs are globally unique; seeding is idempotent.
var systemCatalog = []catalogEntry{
	{"clients", "read", "View CRM client records"},
	{"clients", "write", "Create and edit CRM client records"},
	{"clients", "delete", "Remove CRM client records"},
	{"tickets", "read", "View tickets"},
	{"tickets", "write", "Create and edit tickets"},
	{"tickets", "delete", "Remove tickets"},
	{"connections", "read", "View channel connections"},
	{"connections", "write", "Manage channel connections"},
	{"helpdesk", "read", "View helpdesk entries"},
	{"helpdesk", "edit", "Edit helpdesk entries"},
	{"kanban", "read", "View kanban pipelines"},
	{"kanban", "write", "Manage kanban pipelines"},
	{"knowledge", "read", "View knowledge-base articles"},
	{"knowledge", "write", "Manage knowledge-base articles"},
	{"users", "read", "View users"},
	{"users", "write", "Manage users"},
	{"permissions", "read", "View the permission catalog"},
	{"roles", "read", "View roles and bindings"},
	{"roles", "write", "Manage roles and bindings"},
	{"audit", "read", "View audit logs"},
	{"admin", "manage", "Full administrative access"},
}

// SeedCatalog populates the global permission catalog. Existing rows are
// left untouched so operator edits to descriptions survive restarts.
func SeedCatalog(db *gorm.DB) error {
	for _, entry := range systemCatalog {
		perm := models.Permission{
			Resource:    entry.Resource,
			Action:      entry.Action,
			Description: entry.Description,
			IsSystem:    true,
		}
		err := db.
			Where(models.Permission{Resource: entry.Resource, Action: entry.Action}).
			Attrs(perm).
			FirstOrCreate(&models.Permission{}).Error
		if err != nil {
			return fmt.Errorf("seed permission %s:%s: %w", entry.Resource, entry.Action, err)
		}
	}
	return nil
}

// SeedTenantDefaults provisions the system "Owner" role for a new tenant and
// binds it to the entire catalog with no restrictions.
func SeedTenantDefaults(db *gorm.DB, tenantID string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		owner := models.Role{
			Name:        "Owner",
			Description: "Full tenant access",
			IsSystem:    true,
			TenantID:    tenantID,
		}
		if err := tx.
			Where(models.Role{Name: owner.Name, TenantID: tenantID}).
			Attrs(owner).
			FirstOrCreate(&owner).Error; err != nil {
			return fmt.Errorf("seed owner role: %w", err)
		}

		var perms []models.Permission
		if err := tx.Find(&perms).Error; err != nil {
			return fmt.Errorf("load catalog: %w", err)
		}

		for _, perm := range perms {
			binding := models.RoleBinding{
				RoleID:       owner.ID,
				PermissionID: perm.ID,
				TenantID:     tenantID,
			}
			if err := tx.
				Where(models.RoleBinding{RoleID: owner.ID, PermissionID: perm.ID}).
				Attrs(binding).
				FirstOrCreate(&models.RoleBinding{}).Error; err != nil {
				return fmt.Errorf("seed owner binding %s: %w", perm.Key(), err)
			}
		}

		return nil
	})
}
