package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/saidutt46/switchboard-admin/internal/models"
)

// scopeValidExpr is the structural form of the plugin scope-exclusivity rule.
// It mirrors the application-level validator in internal/scope so that writes
// bypassing the API layer are rejected by the store itself.
const scopeValidExpr = `(%[1]sscope = 'global' AND %[1]sservice_id IS NULL AND %[1]sroute_id IS NULL AND %[1]sconsumer_id IS NULL) OR
(%[1]sscope = 'service' AND %[1]sservice_id IS NOT NULL AND %[1]sroute_id IS NULL AND %[1]sconsumer_id IS NULL) OR
(%[1]sscope = 'route' AND %[1]sroute_id IS NOT NULL AND %[1]sservice_id IS NULL AND %[1]sconsumer_id IS NULL) OR
(%[1]sscope = 'consumer' AND %[1]sconsumer_id IS NOT NULL AND %[1]sservice_id IS NULL AND %[1]sroute_id IS NULL)`

// Migrate creates or updates the schema for all entity tables and installs
// the storage-level plugin scope constraint.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	if errAuto := conn.AutoMigrate(
		&models.Service{},
		&models.ServiceTarget{},
		&models.Route{},
		&models.Consumer{},
		&models.APIKey{},
		&models.Plugin{},
	); errAuto != nil {
		return fmt.Errorf("db: automigrate: %w", errAuto)
	}
	return installScopeConstraint(conn)
}

// installScopeConstraint enforces plugin scope exclusivity at the storage
// layer. PostgreSQL gets a CHECK constraint; SQLite cannot add one to an
// existing table, so it gets equivalent BEFORE INSERT/UPDATE triggers.
func installScopeConstraint(conn *gorm.DB) error {
	if IsSQLite(conn) {
		cond := fmt.Sprintf(scopeValidExpr, "NEW.")
		for _, stmt := range []string{
			fmt.Sprintf(`CREATE TRIGGER IF NOT EXISTS plugins_scope_check_insert
BEFORE INSERT ON plugins
FOR EACH ROW
WHEN NOT (%s)
BEGIN
	SELECT RAISE(ABORT, 'plugins scope constraint violated');
END`, cond),
			fmt.Sprintf(`CREATE TRIGGER IF NOT EXISTS plugins_scope_check_update
BEFORE UPDATE ON plugins
FOR EACH ROW
WHEN NOT (%s)
BEGIN
	SELECT RAISE(ABORT, 'plugins scope constraint violated');
END`, cond),
		} {
			if errExec := conn.Exec(stmt).Error; errExec != nil {
				return fmt.Errorf("db: install scope trigger: %w", errExec)
			}
		}
		return nil
	}

	cond := fmt.Sprintf(scopeValidExpr, "")
	if errDrop := conn.Exec(`ALTER TABLE plugins DROP CONSTRAINT IF EXISTS plugins_scope_check`).Error; errDrop != nil {
		return fmt.Errorf("db: drop scope constraint: %w", errDrop)
	}
	stmt := fmt.Sprintf(`ALTER TABLE plugins ADD CONSTRAINT plugins_scope_check CHECK (%s)`, cond)
	if errAdd := conn.Exec(stmt).Error; errAdd != nil {
		return fmt.Errorf("db: add scope constraint: %w", errAdd)
	}
	return nil
}
