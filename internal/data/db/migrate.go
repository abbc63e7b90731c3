package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/episode-duplication/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(types.Models()...)
}

// EnsureProvenanceIndexes creates the composite indexes the duplication queries
// filter on: children by parent, and duplicates by (parent, orig_id).
func EnsureProvenanceIndexes(db *gorm.DB) error {
	stmts := []struct {
		name string
		sql  string
	}{
		{"idx_part_episode_orig", `CREATE INDEX IF NOT EXISTS idx_part_episode_orig ON part (episode_id, orig_id);`},
		{"idx_item_part_orig", `CREATE INDEX IF NOT EXISTS idx_item_part_orig ON item (part_id, orig_id);`},
		{"idx_block_item_orig", `CREATE INDEX IF NOT EXISTS idx_block_item_orig ON block (item_id, orig_id);`},
		{"idx_duplication_source_status", `CREATE INDEX IF NOT EXISTS idx_duplication_source_status ON duplication (source_episode_id, status);`},
	}
	for _, st := range stmts {
		if err := db.Exec(st.sql).Error; err != nil {
			return fmt.Errorf("create %s: %w", st.name, err)
		}
	}
	return nil
}

// EnsureContentConstraints adds the tree foreign keys. Provenance links are nulled
// when their source row is deleted; parent links cascade. Postgres only.
func EnsureContentConstraints(db *gorm.DB) error {
	if db.Dialector.Name() != "postgres" {
		return nil
	}
	constraints := []struct {
		name, table, column, ref, onDelete string
	}{
		{"fk_episode_orig", "episode", "orig_id", "episode", "SET NULL"},
		{"fk_part_episode", "part", "episode_id", "episode", "CASCADE"},
		{"fk_part_orig", "part", "orig_id", "part", "SET NULL"},
		{"fk_item_part", "item", "part_id", "part", "CASCADE"},
		{"fk_item_orig", "item", "orig_id", "item", "SET NULL"},
		{"fk_block_item", "block", "item_id", "item", "CASCADE"},
		{"fk_block_orig", "block", "orig_id", "block", "SET NULL"},
		{"fk_duplication_source_episode", "duplication", "source_episode_id", "episode", "CASCADE"},
		{"fk_duplication_target_episode", "duplication", "target_episode_id", "episode", "SET NULL"},
	}
	for _, c := range constraints {
		stmt := fmt.Sprintf(`
			DO $$
			BEGIN
				IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = '%s') THEN
					ALTER TABLE "%s"
					ADD CONSTRAINT "%s"
					FOREIGN KEY ("%s")
					REFERENCES "%s"("id")
					ON DELETE %s;
				END IF;
			END $$;
		`, c.name, c.table, c.name, c.column, c.ref, c.onDelete)
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("add %s: %w", c.name, err)
		}
	}
	return nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	if err := AutoMigrateAll(s.db); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	if err := EnsureContentConstraints(s.db); err != nil {
		s.log.Error("Content constraint migration failed", "error", err)
		return err
	}
	if err := EnsureProvenanceIndexes(s.db); err != nil {
		s.log.Error("Provenance index migration failed", "error", err)
		return err
	}
	return nil
}
