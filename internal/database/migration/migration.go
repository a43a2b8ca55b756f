package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

type migrationStep struct {
	Name string
	SQL  string
}

// sentinelTable is created by the last step; when it exists the schema is complete.
const sentinelTable = "public.audit_events"

var steps = []migrationStep{
	{
		Name: "create_table_applications",
		SQL: `CREATE TABLE IF NOT EXISTS applications (
  id         TEXT        PRIMARY KEY,
  owner_id   TEXT        NOT NULL,
  status     TEXT        NOT NULL DEFAULT 'draft'
             CHECK (status IN ('draft', 'under_review', 'submitted', 'approved', 'rejected')),
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_applications_owner_id",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_applications_owner_id ON applications (owner_id);`,
	},
	{
		Name: "create_table_documents",
		SQL: `CREATE TABLE IF NOT EXISTS documents (
  id             TEXT        PRIMARY KEY,
  application_id TEXT        NOT NULL REFERENCES applications (id) ON DELETE CASCADE,
  category       TEXT        NOT NULL
                 CHECK (category IN ('identity', 'safety_permit', 'insurance_certificate', 'property_deed', 'other')),
  storage_key    TEXT        NOT NULL UNIQUE,
  original_name  TEXT        NOT NULL,
  mime_type      TEXT        NOT NULL,
  size_bytes     BIGINT      NOT NULL CHECK (size_bytes > 0),
  uploaded_by    TEXT        NOT NULL,
  uploaded_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_unique_index_documents_application_category",
		SQL: `CREATE UNIQUE INDEX IF NOT EXISTS uq_documents_application_category
  ON documents (application_id, category) WHERE category <> 'other';`,
	},
	{
		Name: "create_index_documents_application_uploaded_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_application_uploaded_at ON documents (application_id, uploaded_at DESC);`,
	},
	{
		Name: "create_table_audit_events",
		SQL: `CREATE TABLE IF NOT EXISTS audit_events (
  id          UUID        PRIMARY KEY,
  event_type  TEXT        NOT NULL,
  subject_id  TEXT        NOT NULL,
  actor_id    TEXT        NOT NULL,
  actor_email TEXT        NOT NULL DEFAULT '',
  actor_role  TEXT        NOT NULL,
  metadata    JSONB       NOT NULL DEFAULT '{}'::jsonb,
  occurred_at TIMESTAMPTZ NOT NULL
);`,
	},
	{
		Name: "create_index_audit_events_subject_id",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_audit_events_subject_id ON audit_events (subject_id, occurred_at);`,
	},
}

// EnsureMigrated creates the schema unless the sentinel table already exists. Every
// step is idempotent, so a run interrupted halfway is completed by the next one.
func EnsureMigrated(ctx context.Context, db *sql.DB, log logrus.FieldLogger) error {
	start := time.Now()
	log = log.WithField("component", "database")

	log.WithFields(logrus.Fields{"event": "db_migration_check", "status": "starting"}).Info("checking schema")

	var exists bool
	if err := db.QueryRowContext(ctx, "SELECT to_regclass($1) IS NOT NULL", sentinelTable).Scan(&exists); err != nil {
		log.WithError(err).WithFields(logrus.Fields{
			"event":       "db_migration_failed",
			"status":      "error",
			"duration_ms": time.Since(start).Milliseconds(),
		}).Error("failed to check sentinel table")
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		log.WithFields(logrus.Fields{
			"event":       "db_migration_skip",
			"status":      "success",
			"duration_ms": time.Since(start).Milliseconds(),
		}).Info("schema already exists, skipping migration")
		return nil
	}

	log.WithFields(logrus.Fields{"event": "db_migration_start", "status": "in_progress", "steps": len(steps)}).Info("migrating schema")

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.WithError(err).WithFields(logrus.Fields{
				"event":            "db_migration_failed",
				"status":           "error",
				"migration_step":   step.Name,
				"duration_ms":      time.Since(start).Milliseconds(),
				"step_duration_ms": time.Since(stepStart).Milliseconds(),
			}).Error("migration step failed")
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		log.WithFields(logrus.Fields{
			"event":            "db_migration_step",
			"status":           "success",
			"migration_step":   step.Name,
			"step_duration_ms": time.Since(stepStart).Milliseconds(),
		}).Debug("migration step applied")
	}

	log.WithFields(logrus.Fields{
		"event":       "db_migration_success",
		"status":      "success",
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("schema migrated")
	return nil
}
