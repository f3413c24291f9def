package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shoppulse/recsys-backend/pkg/config"
	"github.com/shoppulse/recsys-backend/pkg/migrate"
)

func readMigration(t *testing.T, dir, pattern string) string {
	t.Helper()

	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration matching %q found", pattern)
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestFeatureMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "migrations/features", "*_create_transaction_features.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS transaction_features",
		"PRIMARY KEY (order_id, product_id)",
		"CHECK (order_month BETWEEN 1 AND 12)",
		"DROP TABLE IF EXISTS transaction_features",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestRecommendationsMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "migrations/operational", "*_create_recommendations.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS recommendations",
		"user_id BIGINT NOT NULL UNIQUE",
		"model_type VARCHAR(20) NOT NULL CHECK (model_type IN ('collaborative', 'content-based', 'deep-learning'))",
		"DROP TABLE IF EXISTS recommendations",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestMigrationDirsValidate(t *testing.T) {
	for _, dir := range []string{"migrations/operational", "migrations/features"} {
		if err := migrate.ValidateDir(dir); err != nil {
			t.Errorf("validate %s: %v", dir, err)
		}
	}
}

func TestDirForRole(t *testing.T) {
	if got := migrate.DirFor(config.RoleFeatureStore); got != migrate.FeaturesDir {
		t.Fatalf("expected features dir, got %s", got)
	}
	if got := migrate.DirFor(config.RoleOperational); got != migrate.OperationalDir {
		t.Fatalf("expected operational dir, got %s", got)
	}
}
