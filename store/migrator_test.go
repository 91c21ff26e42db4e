package store

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hrygo/voicecal/internal/profile"
)

func TestValidateMigrationFileName(t *testing.T) {
	assert.NoError(t, validateMigrationFileName("01__schedule.sql"))
	assert.Error(t, validateMigrationFileName("schedule.sql"))
	assert.Error(t, validateMigrationFileName("a__schedule.sql"))
}

func TestSplitSQL(t *testing.T) {
	script := `-- comment
CREATE TABLE a (x TEXT DEFAULT 'a;b');

CREATE INDEX i ON a (x);
INSERT INTO a VALUES ('trailing')`

	got := splitSQL(script)
	assert.Equal(t, []string{
		"CREATE TABLE a (x TEXT DEFAULT 'a;b')",
		"CREATE INDEX i ON a (x)",
		"INSERT INTO a VALUES ('trailing')",
	}, got)
}

func TestRebind(t *testing.T) {
	pg := &Store{profile: &profile.Profile{Driver: "postgres"}}
	assert.Equal(t, "VALUES ($1, $2)", pg.rebind("VALUES (?, ?)"))

	lite := &Store{profile: &profile.Profile{Driver: "sqlite"}}
	assert.Equal(t, "VALUES (?, ?)", lite.rebind("VALUES (?, ?)"))
}

func TestEmbeddedMigrations(t *testing.T) {
	for _, driver := range []string{"sqlite", "postgres"} {
		s := &Store{profile: &profile.Profile{Driver: driver}}
		_, err := migrationFS.ReadFile(s.getMigrationBasePath() + "01__schedule.sql")
		assert.NoError(t, err, driver)
	}
}
