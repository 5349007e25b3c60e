package cli

import (
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
)

func TestMigrationStatus(t *testing.T) {
	tests := []struct {
		name       string
		upErr      error
		versionErr error
		version    uint
		want       string
	}{
		{
			name:       "empty schema",
			upErr:      migrate.ErrNoChange,
			versionErr: migrate.ErrNilVersion,
			want:       "migrations: database is up to date (no migrations applied)",
		},
		{
			name:    "already current",
			upErr:   migrate.ErrNoChange,
			version: 3,
			want:    "migrations: database is up to date (version 3)",
		},
		{
			name:    "migrations applied",
			version: 4,
			want:    "migrations: applied successfully (version 4)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := migrationStatus(tt.upErr, tt.versionErr, tt.version)
			assert.Equal(t, tt.want, got)
		})
	}
}
