package repository

import (
	"strings"
	"testing"
)

func TestMigrations_Embedded(t *testing.T) {
	t.Parallel()

	migrations, err := Migrations()
	if err != nil {
		t.Fatalf("Migrations failed: %v", err)
	}
	if len(migrations) == 0 {
		t.Fatal("expected embedded migrations")
	}

	for i, m := range migrations {
		if m.Up == "" || m.Down == "" {
			t.Errorf("migration %s is missing a direction", m.Version)
		}
		if i > 0 && migrations[i-1].Version >= m.Version {
			t.Errorf("migrations out of order at %s", m.Version)
		}
	}

	var all strings.Builder
	for _, m := range migrations {
		all.WriteString(m.Up)
	}
	for _, table := range []string{
		"users", "follows", "bank_accounts", "transactions", "donations",
		"streamer_applications", "notifications", "obs_settings", "alert_deliveries",
	} {
		if !strings.Contains(all.String(), "CREATE TABLE IF NOT EXISTS "+table+" (") {
			t.Errorf("no migration creates %s", table)
		}
	}
}
