package postgres

import "testing"

func TestMigrateURL(t *testing.T) {
	tests := map[string]string{
		"postgres://u:p@db:5432/settle?sslmode=disable": "pgx5://u:p@db:5432/settle?sslmode=disable",
		"postgresql://db/settle":                       "pgx5://db/settle",
		"pgx5://db/settle":                             "pgx5://db/settle",
	}

	for in, want := range tests {
		if got := migrateURL(in); got != want {
			t.Errorf("migrateURL(%q) = %q, want %q", in, got, want)
		}
	}
}
