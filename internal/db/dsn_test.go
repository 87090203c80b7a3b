package db

import "testing"

func TestIsPostgres(t *testing.T) {
	cases := map[string]bool{
		"postgres://u:p@localhost:5432/facture": true,
		"postgresql://localhost/facture":        true,
		"host=localhost user=facture":           true,
		"file:facturevox.db":                    false,
		"facturevox.db":                         false,
	}
	for dsn, want := range cases {
		if got := IsPostgres(dsn); got != want {
			t.Fatalf("IsPostgres(%q) = %v, want %v", dsn, got, want)
		}
	}
}

func TestNormalizeDSN(t *testing.T) {
	if got := NormalizeDSN(`  "host=db user=u dbname=f"  `); got != "host=db user=u dbname=f sslmode=disable" {
		t.Fatalf("unexpected normalization: %q", got)
	}
	if got := NormalizeDSN("postgres://u@db/f"); got != "postgres://u@db/f" {
		t.Fatalf("url DSN should pass through, got %q", got)
	}
	if got := NormalizeDSN("file:dev.db"); got != "file:dev.db" {
		t.Fatalf("sqlite DSN should pass through, got %q", got)
	}
}
