package sqlstore

import "testing"

func TestRebind(t *testing.T) {
	numbered := Dialect{NumberedPlaceholders: true}
	if got := numbered.rebind("UPDATE t SET a = ?, b = ? WHERE id = ?"); got != "UPDATE t SET a = $1, b = $2 WHERE id = $3" {
		t.Fatalf("unexpected rebind %q", got)
	}
	if got := (Dialect{}).rebind("SELECT ? , ?"); got != "SELECT ? , ?" {
		t.Fatalf("positional dialect must keep placeholders, got %q", got)
	}
}
