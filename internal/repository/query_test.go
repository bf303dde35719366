package repository

import (
	"testing"

	"github.com/xscan/xscan/internal/model"
)

func TestFilter(t *testing.T) {
	t.Parallel()

	var f filter
	if f.where() != "" {
		t.Errorf("empty filter where = %q", f.where())
	}

	f.add("role = $%d", "streamer")
	f.raw("status = 'active'")
	f.add("created_at >= $%d", "2026-01-01")

	if got := f.where(); got != " WHERE role = $1 AND status = 'active' AND created_at >= $2" {
		t.Errorf("where = %q", got)
	}

	clause, args := f.page(model.Pagination{Page: 3, Limit: 10})
	if clause != " LIMIT $3 OFFSET $4" {
		t.Errorf("page clause = %q", clause)
	}
	if len(args) != 4 || args[2] != 10 || args[3] != 20 {
		t.Errorf("page args = %v", args)
	}
	if len(f.args) != 2 {
		t.Error("page must not mutate filter args")
	}
}

func TestLikePrefix(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"Alice":  "alice%",
		"a_b":    `a\_b%`,
		"100%":   `100\%%`,
		`back\s`: `back\\s%`,
	}
	for in, want := range tests {
		if got := likePrefix(in); got != want {
			t.Errorf("likePrefix(%q) = %q, want %q", in, got, want)
		}
	}
}
