package document_repo

import (
	"testing"
)

func TestBaseSelect_SQL(t *testing.T) {
	repo := NewBaseDocumentRepo[any](nil, "test_docs", []string{"id", "number", "amount"}, func() any { return nil })

	sql, args, err := repo.BaseSelect().ToSql()
	if err != nil {
		t.Fatalf("ToSql failed: %v", err)
	}

	want := "SELECT id, number, amount FROM test_docs"
	if sql != want {
		t.Errorf("SQL mismatch\nwant: %s\ngot:  %s", want, sql)
	}
	if len(args) != 0 {
		t.Errorf("unexpected args: %v", args)
	}
}

func TestParseOrderBy(t *testing.T) {
	repo := NewBaseDocumentRepo[any](nil, "test_docs", []string{"id", "amount"}, func() any { return nil })

	tests := []struct {
		name    string
		orderBy string
		want    string
		wantErr bool
	}{
		{name: "default", orderBy: "", want: "date DESC"},
		{name: "ascending", orderBy: "amount", want: "amount ASC"},
		{name: "explicit ascending", orderBy: "+amount", want: "amount ASC"},
		{name: "descending", orderBy: "-created_at", want: "created_at DESC"},
		{name: "unknown column", orderBy: "evil; DROP TABLE", wantErr: true},
		{name: "bare prefix", orderBy: "-", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.parseOrderBy(tt.orderBy)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseOrderBy failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("orderBy mismatch\nwant: %s\ngot:  %s", tt.want, got)
			}
		})
	}
}
