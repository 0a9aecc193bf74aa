// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package query

import (
	"reflect"
	"testing"
)

func TestWhereBuilder_Empty(t *testing.T) {
	wb := NewWhereBuilder()
	clause, args := wb.Build()
	if clause != "1=1" || len(args) != 0 {
		t.Errorf("Build() = %q, %v", clause, args)
	}
	if !wb.IsEmpty() {
		t.Error("IsEmpty() = false")
	}
}

func TestWhereBuilder_Combined(t *testing.T) {
	wb := NewWhereBuilder()
	wb.AddClause("partner_id = ?", int64(1))
	wb.AddIn("status", []string{"active", "retired"})
	wb.AddILikeAny([]string{"title", "subtitle"}, "data_science")
	wb.AddNotIn("key", nil)

	clause, args := wb.BuildWithPrefix()
	wantClause := `WHERE partner_id = ? AND status IN (?, ?) AND (title ILIKE ? ESCAPE '\' OR subtitle ILIKE ? ESCAPE '\')`
	if clause != wantClause {
		t.Errorf("clause = %q\nwant    %q", clause, wantClause)
	}
	wantArgs := []interface{}{int64(1), "active", "retired", `%data\_science%`, `%data\_science%`}
	if !reflect.DeepEqual(args, wantArgs) {
		t.Errorf("args = %v, want %v", args, wantArgs)
	}
	if wb.Count() != 3 {
		t.Errorf("Count() = %d, want 3", wb.Count())
	}
}

func TestAddInGeneric(t *testing.T) {
	wb := NewWhereBuilder()
	AddIn(wb, "id", []int64{4, 5})
	clause, args := wb.Build()
	if clause != "id IN (?, ?)" || len(args) != 2 {
		t.Errorf("Build() = %q, %v", clause, args)
	}
}

func TestPlaceholders(t *testing.T) {
	tests := map[int]string{0: "", 1: "?", 3: "?, ?, ?"}
	for n, want := range tests {
		if got := Placeholders(n); got != want {
			t.Errorf("Placeholders(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestEscapeLike(t *testing.T) {
	if got := EscapeLike(`50%_off\`); got != `50\%\_off\\` {
		t.Errorf("EscapeLike() = %q", got)
	}
}
