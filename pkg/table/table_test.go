package table

import (
	"reflect"
	"testing"
)

func TestNew_ColumnUnion(t *testing.T) {
	rows := []Row{
		{"id": 1, "name": "alice"},
		{"id": 2, "email": "bob@example.com"},
	}

	table := New(rows...)

	want := []string{"id", "name", "email"}
	if !reflect.DeepEqual(table.Columns, want) {
		t.Errorf("Columns = %v, want %v", table.Columns, want)
	}
	if table.Len() != 2 {
		t.Errorf("Len() = %d, want 2", table.Len())
	}
}

func TestNew_Empty(t *testing.T) {
	table := New()
	if table.Len() != 0 {
		t.Errorf("Len() = %d, want 0", table.Len())
	}
	if len(table.Columns) != 0 {
		t.Errorf("Columns = %v, want empty", table.Columns)
	}
}

func TestMerge_UnionOfColumns(t *testing.T) {
	first := New(
		Row{"id": 1, "status": "open"},
		Row{"id": 2, "status": "closed"},
	)
	second := New(
		Row{"id": 3, "priority": "high"},
	)

	merged := Merge(first, second)

	if merged.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", merged.Len())
	}
	for _, col := range []string{"id", "status", "priority"} {
		if !merged.HasColumn(col) {
			t.Errorf("Merged table missing column %q", col)
		}
	}

	// Rows lacking a column stay sparse there
	if _, ok := merged.Cell(2, "status"); ok {
		t.Error("Row 2 should have no status value")
	}
	if v, ok := merged.Cell(2, "priority"); !ok || v != "high" {
		t.Errorf("Cell(2, priority) = %v, %v; want high, true", v, ok)
	}
}

func TestMerge_PreservesRowOrder(t *testing.T) {
	// Three head rows then five walk rows, order intact
	var headRows, walkRows []Row
	for i := 1; i <= 3; i++ {
		headRows = append(headRows, Row{"id": i})
	}
	for i := 4; i <= 8; i++ {
		walkRows = append(walkRows, Row{"id": i})
	}

	merged := Merge(New(headRows...), New(walkRows...))

	if merged.Len() != 8 {
		t.Fatalf("Len() = %d, want 8", merged.Len())
	}
	for i := 0; i < 8; i++ {
		v, ok := merged.Cell(i, "id")
		if !ok || v != i+1 {
			t.Errorf("Cell(%d, id) = %v, want %d", i, v, i+1)
		}
	}
}

func TestMerge_SinglePageIdempotent(t *testing.T) {
	rows := []Row{
		{"id": 1, "subject": "printer"},
		{"id": 2, "subject": "laptop"},
	}

	direct := New(rows...)
	merged := Merge(New(rows...))

	if !reflect.DeepEqual(direct, merged) {
		t.Errorf("Merge of single table differs from direct tabulation:\n%v\n%v", direct, merged)
	}
}

func TestCell_OutOfRange(t *testing.T) {
	table := New(Row{"id": 1})
	if _, ok := table.Cell(5, "id"); ok {
		t.Error("Cell out of range should report no value")
	}
	if _, ok := table.Cell(-1, "id"); ok {
		t.Error("Cell with negative row should report no value")
	}
}
