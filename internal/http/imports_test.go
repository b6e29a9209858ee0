package http

import "testing"

func TestColumnIndex(t *testing.T) {
	cols := columnIndex([]string{" Student_Number ", "EMAIL", "first_name"})
	if cols["student_number"] != 0 || cols["email"] != 1 || cols["first_name"] != 2 {
		t.Fatalf("unexpected column map: %v", cols)
	}

	record := []string{"2024-001", "jane@example.com"}
	if got := field(record, cols, "student_number"); got != "2024-001" {
		t.Fatalf("field student_number = %q", got)
	}
	if got := field(record, cols, "first_name"); got != "" {
		t.Fatalf("out-of-range field should be empty, got %q", got)
	}
	if got := field(record, cols, "missing"); got != "" {
		t.Fatalf("unknown column should be empty, got %q", got)
	}
}
