package search

import "testing"

func TestFilterBuilders(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"eq", Eq("subject", "Mathematics"), "subject eq 'Mathematics'"},
		{"eq escapes quote", Eq("subject", "Children's Literature"), "subject eq 'Children''s Literature'"},
		{"ne", Ne("id", "c-1"), "id ne 'c-1'"},
		{"or single", Or("a eq 1"), "a eq 1"},
		{"or skips empty", Or("", "a eq 1", " "), "a eq 1"},
		{"or many", Or("a", "b"), "(a or b)"},
		{"and skips empty", And("a", "", "b"), "a and b"},
		{"any int", AnyEqInt("grade_level", []int{4, 5}), "(grade_level/any(g: g eq 4) or grade_level/any(g: g eq 5))"},
		{"any string", AnyEqString("topics", []string{"fractions"}), "topics/any(t: t eq 'fractions')"},
		{"eq any", EqAny("difficulty_level", []string{"beginner", "intermediate"}), "(difficulty_level eq 'beginner' or difficulty_level eq 'intermediate')"},
		{"empty and", And(), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Fatalf("filter: want=%q got=%q", tt.want, tt.got)
			}
		})
	}
}
