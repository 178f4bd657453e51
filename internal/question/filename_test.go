package question

import (
	"testing"

	"github.com/p-n-ai/filge/internal/subject"
)

func TestExpandYear(t *testing.T) {
	tests := []struct {
		yy   int
		want int
	}{
		{0, 2000},
		{5, 2005},
		{24, 2024},
		{89, 2089},
		{90, 1990},
		{99, 1999},
	}

	for _, tt := range tests {
		if got := ExpandYear(tt.yy); got != tt.want {
			t.Errorf("ExpandYear(%d) = %d, want %d", tt.yy, got, tt.want)
		}
	}
}

func TestParseFilename(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantOK      bool
		wantYear    int
		wantSession int
		wantSubject subject.Canonical
	}{
		{"regular", "24-1-sw_design.json", true, 2024, 1, subject.SWDesign},
		{"nested path", "2024/25-3-db_build.json", true, 2025, 3, subject.DBEngineering},
		{"nineties", "90-2-pl_use.json", true, 1990, 2, subject.LanguageApplication},
		{"leading zero year", "05-1-is_mgmt.json", true, 2005, 1, subject.ISManagement},
		{"multi digit session", "24-12-sw_dev.json", true, 2024, 12, subject.SWEngineering},
		{"unknown subject code", "24-1-physics.json", true, 2024, 1, ""},
		{"uppercase code", "24-1-SW_DESIGN.json", false, 0, 0, ""},
		{"three digit year", "124-1-sw_design.json", false, 0, 0, ""},
		{"wrong extension", "24-1-sw_design.yaml", false, 0, 0, ""},
		{"readme", "README.json", false, 0, 0, ""},
		{"hyphen in code", "24-1-sw-design.json", false, 0, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseFilename(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("ParseFilename(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if got.Year != tt.wantYear {
				t.Errorf("Year = %d, want %d", got.Year, tt.wantYear)
			}
			if got.Session != tt.wantSession {
				t.Errorf("Session = %d, want %d", got.Session, tt.wantSession)
			}
			if got.Subject != tt.wantSubject {
				t.Errorf("Subject = %q, want %q", got.Subject, tt.wantSubject)
			}
		})
	}
}

func TestFilter_Pairs(t *testing.T) {
	f := Filter{Years: []int{2024, 2025, 2024}, Sessions: []int{1, 2}}
	got := f.Pairs()
	want := []Pair{{2024, 1}, {2024, 2}, {2025, 1}, {2025, 2}}
	if len(got) != len(want) {
		t.Fatalf("Pairs() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Pairs()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}
