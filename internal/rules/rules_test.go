package rules

import "testing"

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		rules   RuleSet
		wantErr bool
	}{
		{"conway classic", RuleSet{2, 3, 3}, false},
		{"bounds", RuleSet{0, 8, 0}, false},
		{"inverted survival range", RuleSet{4, 2, 3}, true},
		{"negative birth", RuleSet{2, 3, -1}, true},
		{"survival min too large", RuleSet{9, 9, 3}, true},
	}
	for _, tc := range cases {
		err := tc.rules.Validate()
		if tc.wantErr && err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
		if !tc.wantErr && err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
	}
}

func TestFromName(t *testing.T) {
	entry, err := FromName("conway")
	if err != nil {
		t.Fatalf("from name: %v", err)
	}
	want := RuleSet{SurvivalMin: 2, SurvivalMax: 3, Birth: 3}
	if entry.Rules != want {
		t.Fatalf("unexpected conway rules: %+v", entry.Rules)
	}
	if _, err := FromName("day-and-night"); err == nil {
		t.Fatal("expected error for unknown rule set")
	}
}

func TestCatalogEntriesValidate(t *testing.T) {
	for _, entry := range Catalog() {
		if err := entry.Rules.Validate(); err != nil {
			t.Fatalf("catalog entry %s fails validation: %v", entry.Name, err)
		}
	}
}
