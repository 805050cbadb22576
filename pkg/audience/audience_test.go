package audience

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
	}{
		{"channel", Channel},
		{"Guild", Channel},
		{"group", Group},
		{" c2c ", Direct},
		{"direct", Direct},
	}

	for _, tc := range tests {
		got, err := Parse(tc.in)
		if err != nil {
			t.Fatalf("Parse(%q) error: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("Parse(%q)=%q want %q", tc.in, got, tc.want)
		}
	}

	if _, err := Parse("forum"); err == nil {
		t.Fatal("Parse(forum) should fail")
	}
}

func TestTablesAndColumns(t *testing.T) {
	tests := []struct {
		kind   Kind
		table  string
		column string
	}{
		{Channel, "channel_table", "channel_id"},
		{Group, "group_table", "group_id"},
		{Direct, "c2c_table", ""},
	}

	for _, tc := range tests {
		if got := tc.kind.Table(); got != tc.table {
			t.Fatalf("%s.Table()=%q want %q", tc.kind, got, tc.table)
		}
		if got := tc.kind.ContextColumn(); got != tc.column {
			t.Fatalf("%s.ContextColumn()=%q want %q", tc.kind, got, tc.column)
		}
	}
}

func TestAllIsValid(t *testing.T) {
	if len(All()) != 3 {
		t.Fatalf("len(All())=%d want 3", len(All()))
	}
	for _, k := range All() {
		if !k.Valid() {
			t.Fatalf("%q should be valid", k)
		}
	}
	if Kind("forum").Valid() {
		t.Fatal("forum should not be valid")
	}
}
