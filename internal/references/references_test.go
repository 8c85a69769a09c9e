// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package references

import (
	"reflect"
	"testing"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "single ref",
			text: "Revenue grew 5% [ref](https://example.com/a).",
			want: []string{"https://example.com/a"},
		},
		{
			name: "source form and duplicates",
			text: "A [ref](https://x.example) B [Source](https://y.example) C [ref](https://x.example)",
			want: []string{"https://x.example", "https://y.example", "https://x.example"},
		},
		{
			name: "ordinary markdown links ignored",
			text: "See [the filing](https://sec.gov/f) and [ref]() too.",
			want: []string{},
		},
		{
			name: "no citations",
			text: "plain text",
			want: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Extract() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDedup(t *testing.T) {
	got := Dedup([]string{"a", "b", "a", "c", "b"})
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Dedup() = %v, want %v", got, want)
	}
}

func TestDedupSkipsBlank(t *testing.T) {
	got := Dedup([]string{"", " a ", "a", "  "})
	if !reflect.DeepEqual(got, []string{"a"}) {
		t.Errorf("Dedup() = %v", got)
	}
}

func TestUnsourced(t *testing.T) {
	text := "X [ref](https://a.example/) Y [ref](https://made.up) Z [ref](https://made.up) W [ref](https://b.example)"
	got := Unsourced(text, []string{"https://a.example", "https://b.example"})
	want := []string{"https://made.up"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Unsourced() = %v, want %v", got, want)
	}
}

func TestUnsourcedAllKnown(t *testing.T) {
	if got := Unsourced("A [ref](u1)", []string{"u1"}); len(got) != 0 {
		t.Errorf("Unsourced() = %v, want none", got)
	}
}

func TestBlock(t *testing.T) {
	got := Block([]string{"a", "b", "a", "c", "b"})
	want := "# References\n- a\n- b\n- c\n"
	if got != want {
		t.Errorf("Block() = %q, want %q", got, want)
	}
	if Block(nil) != "" {
		t.Error("Block(nil) should be empty")
	}
}
