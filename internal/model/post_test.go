package model

import (
	"reflect"
	"testing"
)

func TestSplitTags(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{name: "single tag", raw: "MERN", want: []string{"MERN"}},
		{name: "trims blanks", raw: " Code , Web ", want: []string{"Code", "Web"}},
		{name: "drops empties", raw: "SQL,,", want: []string{"SQL"}},
		{name: "dedupes keeping first-seen order", raw: "Web,Code,Web", want: []string{"Web", "Code"}},
		{name: "empty input", raw: "", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitTags(tt.raw)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitTags(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestIsValidTag(t *testing.T) {
	for _, tag := range AllTags() {
		if !IsValidTag(tag) {
			t.Errorf("IsValidTag(%q) = false, want true", tag)
		}
	}
	for _, tag := range []string{"All", "code", "COBOL", ""} {
		if IsValidTag(tag) {
			t.Errorf("IsValidTag(%q) = true, want false", tag)
		}
	}
}

func TestAllTagsReturnsFreshSlice(t *testing.T) {
	a := AllTags()
	a[0] = "mutated"
	if AllTags()[0] != string(TagCode) {
		t.Error("AllTags() shares its backing array between calls")
	}
}

func TestPostFindComment(t *testing.T) {
	p := &Post{Comments: []Comment{{ID: "c1", Content: "first"}, {ID: "c2", Content: "second"}}}

	c := p.FindComment("c2")
	if c == nil || c.Content != "second" {
		t.Fatalf("FindComment(c2) = %+v, want the second comment", c)
	}
	c.Content = "edited"
	if p.Comments[1].Content != "edited" {
		t.Error("FindComment should return a pointer into the post's comment list")
	}
	if p.FindComment("missing") != nil {
		t.Error("FindComment(missing) should be nil")
	}
}

func TestUserApplyDefaults(t *testing.T) {
	u := &User{Username: "alice", Bio: "custom"}
	u.ApplyDefaults()

	if u.Bio != "custom" {
		t.Errorf("Bio = %q, want custom bio kept", u.Bio)
	}
	if u.ProfileImg != DefaultProfileImg || u.CoverImg != DefaultCoverImg {
		t.Error("ApplyDefaults did not set placeholder images")
	}
	if u.Followers == nil || u.Following == nil {
		t.Error("ApplyDefaults should initialise follow sets")
	}
}
