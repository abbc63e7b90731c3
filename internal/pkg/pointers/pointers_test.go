package pointers

import "testing"

func TestCloneKeepsNilAndCopiesValue(t *testing.T) {
	if Clone[string](nil) != nil {
		t.Fatalf("Clone(nil): want=nil")
	}
	src := String("files/a.mp4")
	dup := Clone(src)
	if dup == src || *dup != *src {
		t.Fatalf("Clone: want fresh pointer to %q got=%p %q", *src, dup, *dup)
	}
}

func TestEqual(t *testing.T) {
	cases := []struct {
		a, b *string
		want bool
	}{
		{nil, nil, true},
		{String(""), nil, false},
		{nil, String(""), false},
		{String("x"), String("x"), true},
		{String("x"), String("y"), false},
	}
	for i, c := range cases {
		if got := Equal(c.a, c.b); got != c.want {
			t.Fatalf("case %d: want=%v got=%v", i, c.want, got)
		}
	}
}
