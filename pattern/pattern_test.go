package pattern

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestRegexpMatch(t *testing.T) {
	t.Parallel()
	c := qt.New(t)

	tests := []struct {
		pat          string
		mode         Mode
		extglob      bool
		mustMatch    []string
		mustNotMatch []string
	}{
		{
			pat:          "*.go",
			mode:         Filenames | EntireString,
			mustMatch:    []string{"main.go", "a.go"},
			mustNotMatch: []string{"main.go.bak", ".hidden.go"},
		},
		{
			pat:          "foo?bar",
			mode:         EntireString,
			mustMatch:    []string{"fooXbar"},
			mustNotMatch: []string{"foobar", "fooXXbar"},
		},
		{
			pat:          "[abc]*",
			mode:         EntireString,
			mustMatch:    []string{"apple", "banana", "cherry"},
			mustNotMatch: []string{"durian"},
		},
		{
			pat:          "!(foo)",
			mode:         EntireString,
			extglob:      true,
			mustNotMatch: []string{"foo"},
		},
		{
			pat:          "file.+(txt|md)",
			mode:         EntireString,
			extglob:      true,
			mustMatch:    []string{"file.txt", "file.md"},
			mustNotMatch: []string{"file.go"},
		},
	}

	for _, test := range tests {
		test := test
		c.Run(test.pat, func(c *qt.C) {
			re, err := Regexp(test.pat, test.mode, test.extglob)
			c.Assert(err, qt.IsNil)
			for _, s := range test.mustMatch {
				c.Assert(re.MatchString(s), qt.Equals, true, qt.Commentf("%q should match %q", test.pat, s))
			}
			for _, s := range test.mustNotMatch {
				c.Assert(re.MatchString(s), qt.Equals, false, qt.Commentf("%q should not match %q", test.pat, s))
			}
		})
	}
}

func TestHasMeta(t *testing.T) {
	t.Parallel()
	c := qt.New(t)

	c.Assert(HasMeta("plain", false), qt.Equals, false)
	c.Assert(HasMeta("a*b", false), qt.Equals, true)
	c.Assert(HasMeta("a[bc]", false), qt.Equals, true)
	c.Assert(HasMeta("a@(b)", false), qt.Equals, false)
	c.Assert(HasMeta("a@(b)", true), qt.Equals, true)
}
