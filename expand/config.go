package expand

import "github.com/vercel-labs/just-bash-sub005/syntax"

// Config carries everything the expander needs from the interpreter: the
// variable store plus the handful of callbacks expansion can trigger
// (command substitution, directory listing for globbing, home-directory
// lookup for tilde expansion). Runner builds one of these per statement.
type Config struct {
	Env WriteEnviron

	// CmdSubst runs the statements of a $(...) / `...` substitution and
	// returns its captured, trailing-newline-trimmed stdout.
	CmdSubst func(sub *syntax.CmdSubst) (string, error)

	// ReadDir lists dir's entries for pathname expansion; nil disables
	// globbing (NoGlob has the same effect and is checked first).
	ReadDir func(dir string) ([]string, error)

	// HomeDir resolves ~ and ~user; empty user means the current user.
	HomeDir func(user string) (string, error)

	IFS         string
	NoUnset     bool // set -u
	NoGlob      bool // set -f
	ExtGlob     bool // shopt -s extglob
	GlobStar    bool // shopt -s globstar
	NoCaseGlob  bool // shopt -s nocaseglob
	NullGlob    bool // shopt -s nullglob
	FailGlob    bool // shopt -s failglob
	NoCaseMatch bool // shopt -s nocasematch

	// UnsetErr is called when NoUnset trips on an unset parameter; it
	// should normally panic with the interpreter's own exit-signal type.
	UnsetErr func(name string)
}

func (c *Config) ifs() string {
	if c.IFS != "" || c.Env.Get("IFS").IsSet() {
		if vb := c.Env.Get("IFS"); vb.IsSet() {
			return vb.Str
		}
		return c.IFS
	}
	return " \t\n"
}
