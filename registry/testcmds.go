package registry

import "strings"

// Demo registers a handful of trivial commands useful for interpreter
// tests and examples: they exercise the registry wiring (stdin capture,
// argument passing, exit codes) without pulling in a real coreutils
// implementation, which is out of scope for this interpreter.
func Demo() Map {
	return Map{
		"upper": CommandFunc(func(cc Context) (Result, error) {
			return Result{Stdout: strings.ToUpper(cc.Stdin)}, nil
		}),
		"lower": CommandFunc(func(cc Context) (Result, error) {
			return Result{Stdout: strings.ToLower(cc.Stdin)}, nil
		}),
		"echoargs": CommandFunc(func(cc Context) (Result, error) {
			return Result{Stdout: strings.Join(cc.Args, " ") + "\n"}, nil
		}),
		"failwith": CommandFunc(func(cc Context) (Result, error) {
			code := 1
			if len(cc.Args) > 1 {
				if n, err := parseInt(cc.Args[1]); err == nil {
					code = n
				}
			}
			return Result{ExitCode: code}, nil
		}),
	}
}

func parseInt(s string) (int, error) {
	n := 0
	neg := false
	for i, c := range s {
		if i == 0 && c == '-' {
			neg = true
			continue
		}
		if c < '0' || c > '9' {
			return 0, &ErrUnsupported{Op: "failwith"}
		}
		n = n*10 + int(c-'0')
	}
	if neg {
		n = -n
	}
	return n, nil
}

// ErrUnsupported is returned by test commands that receive an argument
// they can't parse.
type ErrUnsupported struct{ Op string }

func (e *ErrUnsupported) Error() string { return e.Op + ": invalid argument" }
