package expand

import (
	"strconv"
	"strings"

	"github.com/vercel-labs/just-bash-sub005/syntax"
)

// paramValue resolves a ParamExp's base parameter to the field(s) it
// expands to before any trailing operator is applied. Array parameters
// produce len(vals) > 1; everything else produces exactly one field.
func paramValue(cfg *Config, pe *syntax.ParamExp) (vals []string, isSet bool, err error) {
	name := pe.Param.Value

	if pe.Excl && pe.NamesOp != 0 {
		var names []string
		cfg.Env.Each(func(n string, _ Variable) bool {
			if strings.HasPrefix(n, name) {
				names = append(names, n)
			}
			return true
		})
		return names, true, nil
	}

	if pe.Excl {
		// ${!name}: indirection -- the value of name names another variable.
		vb := cfg.Env.Get(name)
		if !vb.IsSet() {
			return nil, false, nil
		}
		return paramValue(cfg, &syntax.ParamExp{Param: syntax.Lit{Value: vb.Str}})
	}

	vb := cfg.Env.Get(name)
	if !vb.IsSet() {
		if cfg.NoUnset && cfg.UnsetErr != nil {
			cfg.UnsetErr(name)
		}
		return nil, false, nil
	}
	switch vb.Kind {
	case Indexed:
		if pe.Index != nil {
			idx, ierr := Arithm(cfg, pe.Index)
			if ierr != nil {
				return nil, false, ierr
			}
			if idx >= 0 && int(idx) < len(vb.List) {
				return []string{vb.List[idx]}, true, nil
			}
			return nil, false, nil
		}
		return append([]string{}, vb.List...), true, nil
	case Associative:
		if pe.Index != nil {
			key, werr := Literal(cfg, indexWord(pe.Index))
			if werr != nil {
				return nil, false, werr
			}
			v, ok := vb.Map[key]
			return []string{v}, ok, nil
		}
		var out []string
		for _, v := range vb.Map {
			out = append(out, v)
		}
		return out, true, nil
	default:
		return []string{vb.Str}, true, nil
	}
}

func indexWord(x syntax.ArithmExpr) *syntax.Word {
	if w, ok := x.(*syntax.Word); ok {
		return w
	}
	return &syntax.Word{}
}

// applyLength returns the length (in runes) of the parameter, matching
// ${#name}. ${#@}/${#*} return the positional-parameter count.
func applyLength(vals []string, isArray bool) string {
	if isArray {
		return strconv.Itoa(len(vals))
	}
	if len(vals) == 0 {
		return "0"
	}
	return strconv.Itoa(len([]rune(vals[0])))
}

// applySlice implements ${name:offset:length}, with bash's negative-offset
// (counts from the end) and negative-length (counts back from the end)
// semantics.
func applySlice(cfg *Config, s string, sl *syntax.Slice) (string, error) {
	runes := []rune(s)
	n := len(runes)
	offStr, err := Literal(cfg, sl.Offset)
	if err != nil {
		return "", err
	}
	off, err := strconv.Atoi(strings.TrimSpace(offStr))
	if err != nil {
		off = 0
	}
	if off < 0 {
		off += n
		if off < 0 {
			off = 0
		}
	}
	if off > n {
		off = n
	}
	end := n
	if sl.Length != nil {
		lenStr, err := Literal(cfg, sl.Length)
		if err != nil {
			return "", err
		}
		length, err := strconv.Atoi(strings.TrimSpace(lenStr))
		if err == nil {
			if length < 0 {
				end = n + length
			} else {
				end = off + length
			}
		}
	}
	if end > n {
		end = n
	}
	if end < off {
		end = off
	}
	return string(runes[off:end]), nil
}

func applyCase(s string, op syntax.ParExpOperator) string {
	switch op {
	case syntax.UpperFirst:
		if s == "" {
			return s
		}
		return strings.ToUpper(s[:1]) + s[1:]
	case syntax.UpperAll:
		return strings.ToUpper(s)
	case syntax.LowerFirst:
		if s == "" {
			return s
		}
		return strings.ToLower(s[:1]) + s[1:]
	case syntax.LowerAll:
		return strings.ToLower(s)
	}
	return s
}
