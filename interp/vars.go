package interp

import "github.com/vercel-labs/just-bash-sub005/expand"

// LocalFrame holds the values of a function call's `local` variables. They
// shadow outer scopes and globals of the same name until the frame is
// popped when the call returns; the outer values are never overwritten, so
// nothing needs restoring. Each function call pushes one frame even if it
// declares no locals, to keep callDepth and the frame stack in lockstep.
type LocalFrame struct {
	saved map[string]expand.Variable
	had   map[string]bool // true for every name declared local in this frame
}

func newLocalFrame() *LocalFrame {
	return &LocalFrame{saved: map[string]expand.Variable{}, had: map[string]bool{}}
}

// varStore is the interpreter's flat variable table plus the function-call
// local-scope stack layered on top of it. Reads always check the local
// stack top-down before falling through to globals, matching dynamic
// (not lexical) scoping, which is what bash's `local` actually provides.
type varStore struct {
	globals map[string]expand.Variable
	locals  []*LocalFrame
}

func newVarStore() *varStore {
	return &varStore{globals: map[string]expand.Variable{}}
}

func (v *varStore) Get(name string) expand.Variable {
	for i := len(v.locals) - 1; i >= 0; i-- {
		frame := v.locals[i]
		if vb, ok := frame.saved[name]; ok {
			return vb
		}
	}
	return v.globals[name]
}

func (v *varStore) Set(name string, vb expand.Variable) error {
	for i := len(v.locals) - 1; i >= 0; i-- {
		frame := v.locals[i]
		if _, ok := frame.saved[name]; ok {
			if cur := frame.saved[name]; cur.ReadOnly {
				return &ReadOnlyError{Name: name}
			}
			vb.Local = true
			frame.saved[name] = vb
			return nil
		}
	}
	if cur, ok := v.globals[name]; ok && cur.ReadOnly {
		return &ReadOnlyError{Name: name}
	}
	v.globals[name] = vb
	return nil
}

// SetForce assigns name unconditionally, bypassing the read-only check;
// used by the `readonly` builtin itself to mark (or re-mark) a variable
// without tripping over its own previous declaration.
func (v *varStore) SetForce(name string, vb expand.Variable) {
	for i := len(v.locals) - 1; i >= 0; i-- {
		if _, ok := v.locals[i].saved[name]; ok {
			vb.Local = true
			v.locals[i].saved[name] = vb
			return
		}
	}
	v.globals[name] = vb
}

// Each walks every visible variable: locals in the innermost active frame
// first (shadowing outer/global names of the same key), then globals.
func (v *varStore) Each(f func(string, expand.Variable) bool) {
	seen := map[string]bool{}
	for i := len(v.locals) - 1; i >= 0; i-- {
		for name, vb := range v.locals[i].saved {
			if seen[name] {
				continue
			}
			seen[name] = true
			if !f(name, vb) {
				return
			}
		}
	}
	for name, vb := range v.globals {
		if seen[name] {
			continue
		}
		if !f(name, vb) {
			return
		}
	}
}

// PushLocalFrame begins a new function-call scope.
func (v *varStore) PushLocalFrame() { v.locals = append(v.locals, newLocalFrame()) }

// PopLocalFrame ends the innermost function-call scope, discarding any
// `local` shadows it introduced (they were never in globals to begin
// with).
func (v *varStore) PopLocalFrame() {
	if len(v.locals) == 0 {
		return
	}
	v.locals = v.locals[:len(v.locals)-1]
}

// Local declares name as local to the current call frame, seeding it with
// the given initial value (the zero Variable for a bare `local x`).
func (v *varStore) Local(name string, initial expand.Variable) {
	if len(v.locals) == 0 {
		v.globals[name] = initial
		return
	}
	frame := v.locals[len(v.locals)-1]
	frame.had[name] = true
	initial.Local = true
	frame.saved[name] = initial
}

func (v *varStore) Unset(name string) {
	for i := len(v.locals) - 1; i >= 0; i-- {
		if _, ok := v.locals[i].saved[name]; ok {
			delete(v.locals[i].saved, name)
			return
		}
	}
	delete(v.globals, name)
}

// ReadOnlyError is returned when a script attempts to assign to a variable
// declared with `readonly`.
type ReadOnlyError struct{ Name string }

func (e *ReadOnlyError) Error() string { return e.Name + ": readonly variable" }
