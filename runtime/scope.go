package runtime

// Scope maps names to values, with an optional parent chain. Lookups
// fall through to the parent, but moves and takes never do: a linear
// value can only be moved out of the scope that owns it.
type Scope struct {
	vars   map[string]Value
	parent *Scope
}

func NewScope() *Scope {
	return &Scope{vars: make(map[string]Value)}
}

// Child creates a nested scope whose reads fall through to s.
func (s *Scope) Child() *Scope {
	return &Scope{vars: make(map[string]Value), parent: s}
}

// Get looks a name up without consuming it, walking the parent chain.
func (s *Scope) Get(name string) (Value, bool) {
	if v, ok := s.vars[name]; ok {
		return v, true
	}
	if s.parent != nil {
		return s.parent.Get(name)
	}
	return Unit, false
}

// GetOrMove reads a name. A linear value owned by this scope is moved
// out and the binding removed. Shared values are copied. Parent
// bindings are read-only: a linear value living in an outer scope
// cannot be moved from here.
func (s *Scope) GetOrMove(name string) (Value, bool) {
	if v, ok := s.vars[name]; ok {
		if v.IsLinear() {
			delete(s.vars, name)
		}
		return v, true
	}
	if s.parent != nil {
		return s.parent.Get(name)
	}
	return Unit, false
}

// Take removes a local binding unconditionally. It never reaches into
// the parent.
func (s *Scope) Take(name string) (Value, bool) {
	v, ok := s.vars[name]
	if ok {
		delete(s.vars, name)
	}
	return v, ok
}

// Set binds a name in this scope, shadowing any parent binding.
func (s *Scope) Set(name string, v Value) {
	s.vars[name] = v
}

// Has reports whether the name resolves in this scope or a parent.
func (s *Scope) Has(name string) bool {
	_, ok := s.Get(name)
	return ok
}

// Names returns the locally bound names. Used when sweeping a scope
// for unconsumed linear values.
func (s *Scope) Names() []string {
	names := make([]string, 0, len(s.vars))
	for n := range s.vars {
		names = append(names, n)
	}
	return names
}
