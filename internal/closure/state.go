package closure

import "sort"

// State is the mutable state of one closure run. Sets only grow, and a symbol
// is always included before it is marked processed.
type State struct {
	included         map[SymbolID]bool
	processedForDeps map[SymbolID]bool
	processedForRefs map[SymbolID]bool
	referencers      map[SymbolID]bool
	admissionOrder   []SymbolID
	onInclude        func(SymbolID)
}

// NewState returns an empty state.
func NewState() *State {
	return &State{
		included:         make(map[SymbolID]bool),
		processedForDeps: make(map[SymbolID]bool),
		processedForRefs: make(map[SymbolID]bool),
		referencers:      make(map[SymbolID]bool),
	}
}

// Include admits id and reports whether it was new.
func (s *State) Include(id SymbolID) bool {
	if s.included[id] {
		return false
	}
	s.included[id] = true
	s.admissionOrder = append(s.admissionOrder, id)
	if s.onInclude != nil {
		s.onInclude(id)
	}
	return true
}

// IncludeReferencer admits id as a referencer and reports whether it was new.
func (s *State) IncludeReferencer(id SymbolID) bool {
	if !s.Include(id) {
		return false
	}
	s.referencers[id] = true
	return true
}

// IsIncluded reports whether id has been admitted.
func (s *State) IsIncluded(id SymbolID) bool {
	return s.included[id]
}

// MarkDependenciesProcessed records that id's dependencies are being expanded.
// It returns false if that already happened. id is admitted if it was not.
func (s *State) MarkDependenciesProcessed(id SymbolID) bool {
	if s.processedForDeps[id] {
		return false
	}
	s.Include(id)
	s.processedForDeps[id] = true
	return true
}

// MarkReferencesProcessed records that the workspace scan for references to id
// is being performed. It returns false if that already happened. id is admitted
// if it was not.
func (s *State) MarkReferencesProcessed(id SymbolID) bool {
	if s.processedForRefs[id] {
		return false
	}
	s.Include(id)
	s.processedForRefs[id] = true
	return true
}

// Len returns the number of included symbols.
func (s *State) Len() int {
	return len(s.included)
}

// ReferencerCount returns the number of symbols admitted as referencers.
func (s *State) ReferencerCount() int {
	return len(s.referencers)
}

// Included returns the included symbols, sorted.
func (s *State) Included() []SymbolID {
	return sortedKeys(s.included)
}

// Referencers returns the symbols admitted because they reference another included symbol, sorted.
func (s *State) Referencers() []SymbolID {
	return sortedKeys(s.referencers)
}

// AdmissionOrder returns included symbols in the order they were admitted.
func (s *State) AdmissionOrder() []SymbolID {
	out := make([]SymbolID, len(s.admissionOrder))
	copy(out, s.admissionOrder)
	return out
}

func sortedKeys(m map[SymbolID]bool) []SymbolID {
	out := make([]SymbolID, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
