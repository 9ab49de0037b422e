package schedule

// CompletionSet is a set of completion keys that remembers insertion order so
// the wire array stays stable between writes.
type CompletionSet struct {
	keys  []string
	index map[string]struct{}
}

func NewCompletionSet(keys []string) *CompletionSet {
	s := &CompletionSet{index: make(map[string]struct{}, len(keys))}
	for _, k := range keys {
		s.Add(k)
	}
	return s
}

func (s *CompletionSet) Has(key string) bool {
	_, ok := s.index[key]
	return ok
}

func (s *CompletionSet) Add(key string) {
	if s.Has(key) {
		return
	}
	s.index[key] = struct{}{}
	s.keys = append(s.keys, key)
}

func (s *CompletionSet) Remove(key string) {
	if !s.Has(key) {
		return
	}
	delete(s.index, key)
	for i, k := range s.keys {
		if k == key {
			s.keys = append(s.keys[:i], s.keys[i+1:]...)
			break
		}
	}
}

// Toggle flips membership and reports whether the key is now completed.
func (s *CompletionSet) Toggle(key string) bool {
	if s.Has(key) {
		s.Remove(key)
		return false
	}
	s.Add(key)
	return true
}

func (s *CompletionSet) Len() int {
	return len(s.keys)
}

// Keys returns a copy in insertion order; never nil.
func (s *CompletionSet) Keys() []string {
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}
