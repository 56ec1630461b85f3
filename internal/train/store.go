package train

// Store is the ordered collection of trains of one simulation. Insertion
// order is the enumeration order every tick uses, which makes collision
// tie-breaks deterministic.
//
// The store also keeps the halt records of trains held by the collision
// resolver, so a train and the reason it is held never drift apart.
type Store struct {
	trains []Train
	index  map[ID]int
	halts  map[ID]HaltInfo
}

// NewStore creates a store holding sanitized copies of trains.
// Duplicate IDs keep the first occurrence.
func NewStore(trains []Train) *Store {
	s := &Store{
		trains: make([]Train, 0, len(trains)),
		index:  make(map[ID]int, len(trains)),
		halts:  make(map[ID]HaltInfo),
	}
	for _, t := range trains {
		s.Add(t)
	}
	return s
}

// Add appends a train. It returns false if the ID is already present.
func (s *Store) Add(t Train) bool {
	if _, exists := s.index[t.ID]; exists {
		return false
	}
	t = t.Sanitized().Clone()
	s.index[t.ID] = len(s.trains)
	s.trains = append(s.trains, t)
	if t.Halted && t.Halt != nil {
		s.halts[t.ID] = *t.Halt
	}
	return true
}

// Len returns the number of trains.
func (s *Store) Len() int {
	return len(s.trains)
}

// At returns the train at enumeration index i.
func (s *Store) At(i int) Train {
	return s.trains[i]
}

// Get looks up a train by ID.
func (s *Store) Get(id ID) (Train, bool) {
	i, ok := s.index[id]
	if !ok {
		return Train{}, false
	}
	return s.trains[i], true
}

// Set replaces the train at enumeration index i.
func (s *Store) Set(i int, t Train) {
	s.trains[i] = t
}

// Lead returns the first train, which the reachable-track display follows.
func (s *Store) Lead() (Train, bool) {
	if len(s.trains) == 0 {
		return Train{}, false
	}
	return s.trains[0], true
}

// All returns deep copies of every train in enumeration order.
func (s *Store) All() []Train {
	out := make([]Train, len(s.trains))
	for i, t := range s.trains {
		out[i] = t.Clone()
	}
	return out
}

// IDs returns the train IDs in enumeration order.
func (s *Store) IDs() []ID {
	out := make([]ID, len(s.trains))
	for i, t := range s.trains {
		out[i] = t.ID
	}
	return out
}

// HaltRecord returns the halt record kept for a train, if any.
func (s *Store) HaltRecord(id ID) (HaltInfo, bool) {
	h, ok := s.halts[id]
	return h, ok
}

// Hold marks the train at index i as halted for info and records why.
func (s *Store) Hold(i int, info HaltInfo) {
	t := s.trains[i]
	t.Halted = true
	h := info
	t.Halt = &h
	s.trains[i] = t
	s.halts[t.ID] = info
}

// Release clears the halt state of the train at index i.
func (s *Store) Release(i int) {
	t := s.trains[i]
	t.Halted = false
	t.Halt = nil
	s.trains[i] = t
	delete(s.halts, t.ID)
}

// HaltedCount returns how many trains are currently halted.
func (s *Store) HaltedCount() int {
	n := 0
	for _, t := range s.trains {
		if t.Halted {
			n++
		}
	}
	return n
}
