package session

// Token - identifies one generation; only the latest token may settle a slot
type Token uint64

// Slot - latest result of one generation kind plus bounded history
// Not safe for concurrent use; Session guards it.
type Slot[T any] struct {
	current      *T
	history      []*T
	lastErr      error
	inFlight     bool
	generation   uint64
	historyLimit int
}

func newSlot[T any](historyLimit int) Slot[T] {
	return Slot[T]{historyLimit: historyLimit}
}

// BeginGeneration - issues a new token and supersedes any earlier one
func (s *Slot[T]) BeginGeneration() Token {
	s.generation++
	s.inFlight = true
	return Token(s.generation)
}

// CompleteGeneration - applies result only for the latest token
func (s *Slot[T]) CompleteGeneration(tok Token, result *T) bool {
	if !s.isLatest(tok) {
		return false
	}
	if s.current != nil && s.historyLimit > 0 {
		s.history = append(s.history, s.current)
		if len(s.history) > s.historyLimit {
			s.history = s.history[len(s.history)-s.historyLimit:]
		}
	}
	s.current = result
	s.lastErr = nil
	s.inFlight = false
	return true
}

// FailGeneration - records err for the latest token; the current result is kept
func (s *Slot[T]) FailGeneration(tok Token, err error) bool {
	if !s.isLatest(tok) {
		return false
	}
	s.lastErr = err
	s.inFlight = false
	return true
}

func (s *Slot[T]) isLatest(tok Token) bool {
	return uint64(tok) == s.generation && s.inFlight
}

func (s *Slot[T]) Current() *T { return s.current }
func (s *Slot[T]) LastErr() error { return s.lastErr }
func (s *Slot[T]) InFlight() bool { return s.inFlight }
func (s *Slot[T]) Generation() uint64 { return s.generation }
func (s *Slot[T]) HistoryLen() int { return len(s.history) }
