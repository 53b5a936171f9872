package flow

// Sink is the end of a flow. It counts the entities it absorbs.
type Sink struct {
	*StationBase

	count int
	last  Entity
}

// NewSink creates a Sink.
func NewSink(name string) *Sink {
	return &Sink{
		StationBase: NewStationBase(name),
	}
}

// Receive absorbs the entity.
func (s *Sink) Receive(entity Entity) {
	s.count++
	s.last = entity
}

// Count returns the number of entities absorbed.
func (s *Sink) Count() int {
	return s.count
}

// Last returns the most recent entity absorbed.
func (s *Sink) Last() Entity {
	return s.last
}

// Reset forgets the absorbed entities.
func (s *Sink) Reset() {
	s.count = 0
	s.last = 0
}

var _ Station = (*Sink)(nil)
