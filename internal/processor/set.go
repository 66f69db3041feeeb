package processor

import "github.com/citymesh/message-gateway/internal/model"

// Set holds one processor per concrete channel.
type Set struct {
	procs map[model.MessageType]*Processor
}

func NewSet(procs ...*Processor) *Set {
	m := make(map[model.MessageType]*Processor, len(procs))
	for _, p := range procs {
		m[p.Channel()] = p
	}
	return &Set{procs: m}
}

func (s *Set) For(t model.MessageType) (*Processor, bool) {
	p, ok := s.procs[t]
	return p, ok
}
