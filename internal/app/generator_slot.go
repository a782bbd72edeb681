package app

import (
	"sync"

	"gopherai-docqa/internal/ai"
)

// GeneratorSlot holds the answer generator currently in use. It is empty
// until a credential is configured and can be swapped at runtime.
type GeneratorSlot struct {
	mu        sync.RWMutex
	generator AnswerGenerator
	binding   ai.Binding
}

func NewGeneratorSlot() *GeneratorSlot {
	return &GeneratorSlot{}
}

func (s *GeneratorSlot) Set(binding ai.Binding, generator AnswerGenerator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.binding = binding
	s.generator = generator
}

func (s *GeneratorSlot) Current() (AnswerGenerator, ai.Binding, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generator, s.binding, s.generator != nil
}
