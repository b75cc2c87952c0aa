package image

import (
	"compressor/converter/image/format"
	"fmt"
	"go.uber.org/zap"
	"sync"
)

var (
	once           sync.Once
	singleInstance *Strategy
)

type Strategy struct {
	mu sync.RWMutex
	m  map[Type]Encoder
}

// MustStrategy returns the process wide codec strategy with the pure Go
// codecs registered. Codecs that need system libraries are added with
// Register.
func MustStrategy(logger *zap.Logger) *Strategy {
	once.Do(func() {
		singleInstance = &Strategy{m: map[Type]Encoder{
			JPEG: format.MustJpeg(logger),
			WEBP: format.MustWebp(logger),
		}}
	})

	return singleInstance
}

func (s *Strategy) Register(t Type, e Encoder) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.m[t] = e
}

func (s *Strategy) Apply(t Type) (Encoder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.m[t]
	if !ok {
		return nil, fmt.Errorf("no encoder registered for %s", t)
	}

	return e, nil
}
