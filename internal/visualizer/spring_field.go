package visualizer

import "github.com/charmbracelet/harmonica"

// springField eases a row of values toward per-frame targets.
type springField struct {
	spring harmonica.Spring
	pos    []float64
	vel    []float64
}

func newSpringField(fps int, frequency, damping float64) springField {
	return springField{spring: harmonica.NewSpring(harmonica.FPS(fps), frequency, damping)}
}

// reset sizes the field to n values at rest at zero.
func (s *springField) reset(n int) {
	s.pos = make([]float64, n)
	s.vel = make([]float64, n)
}

func (s *springField) step(i int, target float64) float64 {
	s.pos[i], s.vel[i] = s.spring.Update(s.pos[i], s.vel[i], target)
	return s.pos[i]
}
