package app

import "github.com/louisbranch/evolving.space/internal/services/evolution/domain/genome"

// ModifierSource supplies the check modifier a creature carries.
type ModifierSource interface {
	Modifier(g genome.Genome) int
}

// ModifierFunc adapts a function to ModifierSource.
type ModifierFunc func(g genome.Genome) int

// Modifier satisfies ModifierSource.
func (f ModifierFunc) Modifier(g genome.Genome) int {
	return f(g)
}

// GenerationModifiers rewards older bloodlines: +1 from generation 10,
// another +1 from 25 and another +2 from 50.
func GenerationModifiers() ModifierSource {
	return ModifierFunc(func(g genome.Genome) int {
		modifier := 0
		if g.Generation >= 10 {
			modifier++
		}
		if g.Generation >= 25 {
			modifier++
		}
		if g.Generation >= 50 {
			modifier += 2
		}
		return modifier
	})
}
