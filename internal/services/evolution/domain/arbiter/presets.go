package arbiter

// DeathSaveDifficulty is the target of a death save.
const DeathSaveDifficulty = 10

// DeathSave is a d20 check against DeathSaveDifficulty.
func DeathSave(modifier int, advantage, disadvantage bool) RuleContext {
	return RuleContext{
		Kind:         KindCheck,
		Name:         "death_save",
		Difficulty:   DeathSaveDifficulty,
		Modifier:     modifier,
		Advantage:    advantage,
		Disadvantage: disadvantage,
	}
}

// BreedingSuccess gates a breeding attempt with a chance in basis points.
func BreedingSuccess(probability int) RuleContext {
	return RuleContext{Kind: KindChance, Name: "breeding", Probability: probability}
}

// MutationTrigger gates a spontaneous mutation with a chance in basis points.
func MutationTrigger(probability int) RuleContext {
	return RuleContext{Kind: KindChance, Name: "mutation", Probability: probability}
}
