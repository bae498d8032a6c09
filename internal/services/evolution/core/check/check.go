package check

// Result describes a total compared against a difficulty.
type Result struct {
	Total      int
	Difficulty int
	Margin     int
	Success    bool
}

// MeetsDifficulty reports whether total reaches difficulty.
func MeetsDifficulty(total, difficulty int) bool {
	return total >= difficulty
}

// Margin returns how far total lies above (positive) or below difficulty.
func Margin(total, difficulty int) int {
	return total - difficulty
}

// Evaluate compares total with difficulty.
func Evaluate(total, difficulty int) Result {
	return Result{
		Total:      total,
		Difficulty: difficulty,
		Margin:     Margin(total, difficulty),
		Success:    MeetsDifficulty(total, difficulty),
	}
}
