package check

import "testing"

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name       string
		total      int
		difficulty int
		want       Result
	}{
		{name: "exact", total: 10, difficulty: 10, want: Result{Total: 10, Difficulty: 10, Margin: 0, Success: true}},
		{name: "above", total: 14, difficulty: 10, want: Result{Total: 14, Difficulty: 10, Margin: 4, Success: true}},
		{name: "below", total: 7, difficulty: 10, want: Result{Total: 7, Difficulty: 10, Margin: -3, Success: false}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Evaluate(tt.total, tt.difficulty); got != tt.want {
				t.Fatalf("evaluate = %+v, want %+v", got, tt.want)
			}
		})
	}
}
