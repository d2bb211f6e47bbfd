package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name string
		in   Progress
		want Breakdown
	}{
		{
			name: "nothing played",
			in:   Progress{},
			want: Breakdown{},
		},
		{
			name: "perfect quiz",
			in:   Progress{QuizCorrect: 5, QuizTotal: 5},
			want: Breakdown{Quiz: 20, Total: 20},
		},
		{
			name: "partial quiz rounds half up",
			in:   Progress{QuizCorrect: 3, QuizTotal: 8},
			want: Breakdown{Quiz: 8, Total: 8},
		},
		{
			name: "resume score scaled to twenty",
			in:   Progress{ResumeScore: 73},
			want: Breakdown{Resume: 15, Total: 15},
		},
		{
			name: "checklist half done",
			in:   Progress{ChecklistChecked: 5, ChecklistTotal: 10},
			want: Breakdown{Checklist: 10, Total: 10},
		},
		{
			name: "mock capped at forty",
			in:   Progress{MockInteractions: 7},
			want: Breakdown{Mock: 40, Total: 40},
		},
		{
			name: "everything maxed",
			in: Progress{
				QuizCorrect: 5, QuizTotal: 5,
				ResumeScore:      100,
				ChecklistChecked: 10, ChecklistTotal: 10,
				MockInteractions: 4,
			},
			want: Breakdown{Quiz: 20, Resume: 20, Checklist: 20, Mock: 40, Total: 100},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(tt.in))
		})
	}
}

func TestScore_MockPartialCredit(t *testing.T) {
	for n := 0; n <= 5; n++ {
		assert.Equal(t, min(10*n, 40), Score(Progress{MockInteractions: n}).Mock, "n=%d", n)
	}
}

func TestRoundHalfUp(t *testing.T) {
	assert.Equal(t, 3, roundHalfUp(2.5))
	assert.Equal(t, 2, roundHalfUp(2.49))
	assert.Equal(t, 0, roundHalfUp(0))
}
