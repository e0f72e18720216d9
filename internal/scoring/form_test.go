package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseForm(t *testing.T) {
	tests := []struct {
		name string
		form string
		want FormSummary
	}{
		{
			name: "winner last time out",
			form: "1-211",
			want: FormSummary{RecentWin: true, WinInLastThree: true, TotalWins: 3, Places: 1, Runs: 4},
		},
		{
			name: "no wins no places",
			form: "0876",
			want: FormSummary{TotalWins: 0, Places: 0, Runs: 4},
		},
		{
			name: "win two back",
			form: "312",
			want: FormSummary{RecentWin: false, WinInLastThree: true, TotalWins: 1, Places: 2, Runs: 3},
		},
		{
			name: "pulled up and fallers are not runs",
			form: "P-F1U",
			want: FormSummary{RecentWin: true, WinInLastThree: true, TotalWins: 1, Places: 0, Runs: 1},
		},
		{
			name: "win four runs back is outside the window",
			form: "1000",
			want: FormSummary{RecentWin: false, WinInLastThree: false, TotalWins: 1, Places: 0, Runs: 4},
		},
		{
			name: "empty form",
			form: "",
			want: FormSummary{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseForm(tt.form))
		})
	}
}
