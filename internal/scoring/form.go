package scoring

// FormSummary is the decomposition of a compact form string. Digits are
// finishing positions ('0' means outside the top 9), letters P/F/U are
// non-completions and '-' marks a season break.
type FormSummary struct {
	// RecentWin is true when the most recent digit character is '1' (LTO win)
	RecentWin bool
	// WinInLastThree is true when a '1' appears in the last three digits
	WinInLastThree bool
	// TotalWins counts every '1' digit
	TotalWins int
	// Places counts every '2' and '3' digit
	Places int
	// Runs counts digit characters, i.e. completed form entries
	Runs int
}

// ParseForm decomposes a form string by scanning its digit characters.
// Separators and letter codes contribute neither wins nor places.
func ParseForm(form string) FormSummary {
	summary := FormSummary{}

	var digits []byte
	for i := 0; i < len(form); i++ {
		c := form[i]
		if c >= '0' && c <= '9' {
			digits = append(digits, c)
		}
	}

	summary.Runs = len(digits)
	for _, d := range digits {
		switch d {
		case '1':
			summary.TotalWins++
		case '2', '3':
			summary.Places++
		}
	}

	if len(digits) > 0 {
		// Form reads oldest to newest; the rightmost digit is last time out.
		summary.RecentWin = digits[len(digits)-1] == '1'
		start := len(digits) - 3
		if start < 0 {
			start = 0
		}
		for _, d := range digits[start:] {
			if d == '1' {
				summary.WinInLastThree = true
				break
			}
		}
	}

	return summary
}
