package proteomisc

import (
	"io"

	"github.com/csimplestring/go-csv/detector"
)

// DetermineDelimiter returns the single most likely rune that would delimit
// the values in the reader. The detector reports every character repeated a
// consistent number of times per line, which lets underscore-heavy protein
// identifiers and .raw column names outrank the real separator, so a detected
// tab (then comma) always wins over other candidates. DIA-NN report matrices
// are tab-delimited, so when nothing is detected we default to a tab.
func DetermineDelimiter(r io.Reader) rune {
	d := detector.New()
	delimiters := d.DetectDelimiter(r, '"')

	for _, preferred := range []string{"\t", ","} {
		for _, candidate := range delimiters {
			if candidate == preferred {
				return rune(preferred[0])
			}
		}
	}

	if len(delimiters) > 0 {
		return rune(delimiters[0][0])
	}

	return '\t'
}
