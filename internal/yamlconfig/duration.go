package yamlconfig

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xhit/go-str2duration/v2"
)

var (
	phrasePart = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*([a-zµ]*)`)
	phraseGlue = regexp.MustCompile(`^(?:[\s,]|and)*$`)
)

var unitWords = map[string]string{
	"":        "s",
	"ns":      "ns",
	"us":      "us",
	"µs":      "µs",
	"ms":      "ms",
	"s":       "s",
	"sec":     "s",
	"secs":    "s",
	"second":  "s",
	"seconds": "s",
	"m":       "m",
	"min":     "m",
	"mins":    "m",
	"minute":  "m",
	"minutes": "m",
	"h":       "h",
	"hr":      "h",
	"hrs":     "h",
	"hour":    "h",
	"hours":   "h",
	"d":       "d",
	"day":     "d",
	"days":    "d",
	"w":       "w",
	"wk":      "w",
	"wks":     "w",
	"week":    "w",
	"weeks":   "w",
}

// ParseSeconds converts a duration phrase to whole seconds. It takes compact
// forms ("90s", "1h30m", "1.5h", "2d") as well as words ("5 minutes",
// "1 hour and 30 minutes"). A bare number is seconds.
func ParseSeconds(phrase string) (int64, error) {
	in := strings.ToLower(strings.TrimSpace(phrase))
	if in == "" {
		return 0, fmt.Errorf("empty duration")
	}
	if n, err := strconv.ParseFloat(in, 64); err == nil {
		return int64(n), nil
	}

	var compact strings.Builder
	last := 0
	for _, m := range phrasePart.FindAllStringSubmatchIndex(in, -1) {
		if !phraseGlue.MatchString(in[last:m[0]]) {
			return 0, fmt.Errorf("invalid duration %q", phrase)
		}
		unit, ok := unitWords[in[m[4]:m[5]]]
		if !ok {
			return 0, fmt.Errorf("invalid duration %q: unknown unit %q", phrase, in[m[4]:m[5]])
		}
		compact.WriteString(in[m[2]:m[3]])
		compact.WriteString(unit)
		last = m[1]
	}
	if compact.Len() == 0 || !phraseGlue.MatchString(in[last:]) {
		return 0, fmt.Errorf("invalid duration %q", phrase)
	}
	d, err := str2duration.ParseDuration(compact.String())
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", phrase, err)
	}
	return int64(d / time.Second), nil
}
