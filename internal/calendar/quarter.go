package calendar

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Quarter is one of the four billing quarters. Each runs from the 5th of its
// first month to the 4th of the month three months later.
type Quarter int

const (
	Q1 Quarter = iota + 1
	Q2
	Q3
	Q4
)

var quarterLabels = map[Quarter]string{
	Q1: "JFM",
	Q2: "AMJ",
	Q3: "JAS",
	Q4: "OND",
}

var quarterStartMonths = map[Quarter]time.Month{
	Q1: time.January,
	Q2: time.April,
	Q3: time.July,
	Q4: time.October,
}

// All lists the quarters in the order they occur within a display year.
var All = [4]Quarter{Q1, Q2, Q3, Q4}

const quarterStartDay = 5

func (q Quarter) Valid() bool {
	return q >= Q1 && q <= Q4
}

func (q Quarter) Label() string {
	if label, ok := quarterLabels[q]; ok {
		return label
	}
	return "Q" + strconv.Itoa(int(q))
}

func (q Quarter) String() string {
	return q.Label()
}

// ParseQuarter accepts the month labels (JFM, AMJ, JAS, OND) as well as Q1..Q4.
func ParseQuarter(value string) (Quarter, error) {
	v := strings.ToUpper(strings.TrimSpace(value))
	for q, label := range quarterLabels {
		if v == label {
			return q, nil
		}
	}
	if len(v) == 2 && v[0] == 'Q' && v[1] >= '1' && v[1] <= '4' {
		return Quarter(v[1] - '0'), nil
	}
	return 0, fmt.Errorf("unknown quarter %q", value)
}

// Range returns the inclusive dates of quarter q whose start falls in year.
func Range(q Quarter, year int) Period {
	month := quarterStartMonths[q]
	start := Date(year, month, quarterStartDay)
	end := Date(year, month+3, quarterStartDay-1)
	return Period{Start: start, End: end}
}

// Quarters returns the four quarter ranges labelled with the given display year.
func Quarters(year int) [4]Period {
	var out [4]Period
	for i, q := range All {
		out[i] = Range(q, year)
	}
	return out
}

// QuarterOf returns the quarter occurrence containing t.
func QuarterOf(t time.Time) Key {
	d := DateOnly(t)
	for _, year := range []int{d.Year() - 1, d.Year()} {
		for _, q := range All {
			if Range(q, year).Contains(d) {
				return Key{Quarter: q, Year: year}
			}
		}
	}
	return Key{}
}

// Key identifies one quarter occurrence by its label and display year.
type Key struct {
	Quarter Quarter
	Year    int
}

func (k Key) Range() Period {
	return Range(k.Quarter, k.Year)
}

func (k Key) Less(other Key) bool {
	if k.Year != other.Year {
		return k.Year < other.Year
	}
	return k.Quarter < other.Quarter
}

// String renders the key as LABEL-YEAR, e.g. JFM-2023.
func (k Key) String() string {
	return k.Quarter.Label() + "-" + strconv.Itoa(k.Year)
}

func ParseKey(value string) (Key, error) {
	label, year, ok := strings.Cut(strings.TrimSpace(value), "-")
	if !ok {
		return Key{}, fmt.Errorf("invalid quarter key %q", value)
	}
	q, err := ParseQuarter(label)
	if err != nil {
		return Key{}, fmt.Errorf("invalid quarter key %q: %w", value, err)
	}
	y, err := strconv.Atoi(year)
	if err != nil || y < 1 {
		return Key{}, fmt.Errorf("invalid quarter key %q: bad year", value)
	}
	return Key{Quarter: q, Year: y}, nil
}
