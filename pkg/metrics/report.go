package metrics

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Stat summarises the samples of one timer.
type Stat struct {
	Name   string
	Count  int
	Total  time.Duration
	Mean   time.Duration
	StdDev time.Duration
	Median time.Duration
}

// Depth is the number of separators in the name.
func (s Stat) Depth() int { return strings.Count(s.Name, Separator) }

// Leaf is the last name segment.
func (s Stat) Leaf() string {
	parts := strings.Split(s.Name, Separator)
	return parts[len(parts)-1]
}

// Stats returns statistics for every timer, ordered so that each name
// follows its parent.
func (t *Timer) Stats() []Stat {
	var out []Stat
	for _, name := range t.Names() {
		samples := t.Samples(name)
		xs := make([]float64, len(samples))
		var total time.Duration
		for i, d := range samples {
			xs[i] = float64(d)
			total += d
		}
		st := Stat{Name: name, Count: len(samples), Total: total}
		if len(xs) > 0 {
			mean, std := stat.MeanStdDev(xs, nil)
			st.Mean = time.Duration(mean)
			if len(xs) > 1 {
				st.StdDev = time.Duration(std)
			}
			sorted := append([]float64(nil), xs...)
			sort.Float64s(sorted)
			st.Median = time.Duration(stat.Quantile(0.5, stat.Empirical, sorted, nil))
		}
		out = append(out, st)
	}
	return out
}

// WriteReport writes the timing tree as an aligned table.
func (t *Timer) WriteReport(w io.Writer) error {
	stats := t.Stats()
	if len(stats) == 0 {
		_, err := fmt.Fprintln(w, "Times: nothing recorded")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Times\tcount\ttotal\tmean\tstddev\tmedian\t")
	for _, s := range stats {
		name := strings.Repeat("  ", s.Depth()) + s.Leaf()
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\t\n",
			name, s.Count, round(s.Total), round(s.Mean), round(s.StdDev), round(s.Median))
	}
	return tw.Flush()
}

func round(d time.Duration) time.Duration {
	switch {
	case d >= time.Second:
		return d.Round(time.Millisecond)
	case d >= time.Millisecond:
		return d.Round(10 * time.Microsecond)
	default:
		return d
	}
}
