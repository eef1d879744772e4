package model

// MaxLabels is the number of distinct two-letter labels.
const MaxLabels = 26 * 26

// LabelGenerator yields the vertex labels AA, AB, ..., AZ, BA, ..., ZZ in
// strictly increasing order and is exhausted afterwards.
type LabelGenerator struct {
	next int
}

// NewLabelGenerator returns a generator positioned at "AA".
func NewLabelGenerator() *LabelGenerator {
	return &LabelGenerator{}
}

// Next returns the next label. The second result is false once all
// MaxLabels labels have been produced.
func (g *LabelGenerator) Next() (string, bool) {
	if g.next >= MaxLabels {
		return "", false
	}
	n := g.next
	g.next++
	return string([]byte{byte('A' + n/26), byte('A' + n%26)}), true
}

// Labels returns the first n labels, or fewer if the label space runs out.
func Labels(n int) []string {
	g := NewLabelGenerator()
	out := make([]string, 0, n)
	for len(out) < n {
		l, ok := g.Next()
		if !ok {
			break
		}
		out = append(out, l)
	}
	return out
}
