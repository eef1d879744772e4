package model_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/chazu/threedframe/pkg/model"
	"github.com/chazu/threedframe/pkg/model/modeltest"
	"gonum.org/v1/gonum/spatial/r3"
)

const sampleJSON = `{
  "num_vertices": 3,
  "num_edges": 2,
  "vertices": {
    "0": {"vidx": 0, "point": [0, 0, 0], "point_normal": [0, 0, 1], "edges": [
      {"eidx": 0, "length": 300, "joint_vidx": 0, "target_vidx": 1, "vector_ingress": [11.8, 0, 0]},
      {"eidx": 1, "length": 300, "joint_vidx": 0, "target_vidx": 2, "vector_ingress": [0, 11.8, 0]}
    ]},
    "1": {"vidx": 1, "point": [11.8, 0, 0], "point_normal": [1, 0, 0], "edges": [
      {"eidx": 0, "length": 300, "joint_vidx": 1, "target_vidx": 0, "vector_ingress": [-11.8, 0, 0]}
    ]},
    "2": {"vidx": 2, "point": [0, 11.8, 0], "point_normal": [0, 1, 0], "edges": [
      {"eidx": 1, "length": 300, "joint_vidx": 2, "target_vidx": 0, "vector_ingress": [0, -11.8, 0]}
    ]}
  }
}`

func TestDecodeAssignsLabels(t *testing.T) {
	m, err := model.Decode(strings.NewReader(sampleJSON))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := map[int]string{0: "AA", 1: "AB", 2: "AC"}
	for vidx, label := range want {
		if got := m.Vertices[vidx].Label; got != label {
			t.Errorf("vertex %d label = %q, want %q", vidx, got, label)
		}
	}
	if got := m.Vertices[0].Edges[0].LengthIn(); got < 11.81 || got > 11.82 {
		t.Errorf("LengthIn() = %f", got)
	}
}

func TestDecodeKeepsExplicitLabels(t *testing.T) {
	in := strings.Replace(sampleJSON, `"vidx": 0,`, `"vidx": 0, "label": "ab",`, 1)
	m, err := model.Decode(strings.NewReader(in))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if m.Vertices[0].Label != "AB" {
		t.Errorf("vertex 0 label = %q, want AB", m.Vertices[0].Label)
	}
	// Generated labels skip the one already taken.
	if m.Vertices[1].Label != "AA" || m.Vertices[2].Label != "AC" {
		t.Errorf("labels = %q, %q", m.Vertices[1].Label, m.Vertices[2].Label)
	}
}

func TestVidxByLabel(t *testing.T) {
	m := modeltest.Star(300, r3.Vec{X: 1}, r3.Vec{Y: 1})

	tests := []struct {
		label  string
		want   int
		wantOK bool
	}{
		{"AA", 0, true},
		{"aa", 0, true},
		{" ab ", 1, true},
		{"ZZ", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, ok := m.VidxByLabel(tt.label)
			if ok != tt.wantOK {
				t.Fatalf("VidxByLabel(%q) ok = %v, want %v", tt.label, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("VidxByLabel(%q) = %d, want %d", tt.label, got, tt.want)
			}
		})
	}
}

func TestLabelGeneratorUnique(t *testing.T) {
	g := model.NewLabelGenerator()
	seen := make(map[string]bool)
	prev := ""
	count := 0
	for {
		l, ok := g.Next()
		if !ok {
			break
		}
		if len(l) != 2 || l[0] < 'A' || l[0] > 'Z' || l[1] < 'A' || l[1] > 'Z' {
			t.Fatalf("label %q is not two uppercase letters", l)
		}
		if seen[l] {
			t.Fatalf("label %q repeated", l)
		}
		if l <= prev {
			t.Fatalf("label %q does not follow %q", l, prev)
		}
		seen[l] = true
		prev = l
		count++
	}
	if count != model.MaxLabels {
		t.Errorf("generated %d labels, want %d", count, model.MaxLabels)
	}
	if _, ok := g.Next(); ok {
		t.Error("generator restarted after exhaustion")
	}

	first := model.Labels(28)
	if first[0] != "AA" || first[1] != "AB" || first[25] != "AZ" || first[26] != "BA" {
		t.Errorf("unexpected label order: %v", first)
	}
}

func TestResolveEdgeRelationsIdempotent(t *testing.T) {
	m := modeltest.Star(300, r3.Vec{X: 1}, r3.Vec{Y: 1}, r3.Vec{Z: 1})
	verts := m.SortedVertices()

	if err := model.ResolveEdgeRelations(m, verts); err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	type ref struct{ joint, target *model.ModelVertex }
	snapshot := map[*model.ModelEdge]ref{}
	for _, v := range verts {
		for _, e := range v.Edges {
			if !e.Resolved() {
				t.Fatalf("edge %v not resolved", e)
			}
			if e.JointVertex != v {
				t.Errorf("edge %v joint vertex = %v, want %v", e, e.JointVertex, v)
			}
			snapshot[e] = ref{e.JointVertex, e.TargetVertex}
		}
	}

	if err := model.ResolveEdgeRelations(m, verts); err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	for e, r := range snapshot {
		if e.JointVertex != r.joint || e.TargetVertex != r.target {
			t.Errorf("edge %v references changed on second resolve", e)
		}
	}
}

func TestResolveEdgeRelationsMissingTarget(t *testing.T) {
	m := modeltest.Star(300, r3.Vec{X: 1})
	m.Vertices[0].Edges[0].TargetVidx = 42
	err := model.ResolveEdgeRelations(m, []*model.ModelVertex{m.Vertices[0]})
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestParseVertexSelection(t *testing.T) {
	m := modeltest.Star(300, r3.Vec{X: 1}, r3.Vec{Y: 1}, r3.Vec{Z: 1}, r3.Vec{X: -1})

	tests := []struct {
		name    string
		specs   []string
		want    []int
		wantErr bool
	}{
		{"all", nil, []int{0, 1, 2, 3, 4}, false},
		{"labels", []string{"ab", "AA"}, []int{1, 0}, false},
		{"range", []string{"1-3"}, []int{1, 2, 3}, false},
		{"comma and dedupe", []string{"2,AC,4"}, []int{2, 4}, false},
		{"unknown label", []string{"QQ"}, nil, true},
		{"out of range", []string{"3-9"}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := model.ParseVertexSelection(m, tt.specs)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d vertices, want %d", len(got), len(tt.want))
			}
			for i, v := range got {
				if v.Vidx != tt.want[i] {
					t.Errorf("vertex %d = %d, want %d", i, v.Vidx, tt.want[i])
				}
			}
		})
	}
}

func TestValidate(t *testing.T) {
	m := modeltest.Star(300, r3.Vec{X: 1}, r3.Vec{Y: 1})
	if errs := model.Validate(m); len(errs) != 0 {
		t.Fatalf("valid model reported %v", errs)
	}

	m.Vertices[0].Edges[0].TargetVidx = 99
	m.Vertices[0].Edges[1].Length = 0
	m.NumVertices = 7
	errs := model.Validate(m)
	if !model.HasErrors(errs) {
		t.Fatalf("expected blocking errors, got %v", errs)
	}
	var warnings, blocking int
	for _, e := range errs {
		switch e.Severity {
		case model.SeverityWarning:
			warnings++
		case model.SeverityError:
			blocking++
		}
	}
	if warnings != 1 || blocking != 2 {
		t.Errorf("got %d warnings and %d errors: %v", warnings, blocking, errs)
	}
}

func TestEncodeDecodeTetrahedron(t *testing.T) {
	m := modeltest.Tetrahedron(500)
	if len(m.Vertices) != 4 {
		t.Fatalf("got %d vertices", len(m.Vertices))
	}
	for _, v := range m.SortedVertices() {
		if n := len(v.JointEdges()); n != 3 {
			t.Errorf("vertex %s has %d joint edges, want 3", v.Label, n)
		}
		for _, e := range v.Edges {
			if e.Length < 499.9 || e.Length > 500.1 {
				t.Errorf("edge %v length %f, want 500", e, e.Length)
			}
		}
	}
}
