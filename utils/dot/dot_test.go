package dot

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteDot(t *testing.T) {
	a := &DotNode{ID: "a", Attrs: DotAttrs{"shape": "box", "label": "A"}}
	b := &DotNode{ID: "b"}
	G := &DotGraph{
		Title:    "f",
		Minlen:   2,
		Nodesep:  0.35,
		Clusters: []*DotCluster{{ID: "0", Attrs: DotAttrs{"label": "Block 0"}, Nodes: []*DotNode{a}}},
		Nodes:    []*DotNode{b},
		Edges:    []*DotEdge{{From: a, To: b, Attrs: DotAttrs{"label": "THEN"}}},
	}

	var buf strings.Builder
	require.NoError(t, G.WriteDot(&buf))
	out := buf.String()

	for _, expected := range []string{
		`subgraph "cluster_0" {`,
		`label="Block 0";`,
		`"a" [ label="A"; shape="box"; ]`,
		`"b" [  ]`,
		`"a" -> "b" [ label="THEN"; ]`,
		`rankdir="LR";`,
		`nodesep="0.35";`,
		`edge [minlen=2];`,
	} {
		assert.Contains(t, out, expected)
	}
	assert.True(t, strings.HasSuffix(out, "}\n"))
}

func TestDotAttrsSorted(t *testing.T) {
	attrs := DotAttrs{"style": "dashed", "color": "red", "label": `say "hi"`}
	assert.Equal(t, `color="red"; label="say \"hi\""; style="dashed";`, attrs.String())
	assert.Equal(t, "", DotAttrs{}.String())
}
