package chol

import (
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
	"github.com/pkg/errors"
)

//attemptDescription returns the label of an attempt node.
func attemptDescription(a Attempt) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintln("attempt", a.Index))
	if a.Index == 0 {
		sb.WriteString(fmt.Sprintln("no jitter"))
	} else {
		sb.WriteString(fmt.Sprintf("jitter %.3g\n", a.Jitter))
	}
	sb.WriteString(a.Outcome.String())
	return sb.String()
}

//DrawTrace builds a chain graph of a retry trace: one node per attempt in the order they ran.
//The caller closes the graph and the graphviz context.
func DrawTrace(attempts []Attempt) (*graphviz.Graphviz, *cgraph.Graph, error) {
	graphViz := graphviz.New()
	graph, err := graphViz.Graph()
	if err != nil {
		_ = graphViz.Close()
		return nil, nil, err
	}
	fail := func(err error) (*graphviz.Graphviz, *cgraph.Graph, error) {
		_ = graph.Close()
		_ = graphViz.Close()
		return nil, nil, err
	}

	var previous *cgraph.Node
	for _, attempt := range attempts {
		node, err := graph.CreateNode(fmt.Sprintf("attempt_%d", attempt.Index))
		if err != nil {
			return fail(err)
		}
		node.SetLabel(attemptDescription(attempt))
		switch attempt.Outcome {
		case Success:
			node.SetShape(cgraph.BoxShape)
		case Failed:
			node.SetShape(cgraph.OctagonShape)
		}
		if previous != nil {
			if _, err := graph.CreateEdge("", previous, node); err != nil {
				return fail(err)
			}
		}
		previous = node
	}

	return graphViz, graph, nil
}

//RenderTrace draws a retry trace in the given format ("dot", "svg", "png" or "jpg").
func RenderTrace(attempts []Attempt, figureType string, w io.Writer) error {
	format, ok := map[string]graphviz.Format{
		"dot": graphviz.XDOT,
		"png": graphviz.PNG,
		"svg": graphviz.SVG,
		"jpg": graphviz.JPG,
	}[figureType]
	if !ok {
		return errors.Errorf("unsupported figure type %q", figureType)
	}

	graphViz, graph, err := DrawTrace(attempts)
	if err != nil {
		return err
	}
	defer func() {
		_ = graph.Close()
		_ = graphViz.Close()
	}()

	return graphViz.Render(graph, format, w)
}
