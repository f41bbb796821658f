package plan

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/goccy/go-graphviz"
)

var actionColors = map[Action]string{
	ActionInstall: "palegreen",
	ActionSkip:    "lightgrey",
	ActionDeploy:  "lightblue",
	ActionRunFlow: "khaki",
}

// ToDOT renders the plan as a Graphviz chain of steps, colored by action.
func ToDOT(p *Plan) string {
	var buf bytes.Buffer
	buf.WriteString("digraph plan {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.3;\n")
	buf.WriteString("\n")

	for _, s := range p.Steps {
		label := fmt.Sprintf("%d. %s\n%s", s.Index, s.Name, s.Action)
		attrs := fmt.Sprintf("label=%q", label)
		if c, ok := actionColors[s.Action]; ok {
			attrs += ", fillcolor=" + c
		}
		if s.Action == ActionSkip {
			attrs += ", style=\"rounded,filled,dashed\""
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", stepID(s), attrs)
	}

	buf.WriteString("\n")
	for i := 1; i < len(p.Steps); i++ {
		fmt.Fprintf(&buf, "  %q -> %q;\n", stepID(p.Steps[i-1]), stepID(p.Steps[i]))
	}
	buf.WriteString("}\n")
	return buf.String()
}

func stepID(s Step) string { return "step" + strconv.Itoa(s.Index) }

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(dot string) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces graphviz's point-sized svg header with one that
// scales from its viewBox.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}
	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}
	header := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(header))
}
