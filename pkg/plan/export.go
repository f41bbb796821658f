package plan

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/BurntSushi/toml"
	"go.yaml.in/yaml/v3"

	"github.com/matzehuels/depflow/pkg/deps"
	"github.com/matzehuels/depflow/pkg/errors"
)

// Format is an output encoding for plans.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatDOT  Format = "dot"
	FormatSVG  Format = "svg"
)

// Formats lists every supported format.
var Formats = []Format{FormatText, FormatJSON, FormatYAML, FormatTOML, FormatDOT, FormatSVG}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", errors.New(errors.ErrCodeInvalidInput, "unknown format %q", s)
}

// Write encodes p to w in format f.
func Write(p *Plan, f Format, w io.Writer) error {
	switch f {
	case FormatText, "":
		return WriteText(p, w)
	case FormatJSON:
		return WriteJSON(p, w)
	case FormatYAML:
		return WriteYAML(p, w)
	case FormatTOML:
		return WriteTOML(p, w)
	case FormatDOT:
		_, err := io.WriteString(w, ToDOT(p))
		return err
	case FormatSVG:
		svg, err := RenderSVG(ToDOT(p))
		if err != nil {
			return err
		}
		_, err = w.Write(svg)
		return err
	}
	return errors.New(errors.ErrCodeInvalidInput, "unknown format %q", f)
}

// WriteText writes one line per step.
func WriteText(p *Plan, w io.Writer) error {
	header := fmt.Sprintf("Plan %s", p.ID)
	if p.Strategy != "" {
		header += " (" + p.Strategy + ")"
	}
	if p.Target != "" {
		header += " for " + p.Target
	}
	if _, err := fmt.Fprintln(w, header); err != nil {
		return err
	}
	if len(p.Steps) == 0 {
		_, err := fmt.Fprintln(w, "  nothing to install")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, s := range p.Steps {
		detail := s.Description
		if s.Reason != "" {
			detail = s.Reason
		}
		fmt.Fprintf(tw, "  %d.\t%s\t%s\t%s\n", s.Index, s.Action, s.Name, detail)
	}
	return tw.Flush()
}

// WriteJSON encodes the plan as indented JSON. The output can be read back
// with [ReadJSON].
func WriteJSON(p *Plan, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

func WriteYAML(p *Plan, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return enc.Close()
}

func WriteTOML(p *Plan, w io.Writer) error {
	if err := toml.NewEncoder(w).Encode(p); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// Export writes p to a file at path in format f.
func Export(p *Plan, f Format, path string) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer out.Close()
	return Write(p, f, out)
}

// ReadJSON decodes a plan written by [WriteJSON]. Each step's dependency is
// parsed and validated again, so the plan can be executed.
func ReadJSON(r io.Reader) (*Plan, error) {
	var p Plan
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode plan")
	}
	for i := range p.Steps {
		s := &p.Steps[i]
		d, err := deps.ParseDependency(s.Dependency)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", s.Index, err)
		}
		static, ok := d.(deps.StaticDependency)
		if !ok {
			return nil, errors.Validation("step %d: %s is not installable", s.Index, d.Name())
		}
		s.dep = static
		s.Kind = static.Kind()
		if s.Action == "" {
			s.Action = ActionPending
		}
	}
	return &p, nil
}

// ImportJSON reads a plan from a JSON file.
func ImportJSON(path string) (*Plan, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadJSON(f)
}
