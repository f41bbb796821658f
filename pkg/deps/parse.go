package deps

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/matzehuels/depflow/pkg/errors"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// declared is implemented by every variant the parser can construct.
type declared interface {
	Dependency
	validate() error
}

// variant pairs a schema with the constructor of the type it describes.
type variant struct {
	kind   Kind
	schema string
	build  func() declared
}

// variants in parse priority order. The first one whose schema accepts the
// declaration and whose constructor validates wins.
var variants = []variant{
	{KindPackageVersionID, "package_version_id.json", func() declared { return &PackageVersionIDDependency{} }},
	{KindPackageVersion, "package_version.json", func() declared { return &PackageNamespaceVersionDependency{} }},
	{KindUnmanagedRef, "unmanaged_ref.json", func() declared { return &UnmanagedVcsRefDependency{} }},
	{KindUnmanagedZip, "unmanaged_zip.json", func() declared { return &UnmanagedZipURLDependency{} }},
	{KindUnmanagedFlow, "unmanaged_flow.json", func() declared { return &UnmanagedVcsDependencyFlow{} }},
	{KindVcsDynamic, "vcs_dynamic.json", func() declared { return &VcsDynamicDependency{} }},
	{KindVcsDynamicSubfolder, "vcs_dynamic_subfolder.json", func() declared { return &VcsDynamicSubfolderDependency{} }},
}

var (
	schemas     map[string]*jsonschema.Schema
	compileOnce sync.Once
	compileErr  error
	printer     = message.NewPrinter(language.English)
)

func getSchemas() (map[string]*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		c := jsonschema.NewCompiler()
		for _, v := range variants {
			data, err := schemaFS.ReadFile("schemas/" + v.schema)
			if err != nil {
				compileErr = fmt.Errorf("reading schema %s: %w", v.schema, err)
				return
			}
			doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
			if err != nil {
				compileErr = fmt.Errorf("unmarshaling schema %s: %w", v.schema, err)
				return
			}
			if err := c.AddResource(v.schema, doc); err != nil {
				compileErr = fmt.Errorf("adding schema resource %s: %w", v.schema, err)
				return
			}
		}
		compiled := make(map[string]*jsonschema.Schema, len(variants))
		for _, v := range variants {
			s, err := c.Compile(v.schema)
			if err != nil {
				compileErr = fmt.Errorf("compiling schema %s: %w", v.schema, err)
				return
			}
			compiled[v.schema] = s
		}
		schemas = compiled
	})
	return schemas, compileErr
}

// ParseDependency converts a loosely typed declaration into exactly one
// dependency variant. Declarations matching no variant fail with a
// validation error listing why each variant rejected it.
func ParseDependency(decl map[string]any) (Dependency, error) {
	compiled, err := getSchemas()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "loading dependency schemas")
	}

	norm, err := normalize(decl)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(norm)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidDependency, err, "encoding dependency declaration")
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidDependency, err, "decoding dependency declaration")
	}

	var reasons []string
	for _, v := range variants {
		if err := compiled[v.schema].Validate(inst); err != nil {
			reasons = append(reasons, fmt.Sprintf("%s: %s", v.kind, schemaReason(err)))
			continue
		}
		dep := v.build()
		if err := json.Unmarshal(data, dep); err != nil {
			reasons = append(reasons, fmt.Sprintf("%s: %v", v.kind, err))
			continue
		}
		if err := dep.validate(); err != nil {
			reasons = append(reasons, fmt.Sprintf("%s: %s", v.kind, errors.UserMessage(err)))
			continue
		}
		return dep, nil
	}
	return nil, errors.Validation("dependency %s matches no known form (%s)", describe(decl), strings.Join(reasons, "; "))
}

// ParseDependencies parses a list of declarations, failing on the first
// invalid one.
func ParseDependencies(decls []map[string]any) ([]Dependency, error) {
	out := make([]Dependency, 0, len(decls))
	for i, decl := range decls {
		dep, err := ParseDependency(decl)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidDependency, err, "dependency %d", i+1)
		}
		out = append(out, dep)
	}
	return out, nil
}

func schemaReason(err error) string {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return err.Error()
	}
	var msgs []string
	var walk func(*jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) > 0 {
			for _, c := range e.Causes {
				walk(c)
			}
			return
		}
		if e.ErrorKind == nil {
			return
		}
		msg := e.ErrorKind.LocalizedString(printer)
		if len(e.InstanceLocation) > 0 {
			msg = strings.Join(e.InstanceLocation, "/") + ": " + msg
		}
		msgs = append(msgs, msg)
	}
	walk(ve)
	if len(msgs) == 0 {
		return ve.Error()
	}
	return strings.Join(msgs, ", ")
}

func describe(decl map[string]any) string {
	data, err := json.Marshal(decl)
	if err != nil {
		return fmt.Sprintf("%v", decl)
	}
	return string(data)
}
