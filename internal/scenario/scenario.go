// Package scenario replays builder operations from declarative scripts.
//
// A script is a list of steps, each naming the builder operation to run and
// binding its result. Scripts are written in YAML or CUE; both decode into
// the same Scenario value:
//
//	name: reroot
//	description: computed column evaluated on filtered jets
//	steps:
//	  - {let: r, op: root}
//	  - {let: jets, op: field, of: r, name: jets}
//	  - {let: pt, op: field, of: jets, name: pt}
//	  - {let: ptgev, op: binary, of: pt, operator: "/", value: {lit: 1000}}
//	  - {op: set, of: jets, name: ptgev, value: {ref: ptgev}}
//	render: [ptgev]
//
// Build runs the steps against a frame.Graph; Result.Render flattens the
// requested bindings in one shared render context.
package scenario

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

// Scenario is a parsed build script.
type Scenario struct {
	// Name identifies the scenario and names its golden file.
	Name string `yaml:"name" json:"name"`

	// Description explains what the scenario builds.
	Description string `yaml:"description" json:"description"`

	// Steps run in order. Later steps refer to earlier bindings by name.
	Steps []Step `yaml:"steps" json:"steps"`

	// Render lists the bindings to flatten.
	Render []string `yaml:"render" json:"render"`

	// Expect optionally pins the dump of a rendered binding.
	Expect map[string][]string `yaml:"expect,omitempty" json:"expect,omitempty"`
}

// Step is one builder operation.
//
// Which fields apply depends on Op:
//
//	root                          new source
//	field   of, name              column lookup
//	binary  of, operator, value   arithmetic
//	compare of, operator, value   comparison (binds a predicate)
//	unary   of, operator          negation or inversion
//	call    of, args, kwargs      method call on a field
//	index   of, value             subscript
//	filter  of, value             restrict by predicate, view or function
//	set     of, name, value       define a computed column
//	and/or  operands              boolean combination (binds a predicate)
//	not     value                 logical negation (binds a predicate)
//	wrap    of                    pass-through view
//	lambda  name, body, result    one-parameter function over "self"
//	func    name, arity           backend function placeholder
//	apply   func, args, kwargs    call a backend function
//	alias   pattern, name, func   register an alias backed by a lambda
type Step struct {
	Let      string    `yaml:"let,omitempty" json:"let,omitempty"`
	Op       string    `yaml:"op" json:"op"`
	Of       string    `yaml:"of,omitempty" json:"of,omitempty"`
	Name     string    `yaml:"name,omitempty" json:"name,omitempty"`
	Operator string    `yaml:"operator,omitempty" json:"operator,omitempty"`
	Value    *Operand  `yaml:"value,omitempty" json:"value,omitempty"`
	Args     []Operand `yaml:"args,omitempty" json:"args,omitempty"`
	Kwargs   []Keyword `yaml:"kwargs,omitempty" json:"kwargs,omitempty"`
	Operands []Operand `yaml:"operands,omitempty" json:"operands,omitempty"`
	Func     string    `yaml:"func,omitempty" json:"func,omitempty"`
	Arity    int       `yaml:"arity,omitempty" json:"arity,omitempty"`
	Pattern  string    `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	Body     []Step    `yaml:"body,omitempty" json:"body,omitempty"`
	Result   string    `yaml:"result,omitempty" json:"result,omitempty"`
}

// Operand is a reference to a binding, a literal, or a tuple or list of
// operands. Exactly one field is set.
type Operand struct {
	Ref   string    `yaml:"ref,omitempty" json:"ref,omitempty"`
	Lit   any       `yaml:"lit,omitempty" json:"lit,omitempty"`
	Tuple []Operand `yaml:"tuple,omitempty" json:"tuple,omitempty"`
	List  []Operand `yaml:"list,omitempty" json:"list,omitempty"`
}

// Keyword is a named call argument. Keywords are a list so their order is
// preserved in both input formats.
type Keyword struct {
	Name  string  `yaml:"name" json:"name"`
	Value Operand `yaml:"value" json:"value"`
}

// Format is a script encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatCUE  Format = "cue"
)

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".cue":
		return FormatCUE, nil
	default:
		return "", fmt.Errorf("unknown script extension %q (want .yaml, .yml or .cue)", filepath.Ext(path))
	}
}

// Load reads and parses a script file.
func Load(path string) (*Scenario, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return parse(data, format, path)
}

// Parse decodes and validates a script.
func Parse(data []byte, format Format) (*Scenario, error) {
	return parse(data, format, "script."+string(format))
}

func parse(data []byte, format Format, filename string) (*Scenario, error) {
	var sc Scenario
	switch format {
	case FormatYAML:
		// Reject unknown fields so typos like "operater:" fail loudly.
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&sc); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	case FormatCUE:
		v := cuecontext.New().CompileBytes(data, cue.Filename(filename))
		if err := v.Err(); err != nil {
			return nil, fmt.Errorf("failed to compile CUE: %w", err)
		}
		if err := v.Validate(cue.Concrete(true)); err != nil {
			return nil, fmt.Errorf("CUE script is not concrete: %w", err)
		}
		if err := v.Decode(&sc); err != nil {
			return nil, fmt.Errorf("failed to decode CUE: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}

	if err := validate(&sc); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &sc, nil
}

var knownOps = map[string]bool{
	"root": true, "field": true, "binary": true, "compare": true, "unary": true,
	"call": true, "index": true, "filter": true, "set": true, "and": true,
	"or": true, "not": true, "wrap": true, "lambda": true, "func": true,
	"apply": true, "alias": true,
}

// validate checks the shape of a script. Whether references resolve is only
// known once the steps run.
func validate(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Render) == 0 {
		return fmt.Errorf("render list is required and must be non-empty")
	}
	if err := validateSteps("steps", s.Steps); err != nil {
		return err
	}
	for target := range s.Expect {
		if !slices.Contains(s.Render, target) {
			return fmt.Errorf("expect: %q is not a render target", target)
		}
	}
	return nil
}

func validateSteps(path string, steps []Step) error {
	for i, st := range steps {
		where := fmt.Sprintf("%s[%d]", path, i)
		if !knownOps[st.Op] {
			return fmt.Errorf("%s: unknown op %q", where, st.Op)
		}
		switch st.Op {
		case "set", "alias":
		default:
			if st.Let == "" {
				return fmt.Errorf("%s: %s needs a let binding", where, st.Op)
			}
		}
		switch st.Op {
		case "field", "binary", "compare", "unary", "call", "index", "filter", "set", "wrap":
			if st.Of == "" {
				return fmt.Errorf("%s: %s needs of", where, st.Op)
			}
		}
		switch st.Op {
		case "field", "set", "lambda", "func", "alias":
			if st.Name == "" {
				return fmt.Errorf("%s: %s needs name", where, st.Op)
			}
		case "binary", "compare", "unary":
			if st.Operator == "" {
				return fmt.Errorf("%s: %s needs operator", where, st.Op)
			}
		}
		switch st.Op {
		case "binary", "compare", "index", "filter", "set", "not":
			if st.Value == nil {
				return fmt.Errorf("%s: %s needs value", where, st.Op)
			}
		case "apply", "alias":
			if st.Func == "" {
				return fmt.Errorf("%s: %s needs func", where, st.Op)
			}
		case "lambda":
			if st.Result == "" {
				return fmt.Errorf("%s: lambda needs result", where)
			}
			if err := validateSteps(where+".body", st.Body); err != nil {
				return err
			}
		}
	}
	return nil
}
