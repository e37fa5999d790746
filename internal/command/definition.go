package command

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ArgType is the declared type of a command argument.
type ArgType int

const (
	String ArgType = iota
	Int
	Float
	Bool
)

func (t ArgType) String() string {
	switch t {
	case String:
		return "string"
	case Int:
		return "int"
	case Float:
		return "float"
	case Bool:
		return "bool"
	default:
		return fmt.Sprintf("argtype(%d)", int(t))
	}
}

// ParseArgType maps a type name to an ArgType.
func ParseArgType(s string) (ArgType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "string", "str", "":
		return String, nil
	case "int", "integer":
		return Int, nil
	case "float", "number":
		return Float, nil
	case "bool", "boolean":
		return Bool, nil
	default:
		return 0, fmt.Errorf("unknown argument type %q", s)
	}
}

func (t *ArgType) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseArgType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t ArgType) convert(s string) (any, error) {
	var (
		v   any
		err error
	)
	switch t {
	case Int:
		v, err = strconv.Atoi(s)
	case Float:
		v, err = strconv.ParseFloat(s, 64)
	case Bool:
		v, err = strconv.ParseBool(s)
	default:
		v = s
	}
	return v, err
}

// Arg is one declared argument.
type Arg struct {
	Name string  `yaml:"name"`
	Type ArgType `yaml:"type"`
}

// Capability is what the grammar needs from a command: its identity, how
// many fields it yields and how to turn the argument text into them.
type Capability interface {
	Name() string
	Arity() int
	ParseArgs(args string) ([]any, error)
}

// Definition is the declarative Capability used by command tables.
//
// With Rest set the whole remaining line is one argument. Otherwise the
// line is split on Separator (whitespace when empty) and must yield exactly
// len(Args) tokens.
type Definition struct {
	Identity    string `yaml:"name"`
	Description string `yaml:"description"`
	Args        []Arg  `yaml:"args"`
	Rest        bool   `yaml:"rest"`
	Separator   string `yaml:"separator"`
}

func (d Definition) Name() string { return d.Identity }

func (d Definition) Arity() int {
	if d.Rest && len(d.Args) == 0 {
		return 1
	}
	return len(d.Args)
}

// Validate checks the definition is usable.
func (d Definition) Validate() error {
	if d.Identity == "" {
		return errors.New("command without name")
	}
	if strings.ContainsAny(d.Identity, " \t\n@") {
		return fmt.Errorf("command %q: name must not contain whitespace or '@'", d.Identity)
	}
	if d.Rest && len(d.Args) > 1 {
		return fmt.Errorf("command %q: rest-of-line commands take a single argument", d.Identity)
	}
	return nil
}

func (d Definition) ParseArgs(args string) ([]any, error) {
	if d.Rest {
		arg := Arg{Name: "text", Type: String}
		if len(d.Args) == 1 {
			arg = d.Args[0]
		}
		v, err := d.convert(arg, strings.TrimSpace(args))
		if err != nil {
			return nil, err
		}
		return []any{v}, nil
	}

	tokens := d.split(args)
	if len(tokens) != len(d.Args) {
		return nil, &ArityError{Command: d.Identity, Want: len(d.Args), Got: len(tokens)}
	}

	out := make([]any, len(tokens))
	for i, tok := range tokens {
		v, err := d.convert(d.Args[i], tok)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (d Definition) split(args string) []string {
	if d.Separator == "" {
		return strings.Fields(args)
	}
	args = strings.TrimSpace(args)
	if args == "" {
		return nil
	}
	parts := strings.Split(args, d.Separator)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func (d Definition) convert(arg Arg, s string) (any, error) {
	v, err := arg.Type.convert(s)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) {
			err = numErr.Err
		}
		return nil, &ConversionError{Command: d.Identity, Arg: arg.Name, Type: arg.Type, Value: s, Err: err}
	}
	return v, nil
}

func (d Definition) usage(prefix string) string {
	var b strings.Builder
	b.WriteString(prefix)
	b.WriteString(d.Identity)
	for _, a := range d.Args {
		b.WriteString(" <")
		b.WriteString(a.Name)
		b.WriteString(">")
	}
	if d.Rest && len(d.Args) == 0 {
		b.WriteString(" <text>")
	}
	return b.String()
}
