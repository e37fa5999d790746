package command

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

type table struct {
	Commands []Definition `yaml:"commands"`
}

// LoadTable reads a YAML command table:
//
//	commands:
//	  - name: dice
//	    description: roll a die with the given number of sides
//	    args:
//	      - {name: sides, type: int}
//	  - name: echo
//	    rest: true
func LoadTable(r io.Reader) ([]Capability, error) {
	var t table
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode command table: %w", err)
	}

	caps := make([]Capability, 0, len(t.Commands))
	for _, d := range t.Commands {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		caps = append(caps, d)
	}
	return caps, nil
}

// LoadTableFile is LoadTable over a file.
func LoadTableFile(path string) ([]Capability, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open command table: %w", err)
	}
	defer f.Close()
	return LoadTable(f)
}
