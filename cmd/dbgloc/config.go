package main

import (
	"bytes"
	"flag"
	"io"

	"github.com/grafana/dskit/flagext"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/grafana/dbgloc/pkg/dbgloc"
	"github.com/grafana/dbgloc/pkg/linetable"
)

type config struct {
	LineTable linetable.Config `yaml:"linetable"`
	DbgLoc    dbgloc.Config    `yaml:"dbgloc"`
}

func (c *config) RegisterFlags(f *flag.FlagSet) {
	c.LineTable.RegisterFlags(f)
	c.DbgLoc.RegisterFlags(f)
}

func (c *config) Validate() error {
	if err := c.LineTable.Validate(); err != nil {
		return err
	}
	return c.DbgLoc.Validate()
}

// loadConfig returns the flag defaults overridden by the YAML file at path,
// if any.
func loadConfig(fs afero.Fs, path string) (*config, error) {
	var c config
	flagext.DefaultValues(&c)
	if path != "" {
		data, err := afero.ReadFile(fs, path)
		if err != nil {
			return nil, errors.Wrapf(err, "reading config %s", path)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&c); err != nil && err != io.EOF {
			return nil, errors.Wrapf(err, "parsing config %s", path)
		}
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}
