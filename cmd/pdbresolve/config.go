package main

import (
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/grafana/pdbresolve/pkg/symbolizer"
)

type storeParams struct {
	storageDir string
}

func addStoreParams(cmd commander) *storeParams {
	params := new(storeParams)
	cmd.Flag("storage.dir", "Directory of the filesystem symbol store. Overrides storage_dir of the config file.").Default("").StringVar(&params.storageDir)
	return params
}

// loadConfig returns the symbolizer defaults, overridden by the config
// file and then by command line flags.
func loadConfig(path string, params *storeParams) (symbolizer.Config, error) {
	var c symbolizer.Config
	fs := flag.NewFlagSet("pdbresolve", flag.ContinueOnError)
	c.RegisterFlags(fs)

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return c, err
		}
		if err := yaml.Unmarshal(data, &c); err != nil {
			return c, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}
	if params != nil && params.storageDir != "" {
		c.StorageDir = params.storageDir
	}
	return c, c.Validate()
}
