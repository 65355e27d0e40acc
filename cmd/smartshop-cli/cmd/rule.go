package cmd

import (
	"github.com/nfrund/smartshop/internal/pricing"
	"github.com/spf13/afero"
)

// cliFs is the filesystem pricing scripts are read from.
var cliFs afero.Fs = afero.NewOsFs()

// loadRule returns the script at path, or the demand rule when path is empty.
func loadRule(path string) (pricing.Rule, error) {
	if path == "" {
		return pricing.DemandRule{}, nil
	}
	return pricing.LoadScript(cliFs, path)
}
