// Package config is the configuration file shared by the command line tools.
package config

import "studytools/lib/configutil"

// FileName is looked up in the working directory and its parents.
const FileName = "studytools.json5"

type Ecoledirecte struct {
	BaseUrl    string `json:"base_url"`
	Identifier string `json:"identifiant"`
}

type Average struct {
	Over float64 `json:"over"`
	// nil when unset, 0 is a valid precision
	Precision *int `json:"precision"`
}

type Ytdl struct {
	OutputDir string `json:"output_dir"`
}

type Config struct {
	Ecoledirecte    Ecoledirecte `json:"ecoledirecte"`
	Average         Average      `json:"average"`
	SnapshotDb      string       `json:"snapshot_db"`
	SnapshotDbToken string       `json:"snapshot_db_token"`
	Ytdl            Ytdl         `json:"ytdl"`
}

// Load reads the nearest configuration file, a missing file is an empty
// configuration.
func Load() (Config, error) {
	return configutil.ReadOptional[Config](FileName)
}

// First returns the first non empty value, flags come before the configuration.
func First(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
