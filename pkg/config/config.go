package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
)

// Load reads a JSON config file and returns it as a flat map of settings.
func Load(path string) (map[string]interface{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg map[string]interface{}
	if err := json.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyToFlags overrides flag defaults from config for any flag not
// explicitly set on the command line. Call this AFTER flag.Parse().
// Keys in the config can use either hyphens or underscores (e.g.
// "ack-interval" or "ack_interval" both match the -ack-interval flag).
// Duration-valued flags accept strings like "250ms" or "10s".
func ApplyToFlags(cfg map[string]interface{}) {
	explicit := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		explicit[f.Name] = true
	})

	flag.VisitAll(func(f *flag.Flag) {
		if explicit[f.Name] {
			return
		}
		val, ok := lookup(cfg, f.Name)
		if !ok {
			return
		}
		switch v := val.(type) {
		case string:
			f.Value.Set(v)
		case float64:
			// JSON numbers arrive as float64; render integers without the
			// trailing decimal so uint flags parse.
			if v == float64(int64(v)) {
				f.Value.Set(fmt.Sprintf("%d", int64(v)))
			} else {
				f.Value.Set(fmt.Sprintf("%v", v))
			}
		case bool:
			f.Value.Set(fmt.Sprintf("%v", v))
		}
	})
}

func lookup(cfg map[string]interface{}, name string) (interface{}, bool) {
	if v, ok := cfg[name]; ok {
		return v, true
	}
	v, ok := cfg[strings.ReplaceAll(name, "-", "_")]
	return v, ok
}
