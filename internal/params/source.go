package params

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// SourceReader reads zero or more named values from one origin.
type SourceReader interface {
	Name() string
	Read(ctx context.Context) (map[Name]string, error)
}

// DefaultEnvKeys maps each parameter to the environment variable it is read
// from.
var DefaultEnvKeys = map[Name]string{
	Token:    "IBMQ_TOKEN",
	Instance: "IBMQ_INSTANCE",
	Backend:  "IBMQ_BACKEND",
}

// MapSource serves values supplied directly by the caller, typically parsed
// command-line flags.
type MapSource struct {
	Label  string
	Values map[Name]string
}

func (m MapSource) Name() string { return m.Label }

func (m MapSource) Read(_ context.Context) (map[Name]string, error) {
	out := make(map[Name]string, len(m.Values))
	for k, v := range m.Values {
		out[k] = v
	}
	return out, nil
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// EnvSource reads parameters from environment variables.
type EnvSource struct {
	Lookup LookupFunc
	Keys   map[Name]string
}

// NewEnvSource returns an EnvSource over the process environment.
func NewEnvSource() EnvSource {
	return EnvSource{Lookup: os.LookupEnv, Keys: DefaultEnvKeys}
}

func (e EnvSource) Name() string { return "env" }

func (e EnvSource) Read(_ context.Context) (map[Name]string, error) {
	lookup := e.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	keys := e.Keys
	if keys == nil {
		keys = DefaultEnvKeys
	}

	out := make(map[Name]string, len(keys))
	for name, key := range keys {
		if v, ok := lookup(key); ok {
			out[name] = v
		}
	}
	return out, nil
}

// DotenvSource reads parameters from a dotenv file without touching the
// process environment. A missing file yields no values.
type DotenvSource struct {
	Path string
	Keys map[Name]string
}

func (d DotenvSource) Name() string { return "dotenv:" + d.Path }

func (d DotenvSource) Read(_ context.Context) (map[Name]string, error) {
	if d.Path == "" {
		return nil, nil
	}
	env, err := godotenv.Read(d.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read dotenv file %s: %w", d.Path, err)
	}
	keys := d.Keys
	if keys == nil {
		keys = DefaultEnvKeys
	}

	out := make(map[Name]string, len(keys))
	for name, key := range keys {
		if v, ok := env[key]; ok {
			out[name] = v
		}
	}
	return out, nil
}

// KeyFileSource reads the token from a file. Unlike the config file, a key
// file that was asked for must exist.
type KeyFileSource struct {
	Path string
}

func (k KeyFileSource) Name() string { return "keyfile" }

func (k KeyFileSource) Read(_ context.Context) (map[Name]string, error) {
	if k.Path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(k.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("key file %q not found", k.Path)
		}
		return nil, fmt.Errorf("failed to read key file %q: %w", k.Path, err)
	}
	return map[Name]string{Token: strings.TrimSpace(string(data))}, nil
}

// fileConfig is the on-disk shape of a parameter config file.
type fileConfig struct {
	Token    string `yaml:"token"`
	Instance string `yaml:"instance"`
	Backend  string `yaml:"backend"`
}

// FileSource reads parameters from a YAML config file. A missing path or
// file yields no values.
type FileSource struct {
	Path string
}

func (f FileSource) Name() string { return "config:" + f.Path }

func (f FileSource) Read(_ context.Context) (map[Name]string, error) {
	if f.Path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", f.Path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", f.Path, err)
	}
	return map[Name]string{
		Token:    fc.Token,
		Instance: fc.Instance,
		Backend:  fc.Backend,
	}, nil
}

// Layered merges several readers into one logical source. Layers are listed
// highest priority first; the first layer with a non-blank value wins.
type Layered struct {
	Label  string
	Layers []SourceReader
}

func (l Layered) Name() string { return l.Label }

func (l Layered) Read(ctx context.Context) (map[Name]string, error) {
	out := make(map[Name]string)
	for _, layer := range l.Layers {
		if layer == nil {
			continue
		}
		values, err := layer.Read(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", layer.Name(), err)
		}
		for name, v := range values {
			if strings.TrimSpace(out[name]) != "" {
				continue
			}
			out[name] = v
		}
	}
	return out, nil
}
