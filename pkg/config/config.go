// Package config loads settings files. YAML and JSON files are supported, selected by extension, and
// ${VAR} or ${VAR:-default} references are replaced with environment variables before decoding.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported config format")
	ErrInvalid           = errors.New("invalid config")
)

// Validator is implemented by settings checking themselves once decoded.
type Validator interface {
	Validate() error
}

// Load decodes the file at path into out, then validates out when it implements Validator.
func Load(path string, out any) error {
	data, err := os.ReadFile(path) //nolint:gosec // path is given by the operator
	if err != nil {
		return errors.Wrapf(err, "unable to read config file %s", path)
	}

	return Decode(filepath.Ext(path), data, out)
}

// Decode decodes data of the given extension into out, then validates out when it implements Validator.
func Decode(ext string, data []byte, out any) error {
	content := []byte(ExpandEnv(string(data)))

	var err error
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(content, out)
	case ".json":
		err = json.Unmarshal(content, out)
	default:
		return errors.Wrapf(ErrUnsupportedFormat, "%q", ext)
	}
	if err != nil {
		return errors.Wrap(err, "unable to decode config")
	}

	if v, ok := out.(Validator); ok {
		err = v.Validate()
		if err != nil {
			return errors.Wrap(ErrInvalid, err.Error())
		}
	}

	return nil
}

// ExpandEnv replaces ${VAR} and ${VAR:-default}. An unterminated reference is kept as is.
func ExpandEnv(content string) string {
	var out strings.Builder
	for {
		start := strings.Index(content, "${")
		if start == -1 {
			break
		}
		end := strings.Index(content[start:], "}")
		if end == -1 {
			break
		}
		end += start

		out.WriteString(content[:start])
		name, fallback, hasFallback := strings.Cut(content[start+2:end], ":-")
		value, ok := os.LookupEnv(name)
		if (!ok || value == "") && hasFallback {
			value = fallback
		}
		out.WriteString(value)
		content = content[end+1:]
	}
	out.WriteString(content)

	return out.String()
}
