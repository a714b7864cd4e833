package am

import (
	"encoding/json"
	"os"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/teranos/ldx/errors"
)

// ConfigSource represents where a configuration value came from
type ConfigSource string

const (
	SourceDefault     ConfigSource = "default"
	SourceSystem      ConfigSource = "system"      // /etc/ldx/am.toml
	SourceUser        ConfigSource = "user"        // ~/.ldx/am.toml
	SourceProject     ConfigSource = "project"     // project am.toml
	SourceEnvironment ConfigSource = "environment" // LDX_* env vars
)

// SourceInfo tracks where a configuration value originated
type SourceInfo struct {
	Source ConfigSource
	Path   string // File path or environment variable name
}

// SettingInfo contains metadata about a configuration setting
type SettingInfo struct {
	Key        string       `json:"key"`
	Value      interface{}  `json:"value"`
	Source     ConfigSource `json:"source"`
	SourcePath string       `json:"source_path,omitempty"`
}

// Settings lists every effective setting, sorted by key, with the source
// that supplied it
func Settings() ([]SettingInfo, error) {
	if _, err := Load(); err != nil {
		return nil, errors.Wrap(err, "failed to load config for introspection")
	}
	loadMu.Lock()
	defer loadMu.Unlock()

	var out []SettingInfo
	flattenSettings(initViper().AllSettings(), "", ConfigSources, &out)
	return out, nil
}

func flattenSettings(settings map[string]interface{}, prefix string, sources map[string]SourceInfo, out *[]SettingInfo) {
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := settings[key]
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}

		if nested, ok := value.(map[string]interface{}); ok {
			flattenSettings(nested, fullKey, sources, out)
			continue
		}

		info := SourceInfo{Source: SourceDefault, Path: "built-in default"}
		if si, ok := sources[fullKey]; ok {
			info = si
		}
		if envKey := EnvName(fullKey); os.Getenv(envKey) != "" {
			info = SourceInfo{Source: SourceEnvironment, Path: envKey}
		}

		*out = append(*out, SettingInfo{
			Key:        fullKey,
			Value:      value,
			Source:     info.Source,
			SourcePath: info.Path,
		})
	}
}

// EnvName returns the environment variable overriding key.
func EnvName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// Render marshals the effective settings as toml, json or yaml
func Render(format string) ([]byte, error) {
	settings := GetViper().AllSettings()

	switch format {
	case "toml":
		data, err := toml.Marshal(settings)
		return data, errors.Wrap(err, "failed to marshal config to TOML")
	case "json":
		data, err := json.MarshalIndent(settings, "", "  ")
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal config to JSON")
		}
		return append(data, '\n'), nil
	case "yaml":
		data, err := yaml.Marshal(settings)
		return data, errors.Wrap(err, "failed to marshal config to YAML")
	default:
		return nil, errors.WithHint(
			errors.NewInvalidRequestError("unsupported format: %s", format),
			"supported formats: toml, json, yaml",
		)
	}
}
