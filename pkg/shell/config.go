package shell

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"src.oopis.sh/pkg/oserr"
)

// DefaultPrompt is the prompt template used when the rc file does not set
// one. The placeholders {user}, {host} and {pwd} are substituted; the
// trailing marker becomes # for root.
const DefaultPrompt = "{user}@{host}:{pwd}$ "

// Config is the rc file, a YAML document holding shell tunables. All
// fields are optional; flags take precedence over the file.
type Config struct {
	// DB is the path of the state file.
	DB string `yaml:"db"`
	// Sock is the path of the daemon socket. When set, the shell connects
	// to the daemon instead of opening the state file directly.
	Sock string `yaml:"sock"`
	// Prompt is the interactive prompt template.
	Prompt string `yaml:"prompt"`
	// HistoryCap bounds the history ring.
	HistoryCap int `yaml:"history-cap"`
	// StrictGlob makes non-matching glob patterns errors.
	StrictGlob bool `yaml:"strict-glob"`
}

// loadConfig reads the rc file at path. An absent file yields the zero
// config; a malformed one is an error.
func loadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, oserr.Newf(oserr.StorageUnavailable, "cannot read rc file %v: %v", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, oserr.Newf(oserr.InvalidInput, "malformed rc file %v: %v", path, err)
	}
	return cfg, nil
}

// defaultConfigPath returns the conventional rc file location,
// $XDG_CONFIG_HOME/oopis/rc.yaml or the OS equivalent.
func defaultConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "oopis", "rc.yaml"), nil
}

// defaultDBPath returns the conventional state file location.
func defaultDBPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "oopis", "state.bolt"), nil
}
