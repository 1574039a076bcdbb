package app

import (
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/gpmf-dataflow/dataflow/pkg/yaml"
)

var (
	envs   = map[string]string{}
	envsMu sync.Mutex
)

// loadEnv keeps the `env` section of a config file, so its values can be
// referenced from the same and later files.
func loadEnv(data []byte) {
	var cfg struct {
		Env map[string]string `yaml:"env"`
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return
	}

	envsMu.Lock()
	for name, value := range cfg.Env {
		envs[name] = value
	}
	envsMu.Unlock()
}

func lookupEnv(key string) (string, bool) {
	if value, ok := os.LookupEnv(key); ok {
		return value, true
	}

	envsMu.Lock()
	value, ok := envs[key]
	envsMu.Unlock()
	return value, ok
}

var reEnv = regexp.MustCompile(`\${([^}{]+)}`)

// ReplaceEnvVars expands `${NAME}` and `${NAME:default}`. Unknown names
// without default stay as they are.
func ReplaceEnvVars(text string) string {
	return reEnv.ReplaceAllStringFunc(text, func(match string) string {
		key := match[2 : len(match)-1]

		var def string
		var dok bool

		if i := strings.IndexByte(key, ':'); i > 0 {
			key, def = key[:i], key[i+1:]
			dok = true
		}

		if value, ok := lookupEnv(key); ok {
			return value
		}

		if dok {
			return def
		}

		return match
	})
}
