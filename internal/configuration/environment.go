package configuration

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
)

// DefaultEnvironmentFile is the optional KEY=VALUE file with tool settings.
const DefaultEnvironmentFile = "/etc/sysconfig/clusterstor-tools"

// DefaultSiteConfig is the site configuration used when none is given.
const DefaultSiteConfig = "aalto.yaml"

const (
	keyLfsBinary    = "CLUSTERSTOR_LFS"
	keyGetentBinary = "CLUSTERSTOR_GETENT"
	keySiteConf     = "CLUSTERSTOR_SITE_CONF"
	keyJournalDir   = "CLUSTERSTOR_JOURNAL"
)

type genericConfigProvider interface {
	Read(filenames ...string) (envMap map[string]string, err error)
}

// GodotenvProvider is an implementation wrapping the Godotenv framework.
type GodotenvProvider struct{}

// Read reads generic Unix-type configuration files into a map (map[key]value).
func (*GodotenvProvider) Read(filenames ...string) (map[string]string, error) {
	data, err := godotenv.Read(filenames...)
	if err != nil {
		return data, fmt.Errorf("(config-godotenv) %w", err)
	}

	return data, nil
}

// ToolSettings are the host-specific settings of the tools themselves, as
// opposed to the desired state held by a [SiteConfig].
type ToolSettings struct {
	LfsBinary    string
	GetentBinary string
	SiteConf     string
	JournalDir   string
}

// ReadToolSettings reads the [ToolSettings] from a KEY=VALUE file. A missing
// file yields the defaults.
func ReadToolSettings(provider genericConfigProvider, filename string) (ToolSettings, error) {
	settings := ToolSettings{
		SiteConf: DefaultSiteConfig,
	}

	envMap, err := provider.Read(filename)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return settings, nil
		}

		return settings, fmt.Errorf("(config-tool) %w", err)
	}

	settings.LfsBinary = MapKeyToString(envMap, keyLfsBinary)
	settings.GetentBinary = MapKeyToString(envMap, keyGetentBinary)
	settings.JournalDir = MapKeyToString(envMap, keyJournalDir)

	if v := MapKeyToString(envMap, keySiteConf); v != "" {
		settings.SiteConf = v
	}

	return settings, nil
}

// MapKeyToString returns the value of a key, or an empty string if missing.
func MapKeyToString(envMap map[string]string, key string) string {
	if value, exists := envMap[key]; exists {
		return value
	}

	return ""
}
