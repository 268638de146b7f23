// Package configuration loads the declarative site configuration (the desired
// state) and the host-specific tool settings.
package configuration

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/scicomp/clusterstor-tools/internal/schema"
	"gopkg.in/yaml.v3"
)

const siteSchemaURL = "site.schema.json"

//go:embed site.schema.json
var siteSchemaJSON []byte

// validate is the singleton validator instance.
var validate = validator.New()

type osProvider interface {
	ReadFile(name string) ([]byte, error)
	Stat(name string) (os.FileInfo, error)
}

// QuotaDefaults are the default quota pairs of the two directory forests.
type QuotaDefaults struct {
	Projects schema.QuotaSpec `mapstructure:"projects"`
	WorkDir  schema.QuotaSpec `mapstructure:"workdir"`
}

// Defaults are the site-wide defaults, which every node inherits unless it
// overrides them locally.
type Defaults struct {
	StripeParameters         string        `mapstructure:"stripe_parameters"          validate:"required"`
	StripeParameterReference string        `mapstructure:"stripe_parameter_reference" validate:"required"`
	DirstripeCount           int           `mapstructure:"dirstripe_count"            validate:"gte=1"`
	Mountpoint               string        `mapstructure:"mountpoint"                 validate:"required,startswith=/"`
	UsersGroup               string        `mapstructure:"users_group"                validate:"required"`
	WorkDirName              string        `mapstructure:"work_dir_name"              validate:"required,excludes=/"`
	DefaultQuotas            QuotaDefaults `mapstructure:"default_quotas"`

	// StripeReference is the content of the StripeParameterReference file,
	// the captured description of a correctly laid out directory.
	StripeReference []byte `mapstructure:"-"`
}

// SiteConfig is the declarative site configuration. The two forests are kept
// raw, so that a malformed node can be isolated when it is resolved.
type SiteConfig struct {
	Defaults    Defaults       `mapstructure:"defaults"`
	ProjectDirs map[string]any `mapstructure:"project_dirs"`
	WorkDirs    map[string]any `mapstructure:"work_dirs"`
}

// SiteLoader loads a [SiteConfig] from a YAML file.
type SiteLoader struct {
	osHandler osProvider
	schema    *jsonschema.Schema
}

// NewSiteLoader returns a pointer to a new [SiteLoader].
func NewSiteLoader(osHandler osProvider) (*SiteLoader, error) {
	compiler := jsonschema.NewCompiler()

	if err := compiler.AddResource(siteSchemaURL, bytes.NewReader(siteSchemaJSON)); err != nil {
		return nil, fmt.Errorf("(config-site) add schema resource: %w", err)
	}

	compiled, err := compiler.Compile(siteSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("(config-site) compile schema: %w", err)
	}

	return &SiteLoader{
		osHandler: osHandler,
		schema:    compiled,
	}, nil
}

// Load reads, validates and decodes a site configuration, including the
// reference layout it points to. Any problem is a [schema.ErrConfig], as it
// concerns the whole run.
func (l *SiteLoader) Load(path string) (*SiteConfig, error) {
	data, err := l.osHandler.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("(config-site) %w: %w", schema.ErrConfig, err)
	}

	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("(config-site) %w: %s: %w", schema.ErrConfig, path, err)
	}
	raw = normalizeKeys(raw)

	if err := l.validateShape(raw); err != nil {
		return nil, fmt.Errorf("(config-site) %w: %s: %w", schema.ErrConfig, path, err)
	}

	cfg := &SiteConfig{}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           cfg,
	})
	if err != nil {
		return nil, fmt.Errorf("(config-site) %w", err)
	}

	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("(config-site) %w: %s: %w", schema.ErrConfig, path, err)
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("(config-site) %w: %s: %w", schema.ErrConfig, path, formatValidationError(err))
	}

	if err := l.checkMountpoint(cfg.Defaults.Mountpoint); err != nil {
		return nil, fmt.Errorf("(config-site) %w: %w", schema.ErrConfig, err)
	}

	ref := cfg.Defaults.StripeParameterReference
	if !filepath.IsAbs(ref) {
		ref = filepath.Join(filepath.Dir(path), ref)
	}

	cfg.Defaults.StripeReference, err = l.osHandler.ReadFile(ref)
	if err != nil {
		return nil, fmt.Errorf("(config-site) %w: stripe_parameter_reference: %w", schema.ErrConfig, err)
	}

	return cfg, nil
}

// validateShape validates the document against the embedded JSON schema. The
// validator works on JSON values, so the document takes a round trip first.
func (l *SiteLoader) validateShape(raw any) error {
	encoded, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSite, err)
	}

	var payload any
	if err := json.Unmarshal(encoded, &payload); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSite, err)
	}

	if err := l.schema.Validate(payload); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSite, err)
	}

	return nil
}

func (l *SiteLoader) checkMountpoint(mountpoint string) error {
	info, err := l.osHandler.Stat(mountpoint)
	if err != nil {
		return fmt.Errorf("mountpoint: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("mountpoint: %s is not a directory", mountpoint)
	}

	return nil
}

// normalizeKeys turns mappings with non-string keys (such as numeric user
// names) into mappings with string keys.
func normalizeKeys(v any) any {
	switch m := v.(type) {
	case map[string]any:
		for k, val := range m {
			m[k] = normalizeKeys(val)
		}

		return m

	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[fmt.Sprint(k)] = normalizeKeys(val)
		}

		return out

	case []any:
		for i, val := range m {
			m[i] = normalizeKeys(val)
		}

		return m

	default:
		return v
	}
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		e := validationErrs[0]

		return fmt.Errorf("%w: %s: validation failed on '%s' tag (value: %v)",
			ErrInvalidSite, e.Namespace(), e.Tag(), e.Value())
	}

	return fmt.Errorf("%w: %w", ErrInvalidSite, err)
}
