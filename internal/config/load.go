package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/joho/godotenv"
	ctyjson "github.com/zclconf/go-cty/cty/json"
	"gopkg.in/yaml.v3"

	"github.com/vk/flowbridge/internal/ctxlog"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "FLOWBRIDGE_"

// hclFileRoot is the top-level layout of an HCL settings file.
type hclFileRoot struct {
	Engine   *EngineSettings   `hcl:"engine,block"`
	Speech   *CommandSettings  `hcl:"speech,block"`
	Audio    *CommandSettings  `hcl:"audio,block"`
	Script   *ScriptSettings   `hcl:"script,block"`
	Prompt   *PromptSettings   `hcl:"prompt,block"`
	Drafts   *DraftSettings    `hcl:"drafts,block"`
	Defaults []*hclKindDefault `hcl:"defaults,block"`
}

// hclKindDefault is a `defaults "<kind>" { ... }` block with free-form
// attributes.
type hclKindDefault struct {
	Kind string   `hcl:"kind,label"`
	Body hcl.Body `hcl:",remain"`
}

// Load reads the settings file at path (HCL or YAML by extension), applies
// environment overrides and validates the result. An empty path yields the
// defaults plus environment overrides.
func Load(ctx context.Context, path string) (*Settings, error) {
	logger := ctxlog.FromContext(ctx)

	settings := &Settings{}
	if path != "" {
		var err error
		switch strings.ToLower(filepath.Ext(path)) {
		case ".hcl":
			settings, err = LoadHCL(path)
		case ".yaml", ".yml":
			settings, err = LoadYAML(path)
		default:
			err = fmt.Errorf("unsupported settings file %s: expected .hcl, .yaml or .yml", path)
		}
		if err != nil {
			return nil, err
		}
		logger.Debug("Settings file loaded.", "path", path)
	}

	if err := settings.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// LoadHCL decodes an HCL settings file.
func LoadHCL(path string) (*Settings, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}

	var root hclFileRoot
	diags = gohcl.DecodeBody(hclFile.Body, nil, &root)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", path, diags)
	}

	s := &Settings{}
	if root.Engine != nil {
		s.Engine = *root.Engine
	}
	if root.Speech != nil {
		s.Speech = *root.Speech
	}
	if root.Audio != nil {
		s.Audio = *root.Audio
	}
	if root.Script != nil {
		s.Script = *root.Script
	}
	if root.Prompt != nil {
		s.Prompt = *root.Prompt
	}
	if root.Drafts != nil {
		s.Drafts = *root.Drafts
	}

	for _, block := range root.Defaults {
		data, err := decodeFreeForm(block.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to decode defaults %q in %s: %w", block.Kind, path, err)
		}
		if s.Defaults == nil {
			s.Defaults = make(map[string]map[string]any)
		}
		s.Defaults[block.Kind] = data
	}
	return s, nil
}

// decodeFreeForm evaluates every attribute of body into plain Go values.
func decodeFreeForm(body hcl.Body) (map[string]any, error) {
	attrs, diags := body.JustAttributes()
	if diags.HasErrors() {
		return nil, diags
	}
	out := make(map[string]any, len(attrs))
	for name, attr := range attrs {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, diags
		}
		raw, err := ctyjson.SimpleJSONValue{Value: val}.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", name, err)
		}
		var v any
		if err := sonic.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("attribute %s: %w", name, err)
		}
		out[name] = v
	}
	return out, nil
}

// LoadYAML decodes a YAML settings file.
func LoadYAML(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	s := &Settings{}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to decode YAML file %s: %w", path, err)
	}
	return s, nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment without overriding variables that are already set. Missing
// files are skipped.
func LoadDotEnv(ctx context.Context, paths ...string) error {
	logger := ctxlog.FromContext(ctx)
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
		logger.Debug("Environment file loaded.", "path", p)
	}
	return nil
}

// ApplyEnv overrides settings from FLOWBRIDGE_* variables found by lookup.
func (s *Settings) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	str("ENGINE_URL", &s.Engine.URL)
	str("ENGINE_NAMESPACE", &s.Engine.Namespace)
	str("API_URL", &s.Engine.APIURL)
	str("WORKFLOW_ID", &s.Engine.WorkflowID)
	str("DRAFTS_BACKEND", &s.Drafts.Backend)
	str("REDIS_ADDR", &s.Drafts.RedisAddr)
	str("REDIS_PASSWORD", &s.Drafts.RedisPassword)

	if v, ok := lookup(EnvPrefix + "INSECURE_SKIP_VERIFY"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sINSECURE_SKIP_VERIFY: %w", EnvPrefix, err)
		}
		s.Engine.InsecureSkipVerify = b
	}
	if v, ok := lookup(EnvPrefix + "REDIS_DB"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sREDIS_DB: %w", EnvPrefix, err)
		}
		s.Drafts.RedisDB = n
	}
	return nil
}
