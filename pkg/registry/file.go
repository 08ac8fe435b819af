package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// fileRegistry represents the structure of a static instances file.
type fileRegistry struct {
	Instances []Instance `json:"instances" yaml:"instances"`
}

type fileOpener struct {
	path string
}

// NewFile returns an Opener that re-reads a YAML/JSON instance list on every Open.
func NewFile(path string) Opener {
	return &fileOpener{path: path}
}

func (o *fileOpener) Open(context.Context) (Session, error) {
	raw, err := os.ReadFile(o.path)
	if err != nil {
		return nil, fmt.Errorf("read registry file: %w", err)
	}
	reg, err := parseFileRegistry(raw, filepath.Ext(o.path))
	if err != nil {
		return nil, err
	}
	for i := range reg.Instances {
		inst := sanitizeInstance(reg.Instances[i])
		if err := validateInstance(inst); err != nil {
			return nil, fmt.Errorf("instances[%d]: %w", i, err)
		}
		reg.Instances[i] = inst
	}
	sortInstances(reg.Instances)
	return staticSession{instances: reg.Instances}, nil
}

// parseFileRegistry decodes the registry file by extension, or tries every
// known format when the extension is missing.
func parseFileRegistry(data []byte, ext string) (fileRegistry, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))
	decoders := []struct {
		name string
		ext  string
		fn   func([]byte, any) error
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		var reg fileRegistry
		if err := d.fn(data, &reg); err == nil {
			return reg, nil
		}
	}
	return fileRegistry{}, errors.New("registry file format not recognized (expected YAML or JSON)")
}

func sanitizeInstance(inst Instance) Instance {
	inst.ID = strings.TrimSpace(inst.ID)
	inst.Service = strings.TrimSpace(inst.Service)
	inst.Address = strings.TrimSpace(inst.Address)
	if inst.ID == "" && inst.Service != "" && inst.Address != "" {
		inst.ID = fmt.Sprintf("%s-%s", inst.Service, inst.HostPort())
	}
	return inst
}

func validateInstance(inst Instance) error {
	if inst.Service == "" {
		return errors.New("service is required")
	}
	if inst.Address == "" {
		return fmt.Errorf("address is required for instance %q", inst.ID)
	}
	if inst.Port <= 0 || inst.Port > 65535 {
		return fmt.Errorf("invalid port %d for instance %q", inst.Port, inst.ID)
	}
	return nil
}
