package config

import (
	"fmt"
	"os"

	"vmpatch/hexdump"

	"gopkg.in/yaml.v2"
)

// PatchSpec is one entry of a patch profile. Offset is relative to the
// image base address; all three values are hex strings.
type PatchSpec struct {
	Name     string `yaml:"name"`
	Offset   string `yaml:"offset"`
	Expected string `yaml:"expected"`
	Patched  string `yaml:"patched"`
}

// Patch is a decoded PatchSpec.
type Patch struct {
	Name     string
	Offset   uint64
	Expected []byte
	Patched  []byte
}

// Profile is a named list of patches for one program.
type Profile struct {
	// Process is the default target when none is given on the command line.
	Process string      `yaml:"process,omitempty"`
	Patches []PatchSpec `yaml:"patches"`
}

// LoadProfile reads and validates a patch profile.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profile: %w", err)
	}
	return ParseProfile(data)
}

// ParseProfile decodes and validates a patch profile document.
func ParseProfile(data []byte) (*Profile, error) {
	var p Profile
	if err := yaml.UnmarshalStrict(data, &p); err != nil {
		return nil, fmt.Errorf("parsing profile: %w", err)
	}
	if len(p.Patches) == 0 {
		return nil, fmt.Errorf("profile has no patches")
	}
	if _, err := p.Decode(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Decode converts every entry to bytes. Expected and patched must decode to
// the same length.
func (p *Profile) Decode() ([]Patch, error) {
	out := make([]Patch, 0, len(p.Patches))
	for i, spec := range p.Patches {
		name := spec.Name
		if name == "" {
			name = fmt.Sprintf("#%d", i+1)
		}

		offset, err := hexdump.ParseAddress(spec.Offset)
		if err != nil {
			return nil, fmt.Errorf("patch %s: offset: %w", name, err)
		}
		expected, err := hexdump.Decode(spec.Expected)
		if err != nil {
			return nil, fmt.Errorf("patch %s: expected: %w", name, err)
		}
		patched, err := hexdump.Decode(spec.Patched)
		if err != nil {
			return nil, fmt.Errorf("patch %s: patched: %w", name, err)
		}
		if len(expected) != len(patched) {
			return nil, fmt.Errorf("patch %s: expected is %d bytes but patched is %d", name, len(expected), len(patched))
		}

		out = append(out, Patch{Name: name, Offset: offset, Expected: expected, Patched: patched})
	}
	return out, nil
}
