package beam

import (
	"fmt"
	"strings"
)

const (
	TypeDish     Type = "dish"
	TypeCylinder Type = "cylinder"
)

var validTypes = map[Type]struct{}{
	TypeDish:     {},
	TypeCylinder: {},
}

// Type selects the beam variant
type Type string

func (t Type) String() string {
	return string(t)
}

// Config describes either a dish or a cylinder beam. Zero geometry values
// fall back to the defaults of the selected variant.
type Config struct {
	Type     Type    `yaml:"type" json:"type"`
	Diameter float64 `yaml:"diameter,omitempty" json:"diameter,omitempty"` // dish, meters
	Width    float64 `yaml:"width,omitempty" json:"width,omitempty"`       // cylinder, meters
	Length   float64 `yaml:"length,omitempty" json:"length,omitempty"`     // cylinder, meters
}

// Validate checks the variant and the geometry of the selected variant
func (c *Config) Validate() error {
	c.Type = Type(strings.ToLower(string(c.Type)))
	if _, ok := validTypes[c.Type]; !ok {
		return NewConfigError(fmt.Sprintf("unknown beam type '%s'", c.Type))
	}

	switch c.Type {
	case TypeDish:
		if c.Diameter < 0 {
			return NewConfigError(fmt.Sprintf("invalid dish diameter: %v", c.Diameter))
		}
	case TypeCylinder:
		if c.Width < 0 {
			return NewConfigError(fmt.Sprintf("invalid cylinder width: %v", c.Width))
		}
		if c.Length < 0 {
			return NewConfigError(fmt.Sprintf("invalid cylinder length: %v", c.Length))
		}
	}
	return nil
}

// New builds the model described by cfg for frequencies in MHz
func New(cfg Config, freqs []float64, opts ...Option) (Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Type {
	case TypeDish:
		if cfg.Diameter > 0 {
			opts = append(opts, WithDiameter(cfg.Diameter))
		}
		d, err := NewDish(freqs, opts...)
		if err != nil {
			return nil, err
		}
		return d, nil

	default:
		if cfg.Width > 0 {
			opts = append(opts, WithWidth(cfg.Width))
		}
		if cfg.Length > 0 {
			opts = append(opts, WithLength(cfg.Length))
		}
		c, err := NewCylinder(freqs, opts...)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}
