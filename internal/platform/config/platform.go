package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Platform holds business tunables that operators change without a redeploy of env vars.
type Platform struct {
	Pricing       Pricing       `yaml:"pricing"`
	Notifications Notifications `yaml:"notifications"`
	InstantApply  InstantApply  `yaml:"instantApply"`
	Gigs          Gigs          `yaml:"gigs"`
}

type Pricing struct {
	ServiceFeeRate float64 `yaml:"serviceFeeRate"`
	TaxRate        float64 `yaml:"taxRate"`
	Currency       string  `yaml:"currency"`
}

type Notifications struct {
	DefaultRadiusKm float64 `yaml:"defaultRadiusKm"`
	MaxRadiusKm     float64 `yaml:"maxRadiusKm"`
	MaxMatches      int     `yaml:"maxMatches"`
}

type InstantApply struct {
	// Rule is a CEL expression over `ctx`; empty disables the extra check.
	Rule               string `yaml:"rule"`
	DefaultCoverLetter string `yaml:"defaultCoverLetter"`
}

type Gigs struct {
	// ExpireAfterHours moves open gigs to expired once their last slot ended this long ago.
	ExpireAfterHours int `yaml:"expireAfterHours"`
}

func DefaultPlatform() Platform {
	return Platform{
		Pricing: Pricing{
			ServiceFeeRate: 0.10,
			TaxRate:        0.05,
		},
		Notifications: Notifications{
			DefaultRadiusKm: 25,
			MaxRadiusKm:     100,
			MaxMatches:      500,
		},
		InstantApply: InstantApply{
			DefaultCoverLetter: "Hi! I'm interested in this gig and available for the listed shifts.",
		},
		Gigs: Gigs{
			ExpireAfterHours: 24,
		},
	}
}

// LoadPlatform overlays the YAML file at path on top of the defaults. A missing file is not an error.
func LoadPlatform(path string) (Platform, error) {
	out := DefaultPlatform()
	if path == "" {
		return out, nil
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return out, nil
	}
	if err != nil {
		return out, err
	}
	if err := yaml.Unmarshal(raw, &out); err != nil {
		return DefaultPlatform(), fmt.Errorf("parse %s: %w", path, err)
	}
	return out, nil
}

func (p Platform) Validate() error {
	if p.Pricing.ServiceFeeRate < 0 || p.Pricing.ServiceFeeRate >= 1 {
		return fmt.Errorf("pricing.serviceFeeRate must be in [0,1)")
	}
	if p.Pricing.TaxRate < 0 || p.Pricing.TaxRate >= 1 {
		return fmt.Errorf("pricing.taxRate must be in [0,1)")
	}
	if p.Notifications.DefaultRadiusKm <= 0 {
		return fmt.Errorf("notifications.defaultRadiusKm must be positive")
	}
	if p.Notifications.MaxRadiusKm < p.Notifications.DefaultRadiusKm {
		return fmt.Errorf("notifications.maxRadiusKm must be at least defaultRadiusKm")
	}
	return nil
}
