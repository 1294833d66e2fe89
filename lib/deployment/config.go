package deployment

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Environment is the deployment target. The set is closed: a descriptor or
// flag naming anything else is rejected up front.
type Environment string

const (
	EnvDev     Environment = "dev"
	EnvQA      Environment = "qa"
	EnvStaging Environment = "staging"
	EnvProd    Environment = "prod"
)

func ParseEnvironment(s string) (Environment, error) {
	switch Environment(s) {
	case EnvDev, EnvQA, EnvStaging, EnvProd:
		return Environment(s), nil
	}
	return "", ConfigError{Reason: fmt.Sprintf("unknown environment %q, must be one of dev/qa/staging/prod", s)}
}

// UsesGateway reports whether the environment fronts the function with an
// AWS API Gateway (dev) instead of an Apigee proxy (everything else).
func (e Environment) UsesGateway() bool {
	return e == EnvDev
}

type Version struct {
	Major int `yaml:"major"`
	Minor int `yaml:"minor"`
}

type Instance struct {
	Type         string            `yaml:"type"`
	Count        uint              `yaml:"count" validate:"gte=1"`
	VolumeSizeGB int               `yaml:"volumeSizeInGB"`
	Region       string            `yaml:"region"`
	Tags         map[string]string `yaml:"tags"`
}

type Cache struct {
	Enabled bool `yaml:"enabled"`
	TTL     int  `yaml:"ttl"`
}

type Autoscaling struct {
	Enabled                      bool `yaml:"enabled"`
	MinInstances                 uint `yaml:"minInstances"`
	MaxInstances                 uint `yaml:"maxInstances"`
	TargetInvocationsPerInstance int  `yaml:"targetInvocationsPerInstance"`
}

// Config identifies one deployment unit. It is built once per invocation from
// release.yaml and not mutated afterwards, except for Environment which the
// deploy command overrides with its target.
type Config struct {
	Name          string      `yaml:"name" validate:"required"`
	Type          string      `yaml:"type"`
	Version       Version     `yaml:"version"`
	Instance      Instance    `yaml:"instance"`
	Cache         Cache       `yaml:"cache"`
	Autoscaling   Autoscaling `yaml:"autoscaling"`
	DeployTimeout int         `yaml:"deployTimeout"`
	Environment   Environment `yaml:"-"`
}

const (
	DefaultInstanceType      = "ml.m5.xlarge"
	DefaultInstanceCount     = 1
	DefaultVolumeSizeGB      = 50
	DefaultRegion            = "eu-central-1"
	DefaultCacheTTL          = 3600
	DefaultDeployTimeout     = 900
	DefaultMinInstances      = 1
	DefaultMaxInstances      = 4
	DefaultTargetInvocations = 100
)

// ApplyDefaults fills every optional field so a partially-specified
// descriptor is valid.
func (c *Config) ApplyDefaults() {
	if c.Type == "" {
		c.Type = "sagemaker"
	}
	if c.Version == (Version{}) {
		c.Version = Version{Major: 1, Minor: 0}
	}
	if c.Instance.Type == "" {
		c.Instance.Type = DefaultInstanceType
	}
	if c.Instance.Count == 0 {
		c.Instance.Count = DefaultInstanceCount
	}
	if c.Instance.VolumeSizeGB == 0 {
		c.Instance.VolumeSizeGB = DefaultVolumeSizeGB
	}
	if c.Instance.Region == "" {
		c.Instance.Region = DefaultRegion
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = DefaultCacheTTL
	}
	if c.Autoscaling.MinInstances == 0 {
		c.Autoscaling.MinInstances = DefaultMinInstances
	}
	if c.Autoscaling.MaxInstances == 0 {
		c.Autoscaling.MaxInstances = DefaultMaxInstances
	}
	if c.Autoscaling.TargetInvocationsPerInstance == 0 {
		c.Autoscaling.TargetInvocationsPerInstance = DefaultTargetInvocations
	}
	if c.DeployTimeout == 0 {
		c.DeployTimeout = DefaultDeployTimeout
	}
	if c.Environment == "" {
		c.Environment = EnvDev
	}
}

var validate = validator.New()

func (c Config) Valid() error {
	if err := validate.Struct(c); err != nil {
		return ValidationError{Reason: err.Error()}
	}
	if c.Autoscaling.Enabled && c.Autoscaling.MinInstances > c.Autoscaling.MaxInstances {
		return ValidationError{Reason: fmt.Sprintf(
			"autoscaling minInstances (%d) must not exceed maxInstances (%d)",
			c.Autoscaling.MinInstances, c.Autoscaling.MaxInstances)}
	}
	return nil
}

// DeployBudget is how long a deploy may wait for the endpoint to come up.
func (c Config) DeployBudget() time.Duration {
	return time.Duration(c.DeployTimeout) * time.Second
}

// EndpointName is the serving endpoint's name for this deployment unit.
func (c Config) EndpointName() string {
	return fmt.Sprintf("%s-endpoint-%s", c.Name, c.Environment)
}

// FunctionName is the fronting function's name for this deployment unit.
func (c Config) FunctionName() string {
	return fmt.Sprintf("%s-lambda-%s", c.Name, c.Environment)
}
