package apigee

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"mldeploy/lib/deployment"
)

type ApigeeArgs struct {
	Org string `arg:"--apigee-org,env:APIGEE_ORG" help:"Apigee organization"`
}

// Bundle is the declarative proxy configuration registered against the API
// management layer: base path, target placeholder and the attached policies.
type Bundle struct {
	Name     string         `yaml:"name"`
	BasePath string         `yaml:"basePath"`
	Target   TargetEndpoint `yaml:"targetEndpoint"`
	Policies []Policy       `yaml:"policies"`
}

type TargetEndpoint struct {
	// URL is a placeholder resolved at deployment time with the function's
	// invoke URL.
	URL string `yaml:"url"`
}

type Policy struct {
	Name   string       `yaml:"name"`
	Type   string       `yaml:"type"`
	Config PolicyConfig `yaml:"config"`
}

type PolicyConfig struct {
	Issuer   string `yaml:"issuer,omitempty"`
	Audience string `yaml:"audience,omitempty"`
	Allow    int    `yaml:"allow,omitempty"`
	Interval int    `yaml:"interval,omitempty"`
	TimeUnit string `yaml:"timeUnit,omitempty"`
	Rate     string `yaml:"rate,omitempty"`
}

const (
	jwtIssuer        = "internal-auth-service"
	quotaPerMinute   = 1000
	spikeArrestRate  = "100ps"
	targetURLPending = "{{lambda_invoke_url}}"
)

type Client struct {
	org    string
	logger *zap.Logger
}

func NewClient(args ApigeeArgs, logger *zap.Logger) Client {
	return Client{
		org:    args.Org,
		logger: logger,
	}
}

func (c Client) Org() string {
	return c.org
}

// BuildBundle assembles the proxy bundle for one deployment unit: JWT
// verification against the internal issuer, a fixed quota and a fixed
// spike-arrest rate.
func BuildBundle(cfg deployment.Config) Bundle {
	return Bundle{
		Name:     fmt.Sprintf("%s-proxy", cfg.Name),
		BasePath: fmt.Sprintf("/v1/%s", cfg.Name),
		Target:   TargetEndpoint{URL: targetURLPending},
		Policies: []Policy{
			{
				Name: "VerifyJWT",
				Type: "VerifyJWT",
				Config: PolicyConfig{
					Issuer:   jwtIssuer,
					Audience: cfg.Name,
				},
			},
			{
				Name: "QuotaPolicy",
				Type: "Quota",
				Config: PolicyConfig{
					Allow:    quotaPerMinute,
					Interval: 1,
					TimeUnit: "minute",
				},
			},
			{
				Name: "SpikeArrest",
				Type: "SpikeArrest",
				Config: PolicyConfig{
					Rate: spikeArrestRate,
				},
			},
		},
	}
}

// ProxyURL is deterministic from the organization / environment naming
// convention; it is computed, not read back from the management API.
func (c Client) ProxyURL(name string, env deployment.Environment) string {
	return fmt.Sprintf("https://%s-%s.apigee.net/v1/%s", c.org, env, name)
}

// Setup builds and registers the proxy for stage/prod environments.
//
// The registration against the management API is intentionally not
// performed: the proxy lifecycle is owned by the platform team, and this
// tool only prepares the bundle and reports where the proxy will be
// reachable. See DESIGN.md.
func (c Client) Setup(ctx context.Context, cfg deployment.Config) (deployment.ProxyResult, error) {
	bundle := BuildBundle(cfg)
	raw, err := yaml.Marshal(bundle)
	if err != nil {
		return deployment.ProxyResult{}, fmt.Errorf("failed to marshal proxy bundle: %v", err)
	}
	proxyName := fmt.Sprintf("%s-proxy-%s", cfg.Name, cfg.Environment)
	c.logger.Info("Prepared proxy bundle",
		zap.String("proxy", proxyName),
		zap.String("org", c.org),
		zap.String("environment", string(cfg.Environment)),
		zap.ByteString("bundle", raw))
	return deployment.ProxyResult{
		ProxyName:   proxyName,
		ProxyURL:    c.ProxyURL(cfg.Name, cfg.Environment),
		Environment: cfg.Environment,
		AuthType:    "OAuth/JWT via internal auth service",
	}, nil
}
