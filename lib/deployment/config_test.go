package deployment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnvironment(t *testing.T) {
	for _, s := range []string{"dev", "qa", "staging", "prod"} {
		env, err := ParseEnvironment(s)
		require.NoError(t, err)
		assert.Equal(t, Environment(s), env)
	}
	for _, s := range []string{"", "production", "Dev", "local"} {
		_, err := ParseEnvironment(s)
		var cerr ConfigError
		assert.ErrorAs(t, err, &cerr, s)
	}
}

func TestUsesGateway(t *testing.T) {
	assert.True(t, EnvDev.UsesGateway())
	assert.False(t, EnvQA.UsesGateway())
	assert.False(t, EnvStaging.UsesGateway())
	assert.False(t, EnvProd.UsesGateway())
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{Name: "churn-model"}
	cfg.ApplyDefaults()

	assert.Equal(t, "sagemaker", cfg.Type)
	assert.Equal(t, Version{Major: 1, Minor: 0}, cfg.Version)
	assert.Equal(t, DefaultInstanceType, cfg.Instance.Type)
	assert.Equal(t, uint(DefaultInstanceCount), cfg.Instance.Count)
	assert.Equal(t, DefaultVolumeSizeGB, cfg.Instance.VolumeSizeGB)
	assert.Equal(t, DefaultRegion, cfg.Instance.Region)
	assert.Equal(t, DefaultCacheTTL, cfg.Cache.TTL)
	assert.Equal(t, DefaultDeployTimeout, cfg.DeployTimeout)
	assert.Equal(t, EnvDev, cfg.Environment)
	assert.NoError(t, cfg.Valid())
}

func TestValidRejectsMissingName(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	var verr ValidationError
	assert.ErrorAs(t, cfg.Valid(), &verr)
}

func TestValidRejectsInvertedAutoscalingBounds(t *testing.T) {
	cfg := Config{Name: "churn-model"}
	cfg.ApplyDefaults()
	cfg.Autoscaling = Autoscaling{Enabled: true, MinInstances: 5, MaxInstances: 2, TargetInvocationsPerInstance: 100}
	var verr ValidationError
	assert.ErrorAs(t, cfg.Valid(), &verr)

	// Bounds are only enforced when autoscaling is on.
	cfg.Autoscaling.Enabled = false
	assert.NoError(t, cfg.Valid())
}

func TestResourceNames(t *testing.T) {
	cfg := Config{Name: "churn-model", Environment: EnvStaging}
	assert.Equal(t, "churn-model-endpoint-staging", cfg.EndpointName())
	assert.Equal(t, "churn-model-lambda-staging", cfg.FunctionName())
}

func TestDeployBudget(t *testing.T) {
	cfg := Config{DeployTimeout: 60}
	assert.Equal(t, time.Minute, cfg.DeployBudget())
}
