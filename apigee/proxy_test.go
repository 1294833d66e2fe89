package apigee

import (
	"context"
	"testing"

	"mldeploy/lib/deployment"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBuildBundle(t *testing.T) {
	cfg := deployment.Config{Name: "churn-model", Environment: deployment.EnvProd}
	bundle := BuildBundle(cfg)

	assert.Equal(t, "churn-model-proxy", bundle.Name)
	assert.Equal(t, "/v1/churn-model", bundle.BasePath)
	require.Len(t, bundle.Policies, 3)
	assert.Equal(t, "VerifyJWT", bundle.Policies[0].Type)
	assert.Equal(t, "churn-model", bundle.Policies[0].Config.Audience)
	assert.Equal(t, "Quota", bundle.Policies[1].Type)
	assert.Equal(t, 1000, bundle.Policies[1].Config.Allow)
	assert.Equal(t, "SpikeArrest", bundle.Policies[2].Type)
	assert.Equal(t, "100ps", bundle.Policies[2].Config.Rate)
}

func TestSetup(t *testing.T) {
	cfg := deployment.Config{Name: "churn-model", Environment: deployment.EnvStaging}
	client := NewClient(ApigeeArgs{Org: "acme"}, zap.NewNop())

	result, err := client.Setup(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "churn-model-proxy-staging", result.ProxyName)
	assert.Equal(t, "https://acme-staging.apigee.net/v1/churn-model", result.ProxyURL)
	assert.Equal(t, deployment.EnvStaging, result.Environment)
}
