package config

import (
	"os"
	"path/filepath"
	"testing"

	"mldeploy/lib/deployment"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	cfg := deployment.Config{
		Name:    "churn-model",
		Type:    "sagemaker",
		Version: deployment.Version{Major: 2, Minor: 3},
		Instance: deployment.Instance{
			Type:         "ml.m5.large",
			Count:        2,
			VolumeSizeGB: 100,
			Region:       "us-east-1",
			Tags:         map[string]string{"team": "ml-team", "project": "insight-engine-2.0"},
		},
		Cache: deployment.Cache{Enabled: true, TTL: 600},
		Autoscaling: deployment.Autoscaling{
			Enabled:                      true,
			MinInstances:                 1,
			MaxInstances:                 4,
			TargetInvocationsPerInstance: 100,
		},
		DeployTimeout: 1200,
	}
	path := filepath.Join(t.TempDir(), "release.yaml")
	require.NoError(t, Save(cfg, path))

	got, err := Load(path)
	require.NoError(t, err)
	// Environment is not part of the file; the loader leaves the default.
	cfg.Environment = deployment.EnvDev
	assert.Equal(t, cfg, got)
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "release.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: churn-model\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "churn-model", cfg.Name)
	assert.Equal(t, "sagemaker", cfg.Type)
	assert.Equal(t, deployment.DefaultInstanceType, cfg.Instance.Type)
	assert.Equal(t, uint(deployment.DefaultInstanceCount), cfg.Instance.Count)
	assert.Equal(t, deployment.DefaultRegion, cfg.Instance.Region)
	assert.Equal(t, deployment.DefaultCacheTTL, cfg.Cache.TTL)
	assert.Equal(t, deployment.DefaultDeployTimeout, cfg.DeployTimeout)
	assert.Equal(t, deployment.EnvDev, cfg.Environment)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorAs(t, err, &deployment.ParseError{})
}

func TestLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "release.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: [unclosed\n"), 0o644))
	_, err := Load(path)
	assert.ErrorAs(t, err, &deployment.ParseError{})
}

func TestLoadMissingName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "release.yaml")
	require.NoError(t, os.WriteFile(path, []byte("type: sagemaker\n"), 0o644))
	_, err := Load(path)
	assert.ErrorAs(t, err, &deployment.ValidationError{})
}

func TestAutoscalingBoundsChecked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "release.yaml")
	descriptor := `name: churn-model
autoscaling:
  enabled: true
  minInstances: 5
  maxInstances: 2
`
	require.NoError(t, os.WriteFile(path, []byte(descriptor), 0o644))
	_, err := Load(path)
	assert.ErrorAs(t, err, &deployment.ValidationError{})
}
