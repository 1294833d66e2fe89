package prompt

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mldeploy/lib/deployment"
)

// session joins scripted answers, one per question, with newlines.
func session(answers ...string) io.Reader {
	return strings.NewReader(strings.Join(answers, "\n") + "\n")
}

func TestCollectDefaults(t *testing.T) {
	// Empty answers everywhere: dev environment never asks about autoscaling.
	in := session(
		"", // environment -> dev
		"", // instance type -> ml.m5.xlarge
		"", // instance count -> 1
		"", // cache -> enabled
		"", // cache ttl -> 3600
		"", // region -> eu-central-1
		"", // team -> ml-team
		"", // volume size -> 50
		"y",
	)
	var out strings.Builder
	opts, err := NewInteractive(in, &out).Collect("churn-model")
	require.NoError(t, err)

	assert.Equal(t, deployment.EnvDev, opts.Environment)
	assert.Equal(t, "ml.m5.xlarge", opts.InstanceType)
	assert.Equal(t, uint(1), opts.InstanceCount)
	assert.False(t, opts.Autoscaling.Enabled)
	assert.True(t, opts.Cache.Enabled)
	assert.Equal(t, 3600, opts.Cache.TTL)
	assert.Equal(t, "eu-central-1", opts.Region)
	assert.Equal(t, "ml-team", opts.Team)
	assert.Equal(t, 50, opts.VolumeSizeGB)
	assert.True(t, strings.Contains(out.String(), "Configuration Summary"))
}

func TestCollectProdWithAutoscaling(t *testing.T) {
	in := session(
		"4",   // prod
		"8",   // ml.g4dn.xlarge
		"3",   // 3 instances
		"y",   // autoscaling
		"2",   // min
		"6",   // max
		"200", // target invocations
		"n",   // no cache
		"2",   // us-east-1
		"fraud-squad",
		"100", // volume
		"y",
	)
	opts, err := NewInteractive(in, io.Discard).Collect("fraud-model")
	require.NoError(t, err)

	assert.Equal(t, deployment.EnvProd, opts.Environment)
	assert.Equal(t, "ml.g4dn.xlarge", opts.InstanceType)
	assert.Equal(t, uint(3), opts.InstanceCount)
	assert.Equal(t, deployment.Autoscaling{
		Enabled:                      true,
		MinInstances:                 2,
		MaxInstances:                 6,
		TargetInvocationsPerInstance: 200,
	}, opts.Autoscaling)
	assert.False(t, opts.Cache.Enabled)
	assert.Equal(t, "us-east-1", opts.Region)
	assert.Equal(t, "fraud-squad", opts.Team)
	assert.Equal(t, 100, opts.VolumeSizeGB)
}

func TestCollectNonDevDefaultsToTwoInstances(t *testing.T) {
	in := session(
		"2", // qa
		"",  // instance type
		"",  // instance count -> 2 outside dev
		"",  // cache
		"",  // ttl
		"",  // region
		"",  // team
		"",  // volume
		"y",
	)
	opts, err := NewInteractive(in, io.Discard).Collect("churn-model")
	require.NoError(t, err)
	assert.Equal(t, deployment.EnvQA, opts.Environment)
	assert.Equal(t, uint(2), opts.InstanceCount)
	// qa sits between dev and staging: no autoscaling question either.
	assert.False(t, opts.Autoscaling.Enabled)
}

func TestCollectCustomRegion(t *testing.T) {
	in := session("", "", "", "", "", "ap-northeast-1", "", "", "y")
	opts, err := NewInteractive(in, io.Discard).Collect("churn-model")
	require.NoError(t, err)
	assert.Equal(t, "ap-northeast-1", opts.Region)
}

func TestCollectAborted(t *testing.T) {
	in := session("", "", "", "", "", "", "", "", "n")
	_, err := NewInteractive(in, io.Discard).Collect("churn-model")
	assert.ErrorIs(t, err, ErrAborted)
}

func TestCollectTruncatedInput(t *testing.T) {
	_, err := NewInteractive(strings.NewReader("1\n"), io.Discard).Collect("churn-model")
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestOptionsConfig(t *testing.T) {
	opts := Options{
		Environment:   deployment.EnvStaging,
		InstanceType:  "ml.c5.xlarge",
		InstanceCount: 2,
		Cache:         deployment.Cache{Enabled: true, TTL: 600},
		Region:        "us-west-2",
		Team:          "ml-team",
		VolumeSizeGB:  80,
	}
	cfg := opts.Config("churn-model")

	assert.Equal(t, "churn-model", cfg.Name)
	assert.Equal(t, deployment.EnvStaging, cfg.Environment)
	assert.Equal(t, "ml.c5.xlarge", cfg.Instance.Type)
	assert.Equal(t, map[string]string{
		"managedby": "terraform",
		"project":   "insight-engine-2.0",
		"team":      "ml-team",
	}, cfg.Instance.Tags)
	assert.Equal(t, 600, cfg.Cache.TTL)
	// Fields the questionnaire leaves untouched pick up defaults.
	assert.Equal(t, deployment.DefaultDeployTimeout, cfg.DeployTimeout)
	assert.NoError(t, cfg.Valid())
}

func TestFeatureBranchName(t *testing.T) {
	assert.Equal(t, "feature/deploy-churn-model", FeatureBranchName("churn-model"))
}
