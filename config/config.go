package config

import (
	"fmt"
	"os"
	"path/filepath"

	"mldeploy/lib/deployment"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the deploy command looks for the descriptor.
const DefaultPath = "release.yaml"

// ModelBucket holds packaged model artifacts referenced by the CI jobs.
const ModelBucket = "insights-engine-sagemaker-models"

// releaseFile is the on-disk layout of release.yaml. The sagemaker block is
// derived on save for the CI jobs to read; it is ignored on load.
type releaseFile struct {
	Name          string                 `yaml:"name"`
	Type          string                 `yaml:"type"`
	Version       deployment.Version     `yaml:"version"`
	Instance      deployment.Instance    `yaml:"instance"`
	Cache         deployment.Cache       `yaml:"cache"`
	Autoscaling   deployment.Autoscaling `yaml:"autoscaling"`
	DeployTimeout int                    `yaml:"deployTimeout"`
	Sagemaker     sagemakerBlock         `yaml:"sagemaker"`
}

type sagemakerBlock struct {
	Bucket        string `yaml:"bucket"`
	ModelName     string `yaml:"model_name"`
	EndpointName  string `yaml:"endpoint_name"`
	ModelDesc     string `yaml:"model_desc"`
	InstanceType  string `yaml:"instance_type"`
	InstanceCount uint   `yaml:"instance_count"`
}

// Load reads a deployment descriptor, fills defaults for every optional
// block and validates the result. The target environment is not part of the
// file; the caller sets it from the invocation.
func Load(path string) (deployment.Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return deployment.Config{}, deployment.ParseError{Path: path, Err: err}
	}
	var file releaseFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return deployment.Config{}, deployment.ParseError{Path: path, Err: err}
	}
	cfg := deployment.Config{
		Name:          file.Name,
		Type:          file.Type,
		Version:       file.Version,
		Instance:      file.Instance,
		Cache:         file.Cache,
		Autoscaling:   file.Autoscaling,
		DeployTimeout: file.DeployTimeout,
	}
	cfg.ApplyDefaults()
	if err := cfg.Valid(); err != nil {
		return deployment.Config{}, err
	}
	return cfg, nil
}

// Save writes the descriptor in a stable, hand-editable layout. Saving then
// loading yields an equivalent config.
func Save(cfg deployment.Config, path string) error {
	file := releaseFile{
		Name:          cfg.Name,
		Type:          cfg.Type,
		Version:       cfg.Version,
		Instance:      cfg.Instance,
		Cache:         cfg.Cache,
		Autoscaling:   cfg.Autoscaling,
		DeployTimeout: cfg.DeployTimeout,
		Sagemaker: sagemakerBlock{
			Bucket:        ModelBucket,
			ModelName:     cfg.Name,
			EndpointName:  fmt.Sprintf("%s-endpoint", cfg.Name),
			ModelDesc:     fmt.Sprintf("%s ML model", cfg.Name),
			InstanceType:  cfg.Instance.Type,
			InstanceCount: cfg.Instance.Count,
		},
	}
	raw, err := yaml.Marshal(file)
	if err != nil {
		return fmt.Errorf("failed to marshal descriptor: %v", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create descriptor directory: %v", err)
		}
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write descriptor %s: %v", path, err)
	}
	return nil
}
