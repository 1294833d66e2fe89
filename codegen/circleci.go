package codegen

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"mldeploy/lib/deployment"
)

// CIParams parameterize the generated pipeline definition.
type CIParams struct {
	ModelName     string
	InstanceType  string
	InstanceCount uint
	AWSRegion     string
	Environment   deployment.Environment
}

// CIConfig is the typed shape of the generated CircleCI config. Keeping it
// structured (instead of interpolating YAML text) lets tests diff the job
// graph directly.
type CIConfig struct {
	Version    float64                `yaml:"version"`
	Orbs       map[string]string      `yaml:"orbs"`
	Parameters map[string]CIParameter `yaml:"parameters"`
	Jobs       map[string]CIJob       `yaml:"jobs"`
	Workflows  map[string]CIWorkflow  `yaml:"workflows"`
}

type CIParameter struct {
	Type    string      `yaml:"type"`
	Default interface{} `yaml:"default"`
}

type CIJob struct {
	Docker []CIDocker    `yaml:"docker"`
	Steps  []interface{} `yaml:"steps"`
}

type CIDocker struct {
	Image string `yaml:"image"`
}

type CIWorkflow struct {
	Jobs []interface{} `yaml:"jobs"`
}

type ciRun struct {
	Name    string `yaml:"name"`
	Command string `yaml:"command"`
}

const ciImage = "cimg/go:1.18"

// BuildCIConfig assembles the pipeline job graph: code quality, image build,
// a manual approval gate, then the deploy stages matching the target
// environment.
func BuildCIConfig(params CIParams) CIConfig {
	cfg := CIConfig{
		Version: 2.1,
		Orbs: map[string]string{
			"aws-cli": "circleci/aws-cli@4.1.0",
			"aws-ecr": "circleci/aws-ecr@9.0.0",
		},
		Parameters: map[string]CIParameter{
			"model-name":     {Type: "string", Default: params.ModelName},
			"instance-type":  {Type: "string", Default: params.InstanceType},
			"instance-count": {Type: "integer", Default: int(params.InstanceCount)},
			"aws-region":     {Type: "string", Default: params.AWSRegion},
			"environment":    {Type: "string", Default: string(params.Environment)},
		},
		Jobs: map[string]CIJob{
			"code-quality-scan": {
				Docker: []CIDocker{{Image: ciImage}},
				Steps: []interface{}{
					"checkout",
					map[string]interface{}{"run": ciRun{
						Name:    "Run tests",
						Command: "go test ./...",
					}},
				},
			},
			"build-and-push-image": {
				Docker: []CIDocker{{Image: ciImage}},
				Steps: []interface{}{
					"checkout",
					"setup_remote_docker",
					map[string]interface{}{"aws-ecr/build-and-push-image": map[string]string{
						"repo":   fmt.Sprintf("${AWS_ECR_REGISTRY}/%s", params.ModelName),
						"tag":    "$CIRCLE_SHA1,latest",
						"region": "$AWS_REGION",
					}},
				},
			},
			"deploy-sagemaker": {
				Docker: []CIDocker{{Image: ciImage}},
				Steps: []interface{}{
					"checkout",
					map[string]interface{}{"aws-cli/setup": map[string]string{
						"role_arn": "$AWS_ROLE_ARN",
						"region":   "$AWS_REGION",
					}},
					map[string]interface{}{"run": ciRun{
						Name:    "Deploy to SageMaker",
						Command: "mldeploy deploy --environment << pipeline.parameters.environment >>",
					}},
				},
			},
			"deploy-lambda": {
				Docker: []CIDocker{{Image: ciImage}},
				Steps: []interface{}{
					"checkout",
					map[string]interface{}{"aws-cli/setup": map[string]string{
						"role_arn": "$AWS_ROLE_ARN",
						"region":   "$AWS_REGION",
					}},
					map[string]interface{}{"run": ciRun{
						Name:    "Deploy Lambda function",
						Command: "mldeploy deploy --environment << pipeline.parameters.environment >>",
					}},
				},
			},
		},
		Workflows: map[string]CIWorkflow{
			"build-test-deploy": {
				Jobs: []interface{}{
					"code-quality-scan",
					map[string]interface{}{"build-and-push-image": map[string]interface{}{
						"requires": []string{"code-quality-scan"},
						"context":  []string{"aws-credentials"},
					}},
					map[string]interface{}{"approve-deploy": map[string]interface{}{
						"type":     "approval",
						"requires": []string{"build-and-push-image"},
						"filters": map[string]interface{}{
							"branches": map[string]interface{}{
								"only": []string{"main", "develop"},
							},
						},
					}},
					map[string]interface{}{"deploy-sagemaker": map[string]interface{}{
						"requires": []string{"approve-deploy"},
						"context":  []string{"aws-credentials"},
					}},
					map[string]interface{}{"deploy-lambda": map[string]interface{}{
						"requires": []string{"deploy-sagemaker"},
						"context":  []string{"aws-credentials"},
					}},
				},
			},
		},
	}

	workflow := cfg.Workflows["build-test-deploy"]
	if params.Environment.UsesGateway() {
		cfg.Jobs["setup-api-gateway"] = CIJob{
			Docker: []CIDocker{{Image: ciImage}},
			Steps: []interface{}{
				"checkout",
				map[string]interface{}{"aws-cli/setup": map[string]string{
					"role_arn": "$AWS_ROLE_ARN",
					"region":   "$AWS_REGION",
				}},
				map[string]interface{}{"run": ciRun{
					Name:    "Setup API Gateway (dev)",
					Command: "mldeploy deploy --environment dev",
				}},
			},
		}
		workflow.Jobs = append(workflow.Jobs, map[string]interface{}{
			"setup-api-gateway": map[string]interface{}{
				"requires": []string{"deploy-lambda"},
				"context":  []string{"aws-credentials"},
			},
		})
	} else {
		cfg.Jobs["setup-apigeex"] = CIJob{
			Docker: []CIDocker{{Image: ciImage}},
			Steps: []interface{}{
				"checkout",
				map[string]interface{}{"run": ciRun{
					Name:    "Setup ApigeeX proxy",
					Command: fmt.Sprintf("mldeploy deploy --environment %s", params.Environment),
				}},
			},
		}
		workflow.Jobs = append(workflow.Jobs, map[string]interface{}{
			"setup-apigeex": map[string]interface{}{
				"requires": []string{"deploy-lambda"},
				"context":  []string{"gcp-credentials"},
			},
		})
	}
	cfg.Workflows["build-test-deploy"] = workflow
	return cfg
}

// WriteCIConfig saves the pipeline definition, creating .circleci/ as needed.
func WriteCIConfig(cfg CIConfig, path string) error {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal circleci config: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create circleci directory: %v", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write circleci config: %v", err)
	}
	return nil
}
