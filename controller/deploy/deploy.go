package deploy

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/samber/mo"
	"go.uber.org/zap"

	"mldeploy/codegen"
	"mldeploy/lib/deployment"
	liblambda "mldeploy/lib/lambda"
	libsagemaker "mldeploy/lib/sagemaker"
	"mldeploy/stack"
)

// variantName is the single production variant every endpoint config carries.
const variantName = "AllTraffic"

// Result is what a full deployment run produces. Exactly one of Gateway and
// Proxy is set, depending on the target environment.
type Result struct {
	Endpoint deployment.EndpointDescriptor
	Function deployment.FunctionDescriptor
	Gateway  mo.Option[deployment.GatewayResult]
	Proxy    mo.Option[deployment.ProxyResult]
}

// Run executes the deployment stages in order: serving endpoint, fronting
// function, then the environment's API surface. Each stage consumes the
// previous stage's output; the first failure aborts the run.
func Run(ctx context.Context, s stack.Stack, cfg deployment.Config) (Result, error) {
	if err := cfg.Valid(); err != nil {
		return Result{}, err
	}

	endpoint, err := DeploySagemaker(ctx, s, cfg)
	if err != nil {
		return Result{}, fmt.Errorf("sagemaker stage: %w", err)
	}
	function, err := DeployLambda(ctx, s, cfg, endpoint)
	if err != nil {
		return Result{}, fmt.Errorf("lambda stage: %w", err)
	}

	result := Result{Endpoint: endpoint, Function: function}
	if cfg.Environment.UsesGateway() {
		gw, err := SetupGateway(ctx, s, cfg, function)
		if err != nil {
			return Result{}, fmt.Errorf("gateway stage: %w", err)
		}
		result.Gateway = mo.Some(gw)
	} else {
		proxy, err := SetupProxy(ctx, s, cfg)
		if err != nil {
			return Result{}, fmt.Errorf("proxy stage: %w", err)
		}
		result.Proxy = mo.Some(proxy)
	}
	return result, nil
}

// ImageURI is where the build job pushed this deployment's inference image.
func ImageURI(s stack.Stack, cfg deployment.Config) (string, error) {
	if s.ECRRegistry == "" {
		return "", deployment.ConfigError{Reason: "AWS_ECR_REGISTRY not set"}
	}
	if s.BuildID == "" {
		return "", deployment.ConfigError{Reason: "CIRCLE_SHA1 not set"}
	}
	return fmt.Sprintf("%s/%s:%s", s.ECRRegistry, cfg.Name, s.BuildID), nil
}

// DeploySagemaker reconciles the serving side: model, a fresh endpoint
// config, the endpoint itself, and finally autoscaling once the endpoint is
// in service.
func DeploySagemaker(ctx context.Context, s stack.Stack, cfg deployment.Config) (deployment.EndpointDescriptor, error) {
	endpointName := cfg.EndpointName()
	s.Logger.Info("Deploying sagemaker endpoint", zap.String("endpoint", endpointName))

	// Resolve the image reference up front. Missing build metadata fails the
	// stage before any remote state is touched, even on a redeploy whose model
	// already exists.
	imageURI, err := ImageURI(s, cfg)
	if err != nil {
		return deployment.EndpointDescriptor{}, err
	}

	if err := ensureModelExists(ctx, s, cfg, imageURI); err != nil {
		return deployment.EndpointDescriptor{}, err
	}

	// Endpoint configs are immutable, so every deploy mints a new one and
	// rolls the endpoint over to it.
	endpointConfigName := fmt.Sprintf("%s-config-%d", cfg.Name, s.Clock.Now().Unix())
	err = s.Sagemaker.CreateEndpointConfig(ctx, libsagemaker.EndpointConfig{
		Name:          endpointConfigName,
		ModelName:     cfg.Name,
		VariantName:   variantName,
		InstanceType:  cfg.Instance.Type,
		InstanceCount: cfg.Instance.Count,
		Tags:          resourceTags(cfg),
	})
	if err != nil {
		return deployment.EndpointDescriptor{}, fmt.Errorf("failed to create endpoint config: %w", err)
	}

	exists, err := s.Sagemaker.EndpointExists(ctx, endpointName)
	if err != nil {
		return deployment.EndpointDescriptor{}, deployment.RemoteStateError{Op: "describe endpoint", Err: err}
	}
	endpoint := libsagemaker.Endpoint{
		Name:               endpointName,
		EndpointConfigName: endpointConfigName,
		Tags:               resourceTags(cfg),
	}
	if exists {
		previousConfig, cerr := s.Sagemaker.GetCurrentEndpointConfigName(ctx, endpointName)
		if cerr != nil {
			return deployment.EndpointDescriptor{}, deployment.RemoteStateError{Op: "describe endpoint", Err: cerr}
		}
		s.Logger.Info("Updating existing endpoint",
			zap.String("endpoint", endpointName),
			zap.String("from_config", previousConfig),
			zap.String("to_config", endpointConfigName))
		err = s.Sagemaker.UpdateEndpoint(ctx, endpoint)
	} else {
		s.Logger.Info("Creating new endpoint", zap.String("endpoint", endpointName))
		err = s.Sagemaker.CreateEndpoint(ctx, endpoint)
	}
	if err != nil {
		return deployment.EndpointDescriptor{}, fmt.Errorf("failed to deploy endpoint: %w", err)
	}

	if err = waitUntilInService(ctx, s, endpointName, cfg); err != nil {
		return deployment.EndpointDescriptor{}, err
	}

	if err = reconcileAutoscaling(ctx, s, cfg, endpointName); err != nil {
		return deployment.EndpointDescriptor{}, err
	}

	arn, err := s.Sagemaker.GetEndpointArn(ctx, endpointName)
	if err != nil {
		return deployment.EndpointDescriptor{}, deployment.RemoteStateError{Op: "describe endpoint", Err: err}
	}
	s.Logger.Info("Endpoint deployed", zap.String("endpoint", endpointName), zap.String("arn", arn))
	return deployment.EndpointDescriptor{
		EndpointName: endpointName,
		EndpointArn:  arn,
		ModelName:    cfg.Name,
		Status:       deployment.StatusInService,
	}, nil
}

func ensureModelExists(ctx context.Context, s stack.Stack, cfg deployment.Config, imageURI string) error {
	exists, err := s.Sagemaker.ModelExists(ctx, cfg.Name)
	if err != nil {
		return deployment.RemoteStateError{Op: "describe model", Err: err}
	}
	if exists {
		s.Logger.Info("Model already exists, skipping creation", zap.String("model", cfg.Name))
		return nil
	}
	s.Logger.Info("Creating sagemaker model",
		zap.String("model", cfg.Name), zap.String("image", imageURI))
	err = s.Sagemaker.CreateModel(ctx, libsagemaker.Model{
		Name:          cfg.Name,
		ImageURI:      imageURI,
		ExecutionRole: s.SagemakerRole,
		Environment: map[string]string{
			"MODEL_NAME":  cfg.Name,
			"ENVIRONMENT": string(cfg.Environment),
		},
		Tags: resourceTags(cfg),
	})
	if err != nil {
		return fmt.Errorf("failed to create model: %w", err)
	}
	return nil
}

// waitUntilInService polls the endpoint status until it reaches InService,
// hits a terminal failure status, or exhausts the deploy budget. The budget
// is checked before each poll so a run can never start a poll past its
// deadline.
func waitUntilInService(ctx context.Context, s stack.Stack, endpointName string, cfg deployment.Config) error {
	budget := cfg.DeployBudget()
	start := s.Clock.Now()
	for {
		if s.Clock.Since(start) >= budget {
			return deployment.TimeoutError{Op: "wait for endpoint " + endpointName, Budget: budget}
		}
		status, err := s.Sagemaker.GetEndpointStatus(ctx, endpointName)
		if err != nil {
			return deployment.RemoteStateError{Op: "describe endpoint", Err: err}
		}
		s.Logger.Info("Endpoint status", zap.String("endpoint", endpointName), zap.String("status", status))
		switch status {
		case deployment.StatusInService:
			return nil
		case deployment.StatusFailed, deployment.StatusRolledBack:
			return deployment.RemoteOpError{Op: "deploy endpoint " + endpointName, Status: status}
		}
		if s.PollInterval > 0 {
			s.Clock.Sleep(s.PollInterval)
		}
	}
}

// reconcileAutoscaling brings the variant's scaling registration in line with
// the descriptor: register a target when enabled, tear a stale one down when
// the descriptor has flipped it off.
func reconcileAutoscaling(ctx context.Context, s stack.Stack, cfg deployment.Config, endpointName string) error {
	configured, err := s.Sagemaker.IsAutoscalingConfigured(ctx, endpointName, variantName)
	if err != nil {
		return deployment.RemoteStateError{Op: "describe autoscaling", Err: err}
	}
	if !cfg.Autoscaling.Enabled {
		if configured {
			s.Logger.Info("Disabling stale autoscaling", zap.String("endpoint", endpointName))
			if err = s.Sagemaker.DisableAutoscaling(ctx, endpointName, variantName); err != nil {
				return fmt.Errorf("failed to disable autoscaling: %w", err)
			}
		}
		return nil
	}
	if configured {
		s.Logger.Info("Autoscaling already configured", zap.String("endpoint", endpointName))
		return nil
	}
	err = s.Sagemaker.EnableAutoscaling(ctx, libsagemaker.AutoscalingTarget{
		EndpointName:                 endpointName,
		VariantName:                  variantName,
		MinCapacity:                  cfg.Autoscaling.MinInstances,
		MaxCapacity:                  cfg.Autoscaling.MaxInstances,
		TargetInvocationsPerInstance: cfg.Autoscaling.TargetInvocationsPerInstance,
	})
	if err != nil {
		return fmt.Errorf("failed to enable autoscaling: %w", err)
	}
	return nil
}

// DeployLambda renders the handler for this deployment, packages it and
// pushes it out, creating the function if it does not exist yet.
func DeployLambda(ctx context.Context, s stack.Stack, cfg deployment.Config, endpoint deployment.EndpointDescriptor) (deployment.FunctionDescriptor, error) {
	functionName := cfg.FunctionName()
	s.Logger.Info("Deploying lambda function", zap.String("function", functionName))

	source, err := codegen.RenderHandler(codegen.HandlerParams{ModelName: cfg.Name})
	if err != nil {
		return deployment.FunctionDescriptor{}, err
	}
	zipped, err := codegen.PackageHandler(source)
	if err != nil {
		return deployment.FunctionDescriptor{}, err
	}

	spec := liblambda.FunctionSpec{
		Name:         functionName,
		Role:         s.LambdaRole,
		Handler:      "lambda_handler.lambda_handler",
		Runtime:      "python3.11",
		TimeoutSec:   900,
		MemorySizeMB: 512,
		ZipFile:      zipped,
		Environment: map[string]string{
			"SAGEMAKER_ENDPOINT": endpoint.EndpointName,
			"CACHE_ENABLED":      pythonBool(cfg.Cache.Enabled),
			"CACHE_TTL":          strconv.Itoa(cfg.Cache.TTL),
			"MODEL_NAME":         cfg.Name,
		},
		Tags: resourceTags(cfg),
	}

	arn, err := s.Lambda.UpdateFunction(ctx, spec)
	switch {
	case err == nil:
		s.Logger.Info("Updated existing lambda function", zap.String("function", functionName))
	case errors.Is(err, liblambda.ErrFunctionNotFound):
		s.Logger.Info("Creating new lambda function", zap.String("function", functionName))
		arn, err = s.Lambda.CreateFunction(ctx, spec)
		if err != nil {
			return deployment.FunctionDescriptor{}, fmt.Errorf("failed to create function: %w", err)
		}
	default:
		return deployment.FunctionDescriptor{}, fmt.Errorf("failed to update function: %w", err)
	}
	return deployment.FunctionDescriptor{
		FunctionName: functionName,
		FunctionArn:  arn,
		Status:       "Active",
	}, nil
}

// pythonBool matches the casing the generated handler parses.
func pythonBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// SetupGateway wires the dev API surface: a shared per-environment user pool,
// an app client, a REST API with a Cognito authorizer in front of the
// function, a stage deployment and an API key.
func SetupGateway(ctx context.Context, s stack.Stack, cfg deployment.Config, function deployment.FunctionDescriptor) (deployment.GatewayResult, error) {
	poolName := fmt.Sprintf("ie2-user-pool-%s", cfg.Environment)
	poolID, found, err := s.Gateway.LookupUserPool(ctx, poolName)
	if err != nil {
		return deployment.GatewayResult{}, deployment.RemoteStateError{Op: "lookup user pool", Err: err}
	}
	if !found {
		s.Logger.Info("Creating user pool", zap.String("pool", poolName))
		if poolID, err = s.Gateway.CreateUserPool(ctx, poolName); err != nil {
			return deployment.GatewayResult{}, fmt.Errorf("failed to create user pool: %w", err)
		}
	}

	clientID, err := s.Gateway.CreateAppClient(ctx, poolID, fmt.Sprintf("%s-client", cfg.Name))
	if err != nil {
		return deployment.GatewayResult{}, fmt.Errorf("failed to create app client: %w", err)
	}

	apiName := fmt.Sprintf("%s-api-%s", cfg.Name, cfg.Environment)
	apiID, found, err := s.Gateway.LookupRestAPI(ctx, apiName)
	if err != nil {
		return deployment.GatewayResult{}, deployment.RemoteStateError{Op: "lookup rest api", Err: err}
	}
	if !found {
		s.Logger.Info("Creating REST API", zap.String("api", apiName))
		apiID, err = s.Gateway.CreateRestAPI(ctx, apiName, fmt.Sprintf("API for %s model", cfg.Name))
		if err != nil {
			return deployment.GatewayResult{}, fmt.Errorf("failed to create rest api: %w", err)
		}
	}

	authorizerID, err := s.Gateway.CreateAuthorizer(ctx, apiID, fmt.Sprintf("%s-cognito-auth", cfg.Name), poolID)
	if err != nil {
		return deployment.GatewayResult{}, fmt.Errorf("failed to create authorizer: %w", err)
	}
	if _, err = s.Gateway.CreateInvokeRoute(ctx, apiID, authorizerID, function.FunctionArn); err != nil {
		return deployment.GatewayResult{}, fmt.Errorf("failed to create invoke route: %w", err)
	}
	endpointURL, err := s.Gateway.CreateDeployment(ctx, apiID, string(cfg.Environment))
	if err != nil {
		return deployment.GatewayResult{}, fmt.Errorf("failed to deploy api: %w", err)
	}
	apiKey, err := s.Gateway.CreateAPIKey(ctx, fmt.Sprintf("%s-key-%s", cfg.Name, cfg.Environment))
	if err != nil {
		return deployment.GatewayResult{}, fmt.Errorf("failed to create api key: %w", err)
	}

	s.Logger.Info("API gateway ready",
		zap.String("api", apiName), zap.String("url", endpointURL))
	return deployment.GatewayResult{
		APIID:       apiID,
		EndpointURL: endpointURL,
		APIKey:      apiKey,
		UserPoolID:  poolID,
		AppClientID: clientID,
	}, nil
}

// SetupProxy prepares the Apigee proxy bundle for stage/prod environments.
func SetupProxy(ctx context.Context, s stack.Stack, cfg deployment.Config) (deployment.ProxyResult, error) {
	if s.Apigee.Org() == "" {
		return deployment.ProxyResult{}, deployment.ConfigError{Reason: "APIGEE_ORG not set"}
	}
	return s.Apigee.Setup(ctx, cfg)
}

func resourceTags(cfg deployment.Config) map[string]string {
	tags := map[string]string{
		"Environment": string(cfg.Environment),
		"ManagedBy":   "CircleCI",
		"Project":     "InsightEngine2.0",
	}
	for k, v := range cfg.Instance.Tags {
		tags[k] = v
	}
	return tags
}
