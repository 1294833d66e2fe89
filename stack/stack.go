package stack

import (
	"fmt"
	"strings"
	"time"

	"github.com/raulk/clock"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"mldeploy/apigateway"
	"mldeploy/apigee"
	"mldeploy/lambda"
	"mldeploy/lib/deployment"
	libgateway "mldeploy/lib/gateway"
	liblambda "mldeploy/lib/lambda"
	libsagemaker "mldeploy/lib/sagemaker"
	"mldeploy/sagemaker"
)

// DefaultPollInterval is how often the deploy waits between endpoint status
// checks.
const DefaultPollInterval = 30 * time.Second

type StackArgs struct {
	Region                 string `arg:"--region,env:AWS_REGION" help:"AWS region"`
	SagemakerExecutionRole string `arg:"--sagemaker-execution-role,env:SAGEMAKER_EXECUTION_ROLE" help:"SageMaker execution role ARN"`
	LambdaExecutionRole    string `arg:"--lambda-execution-role,env:LAMBDA_EXECUTION_ROLE" help:"Lambda execution role ARN"`
	ApigeeOrg              string `arg:"--apigee-org,env:APIGEE_ORG" help:"Apigee organization"`
	ECRRegistry            string `arg:"--ecr-registry,env:AWS_ECR_REGISTRY" help:"ECR registry host"`
	BuildID                string `arg:"--build-id,env:CIRCLE_SHA1" help:"image tag pushed by the build job"`
	Dev                    bool   `arg:"--dev" default:"false" help:"run in dev mode (plaintext logs)"`
}

func (args StackArgs) Valid() error {
	missingFields := make([]string, 0)
	if args.Region == "" {
		missingFields = append(missingFields, "REGION")
	}
	if args.SagemakerExecutionRole == "" {
		missingFields = append(missingFields, "SAGEMAKER_EXECUTION_ROLE")
	}
	if args.LambdaExecutionRole == "" {
		missingFields = append(missingFields, "LAMBDA_EXECUTION_ROLE")
	}
	if len(missingFields) > 0 {
		return deployment.ConfigError{
			Reason: fmt.Sprintf("missing fields: %s", strings.Join(missingFields, ", ")),
		}
	}
	return nil
}

// Stack bundles every client the deployment controller needs. Clients are
// held as interfaces so controller tests can swap in fakes.
type Stack struct {
	Sagemaker     libsagemaker.Registry
	SagemakerRole string
	Lambda        liblambda.Registry
	LambdaRole    string
	Gateway       libgateway.API
	Apigee        apigee.Client
	Clock         clock.Clock
	Logger        *zap.Logger
	Region        string
	ECRRegistry   string
	BuildID       string
	PollInterval  time.Duration
}

func CreateFromArgs(args *StackArgs) (stack Stack, err error) {
	if err = args.Valid(); err != nil {
		return stack, err
	}

	var logger *zap.Logger
	if args.Dev {
		logger, err = zap.NewDevelopment()
	} else {
		config := zap.NewProductionConfig()
		config.EncoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder
		logger, err = config.Build(
			zap.AddCaller(),
			zap.AddStacktrace(zap.ErrorLevel),
		)
	}
	if err != nil {
		return stack, fmt.Errorf("failed to construct logger: %v", err)
	}
	logger = logger.With(zap.String("region", args.Region))
	_ = zap.ReplaceGlobals(logger)

	smclient, err := sagemaker.NewClient(sagemaker.SagemakerArgs{
		Region:                 args.Region,
		SagemakerExecutionRole: args.SagemakerExecutionRole,
	}, logger)
	if err != nil {
		return stack, fmt.Errorf("failed to create sagemaker client: %v", err)
	}
	lambdaClient := lambda.NewClient(lambda.LambdaArgs{
		Region:              args.Region,
		LambdaExecutionRole: args.LambdaExecutionRole,
	})
	gatewayClient := apigateway.NewClient(apigateway.GatewayArgs{Region: args.Region})
	apigeeClient := apigee.NewClient(apigee.ApigeeArgs{Org: args.ApigeeOrg}, logger)

	return Stack{
		Sagemaker:     smclient,
		SagemakerRole: args.SagemakerExecutionRole,
		Lambda:        lambdaClient,
		LambdaRole:    args.LambdaExecutionRole,
		Gateway:       gatewayClient,
		Apigee:        apigeeClient,
		Clock:         clock.New(),
		Logger:        logger,
		Region:        args.Region,
		ECRRegistry:   args.ECRRegistry,
		BuildID:       args.BuildID,
		PollInterval:  DefaultPollInterval,
	}, nil
}
