package sagemaker

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/applicationautoscaling"
	"github.com/aws/aws-sdk-go/service/sagemaker"
	"go.uber.org/zap"

	lib "mldeploy/lib/sagemaker"
)

type SagemakerArgs struct {
	Region                 string `arg:"--region,env:AWS_REGION" help:"AWS region"`
	SagemakerExecutionRole string `arg:"--sagemaker-execution-role,env:SAGEMAKER_EXECUTION_ROLE" help:"SageMaker execution role"`
}

func NewClient(args SagemakerArgs, logger *zap.Logger) (SMClient, error) {
	sess := session.Must(session.NewSession(
		&aws.Config{
			Region:                        aws.String(args.Region),
			CredentialsChainVerboseErrors: aws.Bool(true),
		},
	))
	metadata := sagemaker.New(sess)
	autoscaling := applicationautoscaling.New(sess)
	return SMClient{
		args:              args,
		metadataClient:    metadata,
		autoscalingClient: autoscaling,
		logger:            logger,
	}, nil
}

type SMClient struct {
	args              SagemakerArgs
	metadataClient    *sagemaker.SageMaker
	autoscalingClient *applicationautoscaling.ApplicationAutoScaling
	logger            *zap.Logger
}

var _ lib.Registry = SMClient{}

func (smc SMClient) ExecutionRole() string {
	return smc.args.SagemakerExecutionRole
}

func (smc SMClient) CreateModel(ctx context.Context, model lib.Model) error {
	env := make(map[string]*string, len(model.Environment))
	for k, v := range model.Environment {
		env[k] = aws.String(v)
	}
	modelInput := sagemaker.CreateModelInput{
		ModelName:        aws.String(model.Name),
		ExecutionRoleArn: aws.String(model.ExecutionRole),
		PrimaryContainer: &sagemaker.ContainerDefinition{
			Image:       aws.String(model.ImageURI),
			Mode:        aws.String("SingleModel"),
			Environment: env,
		},
		Tags: sagemakerTags(model.Tags),
	}
	_, err := smc.metadataClient.CreateModelWithContext(ctx, &modelInput)
	if err != nil {
		return fmt.Errorf("failed to create model: %v", err)
	}
	return nil
}

func (smc SMClient) ModelExists(ctx context.Context, modelName string) (bool, error) {
	input := sagemaker.DescribeModelInput{
		ModelName: aws.String(modelName),
	}
	_, err := smc.metadataClient.DescribeModelWithContext(ctx, &input)
	if err != nil {
		if isNotFound(err, "Could not find model") {
			return false, nil
		}
		return false, fmt.Errorf("failed to check if model exists on sagemaker: %v", err)
	}
	return true, nil
}

func (smc SMClient) EndpointConfigExists(ctx context.Context, endpointConfigName string) (bool, error) {
	input := sagemaker.DescribeEndpointConfigInput{
		EndpointConfigName: aws.String(endpointConfigName),
	}
	_, err := smc.metadataClient.DescribeEndpointConfigWithContext(ctx, &input)
	if err != nil {
		if isNotFound(err, "Could not find endpoint config") {
			return false, nil
		}
		return false, fmt.Errorf("failed to check if endpoint config exists on sagemaker: %v", err)
	}
	return true, nil
}

func (smc SMClient) EndpointExists(ctx context.Context, endpointName string) (bool, error) {
	input := sagemaker.DescribeEndpointInput{
		EndpointName: aws.String(endpointName),
	}
	_, err := smc.metadataClient.DescribeEndpointWithContext(ctx, &input)
	if err != nil {
		if isNotFound(err, "Could not find endpoint") {
			return false, nil
		}
		return false, fmt.Errorf("failed to check if endpoint exists on sagemaker: %v", err)
	}
	return true, nil
}

func (smc SMClient) GetCurrentEndpointConfigName(ctx context.Context, endpointName string) (string, error) {
	input := sagemaker.DescribeEndpointInput{
		EndpointName: aws.String(endpointName),
	}
	res, err := smc.metadataClient.DescribeEndpointWithContext(ctx, &input)
	if err != nil {
		return "", fmt.Errorf("failed to get config name of endpoint '%s': %v", endpointName, err)
	}
	return aws.StringValue(res.EndpointConfigName), nil
}

func (smc SMClient) GetEndpointStatus(ctx context.Context, endpointName string) (string, error) {
	input := sagemaker.DescribeEndpointInput{
		EndpointName: aws.String(endpointName),
	}
	output, err := smc.metadataClient.DescribeEndpointWithContext(ctx, &input)
	if err != nil {
		return "", fmt.Errorf("failed to get endpoint status: %v", err)
	}
	return aws.StringValue(output.EndpointStatus), nil
}

func (smc SMClient) GetEndpointArn(ctx context.Context, endpointName string) (string, error) {
	input := sagemaker.DescribeEndpointInput{
		EndpointName: aws.String(endpointName),
	}
	output, err := smc.metadataClient.DescribeEndpointWithContext(ctx, &input)
	if err != nil {
		return "", fmt.Errorf("failed to get endpoint arn: %v", err)
	}
	return aws.StringValue(output.EndpointArn), nil
}

func (smc SMClient) DeleteModel(ctx context.Context, modelName string) error {
	input := sagemaker.DeleteModelInput{
		ModelName: aws.String(modelName),
	}
	_, err := smc.metadataClient.DeleteModelWithContext(ctx, &input)
	if err != nil {
		return fmt.Errorf("failed to delete model: %v", err)
	}
	return nil
}

func (smc SMClient) DeleteEndpointConfig(ctx context.Context, endpointConfigName string) error {
	input := sagemaker.DeleteEndpointConfigInput{
		EndpointConfigName: aws.String(endpointConfigName),
	}
	_, err := smc.metadataClient.DeleteEndpointConfigWithContext(ctx, &input)
	if err != nil {
		return fmt.Errorf("failed to delete endpoint config: %v", err)
	}
	return nil
}

func (smc SMClient) DeleteEndpoint(ctx context.Context, endpointName string) error {
	input := sagemaker.DeleteEndpointInput{
		EndpointName: aws.String(endpointName),
	}
	_, err := smc.metadataClient.DeleteEndpointWithContext(ctx, &input)
	if err != nil {
		return fmt.Errorf("failed to delete endpoint: %v", err)
	}
	return nil
}

func (smc SMClient) CreateEndpointConfig(ctx context.Context, endpointCfg lib.EndpointConfig) error {
	endpointCfgInput := sagemaker.CreateEndpointConfigInput{
		EndpointConfigName: aws.String(endpointCfg.Name),
		ProductionVariants: []*sagemaker.ProductionVariant{
			{
				ModelName:            aws.String(endpointCfg.ModelName),
				VariantName:          aws.String(endpointCfg.VariantName),
				InstanceType:         aws.String(endpointCfg.InstanceType),
				InitialInstanceCount: aws.Int64(int64(endpointCfg.InstanceCount)),
				InitialVariantWeight: aws.Float64(1.0),
			},
		},
		Tags: sagemakerTags(endpointCfg.Tags),
	}
	_, err := smc.metadataClient.CreateEndpointConfigWithContext(ctx, &endpointCfgInput)
	if err != nil {
		return fmt.Errorf("failed to create endpoint config on sagemaker: %v", err)
	}
	return nil
}

func (smc SMClient) CreateEndpoint(ctx context.Context, endpoint lib.Endpoint) error {
	endpointInput := sagemaker.CreateEndpointInput{
		EndpointName:       aws.String(endpoint.Name),
		EndpointConfigName: aws.String(endpoint.EndpointConfigName),
		Tags:               sagemakerTags(endpoint.Tags),
	}
	_, err := smc.metadataClient.CreateEndpointWithContext(ctx, &endpointInput)
	if err != nil {
		return fmt.Errorf("failed to create endpoint on sagemaker: %v", err)
	}
	return nil
}

func (smc SMClient) UpdateEndpoint(ctx context.Context, endpoint lib.Endpoint) error {
	endpointInput := sagemaker.UpdateEndpointInput{
		EndpointName:       aws.String(endpoint.Name),
		EndpointConfigName: aws.String(endpoint.EndpointConfigName),
	}
	_, err := smc.metadataClient.UpdateEndpointWithContext(ctx, &endpointInput)
	if err != nil {
		return fmt.Errorf("failed to update endpoint on sagemaker: %v", err)
	}
	return nil
}

func isNotFound(err error, msgPrefix string) bool {
	if e, ok := err.(awserr.Error); ok {
		return e.Code() == "ValidationException" && strings.HasPrefix(e.Message(), msgPrefix)
	}
	return false
}

func sagemakerTags(tags map[string]string) []*sagemaker.Tag {
	if len(tags) == 0 {
		return nil
	}
	out := make([]*sagemaker.Tag, 0, len(tags))
	for k, v := range tags {
		out = append(out, &sagemaker.Tag{Key: aws.String(k), Value: aws.String(v)})
	}
	return out
}
