package lambda

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/lambda"

	lib "mldeploy/lib/lambda"
)

type LambdaArgs struct {
	Region              string `arg:"--region,env:AWS_REGION" help:"AWS region"`
	LambdaExecutionRole string `arg:"--lambda-execution-role,env:LAMBDA_EXECUTION_ROLE" help:"Lambda execution role"`
}

type Client struct {
	args   LambdaArgs
	client *lambda.Lambda
}

var _ lib.Registry = Client{}

func NewClient(args LambdaArgs) Client {
	sess := session.Must(session.NewSession(
		&aws.Config{
			Region:                        aws.String(args.Region),
			CredentialsChainVerboseErrors: aws.Bool(true),
		},
	))
	client := lambda.New(sess)
	return Client{
		args:   args,
		client: client,
	}
}

func (c Client) ExecutionRole() string {
	return c.args.LambdaExecutionRole
}

func (c Client) UpdateFunction(ctx context.Context, spec lib.FunctionSpec) (string, error) {
	codeInput := &lambda.UpdateFunctionCodeInput{
		FunctionName: aws.String(spec.Name),
		ZipFile:      spec.ZipFile,
	}
	output, err := c.client.UpdateFunctionCodeWithContext(ctx, codeInput)
	if err != nil {
		if isFunctionNotFound(err) {
			return "", lib.ErrFunctionNotFound
		}
		return "", fmt.Errorf("failed to update function code: %v", err)
	}
	cfgInput := &lambda.UpdateFunctionConfigurationInput{
		FunctionName: aws.String(spec.Name),
		Environment: &lambda.Environment{
			Variables: aws.StringMap(spec.Environment),
		},
	}
	if _, err := c.client.UpdateFunctionConfigurationWithContext(ctx, cfgInput); err != nil {
		return "", fmt.Errorf("failed to update function configuration: %v", err)
	}
	return aws.StringValue(output.FunctionArn), nil
}

func (c Client) CreateFunction(ctx context.Context, spec lib.FunctionSpec) (string, error) {
	input := &lambda.CreateFunctionInput{
		FunctionName: aws.String(spec.Name),
		Runtime:      aws.String(spec.Runtime),
		Role:         aws.String(spec.Role),
		Handler:      aws.String(spec.Handler),
		Code: &lambda.FunctionCode{
			ZipFile: spec.ZipFile,
		},
		Timeout:    aws.Int64(spec.TimeoutSec),
		MemorySize: aws.Int64(spec.MemorySizeMB),
		Environment: &lambda.Environment{
			Variables: aws.StringMap(spec.Environment),
		},
		Tags: aws.StringMap(spec.Tags),
	}
	output, err := c.client.CreateFunctionWithContext(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to create function: %v", err)
	}
	return aws.StringValue(output.FunctionArn), nil
}

func isFunctionNotFound(err error) bool {
	if e, ok := err.(awserr.Error); ok {
		return e.Code() == lambda.ErrCodeResourceNotFoundException
	}
	return false
}
