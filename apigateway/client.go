package apigateway

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/apigateway"
	"github.com/aws/aws-sdk-go/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go/service/sts"

	lib "mldeploy/lib/gateway"
)

type GatewayArgs struct {
	Region string `arg:"--region,env:AWS_REGION" help:"AWS region"`
}

// Client implements the dev gateway setup against API Gateway and Cognito.
type Client struct {
	args          GatewayArgs
	gatewayClient *apigateway.APIGateway
	cognitoClient *cognitoidentityprovider.CognitoIdentityProvider
	stsClient     *sts.STS
}

var _ lib.API = Client{}

func NewClient(args GatewayArgs) Client {
	sess := session.Must(session.NewSession(
		&aws.Config{
			Region:                        aws.String(args.Region),
			CredentialsChainVerboseErrors: aws.Bool(true),
		},
	))
	return Client{
		args:          args,
		gatewayClient: apigateway.New(sess),
		cognitoClient: cognitoidentityprovider.New(sess),
		stsClient:     sts.New(sess),
	}
}

const userPoolListPageSize = 50

func (c Client) LookupUserPool(ctx context.Context, name string) (string, bool, error) {
	input := cognitoidentityprovider.ListUserPoolsInput{
		MaxResults: aws.Int64(userPoolListPageSize),
	}
	for {
		output, err := c.cognitoClient.ListUserPoolsWithContext(ctx, &input)
		if err != nil {
			return "", false, fmt.Errorf("failed to list user pools: %v", err)
		}
		for _, pool := range output.UserPools {
			if aws.StringValue(pool.Name) == name {
				return aws.StringValue(pool.Id), true, nil
			}
		}
		if output.NextToken == nil {
			return "", false, nil
		}
		input.NextToken = output.NextToken
	}
}

func (c Client) CreateUserPool(ctx context.Context, name string) (string, error) {
	input := cognitoidentityprovider.CreateUserPoolInput{
		PoolName: aws.String(name),
		Policies: &cognitoidentityprovider.UserPoolPolicyType{
			PasswordPolicy: &cognitoidentityprovider.PasswordPolicyType{
				MinimumLength:    aws.Int64(8),
				RequireUppercase: aws.Bool(true),
				RequireLowercase: aws.Bool(true),
				RequireNumbers:   aws.Bool(true),
				RequireSymbols:   aws.Bool(false),
			},
		},
		AutoVerifiedAttributes: aws.StringSlice([]string{"email"}),
		Schema: []*cognitoidentityprovider.SchemaAttributeType{
			{
				Name:              aws.String("email"),
				AttributeDataType: aws.String("String"),
				Required:          aws.Bool(true),
				Mutable:           aws.Bool(true),
			},
		},
	}
	output, err := c.cognitoClient.CreateUserPoolWithContext(ctx, &input)
	if err != nil {
		return "", fmt.Errorf("failed to create user pool: %v", err)
	}
	return aws.StringValue(output.UserPool.Id), nil
}

func (c Client) CreateAppClient(ctx context.Context, userPoolID, clientName string) (string, error) {
	input := cognitoidentityprovider.CreateUserPoolClientInput{
		UserPoolId:     aws.String(userPoolID),
		ClientName:     aws.String(clientName),
		GenerateSecret: aws.Bool(false),
		ExplicitAuthFlows: aws.StringSlice([]string{
			"ALLOW_USER_PASSWORD_AUTH",
			"ALLOW_REFRESH_TOKEN_AUTH",
		}),
	}
	output, err := c.cognitoClient.CreateUserPoolClientWithContext(ctx, &input)
	if err != nil {
		return "", fmt.Errorf("failed to create app client: %v", err)
	}
	return aws.StringValue(output.UserPoolClient.ClientId), nil
}

func (c Client) LookupRestAPI(ctx context.Context, name string) (string, bool, error) {
	input := apigateway.GetRestApisInput{}
	for {
		output, err := c.gatewayClient.GetRestApisWithContext(ctx, &input)
		if err != nil {
			return "", false, fmt.Errorf("failed to list rest apis: %v", err)
		}
		for _, api := range output.Items {
			if aws.StringValue(api.Name) == name {
				return aws.StringValue(api.Id), true, nil
			}
		}
		if output.Position == nil {
			return "", false, nil
		}
		input.Position = output.Position
	}
}

func (c Client) CreateRestAPI(ctx context.Context, name, description string) (string, error) {
	input := apigateway.CreateRestApiInput{
		Name:        aws.String(name),
		Description: aws.String(description),
		EndpointConfiguration: &apigateway.EndpointConfiguration{
			Types: aws.StringSlice([]string{"REGIONAL"}),
		},
	}
	output, err := c.gatewayClient.CreateRestApiWithContext(ctx, &input)
	if err != nil {
		return "", fmt.Errorf("failed to create rest api: %v", err)
	}
	return aws.StringValue(output.Id), nil
}

func (c Client) CreateAuthorizer(ctx context.Context, apiID, name, userPoolID string) (string, error) {
	accountID, err := c.accountID(ctx)
	if err != nil {
		return "", err
	}
	providerArn := fmt.Sprintf("arn:aws:cognito-idp:%s:%s:userpool/%s", c.args.Region, accountID, userPoolID)
	input := apigateway.CreateAuthorizerInput{
		RestApiId:      aws.String(apiID),
		Name:           aws.String(name),
		Type:           aws.String("COGNITO_USER_POOLS"),
		ProviderARNs:   aws.StringSlice([]string{providerArn}),
		IdentitySource: aws.String("method.request.header.Authorization"),
	}
	output, err := c.gatewayClient.CreateAuthorizerWithContext(ctx, &input)
	if err != nil {
		return "", fmt.Errorf("failed to create authorizer: %v", err)
	}
	return aws.StringValue(output.Id), nil
}

// CreateInvokeRoute wires POST /invoke through the authorizer to the
// function via a proxy integration.
func (c Client) CreateInvokeRoute(ctx context.Context, apiID, authorizerID, functionArn string) (string, error) {
	resources, err := c.gatewayClient.GetResourcesWithContext(ctx, &apigateway.GetResourcesInput{
		RestApiId: aws.String(apiID),
	})
	if err != nil {
		return "", fmt.Errorf("failed to get api resources: %v", err)
	}
	var rootID string
	for _, r := range resources.Items {
		if aws.StringValue(r.Path) == "/" {
			rootID = aws.StringValue(r.Id)
			break
		}
	}
	if rootID == "" {
		return "", fmt.Errorf("rest api %s has no root resource", apiID)
	}

	resource, err := c.gatewayClient.CreateResourceWithContext(ctx, &apigateway.CreateResourceInput{
		RestApiId: aws.String(apiID),
		ParentId:  aws.String(rootID),
		PathPart:  aws.String("invoke"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create invoke resource: %v", err)
	}
	resourceID := aws.StringValue(resource.Id)

	_, err = c.gatewayClient.PutMethodWithContext(ctx, &apigateway.PutMethodInput{
		RestApiId:         aws.String(apiID),
		ResourceId:        aws.String(resourceID),
		HttpMethod:        aws.String("POST"),
		AuthorizationType: aws.String("COGNITO_USER_POOLS"),
		AuthorizerId:      aws.String(authorizerID),
	})
	if err != nil {
		return "", fmt.Errorf("failed to put POST method: %v", err)
	}

	integrationURI := fmt.Sprintf("arn:aws:apigateway:%s:lambda:path/2015-03-31/functions/%s/invocations",
		c.args.Region, functionArn)
	_, err = c.gatewayClient.PutIntegrationWithContext(ctx, &apigateway.PutIntegrationInput{
		RestApiId:             aws.String(apiID),
		ResourceId:            aws.String(resourceID),
		HttpMethod:            aws.String("POST"),
		Type:                  aws.String("AWS_PROXY"),
		IntegrationHttpMethod: aws.String("POST"),
		Uri:                   aws.String(integrationURI),
	})
	if err != nil {
		return "", fmt.Errorf("failed to put lambda integration: %v", err)
	}
	return resourceID, nil
}

func (c Client) CreateDeployment(ctx context.Context, apiID, stageName string) (string, error) {
	_, err := c.gatewayClient.CreateDeploymentWithContext(ctx, &apigateway.CreateDeploymentInput{
		RestApiId: aws.String(apiID),
		StageName: aws.String(stageName),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create deployment: %v", err)
	}
	return fmt.Sprintf("https://%s.execute-api.%s.amazonaws.com/%s", apiID, c.args.Region, stageName), nil
}

func (c Client) CreateAPIKey(ctx context.Context, name string) (string, error) {
	output, err := c.gatewayClient.CreateApiKeyWithContext(ctx, &apigateway.CreateApiKeyInput{
		Name:    aws.String(name),
		Enabled: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create api key: %v", err)
	}
	return aws.StringValue(output.Value), nil
}

func (c Client) accountID(ctx context.Context) (string, error) {
	output, err := c.stsClient.GetCallerIdentityWithContext(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("failed to get caller identity: %v", err)
	}
	return aws.StringValue(output.Account), nil
}
