package sagemaker

import "context"

// Registry abstracts the SageMaker control plane so the deployment
// controller can be driven against fakes in tests.
type Registry interface {
	CreateModel(ctx context.Context, model Model) error
	CreateEndpointConfig(ctx context.Context, cfg EndpointConfig) error
	CreateEndpoint(ctx context.Context, endpoint Endpoint) error

	ModelExists(ctx context.Context, modelName string) (bool, error)
	EndpointConfigExists(ctx context.Context, endpointConfigName string) (bool, error)
	EndpointExists(ctx context.Context, endpointName string) (bool, error)

	DeleteModel(ctx context.Context, modelName string) error
	DeleteEndpointConfig(ctx context.Context, endpointConfigName string) error
	DeleteEndpoint(ctx context.Context, endpointName string) error

	GetEndpointStatus(ctx context.Context, endpointName string) (string, error)
	GetEndpointArn(ctx context.Context, endpointName string) (string, error)
	GetCurrentEndpointConfigName(ctx context.Context, endpointName string) (string, error)
	UpdateEndpoint(ctx context.Context, endpoint Endpoint) error

	IsAutoscalingConfigured(ctx context.Context, endpointName, variantName string) (bool, error)
	EnableAutoscaling(ctx context.Context, target AutoscalingTarget) error
	DisableAutoscaling(ctx context.Context, endpointName, variantName string) error
}
