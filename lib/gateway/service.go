package gateway

import "context"

// API abstracts the gateway and identity-provider control planes used by the
// dev environment setup.
//
// Lookups return an explicit found flag: a lookup error is a lookup error,
// never a signal to create the resource.
type API interface {
	LookupUserPool(ctx context.Context, name string) (id string, found bool, err error)
	CreateUserPool(ctx context.Context, name string) (id string, err error)
	CreateAppClient(ctx context.Context, userPoolID, clientName string) (clientID string, err error)

	LookupRestAPI(ctx context.Context, name string) (id string, found bool, err error)
	CreateRestAPI(ctx context.Context, name, description string) (id string, err error)
	CreateAuthorizer(ctx context.Context, apiID, name, userPoolID string) (authorizerID string, err error)
	CreateInvokeRoute(ctx context.Context, apiID, authorizerID, functionArn string) (resourceID string, err error)
	CreateDeployment(ctx context.Context, apiID, stageName string) (endpointURL string, err error)
	CreateAPIKey(ctx context.Context, name string) (value string, err error)
}
