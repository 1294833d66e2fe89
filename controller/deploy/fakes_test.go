package deploy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/raulk/clock"
	"go.uber.org/zap"

	"mldeploy/apigee"
	liblambda "mldeploy/lib/lambda"
	libsagemaker "mldeploy/lib/sagemaker"
	"mldeploy/stack"
)

// fakeSagemaker is an in-memory control plane. Each GetEndpointStatus call
// advances the mock clock by the real poll cadence, so wait loops run
// instantly but observe realistic elapsed time.
type fakeSagemaker struct {
	clk *clock.Mock

	models map[string]bool
	// endpoints maps each live endpoint to its attached config name.
	endpoints map[string]string

	createdModels    []libsagemaker.Model
	createdConfigs   []libsagemaker.EndpointConfig
	createdEndpoints []libsagemaker.Endpoint
	updatedEndpoints []libsagemaker.Endpoint

	// statuses are returned by successive GetEndpointStatus calls; the last
	// one repeats.
	statuses    []string
	statusCalls int

	autoscalingConfigured bool
	autoscalingTargets    []libsagemaker.AutoscalingTarget
	autoscalingDisabled   []string
}

func newFakeSagemaker(clk *clock.Mock) *fakeSagemaker {
	return &fakeSagemaker{
		clk:       clk,
		models:    make(map[string]bool),
		endpoints: make(map[string]string),
		statuses:  []string{"InService"},
	}
}

func (f *fakeSagemaker) seedEndpoint(name, configName string) {
	f.endpoints[name] = configName
}

func (f *fakeSagemaker) CreateModel(_ context.Context, model libsagemaker.Model) error {
	f.createdModels = append(f.createdModels, model)
	f.models[model.Name] = true
	return nil
}

func (f *fakeSagemaker) CreateEndpointConfig(_ context.Context, cfg libsagemaker.EndpointConfig) error {
	f.createdConfigs = append(f.createdConfigs, cfg)
	return nil
}

func (f *fakeSagemaker) CreateEndpoint(_ context.Context, endpoint libsagemaker.Endpoint) error {
	f.createdEndpoints = append(f.createdEndpoints, endpoint)
	f.endpoints[endpoint.Name] = endpoint.EndpointConfigName
	return nil
}

func (f *fakeSagemaker) ModelExists(_ context.Context, name string) (bool, error) {
	return f.models[name], nil
}

func (f *fakeSagemaker) EndpointConfigExists(_ context.Context, name string) (bool, error) {
	for _, cfg := range f.createdConfigs {
		if cfg.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeSagemaker) EndpointExists(_ context.Context, name string) (bool, error) {
	_, ok := f.endpoints[name]
	return ok, nil
}

func (f *fakeSagemaker) DeleteModel(_ context.Context, name string) error {
	delete(f.models, name)
	return nil
}

func (f *fakeSagemaker) DeleteEndpointConfig(context.Context, string) error { return nil }

func (f *fakeSagemaker) DeleteEndpoint(_ context.Context, name string) error {
	delete(f.endpoints, name)
	return nil
}

func (f *fakeSagemaker) GetEndpointStatus(context.Context, string) (string, error) {
	idx := f.statusCalls
	if idx >= len(f.statuses) {
		idx = len(f.statuses) - 1
	}
	f.statusCalls++
	f.clk.Add(30 * time.Second)
	return f.statuses[idx], nil
}

func (f *fakeSagemaker) GetEndpointArn(_ context.Context, name string) (string, error) {
	return "arn:aws:sagemaker:eu-central-1:123456789012:endpoint/" + name, nil
}

func (f *fakeSagemaker) GetCurrentEndpointConfigName(_ context.Context, name string) (string, error) {
	configName, ok := f.endpoints[name]
	if !ok {
		return "", errors.New("endpoint not found")
	}
	return configName, nil
}

func (f *fakeSagemaker) UpdateEndpoint(_ context.Context, endpoint libsagemaker.Endpoint) error {
	f.updatedEndpoints = append(f.updatedEndpoints, endpoint)
	f.endpoints[endpoint.Name] = endpoint.EndpointConfigName
	return nil
}

func (f *fakeSagemaker) IsAutoscalingConfigured(context.Context, string, string) (bool, error) {
	return f.autoscalingConfigured, nil
}

func (f *fakeSagemaker) EnableAutoscaling(_ context.Context, target libsagemaker.AutoscalingTarget) error {
	f.autoscalingTargets = append(f.autoscalingTargets, target)
	return nil
}

func (f *fakeSagemaker) DisableAutoscaling(_ context.Context, endpointName, _ string) error {
	f.autoscalingDisabled = append(f.autoscalingDisabled, endpointName)
	f.autoscalingConfigured = false
	return nil
}

var _ libsagemaker.Registry = &fakeSagemaker{}

type fakeLambda struct {
	exists  bool
	updates []liblambda.FunctionSpec
	creates []liblambda.FunctionSpec
}

func (f *fakeLambda) UpdateFunction(_ context.Context, spec liblambda.FunctionSpec) (string, error) {
	if !f.exists {
		return "", liblambda.ErrFunctionNotFound
	}
	f.updates = append(f.updates, spec)
	return "arn:aws:lambda:eu-central-1:123456789012:function:" + spec.Name, nil
}

func (f *fakeLambda) CreateFunction(_ context.Context, spec liblambda.FunctionSpec) (string, error) {
	f.creates = append(f.creates, spec)
	f.exists = true
	return "arn:aws:lambda:eu-central-1:123456789012:function:" + spec.Name, nil
}

var _ liblambda.Registry = &fakeLambda{}

// fakeGateway counts every call so tests can assert the gateway is never
// touched outside dev.
type fakeGateway struct {
	calls int

	userPoolID string
	restAPIID  string
	lookupErr  error

	createdPools   []string
	createdAPIs    []string
	createdClients []string
	createdRoutes  []string
}

func (f *fakeGateway) LookupUserPool(_ context.Context, name string) (string, bool, error) {
	f.calls++
	if f.lookupErr != nil {
		return "", false, f.lookupErr
	}
	return f.userPoolID, f.userPoolID != "", nil
}

func (f *fakeGateway) CreateUserPool(_ context.Context, name string) (string, error) {
	f.calls++
	f.createdPools = append(f.createdPools, name)
	f.userPoolID = "pool-1"
	return f.userPoolID, nil
}

func (f *fakeGateway) CreateAppClient(_ context.Context, poolID, clientName string) (string, error) {
	f.calls++
	f.createdClients = append(f.createdClients, clientName)
	return "client-1", nil
}

func (f *fakeGateway) LookupRestAPI(_ context.Context, name string) (string, bool, error) {
	f.calls++
	if f.lookupErr != nil {
		return "", false, f.lookupErr
	}
	return f.restAPIID, f.restAPIID != "", nil
}

func (f *fakeGateway) CreateRestAPI(_ context.Context, name, _ string) (string, error) {
	f.calls++
	f.createdAPIs = append(f.createdAPIs, name)
	f.restAPIID = "api-1"
	return f.restAPIID, nil
}

func (f *fakeGateway) CreateAuthorizer(_ context.Context, _, name, _ string) (string, error) {
	f.calls++
	return "auth-1", nil
}

func (f *fakeGateway) CreateInvokeRoute(_ context.Context, _, _, functionArn string) (string, error) {
	f.calls++
	f.createdRoutes = append(f.createdRoutes, functionArn)
	return "resource-1", nil
}

func (f *fakeGateway) CreateDeployment(_ context.Context, apiID, stageName string) (string, error) {
	f.calls++
	return "https://" + apiID + ".execute-api.eu-central-1.amazonaws.com/" + stageName, nil
}

func (f *fakeGateway) CreateAPIKey(_ context.Context, name string) (string, error) {
	f.calls++
	return "key-" + name, nil
}

func apigeeWithoutOrg() apigee.Client {
	return apigee.NewClient(apigee.ApigeeArgs{}, zap.NewNop())
}

type fixture struct {
	stack     stack.Stack
	clk       *clock.Mock
	sagemaker *fakeSagemaker
	lambda    *fakeLambda
	gateway   *fakeGateway
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clk := clock.NewMock()
	sm := newFakeSagemaker(clk)
	lm := &fakeLambda{}
	gw := &fakeGateway{}
	return &fixture{
		stack: stack.Stack{
			Sagemaker:     sm,
			SagemakerRole: "arn:aws:iam::123456789012:role/sagemaker-exec",
			Lambda:        lm,
			LambdaRole:    "arn:aws:iam::123456789012:role/lambda-exec",
			Gateway:       gw,
			Apigee:        apigee.NewClient(apigee.ApigeeArgs{Org: "acme"}, zap.NewNop()),
			Clock:         clk,
			Logger:        zap.NewNop(),
			Region:        "eu-central-1",
			ECRRegistry:   "123456789012.dkr.ecr.eu-central-1.amazonaws.com",
			BuildID:       "4f5a9c1",
			// Status polls advance the mock clock themselves, so the loop
			// needs no sleeping in tests.
			PollInterval: 0,
		},
		clk:       clk,
		sagemaker: sm,
		lambda:    lm,
		gateway:   gw,
	}
}
