package sagemaker

// Model is a SageMaker model resource: an inference container image plus the
// identity it runs under.
type Model struct {
	Name          string
	ImageURI      string
	ExecutionRole string
	Environment   map[string]string
	Tags          map[string]string
}

// EndpointConfig is an immutable snapshot binding a model to instance sizing.
// A new one is minted on every deploy; updates roll out by pointing the
// endpoint at a fresh config.
type EndpointConfig struct {
	Name          string
	ModelName     string
	VariantName   string
	InstanceType  string
	InstanceCount uint
	Tags          map[string]string
}

// Endpoint is the long-lived serving resource.
type Endpoint struct {
	Name               string
	EndpointConfigName string
	Tags               map[string]string
}

// AutoscalingTarget bounds the instance count of one endpoint variant and
// sets the invocation load the scaler tracks.
type AutoscalingTarget struct {
	EndpointName                 string
	VariantName                  string
	MinCapacity                  uint
	MaxCapacity                  uint
	TargetInvocationsPerInstance int
}
