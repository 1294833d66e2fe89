package deployment

// EndpointStatus values reported by the serving provider.
const (
	StatusCreating       = "Creating"
	StatusUpdating       = "Updating"
	StatusSystemUpdating = "SystemUpdating"
	StatusInService      = "InService"
	StatusFailed         = "Failed"
	StatusRolledBack     = "RolledBack"
)

// EndpointDescriptor is returned by the SageMaker stage and consumed by the
// Lambda stage. Not persisted anywhere.
type EndpointDescriptor struct {
	EndpointName string
	EndpointArn  string
	ModelName    string
	Status       string
}

// FunctionDescriptor is returned by the Lambda stage and consumed by the
// gateway/proxy stage.
type FunctionDescriptor struct {
	FunctionName string
	FunctionArn  string
	Status       string
}

// GatewayResult is the terminal output of a dev deployment.
type GatewayResult struct {
	APIID       string
	EndpointURL string
	APIKey      string
	UserPoolID  string
	AppClientID string
}

// ProxyResult is the terminal output of a stage/prod deployment.
type ProxyResult struct {
	ProxyName   string
	ProxyURL    string
	Environment Environment
	AuthType    string
}
