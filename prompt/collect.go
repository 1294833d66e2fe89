package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"mldeploy/lib/deployment"
)

// ErrAborted is returned when the user declines the configuration summary.
var ErrAborted = errors.New("configuration aborted by user")

// Options is everything the init flow asks the user for. It maps onto a
// deployment descriptor via Config.
type Options struct {
	Environment   deployment.Environment
	InstanceType  string
	InstanceCount uint
	Autoscaling   deployment.Autoscaling
	Cache         deployment.Cache
	Region        string
	Team          string
	VolumeSizeGB  int
}

// Config folds the collected options into a deployment descriptor for the
// given model.
func (o Options) Config(modelName string) deployment.Config {
	cfg := deployment.Config{
		Name:        modelName,
		Environment: o.Environment,
		Instance: deployment.Instance{
			Type:         o.InstanceType,
			Count:        o.InstanceCount,
			VolumeSizeGB: o.VolumeSizeGB,
			Region:       o.Region,
			Tags: map[string]string{
				"managedby": "terraform",
				"project":   "insight-engine-2.0",
				"team":      o.Team,
			},
		},
		Cache:       o.Cache,
		Autoscaling: o.Autoscaling,
	}
	cfg.ApplyDefaults()
	return cfg
}

// Collector gathers deployment options for a model.
type Collector interface {
	Collect(modelName string) (Options, error)
}

// Interactive walks the user through the questionnaire on a terminal. Reader
// and writer are injected so tests can script a session.
type Interactive struct {
	in  *bufio.Scanner
	out io.Writer
}

var _ Collector = &Interactive{}

func NewInteractive(in io.Reader, out io.Writer) *Interactive {
	return &Interactive{in: bufio.NewScanner(in), out: out}
}

type instanceChoice struct {
	instanceType string
	desc         string
}

var instanceChoices = []instanceChoice{
	{"ml.t3.medium", "Dev/Test: 2 vCPU, 4GB RAM"},
	{"ml.m5.large", "General Purpose: 2 vCPU, 8GB RAM"},
	{"ml.m5.xlarge", "Recommended: 4 vCPU, 16GB RAM"},
	{"ml.m5.2xlarge", "Medium Load: 8 vCPU, 32GB RAM"},
	{"ml.c5.xlarge", "Compute Optimized: 4 vCPU, 8GB RAM"},
	{"ml.c5.2xlarge", "High Performance: 8 vCPU, 16GB RAM"},
	{"ml.r5.xlarge", "Memory Optimized: 4 vCPU, 32GB RAM"},
	{"ml.g4dn.xlarge", "GPU Accelerated: 4 vCPU, 16GB RAM, 1 GPU"},
}

var regionChoices = []string{"eu-central-1", "us-east-1", "us-west-2", "ap-southeast-1"}

func (c *Interactive) Collect(modelName string) (Options, error) {
	fmt.Fprintf(c.out, "\nML Model Deployment Configuration: %s\n\n", modelName)

	var opts Options
	var err error
	if opts.Environment, err = c.askEnvironment(); err != nil {
		return Options{}, err
	}
	if opts.InstanceType, err = c.askInstanceType(); err != nil {
		return Options{}, err
	}
	if opts.InstanceCount, err = c.askInstanceCount(opts.Environment); err != nil {
		return Options{}, err
	}
	// Autoscaling only applies where real traffic does.
	if opts.Environment == deployment.EnvStaging || opts.Environment == deployment.EnvProd {
		if opts.Autoscaling, err = c.askAutoscaling(); err != nil {
			return Options{}, err
		}
	}
	if opts.Cache, err = c.askCache(); err != nil {
		return Options{}, err
	}
	if opts.Region, err = c.askRegion(); err != nil {
		return Options{}, err
	}
	if opts.Team, err = c.askTeam(); err != nil {
		return Options{}, err
	}
	if opts.VolumeSizeGB, err = c.askVolumeSize(); err != nil {
		return Options{}, err
	}
	if err = c.confirm(modelName, opts); err != nil {
		return Options{}, err
	}
	return opts, nil
}

func (c *Interactive) readLine(prompt string) (string, error) {
	fmt.Fprint(c.out, prompt)
	if !c.in.Scan() {
		if err := c.in.Err(); err != nil {
			return "", err
		}
		return "", io.ErrUnexpectedEOF
	}
	return strings.TrimSpace(c.in.Text()), nil
}

func (c *Interactive) askEnvironment() (deployment.Environment, error) {
	fmt.Fprintln(c.out, "Select deployment environment:")
	envs := []deployment.Environment{
		deployment.EnvDev, deployment.EnvQA, deployment.EnvStaging, deployment.EnvProd,
	}
	for i, env := range envs {
		fmt.Fprintf(c.out, "  %d. %s\n", i+1, env)
	}
	answer, err := c.readLine("Enter choice [1-4] (default: 1): ")
	if err != nil {
		return "", err
	}
	if idx, ok := menuIndex(answer, len(envs)); ok {
		return envs[idx], nil
	}
	return deployment.EnvDev, nil
}

func (c *Interactive) askInstanceType() (string, error) {
	fmt.Fprintln(c.out, "\nSelect SageMaker instance type:")
	for i, choice := range instanceChoices {
		fmt.Fprintf(c.out, "  %d. %-16s %s\n", i+1, choice.instanceType, choice.desc)
	}
	answer, err := c.readLine("Enter choice [1-8] (default: 3): ")
	if err != nil {
		return "", err
	}
	if idx, ok := menuIndex(answer, len(instanceChoices)); ok {
		return instanceChoices[idx].instanceType, nil
	}
	return deployment.DefaultInstanceType, nil
}

func (c *Interactive) askInstanceCount(env deployment.Environment) (uint, error) {
	defaultCount := uint(2)
	if env == deployment.EnvDev {
		defaultCount = 1
	}
	answer, err := c.readLine(fmt.Sprintf("\nNumber of instances (default: %d): ", defaultCount))
	if err != nil {
		return 0, err
	}
	if count, err := strconv.ParseUint(answer, 10, 32); err == nil && count > 0 {
		return uint(count), nil
	}
	return defaultCount, nil
}

func (c *Interactive) askAutoscaling() (deployment.Autoscaling, error) {
	answer, err := c.readLine("\nEnable auto-scaling? (y/n, default: n): ")
	if err != nil {
		return deployment.Autoscaling{}, err
	}
	if strings.ToLower(answer) != "y" {
		return deployment.Autoscaling{}, nil
	}
	scaling := deployment.Autoscaling{Enabled: true}
	scaling.MinInstances, err = c.askUint("  Minimum instances (default: 1): ", deployment.DefaultMinInstances)
	if err != nil {
		return deployment.Autoscaling{}, err
	}
	scaling.MaxInstances, err = c.askUint("  Maximum instances (default: 4): ", deployment.DefaultMaxInstances)
	if err != nil {
		return deployment.Autoscaling{}, err
	}
	target, err := c.askUint("  Target invocations per instance (default: 100): ", deployment.DefaultTargetInvocations)
	if err != nil {
		return deployment.Autoscaling{}, err
	}
	scaling.TargetInvocationsPerInstance = int(target)
	return scaling, nil
}

func (c *Interactive) askCache() (deployment.Cache, error) {
	answer, err := c.readLine("\nEnable Redis caching? (y/n, default: y): ")
	if err != nil {
		return deployment.Cache{}, err
	}
	if strings.ToLower(answer) == "n" {
		return deployment.Cache{}, nil
	}
	ttl, err := c.askUint("  Cache TTL in seconds (default: 3600): ", deployment.DefaultCacheTTL)
	if err != nil {
		return deployment.Cache{}, err
	}
	return deployment.Cache{Enabled: true, TTL: int(ttl)}, nil
}

func (c *Interactive) askRegion() (string, error) {
	fmt.Fprintln(c.out, "\nAWS Region (common options):")
	for i, region := range regionChoices {
		fmt.Fprintf(c.out, "  %d. %s\n", i+1, region)
	}
	answer, err := c.readLine("Enter choice [1-4] or custom region (default: 1): ")
	if err != nil {
		return "", err
	}
	if idx, ok := menuIndex(answer, len(regionChoices)); ok {
		return regionChoices[idx], nil
	}
	if answer != "" {
		// Anything off the menu is taken as a region name verbatim.
		return answer, nil
	}
	return deployment.DefaultRegion, nil
}

func (c *Interactive) askTeam() (string, error) {
	answer, err := c.readLine("\nTeam name (for tagging, default: ml-team): ")
	if err != nil {
		return "", err
	}
	if answer == "" {
		answer = "ml-team"
	}
	return answer, nil
}

func (c *Interactive) askVolumeSize() (int, error) {
	size, err := c.askUint("\nEBS volume size in GB (default: 50): ", deployment.DefaultVolumeSizeGB)
	return int(size), err
}

func (c *Interactive) askUint(prompt string, defaultValue uint) (uint, error) {
	answer, err := c.readLine(prompt)
	if err != nil {
		return 0, err
	}
	if value, err := strconv.ParseUint(answer, 10, 32); err == nil && value > 0 {
		return uint(value), nil
	}
	return defaultValue, nil
}

func (c *Interactive) confirm(modelName string, opts Options) error {
	fmt.Fprintln(c.out, "\nConfiguration Summary")
	fmt.Fprintf(c.out, "Model Name:     %s\n", modelName)
	fmt.Fprintf(c.out, "Environment:    %s\n", opts.Environment)
	fmt.Fprintf(c.out, "Instance Type:  %s\n", opts.InstanceType)
	fmt.Fprintf(c.out, "Instance Count: %d\n", opts.InstanceCount)
	if opts.Autoscaling.Enabled {
		fmt.Fprintf(c.out, "Auto-scaling:   enabled (%d-%d instances, target %d)\n",
			opts.Autoscaling.MinInstances, opts.Autoscaling.MaxInstances,
			opts.Autoscaling.TargetInvocationsPerInstance)
	} else {
		fmt.Fprintln(c.out, "Auto-scaling:   disabled")
	}
	if opts.Cache.Enabled {
		fmt.Fprintf(c.out, "Caching:        enabled (TTL %ds)\n", opts.Cache.TTL)
	} else {
		fmt.Fprintln(c.out, "Caching:        disabled")
	}
	fmt.Fprintf(c.out, "AWS Region:     %s\n", opts.Region)
	fmt.Fprintf(c.out, "Team:           %s\n", opts.Team)
	fmt.Fprintf(c.out, "Volume Size:    %d GB\n", opts.VolumeSizeGB)

	answer, err := c.readLine("\nProceed with this configuration? (y/n): ")
	if err != nil {
		return err
	}
	if strings.ToLower(answer) != "y" {
		return ErrAborted
	}
	return nil
}

// menuIndex interprets answer as a 1-based menu choice.
func menuIndex(answer string, size int) (int, bool) {
	idx, err := strconv.Atoi(answer)
	if err != nil || idx < 1 || idx > size {
		return 0, false
	}
	return idx - 1, true
}
