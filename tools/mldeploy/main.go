package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/alexflint/go-arg"
	"go.uber.org/zap"

	"mldeploy/codegen"
	"mldeploy/config"
	"mldeploy/controller/deploy"
	"mldeploy/lib/deployment"
	"mldeploy/prompt"
	"mldeploy/stack"
)

type InitCmd struct {
	ModelName string `arg:"positional,required" help:"name of the model"`
	Output    string `arg:"--output" default:"." help:"output directory"`
}

type DeployCmd struct {
	Config      string `arg:"--config" default:"release.yaml" help:"deployment descriptor"`
	Environment string `arg:"--environment" default:"dev" help:"target environment (dev/qa/staging/prod)"`
}

func runInit(cmd *InitCmd, logger *zap.Logger) error {
	opts, err := prompt.NewInteractive(os.Stdin, os.Stdout).Collect(cmd.ModelName)
	if err != nil {
		return err
	}

	prompt.CreateFeatureBranch(prompt.FeatureBranchName(cmd.ModelName), logger)

	logger.Info("Generating service scaffold", zap.String("model", cmd.ModelName))
	if err := codegen.Scaffold(cmd.ModelName, cmd.Output); err != nil {
		return err
	}

	cfg := opts.Config(cmd.ModelName)
	descriptorPath := filepath.Join(cmd.Output, config.DefaultPath)
	logger.Info("Writing deployment descriptor", zap.String("path", descriptorPath))
	if err := config.Save(cfg, descriptorPath); err != nil {
		return err
	}

	ciPath := filepath.Join(cmd.Output, ".circleci", "config.yml")
	logger.Info("Writing pipeline definition", zap.String("path", ciPath))
	ci := codegen.BuildCIConfig(codegen.CIParams{
		ModelName:     cmd.ModelName,
		InstanceType:  cfg.Instance.Type,
		InstanceCount: cfg.Instance.Count,
		AWSRegion:     cfg.Instance.Region,
		Environment:   cfg.Environment,
	})
	if err := codegen.WriteCIConfig(ci, ciPath); err != nil {
		return err
	}

	fmt.Println("\nProject initialized. Next steps:")
	fmt.Printf("  1. Review generated files in %s\n", cmd.Output)
	fmt.Println("  2. Add your model loading code to src/model_loader.py")
	fmt.Println("  3. Customize src/prediction.py for your input/output")
	fmt.Printf("  4. Test locally: docker build -t %s:local .\n", cmd.ModelName)
	fmt.Println("  5. Commit and push to trigger the pipeline:")
	fmt.Printf("       git push origin %s\n", prompt.FeatureBranchName(cmd.ModelName))
	return nil
}

func runDeploy(cmd *DeployCmd, args *stack.StackArgs) error {
	env, err := deployment.ParseEnvironment(cmd.Environment)
	if err != nil {
		return err
	}
	cfg, err := config.Load(cmd.Config)
	if err != nil {
		return err
	}
	cfg.Environment = env

	s, err := stack.CreateFromArgs(args)
	if err != nil {
		return err
	}
	s.Logger.Info("Starting deployment",
		zap.String("model", cfg.Name), zap.String("environment", string(env)))

	result, err := deploy.Run(context.Background(), s, cfg)
	if err != nil {
		return err
	}

	fmt.Println("\nDeployment complete.")
	fmt.Printf("Endpoint:    %s\n", result.Endpoint.EndpointName)
	fmt.Printf("Function:    %s\n", result.Function.FunctionName)
	if gw, ok := result.Gateway.Get(); ok {
		fmt.Printf("API URL:     %s\n", gw.EndpointURL)
		fmt.Printf("API Key:     %s\n", gw.APIKey)
	}
	if proxy, ok := result.Proxy.Get(); ok {
		fmt.Printf("Proxy URL:   %s\n", proxy.ProxyURL)
		fmt.Printf("Auth:        %s\n", proxy.AuthType)
	}
	fmt.Printf("Environment: %s\n", env)
	return nil
}

func main() {
	var flags struct {
		Init   *InitCmd   `arg:"subcommand:init" help:"initialize a new model deployment project"`
		Deploy *DeployCmd `arg:"subcommand:deploy" help:"deploy a model from its descriptor"`
		stack.StackArgs
	}
	parser := arg.MustParse(&flags)

	var err error
	switch {
	case flags.Init != nil:
		logger, lerr := zap.NewDevelopment()
		if lerr != nil {
			panic(lerr)
		}
		err = runInit(flags.Init, logger)
	case flags.Deploy != nil:
		err = runDeploy(flags.Deploy, &flags.StackArgs)
	default:
		parser.WriteHelp(os.Stderr)
		os.Exit(1)
	}
	if err != nil {
		if errors.Is(err, prompt.ErrAborted) {
			fmt.Println("Aborted.")
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
