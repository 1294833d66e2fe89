package sagemaker

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/applicationautoscaling"
	"go.uber.org/zap"

	lib "mldeploy/lib/sagemaker"
)

const (
	serviceNamespace  = "sagemaker"
	scalableDimension = "sagemaker:variant:DesiredInstanceCount"
	invocationsMetric = "SageMakerVariantInvocationsPerInstance"
)

func scalableResourceID(endpointName, variantName string) string {
	return fmt.Sprintf("endpoint/%s/variant/%s", endpointName, variantName)
}

func (smc SMClient) IsAutoscalingConfigured(ctx context.Context, endpointName, variantName string) (bool, error) {
	resourceID := scalableResourceID(endpointName, variantName)
	input := applicationautoscaling.DescribeScalableTargetsInput{
		ServiceNamespace: aws.String(serviceNamespace),
		ResourceIds:      []*string{aws.String(resourceID)},
	}
	output, err := smc.autoscalingClient.DescribeScalableTargetsWithContext(ctx, &input)
	if err != nil {
		return false, fmt.Errorf("failed to describe scalable targets: %v", err)
	}
	return len(output.ScalableTargets) > 0, nil
}

// EnableAutoscaling registers the endpoint variant as a scalable target and
// attaches a target-tracking policy on invocations per instance. Both calls
// are upserts on the provider side, so repeated runs converge.
func (smc SMClient) EnableAutoscaling(ctx context.Context, target lib.AutoscalingTarget) error {
	resourceID := scalableResourceID(target.EndpointName, target.VariantName)
	registerInput := applicationautoscaling.RegisterScalableTargetInput{
		ServiceNamespace:  aws.String(serviceNamespace),
		ResourceId:        aws.String(resourceID),
		ScalableDimension: aws.String(scalableDimension),
		MinCapacity:       aws.Int64(int64(target.MinCapacity)),
		MaxCapacity:       aws.Int64(int64(target.MaxCapacity)),
	}
	if _, err := smc.autoscalingClient.RegisterScalableTargetWithContext(ctx, &registerInput); err != nil {
		return fmt.Errorf("failed to register scalable target: %v", err)
	}

	policyInput := applicationautoscaling.PutScalingPolicyInput{
		PolicyName:        aws.String(fmt.Sprintf("%s-invocations-per-instance", target.EndpointName)),
		PolicyType:        aws.String("TargetTrackingScaling"),
		ServiceNamespace:  aws.String(serviceNamespace),
		ResourceId:        aws.String(resourceID),
		ScalableDimension: aws.String(scalableDimension),
		TargetTrackingScalingPolicyConfiguration: &applicationautoscaling.TargetTrackingScalingPolicyConfiguration{
			TargetValue: aws.Float64(float64(target.TargetInvocationsPerInstance)),
			PredefinedMetricSpecification: &applicationautoscaling.PredefinedMetricSpecification{
				PredefinedMetricType: aws.String(invocationsMetric),
			},
		},
	}
	if _, err := smc.autoscalingClient.PutScalingPolicyWithContext(ctx, &policyInput); err != nil {
		return fmt.Errorf("failed to put scaling policy: %v", err)
	}
	smc.logger.Info("Autoscaling configured",
		zap.String("endpoint", target.EndpointName),
		zap.Uint("min_instances", target.MinCapacity),
		zap.Uint("max_instances", target.MaxCapacity))
	return nil
}

func (smc SMClient) DisableAutoscaling(ctx context.Context, endpointName, variantName string) error {
	resourceID := scalableResourceID(endpointName, variantName)
	input := applicationautoscaling.DeregisterScalableTargetInput{
		ServiceNamespace:  aws.String(serviceNamespace),
		ResourceId:        aws.String(resourceID),
		ScalableDimension: aws.String(scalableDimension),
	}
	if _, err := smc.autoscalingClient.DeregisterScalableTargetWithContext(ctx, &input); err != nil {
		return fmt.Errorf("failed to deregister scalable target: %v", err)
	}
	return nil
}
