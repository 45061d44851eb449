package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/spf13/cobra"

	"github.com/OldStager01/ecs-queue-backlog/internal/logger"
	"github.com/OldStager01/ecs-queue-backlog/pkg/models"
)

func newLambdaCommand(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "lambda",
		Short: "Serve invocations from the AWS Lambda runtime",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), cfg, overrides{})
			if err != nil {
				return err
			}
			defer a.Close()

			lambda.Start(lambdaHandler(a))
			return nil
		},
	}
}

// lambdaHandler uses the Lambda request id as the trace id.
func lambdaHandler(a *app) func(ctx context.Context, req models.MetricRequest) (models.Result, error) {
	return func(ctx context.Context, req models.MetricRequest) (models.Result, error) {
		if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
			ctx = logger.WithTraceID(ctx, lc.AwsRequestID)
		}
		return a.handler.Handle(ctx, req)
	}
}
