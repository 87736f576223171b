// Command nix-cascade is the AWS Lambda that propagates deletes of NIX
// records from the DynamoDB entity table stream.
package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/jacentio/nixcore/store"
	"github.com/jacentio/nixcore/stream"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	cfg, err := store.LoadConfig(os.Getenv("NIX_CONFIG"))
	if err != nil {
		sugar.Fatalw("failed to load config", "error", err)
	}

	client, err := store.NewDynamoClient(context.Background(), cfg)
	if err != nil {
		sugar.Fatalw("failed to create dynamodb client", "error", err)
	}

	handler := stream.NewHandler(store.NewDynamo(client, cfg, sugar), sugar)
	lambda.Start(handler.HandleCascadeDelete)
}
