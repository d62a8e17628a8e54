package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/joho/godotenv"
	"github.com/nexpass/gocardless-sync/pkg/app"
	"github.com/nexpass/gocardless-sync/pkg/logging"
)

var (
	session *app.Session
	initErr error
)

func init() {
	logger := logging.New()

	// Load environment variables from .env file (useful for local testing).
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg("no .env file found, using environment variables")
	}

	// Initialize dependencies once per cold start. A configuration error is
	// kept and reported as a structured result instead of crashing the
	// runtime into a retry loop.
	ctx := logging.WithContext(context.Background(), logger)
	session, initErr = app.Open(ctx)
	if initErr != nil {
		logger.Error().Err(initErr).Msg("failed to initialize sync dependencies")
	}
}

// errorResult is the invocation result for runs that never got to process
// any account.
type errorResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// HandleRequest runs one synchronization cycle and returns the structured
// result. Per-account failures are inside the result; only configuration
// and account-enumeration errors surface here.
func HandleRequest(ctx context.Context) (any, error) {
	logger := logging.New()
	ctx = logging.WithContext(ctx, logger)

	if initErr != nil {
		return errorResult{Success: false, Error: initErr.Error()}, nil
	}

	result, err := session.Syncer.Run(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("sync run failed")
		return errorResult{Success: false, Error: err.Error()}, nil
	}
	return result, nil
}

func main() {
	lambda.Start(HandleRequest)
}
