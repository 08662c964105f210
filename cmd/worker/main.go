package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/imrishuroy/authorizenet-gateway/internal/anet"
	"github.com/imrishuroy/authorizenet-gateway/internal/aws"
	"github.com/imrishuroy/authorizenet-gateway/internal/config"
	"github.com/imrishuroy/authorizenet-gateway/internal/idempotency"
	"github.com/imrishuroy/authorizenet-gateway/internal/orders"
	"github.com/imrishuroy/authorizenet-gateway/internal/payment"
	"github.com/imrishuroy/authorizenet-gateway/internal/recurring"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	settings, err := config.Load()
	if err != nil {
		logger.Fatal("invalid settings", zap.Error(err))
	}

	clients, err := aws.NewAWSClients(context.Background())
	if err != nil {
		logger.Fatal("failed to init aws clients", zap.Error(err))
	}

	reconciler := payment.NewReconciler(
		anet.NewHTTPClient(settings.UseSandbox, settings.LoginID, settings.TransactionKey, nil, logger),
		orders.NewStore(clients.DynamoDB, settings.OrdersTable),
		recurring.NewStore(clients.DynamoDB, settings.RecurringTable, settings.OrdersTable),
		recurring.NewQueueAdvancer(
			aws.NewPublisher(clients.SQS, settings.RecurringCycleQueueURL).WithFIFO("recurring_payment_id", "")),
		idempotency.NewStore(clients.DynamoDB, settings.IdempotencyTable, idempotency.DefaultTTL).WithLease(settings.ClaimLease),
		aws.NewMetrics(clients.CloudWatch, settings.MetricsNamespace),
		logger,
	)
	p := NewProcessor(reconciler, logger)

	// If RUN_LOCAL=true, reconcile the transaction in LOCAL_TRANSACTION_ID once and exit.
	if os.Getenv("RUN_LOCAL") == "true" {
		body := `{"transaction_id":"` + os.Getenv("LOCAL_TRANSACTION_ID") + `"}`
		event := events.SQSEvent{
			Records: []events.SQSMessage{
				{MessageId: "local-1", Body: body},
			},
		}
		resp, _ := p.Handle(context.Background(), event)
		if len(resp.BatchItemFailures) > 0 {
			logger.Fatal("local reconcile failed")
		}
		return
	}

	lambda.Start(p.Handle)
}
