package main

import (
	"context"
	"net/http"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"
	"github.com/imrishuroy/authorizenet-gateway/internal/anet"
	"github.com/imrishuroy/authorizenet-gateway/internal/aws"
	"github.com/imrishuroy/authorizenet-gateway/internal/config"
	"github.com/imrishuroy/authorizenet-gateway/internal/handlers"
	"github.com/imrishuroy/authorizenet-gateway/internal/idempotency"
	"github.com/imrishuroy/authorizenet-gateway/internal/orders"
	"github.com/imrishuroy/authorizenet-gateway/internal/payment"
	"github.com/imrishuroy/authorizenet-gateway/internal/recurring"
	"go.uber.org/zap"
)

func setupRouter(cfg handlers.HandlerConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// health
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	handlers.RegisterIPNRoutes(r, cfg)
	handlers.RegisterPaymentRoutes(r, cfg)

	return r
}

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

	orderStore := orders.NewStore(clients.DynamoDB, settings.OrdersTable)
	recurringStore := recurring.NewStore(clients.DynamoDB, settings.RecurringTable, settings.OrdersTable)
	client := anet.NewHTTPClient(settings.UseSandbox, settings.LoginID, settings.TransactionKey, nil, logger)

	// without a reconcile queue, notifications are reconciled inside the request
	var dispatcher handlers.Dispatcher
	if settings.ReconcileQueueURL != "" {
		dispatcher = handlers.NewQueueDispatcher(
			aws.NewPublisher(clients.SQS, settings.ReconcileQueueURL).WithFIFO("transaction_id", "transaction_id"))
	} else {
		dispatcher = handlers.NewInlineDispatcher(payment.NewReconciler(
			client,
			orderStore,
			recurringStore,
			recurring.NewQueueAdvancer(
				aws.NewPublisher(clients.SQS, settings.RecurringCycleQueueURL).WithFIFO("recurring_payment_id", "")),
			idempotency.NewStore(clients.DynamoDB, settings.IdempotencyTable, idempotency.DefaultTTL).WithLease(settings.ClaimLease),
			aws.NewMetrics(clients.CloudWatch, settings.MetricsNamespace),
			logger,
		))
	}

	cfg := handlers.HandlerConfig{
		Orders:     orderStore,
		Recurring:  recurringStore,
		Processor:  payment.NewProcessor(client, settings, logger),
		Dispatcher: dispatcher,
		Logger:     logger,
	}

	r := setupRouter(cfg)

	// if environment variable RUN_LOCAL is set to "true", run local HTTP server for development.
	if os.Getenv("RUN_LOCAL") == "true" {
		addr := ":8080"
		logger.Info("running local server", zap.String("addr", addr), zap.Bool("sandbox", settings.UseSandbox))
		if err := r.Run(addr); err != nil {
			logger.Fatal("failed to run local server", zap.Error(err))
		}
		return
	}

	adapter := ginadapter.New(r)

	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
}
