package main

import (
	"context"
	"log/slog"
	"os"
	"strconv"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"commerce-agent/handler"
	"commerce-agent/internal/catalog"
	"commerce-agent/internal/integrations/openai"
	"commerce-agent/internal/integrations/paramstore"
	"commerce-agent/internal/payment"
	"commerce-agent/internal/repository"
	"commerce-agent/internal/usecase"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	conversationTable := mustEnv("CONVERSATION_TABLE")
	catalogTable := mustEnv("CATALOG_TABLE")
	paramPrefix := mustEnv("PARAM_PREFIX")
	frontendURL := mustEnv("FRONTEND_URL")
	categoryIndex := envStr("CATALOG_CATEGORY_INDEX", "category-index")
	maxMessageLen := envInt("MAX_MESSAGE_LENGTH", 500)

	// ---- AWS SDK config ----
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	// ---- Clients ----
	ssmClient, err := paramstore.New(awsssm.NewFromConfig(cfg))
	if err != nil {
		slog.Error("failed to create SSM client", "err", err)
		os.Exit(1)
	}
	dynamoClient := awsdynamodb.NewFromConfig(cfg)
	conversationStore, err := repository.New(dynamoClient, conversationTable)
	if err != nil {
		slog.Error("failed to create conversation store", "err", err)
		os.Exit(1)
	}
	catalogGateway, err := catalog.New(dynamoClient, catalogTable, categoryIndex)
	if err != nil {
		slog.Error("failed to create catalog gateway", "err", err)
		os.Exit(1)
	}

	openaiClient, err := openai.NewClient(ssmClient, paramPrefix)
	if err != nil {
		slog.Error("failed to create OpenAI client", "err", err)
		os.Exit(1)
	}

	// Checkout is optional: when the Stripe key is absent the assistant still
	// converses and recommends, it just never returns a checkout link.
	var payments usecase.PaymentGateway
	stripeKey, err := ssmClient.GetParameter(ctx, paramPrefix+"/stripe-api-key")
	if err != nil {
		slog.Warn("stripe key unavailable, checkout disabled", "err", err)
	} else {
		gateway, err := payment.New(stripeKey, frontendURL)
		if err != nil {
			slog.Error("failed to create payment gateway", "err", err)
			os.Exit(1)
		}
		payments = gateway
	}

	// ---- Handler ----
	chatService, err := usecase.NewChatService(ssmClient, openaiClient, conversationStore, catalogGateway, payments, paramPrefix, maxMessageLen)
	if err != nil {
		slog.Error("failed to create chat service", "err", err)
		os.Exit(1)
	}

	h, err := handler.NewHandler(chatService)
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		slog.Error("required environment variable is not set", "key", key)
		os.Exit(1)
	}
	return v
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
