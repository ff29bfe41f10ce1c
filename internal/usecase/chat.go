package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"commerce-agent/internal/domain"
	"commerce-agent/internal/integrations/openai"
)

const defaultMaxMessage = 500

type ParamGetter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

type LLMClient interface {
	Chat(ctx context.Context, model string, messages []domain.ChatMessage, format openai.ResponseFormatSpec) (string, error)
}

// ConversationStore is the injectable per-user dialogue state.
type ConversationStore interface {
	GetHistory(ctx context.Context, userID string) ([]domain.Turn, error)
	AppendTurn(ctx context.Context, userID, role, content string) error
}

type CatalogGateway interface {
	FindByID(ctx context.Context, id string) (domain.ProductSummary, error)
	FindByCategory(ctx context.Context, category string) ([]domain.ProductSummary, error)
}

type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, product domain.ProductSummary) (string, error)
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

// ChatService runs the per-message dialogue loop: validate, seed or resume
// history, invoke the oracle under the structured reply contract, and branch
// into the recommendation sub-flow when the oracle signals it knows enough.
type ChatService struct {
	params      ParamGetter
	llm         LLMClient
	store       ConversationStore
	catalog     CatalogGateway
	payments    PaymentGateway // nil disables the checkout branch
	paramPrefix string
	maxMessage  int

	cacheMu     sync.RWMutex
	cacheLoaded bool
	openaiModel string
}

type ChatInput struct {
	Message string
	UserID  string
}

type ChatOutput struct {
	Reply          string
	Recommendation *domain.ProductSummary
	CheckoutURL    string
}

func NewChatService(p ParamGetter, llm LLMClient, store ConversationStore, catalog CatalogGateway, payments PaymentGateway, paramPrefix string, maxMessage int) (*ChatService, error) {
	if p == nil {
		return nil, errors.New("usecase: param getter must not be nil")
	}
	if llm == nil {
		return nil, errors.New("usecase: llm client must not be nil")
	}
	if store == nil {
		return nil, errors.New("usecase: conversation store must not be nil")
	}
	if catalog == nil {
		return nil, errors.New("usecase: catalog gateway must not be nil")
	}
	paramPrefix = strings.TrimRight(strings.TrimSpace(paramPrefix), "/")
	if paramPrefix == "" {
		return nil, errors.New("usecase: parameter prefix must not be empty")
	}
	if maxMessage <= 0 {
		maxMessage = defaultMaxMessage
	}
	return &ChatService{
		params:      p,
		llm:         llm,
		store:       store,
		catalog:     catalog,
		payments:    payments,
		paramPrefix: paramPrefix,
		maxMessage:  maxMessage,
	}, nil
}

func (s *ChatService) Chat(ctx context.Context, in ChatInput) (ChatOutput, error) {
	message := strings.TrimSpace(in.Message)
	userID := strings.TrimSpace(in.UserID)
	if message == "" {
		return ChatOutput{}, newError(ErrorInvalidInput, "empty_message", nil)
	}
	if userID == "" {
		return ChatOutput{}, newError(ErrorInvalidInput, "empty_user_id", nil)
	}
	if len(message) > s.maxMessage {
		return ChatOutput{}, newError(ErrorInvalidInput, "message_too_long", nil)
	}
	if err := s.ensureConfig(ctx); err != nil {
		return ChatOutput{}, newError(ErrorInternal, "ssm_load_error", err)
	}

	history, err := s.store.GetHistory(ctx, userID)
	if err != nil {
		return ChatOutput{}, newError(ErrorInternal, "conversation_read_error", err)
	}
	if len(history) == 0 {
		if err := s.store.AppendTurn(ctx, userID, domain.RoleSystem, systemPrompt); err != nil {
			return ChatOutput{}, newError(ErrorInternal, "conversation_write_error", err)
		}
		history = append(history, domain.Turn{UserID: userID, Role: domain.RoleSystem, Content: systemPrompt})
	}

	// Optimistic append: the user turn stays in history even when the oracle
	// call below fails.
	if err := s.store.AppendTurn(ctx, userID, domain.RoleUser, message); err != nil {
		return ChatOutput{}, newError(ErrorInternal, "conversation_write_error", err)
	}
	history = append(history, domain.Turn{UserID: userID, Role: domain.RoleUser, Content: message})

	raw, err := s.llm.Chat(ctx, s.openaiModel, historyToMessages(history), structuredReplyFormat)
	if err != nil {
		if status, ok := upstreamStatusCode(err); ok && status == 429 {
			return ChatOutput{}, newError(ErrorRateLimited, "openai_rate_limited", err)
		}
		return ChatOutput{}, newError(ErrorUpstream, "openai_error", err)
	}

	reply, err := parseStructuredReply(raw)
	if err != nil {
		// The turn produced no usable reply; degrade to an explicit fallback
		// instead of completing with an empty body.
		slog.Warn("primary reply failed schema decode", "userId", userID, "err", err)
		return ChatOutput{Reply: replyUnusable}, nil
	}

	if !reply.ProductRecommendation.NeedRecommendation {
		if err := s.store.AppendTurn(ctx, userID, domain.RoleAssistant, reply.Display); err != nil {
			return ChatOutput{}, newError(ErrorInternal, "conversation_write_error", err)
		}
		return ChatOutput{Reply: reply.Display}, nil
	}

	out, err := s.recommend(ctx, reply.ProductRecommendation.ProductCategory, reply.UserPreferences.Summ)
	if err != nil {
		return ChatOutput{}, err
	}

	// Persist what the user actually sees, not the oracle's display text;
	// replayed history must match the conversation as it happened.
	if err := s.store.AppendTurn(ctx, userID, domain.RoleAssistant, out.Reply); err != nil {
		return ChatOutput{}, newError(ErrorInternal, "conversation_write_error", err)
	}

	if reply.PurchaseConfirmation.ConfirmPurchase && out.Recommendation != nil && s.payments != nil {
		url, payErr := s.payments.CreateCheckoutSession(ctx, *out.Recommendation)
		if payErr != nil {
			slog.Warn("checkout session failed", "userId", userID, "productId", out.Recommendation.ID, "err", payErr)
		} else {
			out.CheckoutURL = url
		}
	}
	return out, nil
}

func (s *ChatService) ensureConfig(ctx context.Context) error {
	s.cacheMu.RLock()
	if s.cacheLoaded {
		s.cacheMu.RUnlock()
		return nil
	}
	s.cacheMu.RUnlock()

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if s.cacheLoaded {
		return nil
	}

	model, err := s.params.GetParameter(ctx, s.paramPrefix+"/config/openai_model")
	if err != nil {
		return fmt.Errorf("usecase: load openai model: %w", err)
	}

	s.openaiModel = model
	s.cacheLoaded = true
	return nil
}

func upstreamStatusCode(err error) (int, bool) {
	var statusErr httpStatusCoder
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	return statusErr.HTTPStatusCode(), true
}
