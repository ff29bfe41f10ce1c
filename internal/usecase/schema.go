package usecase

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"commerce-agent/internal/integrations/openai"
)

// StructuredReply is the decoded shape of one primary oracle response. Every
// field is required by the schema contract; purchase_confirmation and
// payment_process stay in the contract as forward-compatible extension
// points and must round-trip exactly.
type StructuredReply struct {
	UserQuery             string                `json:"user_query"`
	Display               string                `json:"display"`
	UserPreferences       UserPreferences       `json:"user_preferences"`
	ProductRecommendation ProductRecommendation `json:"product_recommendation"`
	PurchaseConfirmation  PurchaseConfirmation  `json:"purchase_confirmation"`
	PaymentProcess        PaymentProcess        `json:"payment_process"`
}

// UserPreferences carries what the assistant has learned about the shopper.
// Summ is a one-sentence synthesis of everything known so far; it seeds the
// recommendation sub-flow prompt.
type UserPreferences struct {
	Gender   string `json:"gender"`
	Size     string `json:"size"`
	Category string `json:"category"`
	Summ     string `json:"summ"`
}

// ProductRecommendation signals whether the assistant judged it knows enough
// to recommend within ProductCategory. The category value is passed
// downstream literally, without checking it against the prompt's enum.
type ProductRecommendation struct {
	NeedRecommendation bool   `json:"ndrec"`
	ProductCategory    string `json:"product_category"`
}

type PurchaseConfirmation struct {
	ConfirmPurchase bool `json:"confirm_purchase"`
}

type PaymentProcess struct {
	PaymentSuccess bool   `json:"payment_success"`
	RedirectLink   string `json:"redirect_link"`
}

// RecommendationChoice is the sub-flow oracle's pick from the candidate list.
type RecommendationChoice struct {
	ItemID   string `json:"item_id"`
	ItemName string `json:"item_name"`
}

// SchemaDecodeError reports oracle output that is not valid JSON or omits a
// required field. The turn produced no usable reply; callers must pick an
// explicit fallback rather than fall through silently.
type SchemaDecodeError struct {
	Reason string
	Err    error
}

func (e *SchemaDecodeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("usecase: schema decode: %s", e.Reason)
	}
	return fmt.Sprintf("usecase: schema decode: %s: %v", e.Reason, e.Err)
}

func (e *SchemaDecodeError) Unwrap() error {
	return e.Err
}

// structuredReplyFormat is the strict output contract for the primary call.
// The category enum lives in the schema description; the interpreter does not
// enforce it.
var structuredReplyFormat = openai.ResponseFormatSpec{
	Name: "ecommerce_assistant_reply",
	Schema: json.RawMessage(`{
		"type": "object",
		"additionalProperties": false,
		"required": ["user_query", "display", "user_preferences", "product_recommendation", "purchase_confirmation", "payment_process"],
		"properties": {
			"user_query": {
				"type": "string",
				"description": "The query or question posed by the user."
			},
			"display": {
				"type": "string",
				"description": "Solve the question posed by the user and give your advice. If you need more details, keep asking until you know the user_query, user_preferences, product_recommendation, and purchase_confirmation."
			},
			"user_preferences": {
				"type": "object",
				"additionalProperties": false,
				"required": ["gender", "size", "category", "summ"],
				"properties": {
					"gender": {"type": "string", "description": "The gender category for the product, e.g. 'male' or 'female'."},
					"size": {"type": "string", "description": "The size preferred by the user for the product."},
					"category": {"type": "string", "description": "The category of product the user is interested in, like 'shoes', 'clothes', etc."},
					"summ": {"type": "string", "description": "Summarize all user characteristics in one sentence."}
				},
				"description": "Criteria details provided by the user for their request."
			},
			"product_recommendation": {
				"type": "object",
				"additionalProperties": false,
				"required": ["ndrec", "product_category"],
				"properties": {
					"ndrec": {"type": "boolean", "description": "True only when the user wants recommendations and every user preference plus the category is known."},
					"product_category": {"type": "string", "description": "The category the user wants to buy; it has to be one of [jeans, t-shirts, shoes, glasses, jackets, suits, bags]."}
				},
				"description": "Whether the user wants recommendations and all needed information has been collected."
			},
			"purchase_confirmation": {
				"type": "object",
				"additionalProperties": false,
				"required": ["confirm_purchase"],
				"properties": {
					"confirm_purchase": {"type": "boolean", "description": "User's confirmation on whether they want to purchase the suggested product."}
				},
				"description": "The confirmation for purchase from the user."
			},
			"payment_process": {
				"type": "object",
				"additionalProperties": false,
				"required": ["payment_success", "redirect_link"],
				"properties": {
					"payment_success": {"type": "boolean", "description": "Indicates if the payment was processed successfully."},
					"redirect_link": {"type": "string", "description": "Link to redirect the user for payment."}
				},
				"description": "The process that will be triggered to handle payment."
			}
		}
	}`),
}

// recommendationChoiceFormat is the strict output contract for the sub-flow's
// single categorical choice.
var recommendationChoiceFormat = openai.ResponseFormatSpec{
	Name: "ecommerce_recommendation_choice",
	Schema: json.RawMessage(`{
		"type": "object",
		"additionalProperties": false,
		"required": ["item_id", "item_name"],
		"properties": {
			"item_id": {"type": "string", "description": "The item id you are going to choose."},
			"item_name": {"type": "string", "description": "The item name you are going to choose."}
		}
	}`),
}

// rawStructuredReply mirrors StructuredReply with pointer fields so a missing
// required field is distinguishable from a zero value after decoding.
type rawStructuredReply struct {
	UserQuery       *string `json:"user_query"`
	Display         *string `json:"display"`
	UserPreferences *struct {
		Gender   *string `json:"gender"`
		Size     *string `json:"size"`
		Category *string `json:"category"`
		Summ     *string `json:"summ"`
	} `json:"user_preferences"`
	ProductRecommendation *struct {
		NeedRecommendation *bool   `json:"ndrec"`
		ProductCategory    *string `json:"product_category"`
	} `json:"product_recommendation"`
	PurchaseConfirmation *struct {
		ConfirmPurchase *bool `json:"confirm_purchase"`
	} `json:"purchase_confirmation"`
	PaymentProcess *struct {
		PaymentSuccess *bool   `json:"payment_success"`
		RedirectLink   *string `json:"redirect_link"`
	} `json:"payment_process"`
}

type rawRecommendationChoice struct {
	ItemID   *string `json:"item_id"`
	ItemName *string `json:"item_name"`
}

// strictDecode decodes exactly one JSON value, rejecting unknown fields and
// trailing data.
func strictDecode(raw string, v any) error {
	dec := json.NewDecoder(bytes.NewBufferString(strings.TrimSpace(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("multiple JSON values")
		}
		return fmt.Errorf("trailing data: %w", err)
	}
	return nil
}

// parseStructuredReply interprets the primary oracle output. Any failure is a
// *SchemaDecodeError; there is no partial result.
func parseStructuredReply(raw string) (StructuredReply, error) {
	var shadow rawStructuredReply
	if err := strictDecode(raw, &shadow); err != nil {
		return StructuredReply{}, &SchemaDecodeError{Reason: "invalid JSON", Err: err}
	}

	missing := firstMissingReplyField(shadow)
	if missing != "" {
		return StructuredReply{}, &SchemaDecodeError{Reason: "missing required field " + missing}
	}

	return StructuredReply{
		UserQuery: *shadow.UserQuery,
		Display:   *shadow.Display,
		UserPreferences: UserPreferences{
			Gender:   *shadow.UserPreferences.Gender,
			Size:     *shadow.UserPreferences.Size,
			Category: *shadow.UserPreferences.Category,
			Summ:     *shadow.UserPreferences.Summ,
		},
		ProductRecommendation: ProductRecommendation{
			NeedRecommendation: *shadow.ProductRecommendation.NeedRecommendation,
			ProductCategory:    *shadow.ProductRecommendation.ProductCategory,
		},
		PurchaseConfirmation: PurchaseConfirmation{
			ConfirmPurchase: *shadow.PurchaseConfirmation.ConfirmPurchase,
		},
		PaymentProcess: PaymentProcess{
			PaymentSuccess: *shadow.PaymentProcess.PaymentSuccess,
			RedirectLink:   *shadow.PaymentProcess.RedirectLink,
		},
	}, nil
}

func firstMissingReplyField(r rawStructuredReply) string {
	switch {
	case r.UserQuery == nil:
		return "user_query"
	case r.Display == nil:
		return "display"
	case r.UserPreferences == nil:
		return "user_preferences"
	case r.UserPreferences.Gender == nil:
		return "user_preferences.gender"
	case r.UserPreferences.Size == nil:
		return "user_preferences.size"
	case r.UserPreferences.Category == nil:
		return "user_preferences.category"
	case r.UserPreferences.Summ == nil:
		return "user_preferences.summ"
	case r.ProductRecommendation == nil:
		return "product_recommendation"
	case r.ProductRecommendation.NeedRecommendation == nil:
		return "product_recommendation.ndrec"
	case r.ProductRecommendation.ProductCategory == nil:
		return "product_recommendation.product_category"
	case r.PurchaseConfirmation == nil:
		return "purchase_confirmation"
	case r.PurchaseConfirmation.ConfirmPurchase == nil:
		return "purchase_confirmation.confirm_purchase"
	case r.PaymentProcess == nil:
		return "payment_process"
	case r.PaymentProcess.PaymentSuccess == nil:
		return "payment_process.payment_success"
	case r.PaymentProcess.RedirectLink == nil:
		return "payment_process.redirect_link"
	}
	return ""
}

// parseRecommendationChoice interprets the sub-flow oracle output with the
// same strict discipline as the primary reply.
func parseRecommendationChoice(raw string) (RecommendationChoice, error) {
	var shadow rawRecommendationChoice
	if err := strictDecode(raw, &shadow); err != nil {
		return RecommendationChoice{}, &SchemaDecodeError{Reason: "invalid JSON", Err: err}
	}
	if shadow.ItemID == nil {
		return RecommendationChoice{}, &SchemaDecodeError{Reason: "missing required field item_id"}
	}
	if shadow.ItemName == nil {
		return RecommendationChoice{}, &SchemaDecodeError{Reason: "missing required field item_name"}
	}
	return RecommendationChoice{ItemID: *shadow.ItemID, ItemName: *shadow.ItemName}, nil
}
