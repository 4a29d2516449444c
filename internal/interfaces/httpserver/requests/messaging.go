package requests

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/alumunity/messaging-api/internal/domain/messaging"
	"github.com/alumunity/messaging-api/internal/domain/presence"
	"github.com/alumunity/messaging-api/internal/utils/platformerrors"
)

var validate = newValidator()

// newValidator reports fields by their wire name.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name, _, _ := strings.Cut(fld.Tag.Get(tag), ",")
			if name != "" && name != "-" {
				return name
			}
		}
		return fld.Name
	})
	return v
}

// SendMessageRequest is accepted as a form or as JSON.
type SendMessageRequest struct {
	RecipientID    string  `form:"recipient_id" json:"recipient_id" validate:"required"`
	MessageText    string  `form:"message_text" json:"message_text" validate:"required"`
	AttachmentURL  *string `form:"attachment_url" json:"attachment_url,omitempty" validate:"omitempty,max=2048"`
	AttachmentType *string `form:"attachment_type" json:"attachment_type,omitempty" validate:"omitempty,oneof=image file video"`
}

// ToInput trims the fields and converts the request for the messaging service.
func (r *SendMessageRequest) ToInput(senderID string) messaging.SendMessageInput {
	in := messaging.SendMessageInput{
		SenderID:    senderID,
		RecipientID: strings.TrimSpace(r.RecipientID),
		Text:        strings.TrimSpace(r.MessageText),
	}
	if r.AttachmentURL != nil && strings.TrimSpace(*r.AttachmentURL) != "" {
		url := strings.TrimSpace(*r.AttachmentURL)
		in.AttachmentURL = &url
	}
	if r.AttachmentType != nil && *r.AttachmentType != "" {
		t := messaging.AttachmentType(*r.AttachmentType)
		in.AttachmentType = &t
	}
	return in
}

// PageQuery carries limit and offset query parameters. Zero limit takes the endpoint default.
type PageQuery struct {
	Limit  int `form:"limit" validate:"omitempty,min=1,max=100"`
	Offset int `form:"offset" validate:"min=0"`
}

type SearchQuery struct {
	Query string `form:"query" validate:"required"`
	Limit int    `form:"limit" validate:"omitempty,min=1,max=100"`
}

// BlockUserRequest reads blocked_user_id from a form, a JSON body or the query string.
type BlockUserRequest struct {
	BlockedUserID string `form:"blocked_user_id" json:"blocked_user_id" validate:"required"`
}

type TypingRequest struct {
	Typing *bool `json:"typing" validate:"required"`
}

type PresenceRequest struct {
	Status                presence.Status `json:"status" validate:"required,oneof=online away offline do_not_disturb"`
	CurrentConversationID *string         `json:"current_conversation_id,omitempty"`
}

// Validate trims string fields of req and checks its validate tags. A failure is a
// validation PlatformError naming the first offending field.
func Validate(ctx context.Context, req any) error {
	trimStrings(req)
	if err := validate.Struct(req); err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerHandler, platformerrors.ErrorTypeValidation, describe(err), err, "request-validation")
	}
	return nil
}

func trimStrings(req any) {
	switch r := req.(type) {
	case *SendMessageRequest:
		r.RecipientID = strings.TrimSpace(r.RecipientID)
		r.MessageText = strings.TrimSpace(r.MessageText)
	case *SearchQuery:
		r.Query = strings.TrimSpace(r.Query)
	case *BlockUserRequest:
		r.BlockedUserID = strings.TrimSpace(r.BlockedUserID)
	}
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	field := fe.Field()
	switch {
	case fe.Tag() == "required" && fe.StructField() == "MessageText":
		return "Message cannot be empty"
	case fe.Tag() == "required":
		return fmt.Sprintf("%s is required", field)
	case fe.Tag() == "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case fe.Tag() == "min" || fe.Tag() == "max":
		return fmt.Sprintf("%s is out of range", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
