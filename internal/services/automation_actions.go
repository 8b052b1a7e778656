package services

import (
	"context"
	"fmt"

	"donorflow/internal/automation"
	"donorflow/internal/models"
	"donorflow/pkg/campaigns"
	"donorflow/pkg/socialcast"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// updatableDonorFields is the allowlist for the update_field action.
var updatableDonorFields = map[string]string{
	"tier":             "tier",
	"phone":            "phone",
	"first_name":       "first_name",
	"last_name":        "last_name",
	"engagement_score": "engagement_score",
	"attributes":       "attributes",
}

// ActionDeps collects the collaborators the built-in action handlers call out
// to. Any nil dependency leaves its handlers unregistered, which the engine
// reports as an action failure at execution time.
type ActionDeps struct {
	DB        *gorm.DB
	Campaigns campaigns.Sender
	Social    socialcast.Publisher
	Segments  *SegmentService
	Logger    *logrus.Logger
}

// BuildActionHandlers wires the standard action set against the external
// providers and the database.
func BuildActionHandlers(deps ActionDeps) map[string]automation.HandlerFunc {
	logger := deps.Logger
	if logger == nil {
		logger = logrus.New()
	}

	handlers := make(map[string]automation.HandlerFunc)

	// wait carries no work of its own: the engine applies the delay before
	// invoking the handler.
	handlers[automation.ActionWait] = func(ctx context.Context, params, payload map[string]interface{}) error {
		return nil
	}

	if deps.Campaigns != nil {
		handlers[automation.ActionSendEmail] = func(ctx context.Context, params, payload map[string]interface{}) error {
			to := paramString(params, "to")
			if to == "" {
				to = paramString(payload, "email")
			}
			if to == "" {
				return fmt.Errorf("no recipient: set params.to or include email in the event payload")
			}

			req := &campaigns.SendRequest{
				To:         to,
				TemplateID: paramString(params, "template"),
				Subject:    paramString(params, "subject"),
				Variables:  payload,
			}
			result, err := deps.Campaigns.SendEmail(ctx, req)
			if err != nil {
				return err
			}
			logger.Infof("automation: queued email %s to %s (template=%s)", result.MessageID, to, req.TemplateID)
			return nil
		}

		handlers[automation.ActionSendDirectMail] = func(ctx context.Context, params, payload map[string]interface{}) error {
			req := &campaigns.DirectMailRequest{
				RecipientName: paramString(params, "recipient_name"),
				AddressLine1:  paramString(params, "address_line1"),
				AddressLine2:  paramString(params, "address_line2"),
				City:          paramString(params, "city"),
				Region:        paramString(params, "region"),
				PostalCode:    paramString(params, "postal_code"),
				TemplateID:    paramString(params, "template"),
				Variables:     payload,
			}
			if req.RecipientName == "" {
				req.RecipientName = paramString(payload, "donorName")
			}
			result, err := deps.Campaigns.SendDirectMail(ctx, req)
			if err != nil {
				return err
			}
			logger.Infof("automation: queued mail piece %s for %s", result.PieceID, req.RecipientName)
			return nil
		}
	}

	if deps.Social != nil {
		handlers[automation.ActionPostSocial] = func(ctx context.Context, params, payload map[string]interface{}) error {
			body := paramString(params, "message")
			if body == "" {
				body = paramString(params, "body")
			}
			if body == "" {
				return fmt.Errorf("post body is required: set params.message")
			}

			req := &socialcast.PostRequest{
				Body:     body,
				Channels: paramStrings(params, "channels"),
			}
			result, err := deps.Social.PublishPost(ctx, req)
			if err != nil {
				return err
			}
			logger.Infof("automation: published post %s (%s)", result.PostID, result.Status)
			return nil
		}
	}

	if deps.Segments != nil {
		handlers[automation.ActionAddToSegment] = func(ctx context.Context, params, payload map[string]interface{}) error {
			segment := paramString(params, "segment")
			if segment == "" {
				return fmt.Errorf("segment name is required: set params.segment")
			}
			donorID := paramString(payload, "donorId")
			if donorID == "" {
				return fmt.Errorf("event payload carries no donorId")
			}
			return deps.Segments.AddMember(ctx, segment, donorID, paramString(payload, "ruleId"))
		}
	}

	if deps.DB != nil {
		handlers[automation.ActionUpdateField] = func(ctx context.Context, params, payload map[string]interface{}) error {
			field := paramString(params, "field")
			column, ok := updatableDonorFields[field]
			if !ok {
				return fmt.Errorf("field %q is not updatable", field)
			}
			value, ok := params["value"]
			if !ok {
				return fmt.Errorf("params.value is required")
			}
			donorID := paramString(payload, "donorId")
			if donorID == "" {
				return fmt.Errorf("event payload carries no donorId")
			}

			result := deps.DB.Model(&models.Donor{}).
				Where("id = ?", donorID).
				Update(column, value)
			if result.Error != nil {
				return fmt.Errorf("failed to update %s: %w", field, result.Error)
			}
			if result.RowsAffected == 0 {
				return fmt.Errorf("donor %s not found", donorID)
			}
			logger.Infof("automation: set %s=%v on donor %s", field, value, donorID)
			return nil
		}
	}

	return handlers
}

func paramString(m map[string]interface{}, key string) string {
	if m == nil {
		return ""
	}
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func paramStrings(m map[string]interface{}, key string) []string {
	if m == nil {
		return nil
	}
	switch v := m[key].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
