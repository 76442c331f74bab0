package action

import (
	"context"
	"strings"
	"time"

	"github.com/mundotango/compas/pkg/protocol"
)

// ModerationScorer scores content between 0 and 100. The default is a small
// deterministic blocklist check; deployments substitute a real moderation
// call.
type ModerationScorer func(execContext map[string]any) int

var blockedTerms = []string{"spam", "scam", "offensive"}

func DefaultModerationScorer(execContext map[string]any) int {
	text, _ := execContext["content_text"].(string)
	lowered := strings.ToLower(text)

	for _, term := range blockedTerms {
		if strings.Contains(lowered, term) {
			return 60
		}
	}

	return 95
}

// Builtin returns the platform action handlers the stock workflows depend on.
// The handlers mirror the community platform's domain operations; in this
// engine they produce the context values downstream steps branch on.
func Builtin(scorer ModerationScorer) map[string]protocol.ActionHandler {
	if scorer == nil {
		scorer = DefaultModerationScorer
	}

	return map[string]protocol.ActionHandler{
		"create_profile": func(_ context.Context, config, execContext map[string]any) (map[string]any, error) {
			return map[string]any{
				"profile_created":  true,
				"defaults_applied": config["defaults"],
				"user_id":          execContext["user_id"],
			}, nil
		},

		"suggest_groups": func(_ context.Context, config, execContext map[string]any) (map[string]any, error) {
			return map[string]any{
				"suggested_groups": []string{"Buenos Aires Tango", "Local Milonga Group"},
				"based_on":         config["based_on"],
			}, nil
		},

		"publish_event": func(_ context.Context, config, execContext map[string]any) (map[string]any, error) {
			return map[string]any{
				"published":        true,
				"event_id":         execContext["event_id"],
				"notify_followers": config["notify_followers"],
			}, nil
		},

		"reject_event": func(_ context.Context, config, execContext map[string]any) (map[string]any, error) {
			return map[string]any{
				"rejected":         true,
				"event_id":         execContext["event_id"],
				"notify_organizer": config["notify_organizer"],
			}, nil
		},

		"schedule_reminders": func(_ context.Context, config, _ map[string]any) (map[string]any, error) {
			reminders, _ := config["reminders"].([]any)

			return map[string]any{
				"reminders_scheduled": len(reminders),
			}, nil
		},

		"run_content_moderation": func(_ context.Context, config, execContext map[string]any) (map[string]any, error) {
			return map[string]any{
				"moderation_score": scorer(execContext),
				"ai_checked":       config["ai_check"],
			}, nil
		},

		"approve_content": func(_ context.Context, config, execContext map[string]any) (map[string]any, error) {
			return map[string]any{
				"approved":   true,
				"content_id": execContext["content_id"],
				"published":  config["publish"],
			}, nil
		},

		"flag_content": func(_ context.Context, config, execContext map[string]any) (map[string]any, error) {
			return map[string]any{
				"flagged":    true,
				"content_id": execContext["content_id"],
				"priority":   config["priority"],
			}, nil
		},

		"generate_community_stats": func(_ context.Context, config, _ map[string]any) (map[string]any, error) {
			return map[string]any{
				"period": config["period"],
				"stats": map[string]any{
					"posts":      150,
					"events":     12,
					"new_users":  25,
					"engagement": 85,
				},
			}, nil
		},

		"rank_users": func(_ context.Context, config, _ map[string]any) (map[string]any, error) {
			return map[string]any{
				"top_contributors": []string{},
				"criteria":         config["criteria"],
				"ranked_at":        time.Now().UTC(),
			}, nil
		},

		"feature_top_content": func(_ context.Context, config, _ map[string]any) (map[string]any, error) {
			return map[string]any{
				"featured": true,
				"duration": config["duration"],
			}, nil
		},
	}
}
