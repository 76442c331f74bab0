// Package seeds provides the stock Mundo Tango automation workflows the
// engine ships with: user onboarding, event publication, content moderation
// and the weekly community engagement digest.
package seeds

import (
	"context"
	"errors"
	"time"

	"github.com/mundotango/compas/pkg/engine"
	"github.com/mundotango/compas/pkg/models"
	"github.com/mundotango/compas/pkg/persistence"
)

// SystemUser is recorded as the creator of seeded workflows.
const SystemUser = "system"

// Install registers every seed workflow that is not already present.
func Install(ctx context.Context, eng *engine.Engine) error {
	for _, workflow := range Workflows(time.Now()) {
		err := eng.CreateWorkflow(ctx, workflow)
		if err != nil && !errors.Is(err, persistence.ErrWorkflowAlreadyExists) {
			return err
		}
	}

	return nil
}

// Workflows returns the stock workflow definitions with the given creation
// timestamp.
func Workflows(now time.Time) []*models.Workflow {
	return []*models.Workflow{
		UserOnboarding(now),
		EventPublication(now),
		ContentModeration(now),
		CommunityEngagement(now),
	}
}

// UserOnboarding greets a freshly registered user, builds a starter profile,
// suggests nearby communities and follows up a week later.
func UserOnboarding(now time.Time) *models.Workflow {
	return &models.Workflow{
		ID:          "user_onboarding",
		Name:        "New User Onboarding",
		Description: "Automated onboarding process for new Mundo Tango users",
		Category:    models.CategoryUserManagement,
		Trigger: models.TriggerSpec{
			Type:   models.TriggerEvent,
			Config: map[string]any{"event": "user.registered"},
		},
		Steps: []*models.WorkflowStep{
			{
				ID:        "send_welcome_email",
				Name:      "Send Welcome Email",
				Type:      models.StepTypeNotification,
				Config:    map[string]any{"template": "welcome", "channel": "email"},
				NextSteps: []string{"create_default_profile"},
			},
			{
				ID:   "create_default_profile",
				Name: "Create Default Profile",
				Type: models.StepTypeAction,
				Config: map[string]any{
					"action": "create_profile",
					"defaults": map[string]any{
						"bio":       "New to tango",
						"interests": []any{"tango", "music"},
					},
				},
				NextSteps: []string{"suggest_communities"},
			},
			{
				ID:        "suggest_communities",
				Name:      "Suggest Local Communities",
				Type:      models.StepTypeAction,
				Config:    map[string]any{"action": "suggest_groups", "based_on": "location"},
				NextSteps: []string{"schedule_follow_up"},
			},
			{
				ID:        "schedule_follow_up",
				Name:      "Schedule Follow-up",
				Type:      models.StepTypeDelay,
				Config:    map[string]any{"delay": "7d"},
				NextSteps: []string{"send_engagement_email"},
			},
			{
				ID:     "send_engagement_email",
				Name:   "Send Engagement Email",
				Type:   models.StepTypeNotification,
				Config: map[string]any{"template": "week_one_tips", "channel": "email"},
			},
		},
		Variables: map[string]any{"user_id": "", "location": "", "email": ""},
		Status:    models.WorkflowStatusActive,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
		CreatedBy: SystemUser,
	}
}

// EventPublication validates a new tango event, routes doubtful ones through
// manual review, then publishes and promotes it.
func EventPublication(now time.Time) *models.Workflow {
	return &models.Workflow{
		ID:          "event_publication",
		Name:        "Event Publication Workflow",
		Description: "Process for publishing and promoting tango events",
		Category:    models.CategoryEvents,
		Trigger: models.TriggerSpec{
			Type:   models.TriggerEvent,
			Config: map[string]any{"event": "event.created"},
		},
		Steps: []*models.WorkflowStep{
			{
				ID:   "validate_event",
				Name: "Validate Event Details",
				Type: models.StepTypeCondition,
				Config: map[string]any{
					"conditions": []any{"has_title", "has_date", "has_location", "has_valid_organizer"},
				},
				NextSteps: []string{"check_duplicate"},
				OnError:   "reject_event",
			},
			{
				ID:   "check_duplicate",
				Name: "Check for Duplicates",
				Type: models.StepTypeCondition,
				Config: map[string]any{
					"conditions": []any{"check_duplicate_events"},
					"threshold":  0.8,
				},
				NextSteps: []string{"auto_approve_or_review"},
				OnError:   "manual_review",
			},
			{
				ID:   "auto_approve_or_review",
				Name: "Auto-Approve or Flag for Review",
				Type: models.StepTypeCondition,
				Config: map[string]any{
					"conditions": []any{"organizer_verified", "venue_known", "content_appropriate"},
				},
				NextSteps: []string{"publish_event"},
				OnError:   "manual_review",
			},
			{
				ID:   "manual_review",
				Name: "Manual Review Required",
				Type: models.StepTypeApproval,
				Config: map[string]any{
					"approvers":  []any{"event_moderator"},
					"timeout":    "24h",
					"escalation": "admin",
				},
				NextSteps: []string{"publish_event"},
				OnError:   "reject_event",
			},
			{
				ID:        "publish_event",
				Name:      "Publish Event",
				Type:      models.StepTypeAction,
				Config:    map[string]any{"action": "publish_event", "notify_followers": true},
				NextSteps: []string{"notify_community"},
			},
			{
				ID:   "notify_community",
				Name: "Notify Community",
				Type: models.StepTypeNotification,
				Config: map[string]any{
					"template": "new_event_notification",
					"audience": "nearby_users",
					"radius":   "50km",
				},
				NextSteps: []string{"schedule_reminders"},
			},
			{
				ID:   "schedule_reminders",
				Name: "Schedule Event Reminders",
				Type: models.StepTypeAction,
				Config: map[string]any{
					"action": "schedule_reminders",
					"reminders": []any{
						map[string]any{"time": "24h_before", "template": "event_reminder_1d"},
						map[string]any{"time": "2h_before", "template": "event_reminder_2h"},
					},
				},
			},
			{
				ID:     "reject_event",
				Name:   "Reject Event",
				Type:   models.StepTypeAction,
				Config: map[string]any{"action": "reject_event", "notify_organizer": true},
			},
		},
		Variables: map[string]any{"event_id": "", "organizer_id": "", "location": ""},
		Status:    models.WorkflowStatusActive,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
		CreatedBy: SystemUser,
	}
}

// ContentModeration scores new content automatically; high scores publish
// straight away, low scores go through flagging and manual review with
// escalation.
func ContentModeration(now time.Time) *models.Workflow {
	return &models.Workflow{
		ID:          "content_moderation",
		Name:        "Content Moderation Workflow",
		Description: "Automated content review and moderation process",
		Category:    models.CategoryContent,
		Trigger: models.TriggerSpec{
			Type:   models.TriggerEvent,
			Config: map[string]any{"event": "content.created"},
		},
		Steps: []*models.WorkflowStep{
			{
				ID:        "auto_moderate",
				Name:      "Automatic Moderation Check",
				Type:      models.StepTypeAction,
				Config:    map[string]any{"action": "run_content_moderation", "ai_check": true},
				NextSteps: []string{"check_moderation_score"},
			},
			{
				ID:        "check_moderation_score",
				Name:      "Check Moderation Score",
				Type:      models.StepTypeCondition,
				Config:    map[string]any{"condition": "moderation_score > 80"},
				NextSteps: []string{"auto_approve"},
				OnError:   "flag_for_review",
			},
			{
				ID:     "auto_approve",
				Name:   "Auto-Approve Content",
				Type:   models.StepTypeAction,
				Config: map[string]any{"action": "approve_content", "publish": true},
			},
			{
				ID:        "flag_for_review",
				Name:      "Flag for Manual Review",
				Type:      models.StepTypeAction,
				Config:    map[string]any{"action": "flag_content", "priority": "based_on_score"},
				NextSteps: []string{"manual_review"},
			},
			{
				ID:   "manual_review",
				Name: "Manual Review",
				Type: models.StepTypeApproval,
				Config: map[string]any{
					"approvers":  []any{"content_moderator"},
					"timeout":    "2h",
					"escalation": "senior_moderator",
				},
				OnError: "escalate_review",
			},
			{
				ID:   "escalate_review",
				Name: "Escalate to Senior Moderator",
				Type: models.StepTypeApproval,
				Config: map[string]any{
					"approvers": []any{"senior_moderator"},
					"timeout":   "24h",
				},
			},
		},
		Variables: map[string]any{"content_id": "", "author_id": "", "content_type": ""},
		Status:    models.WorkflowStatusActive,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
		CreatedBy: SystemUser,
	}
}

// CommunityEngagement runs every Monday morning: weekly analytics, top
// contributor ranking, the community digest and featured content rotation.
func CommunityEngagement(now time.Time) *models.Workflow {
	return &models.Workflow{
		ID:          "community_engagement",
		Name:        "Weekly Community Engagement",
		Description: "Automated weekly community engagement and analytics",
		Category:    models.CategoryCommunity,
		Trigger: models.TriggerSpec{
			Type:   models.TriggerSchedule,
			Config: map[string]any{"cron": "0 9 * * 1"},
		},
		Steps: []*models.WorkflowStep{
			{
				ID:        "generate_analytics",
				Name:      "Generate Weekly Analytics",
				Type:      models.StepTypeAction,
				Config:    map[string]any{"action": "generate_community_stats", "period": "1week"},
				NextSteps: []string{"identify_top_contributors"},
			},
			{
				ID:   "identify_top_contributors",
				Name: "Identify Top Contributors",
				Type: models.StepTypeAction,
				Config: map[string]any{
					"action":   "rank_users",
					"criteria": []any{"posts", "events", "engagement"},
				},
				NextSteps: []string{"send_digest"},
			},
			{
				ID:   "send_digest",
				Name: "Send Community Digest",
				Type: models.StepTypeNotification,
				Config: map[string]any{
					"template":    "weekly_community_digest",
					"audience":    "all_users",
					"personalize": true,
				},
				NextSteps: []string{"schedule_featured_content"},
			},
			{
				ID:     "schedule_featured_content",
				Name:   "Schedule Featured Content",
				Type:   models.StepTypeAction,
				Config: map[string]any{"action": "feature_top_content", "duration": "7d"},
			},
		},
		Variables: map[string]any{},
		Status:    models.WorkflowStatusActive,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
		CreatedBy: SystemUser,
	}
}
