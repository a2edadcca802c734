package api

import (
	"fmt"

	"github.com/wolfauto/marketer/internal/models"
)

// ValidationError represents a validation error on one request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidatePlatform checks a platform create payload.
func ValidatePlatform(p *models.Platform) error {
	if p.Name == "" {
		return ValidationError{Field: "name", Message: "name is required"}
	}
	if len(p.Name) > 120 {
		return ValidationError{Field: "name", Message: "name must be at most 120 characters"}
	}
	switch p.Type {
	case models.PlatformTypeAffiliate, models.PlatformTypeFreelance:
	case "":
		return ValidationError{Field: "type", Message: "type is required"}
	default:
		return ValidationError{Field: "type", Message: "type must be affiliate or freelance"}
	}
	if p.Status != "" {
		switch p.Status {
		case models.PlatformStatusConnected, models.PlatformStatusError, models.PlatformStatusDisconnected:
		default:
			return ValidationError{Field: "status", Message: "status must be connected, error or disconnected"}
		}
	}
	return nil
}

// ValidateWorkflow checks a workflow create payload. Step ordering is
// preserved as given; only step types are validated here.
func ValidateWorkflow(w *models.Workflow) error {
	if w.Name == "" {
		return ValidationError{Field: "name", Message: "name is required"}
	}
	if w.PlatformID == "" {
		return ValidationError{Field: "platform_id", Message: "platform_id is required"}
	}
	return validateSteps(w.Steps)
}

func validateSteps(steps []models.WorkflowStep) error {
	for i, step := range steps {
		switch step.Type {
		case models.StepTypeTrigger, models.StepTypeFilter, models.StepTypeAction:
		default:
			return ValidationError{
				Field:   fmt.Sprintf("steps[%d].type", i),
				Message: "type must be trigger, filter or action",
			}
		}
	}
	return nil
}

// ValidateTask checks a task create payload.
func ValidateTask(t *models.Task) error {
	if t.Status != "" && !t.Status.Valid() {
		return ValidationError{Field: "status", Message: "status must be pending, completed or failed"}
	}
	if t.Status != "" && t.Status != models.TaskStatusPending {
		return ValidationError{Field: "status", Message: "tasks start in pending"}
	}
	return nil
}

// ValidateActivity checks an activity log payload.
func ValidateActivity(a *models.Activity) error {
	if a.Title == "" {
		return ValidationError{Field: "title", Message: "title is required"}
	}
	switch a.Type {
	case models.ActivityTypeSystem, models.ActivityTypeSuccess, models.ActivityTypeError,
		models.ActivityTypeWarning, models.ActivityTypeRevenue, models.ActivityTypePayment:
		return nil
	case "":
		return ValidationError{Field: "type", Message: "type is required"}
	default:
		return ValidationError{Field: "type", Message: "unknown activity type"}
	}
}
