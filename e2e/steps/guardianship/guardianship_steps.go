package guardianship

import (
	"context"

	"github.com/cucumber/godog"
	"github.com/google/uuid"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body interface{}) error
	GET(path string, headers map[string]string) error
}

// RegisterSteps registers guardianship step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &guardianshipSteps{tc: tc}

	ctx.Step(`^I request guardianship of an unknown animal$`, steps.requestUnknownAnimal)
	ctx.Step(`^I request guardianship of animal "([^"]*)" with (\d+) grace days$`, steps.requestGuardianship)
	ctx.Step(`^I list my guardianships$`, steps.listGuardianships)
	ctx.Step(`^I fetch an unknown guardianship$`, steps.fetchUnknown)
}

type guardianshipSteps struct {
	tc TestContext
}

func (s *guardianshipSteps) requestUnknownAnimal(ctx context.Context) error {
	return s.requestGuardianship(ctx, uuid.NewString(), 3)
}

func (s *guardianshipSteps) requestGuardianship(ctx context.Context, animalID string, graceDays int) error {
	return s.tc.POST("/guardianships", map[string]interface{}{
		"animal_id":  animalID,
		"grace_days": graceDays,
	})
}

func (s *guardianshipSteps) listGuardianships(ctx context.Context) error {
	return s.tc.GET("/guardianships", nil)
}

func (s *guardianshipSteps) fetchUnknown(ctx context.Context) error {
	return s.tc.GET("/guardianships/"+uuid.NewString(), nil)
}
