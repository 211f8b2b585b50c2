package subscription

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body interface{}) error
	GET(path string, headers map[string]string) error
	Saved(key string) (string, error)
}

// RegisterSteps registers subscription management step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &subscriptionSteps{tc: tc}

	ctx.Step(`^I subscribe globally for (\d+) ([A-Z]{3}) a month$`, steps.subscribeGlobal)
	ctx.Step(`^I subscribe with scope "([^"]*)" for (\d+) ([A-Z]{3}) a month$`, steps.subscribe)
	ctx.Step(`^I (pause|resume|cancel) the subscription saved as "([^"]*)"$`, steps.lifecycle)
	ctx.Step(`^I fetch the subscription saved as "([^"]*)"$`, steps.fetch)
}

type subscriptionSteps struct {
	tc TestContext
}

func (s *subscriptionSteps) subscribeGlobal(ctx context.Context, amount int, currency string) error {
	return s.subscribe(ctx, "global", amount, currency)
}

func (s *subscriptionSteps) subscribe(ctx context.Context, scope string, amount int, currency string) error {
	return s.tc.POST("/subscriptions", map[string]interface{}{
		"scope":    scope,
		"amount":   amount,
		"currency": currency,
	})
}

func (s *subscriptionSteps) lifecycle(ctx context.Context, action, key string) error {
	psid, err := s.tc.Saved(key)
	if err != nil {
		return err
	}
	return s.tc.POST(fmt.Sprintf("/subscriptions/%s/%s", psid, action), nil)
}

func (s *subscriptionSteps) fetch(ctx context.Context, key string) error {
	psid, err := s.tc.Saved(key)
	if err != nil {
		return err
	}
	return s.tc.GET("/subscriptions/"+psid, nil)
}
