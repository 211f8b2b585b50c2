package e2e

import (
	"github.com/cucumber/godog"

	"pawhaven/e2e/steps/common"
	"pawhaven/e2e/steps/guardianship"
	"pawhaven/e2e/steps/payment"
	"pawhaven/e2e/steps/subscription"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Background, generic requests and assertions
	common.RegisterSteps(ctx, tc)

	guardianship.RegisterSteps(ctx, tc)

	// Provider callbacks
	payment.RegisterSteps(ctx, tc)

	subscription.RegisterSteps(ctx, tc)
}
