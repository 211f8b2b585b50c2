package common

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	SignInAsNewUser() error
	SignOut()
	GET(path string, headers map[string]string) error
	POST(path string, body interface{}) error
	GetLastStatusCode() int
	GetLastBody() string
	GetResponseField(field string) (interface{}, error)
	Save(key, value string)
}

// RegisterSteps registers background, request and assertion steps
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	ctx.Step(`^the API is healthy$`, steps.apiIsHealthy)
	ctx.Step(`^I am signed in as a new user$`, steps.signIn)
	ctx.Step(`^I am signed in as another user$`, steps.signIn)
	ctx.Step(`^I am not signed in$`, steps.signOut)
	ctx.Step(`^I GET "([^"]*)"$`, steps.get)
	ctx.Step(`^I GET "([^"]*)" with token "([^"]*)"$`, steps.getWithToken)

	ctx.Step(`^the response status should be (\d+)$`, steps.statusShouldBe)
	ctx.Step(`^the response field "([^"]*)" should equal "([^"]*)"$`, steps.fieldShouldEqual)
	ctx.Step(`^the response field "([^"]*)" should be present$`, steps.fieldShouldBePresent)
	ctx.Step(`^the error code should be "([^"]*)"$`, steps.errorCodeShouldBe)
	ctx.Step(`^I save the response field "([^"]*)" as "([^"]*)"$`, steps.saveField)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) apiIsHealthy(ctx context.Context) error {
	if err := s.tc.GET("/healthz", nil); err != nil {
		return err
	}
	return s.statusShouldBe(ctx, 200)
}

func (s *commonSteps) signIn(ctx context.Context) error {
	return s.tc.SignInAsNewUser()
}

func (s *commonSteps) signOut(ctx context.Context) error {
	s.tc.SignOut()
	return nil
}

func (s *commonSteps) get(ctx context.Context, path string) error {
	return s.tc.GET(path, nil)
}

func (s *commonSteps) getWithToken(ctx context.Context, path, token string) error {
	return s.tc.GET(path, map[string]string{"Authorization": "Bearer " + token})
}

func (s *commonSteps) statusShouldBe(ctx context.Context, expected int) error {
	if got := s.tc.GetLastStatusCode(); got != expected {
		return fmt.Errorf("expected status %d, got %d: %s", expected, got, s.tc.GetLastBody())
	}
	return nil
}

func (s *commonSteps) fieldShouldEqual(ctx context.Context, field, expected string) error {
	v, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	if got := stringify(v); got != expected {
		return fmt.Errorf("expected %s=%q, got %q", field, expected, got)
	}
	return nil
}

func (s *commonSteps) fieldShouldBePresent(ctx context.Context, field string) error {
	v, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	if v == nil {
		return fmt.Errorf("field %s is null", field)
	}
	return nil
}

func (s *commonSteps) errorCodeShouldBe(ctx context.Context, code string) error {
	return s.fieldShouldEqual(ctx, "error", code)
}

func (s *commonSteps) saveField(ctx context.Context, field, key string) error {
	v, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	s.tc.Save(key, stringify(v))
	return nil
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}
