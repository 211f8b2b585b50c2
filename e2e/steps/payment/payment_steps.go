package payment

import (
	"context"
	"crypto/sha1" //nolint:gosec // provider signature scheme
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cucumber/godog"
	"github.com/google/uuid"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body interface{}) error
	GetUserID() string
	PaymentKey() string
	Save(key, value string)
	Saved(key string) (string, error)
}

// RegisterSteps registers provider callback step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &paymentSteps{tc: tc}

	ctx.Step(`^the provider reports a "([^"]*)" global donation of (\d+) ([A-Z]{3})$`, steps.reportGlobalDonation)
	ctx.Step(`^the provider replays the last callback$`, steps.replay)
	ctx.Step(`^the provider reports a donation with a tampered signature$`, steps.reportTampered)
	ctx.Step(`^the provider reports a donation with order id "([^"]*)"$`, steps.reportWithOrderID)
}

type paymentSteps struct {
	tc TestContext
}

func (s *paymentSteps) reportGlobalDonation(ctx context.Context, status string, amount int, currency string) error {
	user := s.tc.GetUserID()
	if user == "" {
		user = "-"
	}
	orderID := strings.Join([]string{"Global", "-", "0", user, "0", nonce()}, "|")
	return s.send(map[string]interface{}{
		"status":         status,
		"amount":         amount,
		"currency":       currency,
		"order_id":       orderID,
		"transaction_id": "e2e-" + nonce(),
	}, "")
}

func (s *paymentSteps) replay(ctx context.Context) error {
	data, err := s.tc.Saved("callback.data")
	if err != nil {
		return err
	}
	signature, err := s.tc.Saved("callback.signature")
	if err != nil {
		return err
	}
	return s.post(data, signature)
}

func (s *paymentSteps) reportTampered(ctx context.Context) error {
	orderID := strings.Join([]string{"Global", "-", "0", "-", "0", nonce()}, "|")
	return s.send(map[string]interface{}{
		"status":         "success",
		"amount":         10,
		"currency":       "UAH",
		"order_id":       orderID,
		"transaction_id": "e2e-" + nonce(),
	}, "AAAA"+sign("wrong-key", "payload"))
}

func (s *paymentSteps) reportWithOrderID(ctx context.Context, orderID string) error {
	return s.send(map[string]interface{}{
		"status":         "success",
		"amount":         10,
		"currency":       "UAH",
		"order_id":       orderID,
		"transaction_id": "e2e-" + nonce(),
	}, "")
}

// send encodes payload the way the provider does. An empty signature means
// sign with the shared key.
func (s *paymentSteps) send(payload map[string]interface{}, signature string) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal callback payload: %w", err)
	}
	data := base64.StdEncoding.EncodeToString(raw)
	if signature == "" {
		signature = sign(s.tc.PaymentKey(), data)
	}
	s.tc.Save("callback.data", data)
	s.tc.Save("callback.signature", signature)
	return s.post(data, signature)
}

func (s *paymentSteps) post(data, signature string) error {
	return s.tc.POST("/payments/callback", map[string]string{
		"data":      data,
		"signature": signature,
	})
}

func sign(key, data string) string {
	sum := sha1.Sum([]byte(key + data + key)) //nolint:gosec // provider signature scheme
	return base64.StdEncoding.EncodeToString(sum[:])
}

func nonce() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
