package liqpay

import (
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/OlehKovalenko/CoachPilot/internal/pkg/env"
	"github.com/shopspring/decimal"
)

const (
	// APIVersion is the single protocol version this client speaks.
	APIVersion = "3"

	// DefaultCheckoutHost is the gateway's hosted checkout page.
	DefaultCheckoutHost = "https://www.liqpay.ua/api/3/checkout"

	ActionPay       = "pay"
	ActionSubscribe = "subscribe"
)

// requiredParams is the field set every checkout payload must carry.
var requiredParams = []string{"version", "amount", "currency", "action", "order_id", "description"}

var allowedCurrencies = map[string]struct{}{
	"UAH": {},
	"USD": {},
	"EUR": {},
}

// Checkout bundles the signed outbound payload and the hosted checkout URL.
type Checkout struct {
	Data      string
	Signature string
	URL       string
}

// Client builds and signs outbound checkout payloads and verifies inbound
// callback data. The private key never leaves this process; only data and
// signature travel in the checkout URL.
type Client struct {
	publicKey    string
	privateKey   string
	checkoutHost string
	serverURL    string
	resultURL    string
}

// NewClient creates a gateway client.
func NewClient(publicKey, privateKey string) *Client {
	return &Client{
		publicKey:    publicKey,
		privateKey:   privateKey,
		checkoutHost: DefaultCheckoutHost,
	}
}

// NewClientFromEnv creates a gateway client configured from the environment.
func NewClientFromEnv() *Client {
	c := NewClient(
		env.GetEnv("LIQPAY_PUBLIC_KEY", ""),
		env.GetEnv("LIQPAY_PRIVATE_KEY", ""),
	)
	c.checkoutHost = env.GetEnv("LIQPAY_CHECKOUT_HOST", DefaultCheckoutHost)
	c.serverURL = env.GetEnv("LIQPAY_SERVER_URL", "")
	c.resultURL = env.GetEnv("LIQPAY_RESULT_URL", "")
	return c
}

// WithURLs sets the callback and redirect URLs included in checkout payloads.
func (c *Client) WithURLs(serverURL, resultURL string) *Client {
	c.serverURL = serverURL
	c.resultURL = resultURL
	return c
}

// BuildParams assembles the checkout parameter set for one payment.
func (c *Client) BuildParams(action string, amount decimal.Decimal, currency, orderID, paymentType string, profileID uint) map[string]string {
	params := map[string]string{
		"version":     APIVersion,
		"public_key":  c.publicKey,
		"action":      action,
		"amount":      amount.StringFixed(2),
		"currency":    currency,
		"order_id":    orderID,
		"description": describePayment(paymentType, profileID),
	}
	if c.serverURL != "" {
		params["server_url"] = c.serverURL
	}
	if c.resultURL != "" {
		params["result_url"] = c.resultURL
	}
	return params
}

// BuildCheckout validates, canonicalizes and signs the parameters and
// assembles the hosted checkout URL.
func (c *Client) BuildCheckout(action string, amount decimal.Decimal, currency, orderID, paymentType string, profileID uint) (*Checkout, error) {
	params := c.BuildParams(action, amount, currency, orderID, paymentType, profileID)
	if err := ValidateParams(params); err != nil {
		return nil, err
	}

	data, err := EncodeParams(params)
	if err != nil {
		return nil, err
	}
	signature := c.Sign(data)

	q := url.Values{}
	q.Set("data", data)
	q.Set("signature", signature)

	return &Checkout{
		Data:      data,
		Signature: signature,
		URL:       c.checkoutHost + "?" + q.Encode(),
	}, nil
}

// PaymentLink is a convenience wrapper returning only the checkout URL.
func (c *Client) PaymentLink(action string, amount decimal.Decimal, currency, orderID, paymentType string, profileID uint) (string, error) {
	checkout, err := c.BuildCheckout(action, amount, currency, orderID, paymentType, profileID)
	if err != nil {
		return "", err
	}
	return checkout.URL, nil
}

// Sign computes base64(SHA1(private_key || data || private_key)). The
// construction must stay bit-for-bit compatible with the gateway; do not
// replace it with HMAC.
func (c *Client) Sign(data string) string {
	h := sha1.New()
	h.Write([]byte(c.privateKey))
	h.Write([]byte(data))
	h.Write([]byte(c.privateKey))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// DecodeData recovers the parameter map from an inbound base64 payload. When
// a signature is supplied it is recomputed over the payload and compared; a
// mismatch fails verification.
func (c *Client) DecodeData(data, signature string) (map[string]string, error) {
	if signature != "" {
		expected := c.Sign(data)
		if subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) != 1 {
			return nil, newValidationError("invalid signature")
		}
	}

	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, newValidationError("data is not valid base64")
	}

	var params map[string]string
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, newValidationError("data is not a valid parameter object")
	}
	return params, nil
}

// EncodeParams serializes the parameter map to its canonical base64 form.
// json.Marshal emits map keys in lexicographic order, which keeps the signed
// byte string deterministic.
func EncodeParams(params map[string]string) (string, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("liqpay: encode params: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// ValidateParams checks the required-field set, protocol version and
// currency allow-list. Failures name the offending fields.
func ValidateParams(params map[string]string) error {
	var missing []string
	for _, field := range requiredParams {
		if params[field] == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return newValidationError("missing required params", missing...)
	}

	if params["version"] != APIVersion {
		return newValidationError("unsupported version", params["version"])
	}
	if _, ok := allowedCurrencies[params["currency"]]; !ok {
		return newValidationError("unsupported currency", params["currency"])
	}
	return nil
}

func describePayment(paymentType string, profileID uint) string {
	switch paymentType {
	case "subscription":
		return fmt.Sprintf("Coaching subscription for profile %d", profileID)
	default:
		return fmt.Sprintf("Credit top-up for profile %d", profileID)
	}
}
