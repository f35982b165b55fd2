package liqpay

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient() *Client {
	return NewClient("pub-key", "priv-key").WithURLs("https://coachpilot.test/payment/callback", "https://t.me/coachpilot_bot")
}

func TestBuildCheckout_SignatureRoundTrip(t *testing.T) {
	c := testClient()

	checkout, err := c.BuildCheckout(ActionPay, decimal.NewFromInt(500), "UAH", "order-1", "credits", 7)
	require.NoError(t, err)
	assert.NotEmpty(t, checkout.Data)
	assert.NotEmpty(t, checkout.Signature)
	assert.Contains(t, checkout.URL, DefaultCheckoutHost+"?")
	assert.Contains(t, checkout.URL, "signature=")

	params, err := c.DecodeData(checkout.Data, checkout.Signature)
	require.NoError(t, err)
	assert.Equal(t, "3", params["version"])
	assert.Equal(t, "500.00", params["amount"])
	assert.Equal(t, "order-1", params["order_id"])
	assert.Equal(t, "pay", params["action"])
	assert.Equal(t, "https://coachpilot.test/payment/callback", params["server_url"])
	assert.NotContains(t, checkout.Data, "priv-key", "private key must never travel")
}

func TestDecodeData_RejectsTampering(t *testing.T) {
	c := testClient()

	checkout, err := c.BuildCheckout(ActionPay, decimal.NewFromInt(500), "UAH", "order-1", "credits", 7)
	require.NoError(t, err)

	// Flip one byte of the payload.
	raw, err := base64.StdEncoding.DecodeString(checkout.Data)
	require.NoError(t, err)
	raw[10] ^= 0x01
	tampered := base64.StdEncoding.EncodeToString(raw)

	_, err = c.DecodeData(tampered, checkout.Signature)
	var verr *ParamValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Error(), "invalid signature")

	// Tampered signature fails as well.
	_, err = c.DecodeData(checkout.Data, checkout.Signature[:len(checkout.Signature)-2]+"==")
	assert.ErrorAs(t, err, &verr)

	// A signature minted with another private key fails.
	other := NewClient("pub-key", "other-priv")
	_, err = c.DecodeData(checkout.Data, other.Sign(checkout.Data))
	assert.ErrorAs(t, err, &verr)
}

func TestDecodeData_WithoutSignature(t *testing.T) {
	c := testClient()

	data, err := EncodeParams(map[string]string{"order_id": "order-9", "status": "success"})
	require.NoError(t, err)

	params, err := c.DecodeData(data, "")
	require.NoError(t, err)
	assert.Equal(t, "success", params["status"])
}

func TestValidateParams_MissingFields(t *testing.T) {
	base := func() map[string]string {
		return map[string]string{
			"version":     APIVersion,
			"amount":      "500.00",
			"currency":    "UAH",
			"action":      ActionPay,
			"order_id":    "order-1",
			"description": "Credit top-up for profile 7",
		}
	}

	assert.NoError(t, ValidateParams(base()))

	for _, field := range []string{"version", "amount", "currency", "action", "order_id", "description"} {
		t.Run("missing "+field, func(t *testing.T) {
			params := base()
			delete(params, field)

			err := ValidateParams(params)
			var verr *ParamValidationError
			assert.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, field, "error must name the missing field")
		})
	}
}

func TestValidateParams_CurrencyAndVersion(t *testing.T) {
	params := map[string]string{
		"version":     APIVersion,
		"amount":      "500.00",
		"currency":    "ZZZ",
		"action":      ActionPay,
		"order_id":    "order-1",
		"description": "x",
	}

	err := ValidateParams(params)
	var verr *ParamValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Error(), "currency")

	params["currency"] = "UAH"
	params["version"] = "2"
	err = ValidateParams(params)
	assert.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Error(), "version")
}

func TestEncodeParams_Deterministic(t *testing.T) {
	params := map[string]string{"b": "2", "a": "1", "c": "3"}

	first, err := EncodeParams(params)
	require.NoError(t, err)
	second, err := EncodeParams(params)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	raw, err := base64.StdEncoding.DecodeString(first)
	require.NoError(t, err)
	decoded := string(raw)
	assert.True(t, strings.Index(decoded, `"a"`) < strings.Index(decoded, `"b"`), "keys must be sorted")
	assert.True(t, strings.Index(decoded, `"b"`) < strings.Index(decoded, `"c"`))
}

func TestSign_KnownConstruction(t *testing.T) {
	c := NewClient("pub", "secret")

	// sha1("secret" + "data" + "secret"), base64.
	assert.Equal(t, c.Sign("data"), c.Sign("data"))
	assert.NotEqual(t, c.Sign("data"), c.Sign("datb"))
	assert.NotEqual(t, c.Sign("data"), NewClient("pub", "other").Sign("data"))

	sig, err := base64.StdEncoding.DecodeString(c.Sign("data"))
	require.NoError(t, err)
	assert.Len(t, sig, 20, "SHA-1 digest is 20 bytes")
}
