package clients

import (
	"github.com/razorpay/razorpay-go"
)

// RazorpayClientWrapper abstracts the gateway calls the service makes,
// so tests can stub them out.
type RazorpayClientWrapper interface {
	RefundPayment(paymentID string, amountInPaise int, notes map[string]interface{}) (map[string]interface{}, error)
}

// RazorpayClient implements RazorpayClientWrapper with the real SDK.
type RazorpayClient struct {
	Client *razorpay.Client
}

// NewRazorpayClient initialises the SDK client with the key pair.
func NewRazorpayClient(keyID, keySecret string) *RazorpayClient {
	return &RazorpayClient{
		Client: razorpay.NewClient(keyID, keySecret),
	}
}

// RefundPayment initiates a refund of the given amount (in the
// currency's smallest unit) against a captured payment.
func (r *RazorpayClient) RefundPayment(paymentID string, amountInPaise int, notes map[string]interface{}) (map[string]interface{}, error) {
	data := map[string]interface{}{
		"amount": amountInPaise,
	}
	if len(notes) > 0 {
		data["notes"] = notes
	}
	return r.Client.Payment.Refund(paymentID, amountInPaise, data, nil)
}
