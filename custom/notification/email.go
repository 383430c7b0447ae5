package notification

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/romana/rlog"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"marketplace_api/model"
)

// DispatchResult is the soft success/failure shape every sender returns.
type DispatchResult struct {
	Success bool   `json:"success"`
	Sent    int    `json:"sent,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// EmailSender sends templated HTML mail through SendGrid. An empty ApiKey
// turns every send into a logged no-op.
type EmailSender struct {
	ApiKey    string
	FromEmail string
	FromName  string
	Host      string
}

type shippingStatusInfo struct {
	Emoji   string
	Title   string
	Message string
	Color   string
}

var shippingStatusConfig = map[string]shippingStatusInfo{
	"processing":       {"⏳", "Order Being Prepared", "Your order %s is being prepared with care.", "#eab308"},
	"ready":            {"✅", "Order Ready!", "Great news! Your order %s is ready for pickup/delivery.", "#22c55e"},
	"out_for_delivery": {"🚚", "Out for Delivery", "Your order %s is on its way to you!", "#3b82f6"},
	"delivered":        {"🎉", "Order Delivered!", "Your order %s has been successfully delivered. Enjoy!", "#22c55e"},
	"completed":        {"✅", "Order Completed", "Thank you for your order! Order %s is now completed.", "#22c55e"},
	"cancelled":        {"❌", "Order Cancelled", "Your order %s has been cancelled.", "#ef4444"},
}

// SendOrderConfirmation renders and sends the confirmation mail for a freshly
// created order. Items come from the order's snapshot.
func (s *EmailSender) SendOrderConfirmation(order *model.Order) (DispatchResult, error) {
	if s.ApiKey == "" {
		rlog.Warn("SendGrid API key not configured, email skipped")
		return DispatchResult{Success: false, Message: "Email service not configured"}, nil
	}
	if order.CustomerEmail == nil || *order.CustomerEmail == "" {
		return DispatchResult{Success: false, Message: "Order has no customer email"}, nil
	}

	customerName := "Customer"
	if order.CustomerName != nil && *order.CustomerName != "" {
		customerName = *order.CustomerName
	}

	items := make([]model.OrderItem, 0)
	if len(order.Items) > 0 {
		if err := json.Unmarshal(order.Items, &items); err != nil {
			rlog.Error("Decode order items snapshot failed: ", err.Error())
		}
	}
	subtotal := order.Subtotal
	if subtotal == 0 {
		for _, item := range items {
			subtotal += item.Price * float64(item.Quantity)
		}
	}

	html := buildConfirmationHtml(customerName, order, items, subtotal)
	subject := fmt.Sprintf("Order Confirmed - %s", order.OrderNumber)
	if err := s.send(*order.CustomerEmail, subject, html); err != nil {
		return DispatchResult{Success: false, Error: err.Error()}, err
	}
	rlog.Infof("Order confirmation email sent to %s", *order.CustomerEmail)
	return DispatchResult{Success: true}, nil
}

// SendShippingUpdate sends the status-change mail. Unknown statuses fall back
// to the processing template.
func (s *EmailSender) SendShippingUpdate(customerEmail, customerName, orderNumber, status, trackingUrl string) (DispatchResult, error) {
	if s.ApiKey == "" {
		rlog.Warn("SendGrid API key not configured, email skipped")
		return DispatchResult{Success: false, Message: "Email service not configured"}, nil
	}

	info, ok := shippingStatusConfig[status]
	if !ok {
		info = shippingStatusConfig["processing"]
	}
	message := fmt.Sprintf(info.Message, orderNumber)

	var b strings.Builder
	fmt.Fprintf(&b, `<!DOCTYPE html><html><body style="margin:0;font-family:sans-serif;background-color:#f9fafb;">`)
	fmt.Fprintf(&b, `<table width="100%%" style="max-width:600px;margin:0 auto;background-color:#ffffff;">`)
	fmt.Fprintf(&b, `<tr><td style="background-color:%s;padding:40px 20px;text-align:center;">`, info.Color)
	fmt.Fprintf(&b, `<div style="font-size:60px;">%s</div><h1 style="color:#ffffff;">%s</h1><p style="color:#ffffff;">%s</p></td></tr>`, info.Emoji, info.Title, message)
	fmt.Fprintf(&b, `<tr><td style="padding:30px 20px;"><p>Hi %s,</p>`, customerName)
	fmt.Fprintf(&b, `<div style="background-color:#fff7ed;border-radius:12px;padding:20px;text-align:center;margin:20px 0;">`)
	fmt.Fprintf(&b, `<div style="font-size:11px;color:#f97316;font-weight:bold;">ORDER NUMBER</div><div style="font-size:24px;font-weight:bold;">%s</div></div>`, orderNumber)
	if trackingUrl != "" {
		fmt.Fprintf(&b, `<p style="text-align:center;"><a href="%s" style="color:#3b82f6;font-weight:bold;">Track your order</a></p>`, trackingUrl)
	}
	fmt.Fprintf(&b, `<p style="text-align:center;color:#6b7280;font-size:14px;">Questions about your order? Contact us anytime!</p>`)
	fmt.Fprintf(&b, `</td></tr><tr><td style="background-color:#f9fafb;padding:20px;text-align:center;"><p style="color:#9ca3af;font-size:12px;">This email was sent by %s</p></td></tr></table></body></html>`, s.FromName)

	if err := s.send(customerEmail, fmt.Sprintf("%s - %s", info.Title, orderNumber), b.String()); err != nil {
		return DispatchResult{Success: false, Error: err.Error()}, err
	}
	rlog.Infof("Shipping update email (%s) sent to %s", status, customerEmail)
	return DispatchResult{Success: true}, nil
}

func buildConfirmationHtml(customerName string, order *model.Order, items []model.OrderItem, subtotal float64) string {
	isDelivery := order.DeliveryType != nil && *order.DeliveryType == "delivery"

	var b strings.Builder
	fmt.Fprintf(&b, `<!DOCTYPE html><html><body style="margin:0;font-family:sans-serif;background-color:#f9fafb;">`)
	fmt.Fprintf(&b, `<table width="100%%" style="max-width:600px;margin:0 auto;background-color:#ffffff;">`)
	fmt.Fprintf(&b, `<tr><td style="background-color:#f97316;padding:40px 20px;text-align:center;">`)
	fmt.Fprintf(&b, `<div style="font-size:60px;">🎉</div><h1 style="color:#ffffff;">Order Confirmed!</h1><p style="color:#ffffff;">Thank you for your order</p></td></tr>`)
	fmt.Fprintf(&b, `<tr><td style="padding:30px 20px;"><p>Hi %s,</p>`, customerName)
	next := "ready for pickup"
	if isDelivery {
		next = "shipped"
	}
	fmt.Fprintf(&b, `<p style="color:#6b7280;">We've received your order and it's being prepared! You'll receive another email once your order is %s.</p>`, next)
	fmt.Fprintf(&b, `<div style="background-color:#fff7ed;border-radius:12px;padding:20px;text-align:center;margin:20px 0;">`)
	fmt.Fprintf(&b, `<div style="font-size:11px;color:#f97316;font-weight:bold;">ORDER NUMBER</div><div style="font-size:24px;font-weight:bold;">%s</div></div>`, order.OrderNumber)

	fmt.Fprintf(&b, `<div style="background-color:#f9fafb;border-radius:12px;padding:20px;margin-bottom:20px;">`)
	fmt.Fprintf(&b, `<div style="font-size:11px;color:#9ca3af;font-weight:bold;">CUSTOMER DETAILS</div><p style="font-weight:bold;">%s</p>`, customerName)
	if order.CustomerPhone != nil && *order.CustomerPhone != "" {
		fmt.Fprintf(&b, `<p style="color:#6b7280;">📞 %s</p>`, *order.CustomerPhone)
	}
	fmt.Fprintf(&b, `</div>`)

	if isDelivery {
		address := ""
		if order.DeliveryAddress != nil {
			address = *order.DeliveryAddress
		}
		fmt.Fprintf(&b, `<div style="background-color:#f9fafb;border-radius:12px;padding:20px;margin-bottom:20px;">`)
		fmt.Fprintf(&b, `<div style="font-size:11px;color:#9ca3af;font-weight:bold;">DELIVERY ADDRESS</div><p style="color:#374151;">%s</p></div>`, address)
	} else {
		fmt.Fprintf(&b, `<div style="background-color:#fef3c7;border-radius:12px;padding:20px;text-align:center;margin-bottom:20px;">`)
		fmt.Fprintf(&b, `<div style="font-size:11px;color:#92400e;font-weight:bold;">📍 PICKUP ORDER</div><p style="color:#92400e;">This is a pickup order. We'll notify you when it's ready!</p></div>`)
	}

	fmt.Fprintf(&b, `<h2 style="font-size:16px;color:#374151;">Order Summary</h2><table width="100%%">`)
	for _, item := range items {
		fmt.Fprintf(&b, `<tr><td style="padding:12px 0;border-bottom:1px solid #e5e7eb;"><p style="font-weight:bold;margin:0;">%s</p><p style="font-size:13px;color:#9ca3af;margin:4px 0 0 0;">Qty: %d</p></td>`, item.Name, item.Quantity)
		fmt.Fprintf(&b, `<td style="padding:12px 0;border-bottom:1px solid #e5e7eb;text-align:right;font-weight:bold;">₹%.2f</td></tr>`, item.Price*float64(item.Quantity))
	}
	fmt.Fprintf(&b, `</table>`)

	fmt.Fprintf(&b, `<div style="background-color:#f9fafb;border-radius:12px;padding:20px;margin:20px 0;"><table width="100%%">`)
	fmt.Fprintf(&b, `<tr><td style="color:#6b7280;">Subtotal</td><td style="text-align:right;font-weight:bold;">₹%.2f</td></tr>`, subtotal)
	if order.DiscountAmount > 0 {
		fmt.Fprintf(&b, `<tr><td style="color:#22c55e;">Discount</td><td style="text-align:right;font-weight:bold;color:#22c55e;">-₹%.2f</td></tr>`, order.DiscountAmount)
	}
	fmt.Fprintf(&b, `<tr><td style="font-size:18px;font-weight:bold;">Total</td><td style="text-align:right;font-size:18px;font-weight:bold;color:#ff6b35;">₹%.2f</td></tr></table></div>`, order.TotalAmount)

	payOn := "Pickup"
	if isDelivery {
		payOn = "Delivery"
	}
	fmt.Fprintf(&b, `<div style="background-color:#f0fdf4;border-left:4px solid #22c55e;padding:16px;margin-bottom:20px;">`)
	fmt.Fprintf(&b, `<p style="color:#22c55e;font-weight:bold;margin:0;">💰 Payment Method</p><p style="color:#166534;margin:8px 0 0 0;">Cash on %s</p></div>`, payOn)
	fmt.Fprintf(&b, `<p style="text-align:center;color:#6b7280;font-size:14px;">Questions about your order? Contact us anytime!</p>`)
	b.WriteString(`</td></tr><tr><td style="background-color:#f9fafb;padding:20px;text-align:center;"><p style="color:#9ca3af;font-size:12px;">Thank you for shopping with us!</p></td></tr></table></body></html>`)
	return b.String()
}

func (s *EmailSender) send(to, subject, html string) error {
	from := mail.NewEmail(s.FromName, s.FromEmail)
	message := mail.NewSingleEmail(from, subject, mail.NewEmail("", to), " ", html)

	// Host stays overridable so tests can point at a local server
	request := sendgrid.GetRequest(s.ApiKey, "/v3/mail/send", s.Host)
	request.Method = "POST"
	request.Body = mail.GetRequestBody(message)
	response, err := sendgrid.API(request)
	if err != nil {
		return errors.Wrap(err, "call sendgrid")
	}
	if response.StatusCode >= 300 {
		return errors.Errorf("sendgrid rejected the mail with status %d", response.StatusCode)
	}
	return nil
}
