package notify

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/shopspring/decimal"
)

var funcs = map[string]any{
	"money": func(d decimal.Decimal) string { return "$" + d.StringFixed(2) },
}

var textBody = texttemplate.Must(texttemplate.New("text").Funcs(funcs).Parse(
	`Thank you for your order!

Order #{{.OrderID}}

{{range .Items}}- {{.Name}} ({{.Size}}) x{{.Quantity}} @ {{money .Price}} = {{money .LineTotal}}
{{end}}
Total: {{money .TotalPrice}}
`))

var htmlBody = htmltemplate.Must(htmltemplate.New("html").Funcs(funcs).Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; background-color: #f9f9f9; padding: 20px;">
  <div style="max-width: 600px; margin: auto; background-color: white; padding: 20px; border-radius: 10px;">
    <h2 style="color: #333;">Thank you for your order!</h2>
    <p>Order <strong>#{{.OrderID}}</strong></p>
    <table style="width: 100%; border-collapse: collapse; margin: 20px 0;">
      <thead>
        <tr style="background-color: #f0f0f0;">
          <th style="padding: 8px; text-align: left;">Item</th>
          <th style="padding: 8px; text-align: left;">Size</th>
          <th style="padding: 8px; text-align: right;">Qty</th>
          <th style="padding: 8px; text-align: right;">Price</th>
          <th style="padding: 8px; text-align: right;">Total</th>
        </tr>
      </thead>
      <tbody>
      {{range .Items}}<tr>
          <td style="padding: 8px;">{{.Name}}</td>
          <td style="padding: 8px;">{{.Size}}</td>
          <td style="padding: 8px; text-align: right;">{{.Quantity}}</td>
          <td style="padding: 8px; text-align: right;">{{money .Price}}</td>
          <td style="padding: 8px; text-align: right;">{{money .LineTotal}}</td>
        </tr>
      {{end}}</tbody>
      <tfoot>
        <tr>
          <td colspan="4" style="padding: 8px; text-align: right; font-weight: bold;">Total</td>
          <td style="padding: 8px; text-align: right; font-weight: bold;">{{money .TotalPrice}}</td>
        </tr>
      </tfoot>
    </table>
  </div>
</body>
</html>
`))

func Render(p orders.OrderPlacedPayload) (Message, error) {
	var text, html bytes.Buffer
	if err := textBody.Execute(&text, p); err != nil {
		return Message{}, fmt.Errorf("render text: %w", err)
	}
	if err := htmlBody.Execute(&html, p); err != nil {
		return Message{}, fmt.Errorf("render html: %w", err)
	}
	return Message{
		To:      strings.TrimSpace(p.ContactEmail),
		Subject: fmt.Sprintf("Order Confirmation – #%s", p.OrderID),
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}
