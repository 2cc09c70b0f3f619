package notifications

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"
	texttemplate "text/template"

	"github.com/shopspring/decimal"

	"pulgax-store/internal/models"
)

// Message is one rendered email.
type Message struct {
	To      string
	ToName  string
	Subject string
	HTML    string
	Text    string
}

// Mailer sends a rendered message through some provider.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

type emailContent struct {
	Subject string
	Title   string
	Body    string
	Color   string
}

const createdKey = "created"

var emailContents = map[string]emailContent{
	createdKey: {
		Subject: "Encomenda Recebida - #%s",
		Title:   "Obrigado pela sua encomenda!",
		Body:    "Recebemos a sua encomenda e vamos confirmá-la em breve.",
		Color:   "#F59E0B",
	},
	string(models.OrderStatusConfirmed): {
		Subject: "Encomenda Confirmada - #%s",
		Title:   "Encomenda Confirmada!",
		Body:    "A sua encomenda foi confirmada e está a ser preparada.",
		Color:   "#3B82F6",
	},
	string(models.OrderStatusProcessing): {
		Subject: "Encomenda em Processamento - #%s",
		Title:   "A Preparar a Sua Encomenda",
		Body:    "A sua encomenda está a ser processada e será enviada em breve.",
		Color:   "#8B5CF6",
	},
	string(models.OrderStatusShipped): {
		Subject: "Encomenda Enviada - #%s",
		Title:   "Encomenda Enviada!",
		Body:    "A sua encomenda foi enviada e está a caminho.",
		Color:   "#6366F1",
	},
	string(models.OrderStatusDelivered): {
		Subject: "Encomenda Entregue - #%s",
		Title:   "Encomenda Entregue!",
		Body:    "A sua encomenda foi entregue com sucesso. Obrigado pela sua compra!",
		Color:   "#10B981",
	},
	string(models.OrderStatusCancelled): {
		Subject: "Encomenda Cancelada - #%s",
		Title:   "Encomenda Cancelada",
		Body:    "A sua encomenda foi cancelada.",
		Color:   "#EF4444",
	},
	string(models.OrderStatusRefunded): {
		Subject: "Reembolso Processado - #%s",
		Title:   "Reembolso Processado",
		Body:    "O reembolso da sua encomenda foi processado.",
		Color:   "#6B7280",
	},
}

var statusLabels = map[models.OrderStatus]string{
	models.OrderStatusPending:    "Pendente",
	models.OrderStatusConfirmed:  "Confirmada",
	models.OrderStatusProcessing: "Em Processamento",
	models.OrderStatusShipped:    "Enviada",
	models.OrderStatusDelivered:  "Entregue",
	models.OrderStatusCancelled:  "Cancelada",
	models.OrderStatusRefunded:   "Reembolsada",
}

const orderEmailHTML = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Subject}}</title></head>
<body style="font-family: Arial, sans-serif; color: #333;">
<div style="max-width: 600px; margin: 0 auto; padding: 20px;">
  <div style="background: {{.Color}}; color: white; padding: 30px 20px; text-align: center;">
    <h1>{{.Title}}</h1>
    <p>Encomenda #{{.Order.OrderNumber}}</p>
  </div>
  <div style="background: #f9f9f9; padding: 30px 20px;">
    <p>Olá {{.Order.Customer.Name}},</p>
    <p>{{.Body}}</p>
    {{- if .Note}}
    <p><strong>Nota:</strong> {{.Note}}</p>
    {{- end}}
    <p><strong>Estado:</strong> {{.StatusLabel}}</p>
    <p><strong>Data:</strong> {{.Order.CreatedAt.Format "02/01/2006 15:04"}}</p>
    <table style="width: 100%; border-collapse: collapse;">
      <tr><th align="left">Produto</th><th align="left">Quantidade</th><th align="left">Preço</th></tr>
      {{- range .Order.Items}}
      <tr>
        <td>{{.ProductNamePT}}{{if .SelectedColor}}<br><small>Cor: {{.SelectedColor}}</small>{{end}}{{if .SelectedSize}}<br><small>Tamanho: {{.SelectedSize}}</small>{{end}}</td>
        <td>{{.Quantity}}</td>
        <td>€{{money .TotalPrice}}</td>
      </tr>
      {{- end}}
    </table>
    <p style="text-align: right;"><strong>Total: €{{money .Order.Totals.Total}}</strong></p>
    {{- if .Refund}}
    <p>Valor reembolsado: €{{money .Refund.Amount}}</p>
    {{- end}}
    <p><a href="{{.OrdersURL}}">Ver Encomenda Online</a></p>
  </div>
  <p style="text-align: center; color: #666;">Este é um email automático, por favor não responda.</p>
</div>
</body>
</html>`

const orderEmailText = `Olá {{.Order.Customer.Name}},

{{.Body}}
{{if .Note}}
Nota: {{.Note}}
{{end}}
Encomenda #{{.Order.OrderNumber}} ({{.StatusLabel}})
Total: €{{money .Order.Totals.Total}}

{{.OrdersURL}}
`

func money(d decimal.Decimal) string { return d.StringFixed(2) }

type emailView struct {
	emailContent
	Order       models.Order
	Note        string
	StatusLabel string
	Refund      *models.Refund
	OrdersURL   string
}

// EmailSink mails the customer whenever their order is created or changes status.
type EmailSink struct {
	mailer    Mailer
	ordersURL string
	html      *template.Template
	text      *texttemplate.Template
}

func NewEmailSink(mailer Mailer, storefrontURL string) *EmailSink {
	return &EmailSink{
		mailer:    mailer,
		ordersURL: strings.TrimRight(storefrontURL, "/") + "/my-orders",
		html:      template.Must(template.New("order_html").Funcs(template.FuncMap{"money": money}).Parse(orderEmailHTML)),
		text:      texttemplate.Must(texttemplate.New("order_text").Funcs(texttemplate.FuncMap{"money": money}).Parse(orderEmailText)),
	}
}

func (s *EmailSink) Name() string { return "email" }

func (s *EmailSink) Deliver(ctx context.Context, evt Event) error {
	if evt.Order.Customer.Email == "" {
		return ErrSkipped
	}
	msg, err := s.Render(evt)
	if err != nil {
		return err
	}
	return s.mailer.Send(ctx, msg)
}

// Render builds the email for evt without sending it.
func (s *EmailSink) Render(evt Event) (Message, error) {
	order := evt.Order

	key := string(order.Status)
	if evt.Type == EventOrderCreated {
		key = createdKey
	}
	content, ok := emailContents[key]
	if !ok {
		content = emailContent{
			Subject: "Atualização da Encomenda - #%s",
			Title:   "Atualização da Encomenda",
			Body:    "O estado da sua encomenda foi atualizado para: " + statusLabels[order.Status],
			Color:   "#6B7280",
		}
	}
	content.Subject = fmt.Sprintf(content.Subject, order.OrderNumber)

	view := emailView{
		emailContent: content,
		Order:        order,
		StatusLabel:  statusLabels[order.Status],
		Refund:       order.Refund,
		OrdersURL:    s.ordersURL,
	}
	if evt.Type != EventOrderCreated && len(order.StatusHistory) > 0 {
		view.Note = order.StatusHistory[0].Note
	}

	var html, text bytes.Buffer
	if err := s.html.Execute(&html, view); err != nil {
		return Message{}, fmt.Errorf("render email html: %w", err)
	}
	if err := s.text.Execute(&text, view); err != nil {
		return Message{}, fmt.Errorf("render email text: %w", err)
	}

	return Message{
		To:      order.Customer.Email,
		ToName:  order.Customer.Name,
		Subject: content.Subject,
		HTML:    html.String(),
		Text:    text.String(),
	}, nil
}
