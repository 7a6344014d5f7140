package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	gomail "gopkg.in/mail.v2"

	"github.com/omaraldhaheri/zaina-backend/internal/orders"
	"github.com/omaraldhaheri/zaina-backend/internal/vat"
	"github.com/omaraldhaheri/zaina-backend/pkg/config"
	pkgerrors "github.com/omaraldhaheri/zaina-backend/pkg/errors"
	"github.com/omaraldhaheri/zaina-backend/pkg/logger"
)

// ReasonGuestOrNoEmail marks the deliberate no-op result for orders with no
// deliverable recipient. It is not a failure to retry.
const ReasonGuestOrNoEmail = "Guest order or no email"

type pdfConverter interface {
	Convert(ctx context.Context, svg string) ([]byte, error)
}

type transport interface {
	DialAndSend(m ...*gomail.Message) error
}

// Result captures the outcome of a receipt email attempt. Send never
// returns an error: receipt email is a best-effort side channel and its
// failures must not reach the path that produced a paid order.
type Result struct {
	Success   bool
	Recipient string
	Reason    string
	Err       error
}

type ServiceParams struct {
	Converter pdfConverter
	Transport transport
	SMTP      config.SMTPConfig
	Receipts  config.ReceiptsConfig
	Logger    *logger.Logger
}

type Service struct {
	converter   pdfConverter
	transport   transport
	from        string
	trackingURL string
	logg        *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Converter == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "pdf converter required")
	}
	if params.SMTP.From == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "smtp from address required")
	}
	tr := params.Transport
	if tr == nil {
		if params.SMTP.Host == "" {
			return nil, pkgerrors.New(pkgerrors.CodeInternal, "smtp host required")
		}
		tr = gomail.NewDialer(params.SMTP.Host, params.SMTP.Port, params.SMTP.Username, params.SMTP.Password)
	}
	return &Service{
		converter:   params.Converter,
		transport:   tr,
		from:        params.SMTP.From,
		trackingURL: params.Receipts.TrackingURL,
		logg:        params.Logger,
	}, nil
}

var bodyTemplate = template.Must(template.New("receipt").Parse(`<!doctype html>
<html>
<body style="font-family: Helvetica, Arial, sans-serif; color: #1a1a2e;">
  <h2>Thank you for your order</h2>
  <p>Order <strong>{{.OrderID}}</strong> placed on {{.Date}}.</p>
  <table cellpadding="4">
    <tr><td>Subtotal</td><td align="right">{{.Subtotal}}</td></tr>
    <tr><td>VAT ({{.RateLabel}})</td><td align="right">{{.VAT}}</td></tr>
    <tr><td><strong>Total</strong></td><td align="right"><strong>{{.Total}}</strong></td></tr>
  </table>
  <p>Your tax invoice is attached as a PDF. TRN: {{.TRN}}</p>
  <p><a href="{{.TrackingLink}}">Track your order</a></p>
</body>
</html>`))

type bodyData struct {
	OrderID      string
	Date         string
	Subtotal     string
	VAT          string
	Total        string
	RateLabel    string
	TRN          string
	TrackingLink string
}

// SendReceipt converts the rendered receipt to PDF, composes the
// transactional email, and dispatches it. Guest orders and orders without a
// resolvable recipient are skipped by design.
func (s *Service) SendReceipt(ctx context.Context, order *orders.Order, orderID, svg string) Result {
	if order.IsGuest() || order.CustomerEmail() == "" {
		return Result{Success: false, Reason: ReasonGuestOrNoEmail}
	}
	recipient := order.CustomerEmail()

	pdf, err := s.converter.Convert(ctx, svg)
	if err != nil {
		return Result{Success: false, Recipient: recipient, Err: err}
	}

	body, err := s.buildBody(order, orderID)
	if err != nil {
		return Result{Success: false, Recipient: recipient, Err: err}
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", s.from)
	msg.SetHeader("To", recipient)
	msg.SetHeader("Subject", fmt.Sprintf("Tax Invoice for Order %s", orderID))
	msg.SetBody("text/html", body)
	msg.AttachReader(fmt.Sprintf("Tax-Invoice-%s.pdf", orderID), bytes.NewReader(pdf))

	if err := s.transport.DialAndSend(msg); err != nil {
		return Result{Success: false, Recipient: recipient, Err: err}
	}
	return Result{Success: true, Recipient: recipient}
}

func (s *Service) buildBody(order *orders.Order, orderID string) (string, error) {
	date := ""
	if !order.CreatedAt.IsZero() {
		date = order.CreatedAt.Format("02 Jan 2006")
	}
	data := bodyData{
		OrderID:      orderID,
		Date:         date,
		Subtotal:     vat.FormatMinorWithCurrency(order.SubtotalAmount),
		VAT:          vat.FormatMinorWithCurrency(order.VATAmount),
		Total:        vat.FormatMinorWithCurrency(order.TotalAmount),
		RateLabel:    vat.RateLabel,
		TRN:          vat.RegistrationNumber,
		TrackingLink: fmt.Sprintf("%s/%s", s.trackingURL, orderID),
	}
	var buf bytes.Buffer
	if err := bodyTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
