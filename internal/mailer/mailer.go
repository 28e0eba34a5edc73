// Package mailer sends the purchase confirmation email over SMTP. Delivery is
// asynchronous; a failed send is logged and the order is unaffected.
package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"log/slog"

	"gopkg.in/gomail.v2"

	"github.com/calle1003/easel/internal/domain"
)

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type Mailer struct {
	dialer *gomail.Dialer
	from   string
	logger *slog.Logger
	tmpl   *template.Template
}

var confirmationTmpl = template.Must(template.New("confirmation").Parse(`
<p>{{.CustomerName}} 様</p>
<p>ご購入ありがとうございます。注文内容は以下の通りです。</p>
<ul>
  <li>注文番号: {{.OrderID}}</li>
  <li>一般席: {{.GeneralQuantity}} 枚</li>
  <li>指定席: {{.ReservedQuantity}} 枚</li>
  {{if .DiscountAmount}}<li>割引: -{{.DiscountAmount}} 円</li>{{end}}
  <li>合計: {{.TotalAmount}} 円</li>
</ul>
<p>チケットコード:</p>
<ul>
{{range .Tickets}}  <li>{{.Code}} ({{.Type}})</li>
{{end}}</ul>
<p>当日は各チケットのQRコードを入口でご提示ください。</p>
`))

func New(cfg Config, logger *slog.Logger) *Mailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
		logger: logger,
		tmpl:   confirmationTmpl,
	}
}

type confirmationData struct {
	CustomerName     string
	OrderID          string
	GeneralQuantity  int
	ReservedQuantity int
	DiscountAmount   int
	TotalAmount      int
	Tickets          []domain.Ticket
}

// SendPurchaseConfirmation queues the email and returns immediately so the
// payment webhook response is never held up by SMTP.
func (m *Mailer) SendPurchaseConfirmation(order domain.Order, tickets []domain.Ticket) {
	go func() {
		data := confirmationData{
			CustomerName:     order.Customer.Name,
			OrderID:          order.ID.String(),
			GeneralQuantity:  order.GeneralQuantity,
			ReservedQuantity: order.ReservedQuantity,
			DiscountAmount:   order.DiscountAmount,
			TotalAmount:      order.TotalAmount,
			Tickets:          tickets,
		}

		var body bytes.Buffer
		if err := m.tmpl.Execute(&body, data); err != nil {
			m.logger.Error("confirmation email render failed", "order_id", order.ID, "error", err)
			return
		}

		msg := gomail.NewMessage()
		msg.SetHeader("From", m.from)
		msg.SetHeader("To", order.Customer.Email)
		msg.SetHeader("Subject", fmt.Sprintf("ご注文確認 #%s", order.ID))
		msg.SetBody("text/html", body.String())

		if err := m.dialer.DialAndSend(msg); err != nil {
			m.logger.Error("confirmation email send failed", "order_id", order.ID, "error", err)
			return
		}
		m.logger.Info("confirmation email sent", "order_id", order.ID)
	}()
}
