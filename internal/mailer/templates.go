package mailer

import (
	"bytes"
	"fmt"
	"html/template"

	"bestwishes/internal/domain"
)

var (
	invitationTmpl = template.Must(template.New("invitation").Parse(`
<h2>Collaborative Purchase Invitation</h2>
<p>You've been invited by <strong>{{.Creator}}</strong> to participate in a collaborative purchase:</p>
<p><strong>{{.ProductName}}</strong> (Qty: {{.Quantity}})</p>
<p>Total Price: <strong>{{.Total}}</strong></p>
<p>Your Share: <strong>{{.Share}}</strong></p>
<p>Deadline: <strong>{{.Deadline}}</strong></p>
<p><a href="{{.PayURL}}">Pay Your Share</a></p>
<p>If you're unable to participate, you can decline the invitation. The purchase
only proceeds if all participants pay within the deadline.</p>
`))

	creatorTmpl = template.Must(template.New("creator").Parse(`
<h2>Collaborative Purchase Created</h2>
<p>Your collaborative purchase has been created:</p>
<p><strong>{{.ProductName}}</strong> (Qty: {{.Quantity}})</p>
<p>Total Price: <strong>{{.Total}}</strong></p>
<p>Share per participant: <strong>{{.Share}}</strong></p>
<p>Participants: <strong>{{.ParticipantCount}}</strong></p>
<p>Deadline: <strong>{{.Deadline}}</strong></p>
<p>All participants have been notified and must complete their payment before the deadline.</p>
`))

	completionTmpl = template.Must(template.New("completion").Parse(`
<h2>Purchase Completed</h2>
<p>All participants have completed their payments.</p>
<p><strong>{{.ProductName}}</strong> has been ordered successfully.</p>
{{if .OrderID}}<p>Order ID: <strong>{{.OrderID}}</strong></p>{{end}}
<p>Thank you for participating in this collaborative purchase.</p>
`))

	cancellationTmpl = template.Must(template.New("cancellation").Parse(`
<h2>Purchase Cancelled</h2>
<p>The collaborative purchase for <strong>{{.ProductName}}</strong> has been cancelled.</p>
<p>If you had already paid, your refund will be processed within 5-7 business days.</p>
`))
)

type mailData struct {
	Creator          string
	ProductName      string
	Quantity         int
	Total            string
	Share            string
	Deadline         string
	PayURL           string
	ParticipantCount int
	OrderID          string
}

func dataFromPurchase(p domain.CollaborativePurchase) mailData {
	d := mailData{
		Creator:          p.CreatorName,
		ProductName:      p.ProductName,
		Quantity:         p.Quantity,
		Total:            formatCents(p.TotalCents),
		Share:            formatCents(p.ShareCents),
		Deadline:         p.Deadline.Format("Mon, 02 Jan 2006 15:04 MST"),
		ParticipantCount: len(p.Participants) + 1,
	}
	if d.Creator == "" {
		d.Creator = p.CreatorEmail
	}
	if p.OrderID != nil {
		d.OrderID = *p.OrderID
	}
	return d
}

func formatCents(cents int64) string {
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}

func render(t *template.Template, d mailData) string {
	var buf bytes.Buffer
	if err := t.Execute(&buf, d); err != nil {
		return ""
	}
	return buf.String()
}

func invitationBody(p domain.CollaborativePurchase, payURL string) string {
	d := dataFromPurchase(p)
	d.PayURL = payURL
	return render(invitationTmpl, d)
}

func creatorConfirmationBody(p domain.CollaborativePurchase) string {
	return render(creatorTmpl, dataFromPurchase(p))
}

func completionBody(p domain.CollaborativePurchase) string {
	return render(completionTmpl, dataFromPurchase(p))
}

func cancellationBody(p domain.CollaborativePurchase) string {
	return render(cancellationTmpl, dataFromPurchase(p))
}
