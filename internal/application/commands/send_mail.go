package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/kuziva-m/mvp-sub001/internal/application/events"
	"github.com/kuziva-m/mvp-sub001/internal/infra/db"
	"github.com/kuziva-m/mvp-sub001/internal/infra/mail"
	dbs "github.com/kuziva-m/mvp-sub001/pkg/db"
	shared "github.com/kuziva-m/mvp-sub001/pkg/interfaces"
)

type SendMail struct {
	server     *mail.MailServer
	uowFactory *dbs.UOWFactory
}

func NewSendMail(server *mail.MailServer, uowFactory *dbs.UOWFactory) *SendMail {
	return &SendMail{server: server, uowFactory: uowFactory}
}

func (c *SendMail) Handle(event events.SendMail) (shared.UoW, error) {
	mailData, err := mapToMailData(event)
	if err != nil {
		return nil, err
	}
	uow := c.uowFactory.GetUoW()
	tx, err := uow.Begin()
	if err != nil {
		return nil, err
	}
	recipients := make([]string, 0)
	if event.Recipient != "" {
		recipients = append(recipients, event.Recipient)
	} else {
		var email string
		err = tx.QueryRow(context.Background(), "SELECT email FROM delivery.customers WHERE id = $1", event.CustomerID).Scan(&email)
		if err != nil {
			return uow, err
		}
		recipients = append(recipients, email)
	}

	var mailTemplate string
	err = tx.QueryRow(context.Background(), "SELECT content FROM delivery.mail_templates WHERE type = $1", mailData.GetMailType()).Scan(&mailTemplate)
	if err != nil {
		return uow, err
	}

	htmlBody, err := renderHTML(mailTemplate, mailData)
	if err != nil {
		return uow, fmt.Errorf("error rendering html, %v", err)
	}

	record := db.Mail{
		MailType:   string(mailData.GetMailType()),
		Recipients: strings.Join(recipients, ","),
		Subject:    event.Subject,
		Content:    htmlBody,
		SentAt:     time.Now(),
	}
	_, err = tx.Exec(context.Background(), "INSERT INTO delivery.mails(type, recipients, subject, content, sent_at) VALUES ($1,$2,$3,$4,$5)",
		record.MailType, record.Recipients, record.Subject, record.Content, record.SentAt,
	)
	if err != nil {
		return uow, err
	}
	err = c.server.SendMail(recipients, record.Subject, record.Content)
	if err != nil {
		return uow, err
	}

	return uow, nil
}

func renderHTML(tmpl string, data mail.MailData) (string, error) {
	t := template.Must(template.New("email").Parse(tmpl))
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func mapToMailData(event events.SendMail) (mail.MailData, error) {

	switch event.Subject {
	case mail.DeliveryCompletedData{}.GetSubject():
		var completed mail.DeliveryCompletedData
		raw, _ := json.Marshal(event.Data)
		if err := json.Unmarshal(raw, &completed); err != nil {
			return nil, fmt.Errorf("error mapping to mailData, %v", err)
		}
		return completed, nil
	case mail.DeliveryFailedData{}.GetSubject():
		var failed mail.DeliveryFailedData
		raw, _ := json.Marshal(event.Data)
		if err := json.Unmarshal(raw, &failed); err != nil {
			return nil, fmt.Errorf("error mapping to mailData, %v", err)
		}
		return failed, nil
	}

	return nil, fmt.Errorf("no such mailData type exists")
}
