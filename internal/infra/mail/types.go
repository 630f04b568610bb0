package mail

type MailType string

const (
	DeliveryCompleted MailType = "DeliveryCompleted"
	DeliveryFailed    MailType = "DeliveryFailed"
)

type MailData interface {
	GetMailType() MailType
	GetSubject() string
}

type DeliveryCompletedData struct {
	CustomerFirstName  string
	CustomerSecondName string
	Domain             string
	SiteURL            string
	MailboxEmail       string
	PanelURL           string
	Warnings           string
	Year               string
}

func (s DeliveryCompletedData) GetMailType() MailType {
	return DeliveryCompleted
}

func (s DeliveryCompletedData) GetSubject() string {
	return "Your website is live!"
}

type DeliveryFailedData struct {
	CustomerFirstName  string
	CustomerSecondName string
	Domain             string
	FailedStep         string
	Reason             string
	Year               string
}

func (s DeliveryFailedData) GetMailType() MailType {
	return DeliveryFailed
}

func (s DeliveryFailedData) GetSubject() string {
	return "We hit a snag setting up your website"
}
