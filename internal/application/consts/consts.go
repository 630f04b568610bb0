package consts

type DeliveryStatus string

const (
	DeliveryStatusPending               DeliveryStatus = "pending"
	DeliveryStatusInProgress            DeliveryStatus = "in_progress"
	DeliveryStatusCompleted             DeliveryStatus = "completed"
	DeliveryStatusCompletedWithWarnings DeliveryStatus = "completed_with_warnings"
	DeliveryStatusFailed                DeliveryStatus = "failed"
	DeliveryStatusCanceled              DeliveryStatus = "canceled"
)

// IsTerminal reports whether no further stage may run for an attempt.
func (s DeliveryStatus) IsTerminal() bool {
	switch s {
	case DeliveryStatusCompleted, DeliveryStatusCompletedWithWarnings, DeliveryStatusFailed, DeliveryStatusCanceled:
		return true
	}
	return false
}

type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusRunning   StepStatus = "running"
	StepStatusSucceeded StepStatus = "succeeded"
	StepStatusFailed    StepStatus = "failed"
	StepStatusSkipped   StepStatus = "skipped"
)

type Stage string

const (
	StageDomainSearch      Stage = "domain_search"
	StageDomainRegister    Stage = "domain_register"
	StageZoneReady         Stage = "zone_ready"
	StageNameserversSynced Stage = "nameservers_synced"
	StageDNSPropagated     Stage = "dns_propagated"
	StageWebsiteDNS        Stage = "website_dns"
	StagePublish           Stage = "publish"
	StageSSLVerify         Stage = "ssl_verify"
	StageEmailDNS          Stage = "email_dns"
	StageMailboxCreate     Stage = "mailbox_create"
	StageCpanelCreate      Stage = "cpanel_create"
)

// StageOrder is the fixed execution order. A stage only starts once every
// prior stage is succeeded or skipped.
var StageOrder = []Stage{
	StageDomainSearch,
	StageDomainRegister,
	StageZoneReady,
	StageNameserversSynced,
	StageDNSPropagated,
	StageWebsiteDNS,
	StagePublish,
	StageSSLVerify,
	StageEmailDNS,
	StageMailboxCreate,
	StageCpanelCreate,
}

type OutboxStatus int

const (
	NotProcessed OutboxStatus = iota
	Processed
	Processing
	InError
)

type SiteStatus string

const (
	SiteStatusDraft     SiteStatus = "Draft"
	SiteStatusPaid      SiteStatus = "Paid"
	SiteStatusDelivered SiteStatus = "Delivered"
)
