package email

import contractx "github.com/tanpawarit/salesops-assistant/agent/contract"

var lookupSpec = contractx.ToolSpec{
	Name: ToolLookupAndPrepare,
	Description: "Find a person by name (or email) and prepare a personalized email. Never sends. " +
		"Placeholders {{name}}, {{first_name}}, {{company}} and {{title}} are filled in. " +
		"When status is ready_to_send, pass the returned authorization to sendPersonalizedEmail after the user confirms.",
	Params: []contractx.ParamSpec{
		{Name: "personName", Type: contractx.ParamString, Description: "Name of the person to email.", Required: true},
		{Name: "subject", Type: contractx.ParamString, Description: "Email subject.", Required: true},
		{Name: "body", Type: contractx.ParamString, Description: "Email body.", Required: true},
		{Name: "personEmail", Type: contractx.ParamString, Description: "Email address if the user gave one."},
	},
}

var sendSpec = contractx.ToolSpec{
	Name: ToolSendPersonalized,
	Description: "Send one email. Use authorization from lookupAndPrepareEmail for people named by the user, " +
		"customerName for a customer card, or toEmail only for an address the user typed.",
	Params: []contractx.ParamSpec{
		{Name: "toEmail", Type: contractx.ParamString, Description: "Recipient address typed by the user."},
		{Name: "subject", Type: contractx.ParamString, Description: "Email subject.", Required: true},
		{Name: "body", Type: contractx.ParamString, Description: "Email body.", Required: true},
		{Name: "toName", Type: contractx.ParamString, Description: "Recipient display name."},
		{Name: "customerName", Type: contractx.ParamString, Description: "Customer card name to resolve the recipient from."},
		{Name: "authorization", Type: contractx.ParamString, Description: "Authorization returned by lookupAndPrepareEmail."},
	},
}

var bulkSpec = contractx.ToolSpec{
	Name:        ToolSendBulk,
	Description: "Send a templated email to several recipients, or to every customer with an email address.",
	Params: []contractx.ParamSpec{
		{Name: "subjectTemplate", Type: contractx.ParamString, Description: "Subject with {{name}}/{{company}} placeholders.", Required: true},
		{Name: "bodyTemplate", Type: contractx.ParamString, Description: "Body with {{name}}/{{company}} placeholders.", Required: true},
		{
			Name:        "recipients",
			Type:        contractx.ParamArray,
			Description: "Recipients to email.",
			Items: &contractx.ParamSpec{
				Type: contractx.ParamObject,
				Properties: []contractx.ParamSpec{
					{Name: "email", Type: contractx.ParamString, Description: "Recipient address.", Required: true},
					{Name: "name", Type: contractx.ParamString, Description: "Recipient name."},
					{Name: "company", Type: contractx.ParamString, Description: "Recipient company."},
				},
			},
		},
		{Name: "sendToAllCustomers", Type: contractx.ParamBoolean, Description: "Email every customer card that has an address.", Default: false},
		{Name: "campaignName", Type: contractx.ParamString, Description: "Campaign label.", Default: DefaultCampaign},
	},
}

func Specs() []contractx.ToolSpec {
	return []contractx.ToolSpec{lookupSpec, sendSpec, bulkSpec}
}
