package crm

import contractx "github.com/tanpawarit/salesops-assistant/agent/contract"

var contactSpec = contractx.ToolSpec{
	Name:        ToolGetContactInfo,
	Description: "Look up a CRM contact by email address.",
	Params: []contractx.ParamSpec{
		{Name: "email", Type: contractx.ParamString, Description: "Contact email address.", Required: true},
	},
}

var searchSpec = contractx.ToolSpec{
	Name:        ToolSearchContacts,
	Description: "Search CRM contacts by name, email or company.",
	Params: []contractx.ParamSpec{
		{Name: "query", Type: contractx.ParamString, Description: "Free-text search term.", Required: true},
		{Name: "limit", Type: contractx.ParamInteger, Description: "Maximum contacts to return.", Default: 10},
	},
}

var companySpec = contractx.ToolSpec{
	Name:        ToolGetCompanyInfo,
	Description: "Look up a company in the CRM by name.",
	Params: []contractx.ParamSpec{
		{Name: "companyName", Type: contractx.ParamString, Description: "Company name.", Required: true},
	},
}

var noteSpec = contractx.ToolSpec{
	Name:        ToolCreateNote,
	Description: "Attach a note to a CRM contact.",
	Params: []contractx.ParamSpec{
		{Name: "contactEmail", Type: contractx.ParamString, Description: "Email of the contact.", Required: true},
		{Name: "noteContent", Type: contractx.ParamString, Description: "Note body.", Required: true},
		{Name: "noteTitle", Type: contractx.ParamString, Description: "Note title.", Default: DefaultNoteTitle},
	},
}

var activitiesSpec = contractx.ToolSpec{
	Name:        ToolGetRecentActivities,
	Description: "Recent CRM activities for a contact.",
	Params: []contractx.ParamSpec{
		{Name: "contactEmail", Type: contractx.ParamString, Description: "Email of the contact.", Required: true},
		{Name: "limit", Type: contractx.ParamInteger, Description: "Maximum activities to return.", Default: 20},
	},
}

func Specs() []contractx.ToolSpec {
	return []contractx.ToolSpec{contactSpec, searchSpec, companySpec, noteSpec, activitiesSpec}
}
