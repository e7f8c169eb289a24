package synth

import (
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/salesops-assistant/agent/contract"
)

func contactInfo(p contractx.ContactInfo) string {
	if !p.Found || p.Contact == nil {
		return fmt.Sprintf("No CRM contact found for %s.", p.Email)
	}
	return describeContact(*p.Contact) + "."
}

func describeContact(c contractx.Contact) string {
	name := c.FullName()
	if name == "" {
		name = c.Email
	}
	var b strings.Builder
	b.WriteString(name)
	if c.Email != "" && name != c.Email {
		fmt.Fprintf(&b, " (%s)", c.Email)
	}
	switch {
	case c.JobTitle != "" && c.Company != "":
		fmt.Fprintf(&b, ", %s at %s", c.JobTitle, c.Company)
	case c.Company != "":
		fmt.Fprintf(&b, " at %s", c.Company)
	case c.JobTitle != "":
		fmt.Fprintf(&b, ", %s", c.JobTitle)
	}
	if c.LifecycleStage != "" {
		fmt.Fprintf(&b, ", stage %s", c.LifecycleStage)
	}
	return b.String()
}

func contactSearch(p contractx.ContactSearch) string {
	if len(p.Contacts) == 0 {
		return fmt.Sprintf("No CRM contacts match %q.", p.Query)
	}
	names := make([]string, 0, len(p.Contacts))
	for _, c := range p.Contacts {
		names = append(names, describeContact(c))
	}
	return fmt.Sprintf("Found %s for %q: %s.",
		plural(len(p.Contacts), "contact", "contacts"), p.Query, strings.Join(names, "; "))
}

func companyInfo(p contractx.CompanyInfo) string {
	if !p.Found || p.Company == nil {
		return fmt.Sprintf("No company named %q in the CRM.", p.Name)
	}
	c := p.Company
	var b strings.Builder
	b.WriteString(c.Name)
	if c.Domain != "" {
		fmt.Fprintf(&b, " (%s)", c.Domain)
	}
	if c.Industry != "" {
		fmt.Fprintf(&b, ", %s", c.Industry)
	}
	var place []string
	for _, v := range []string{c.City, c.Country} {
		if v != "" {
			place = append(place, v)
		}
	}
	if len(place) > 0 {
		fmt.Fprintf(&b, ", based in %s", strings.Join(place, ", "))
	}
	if c.Employees != "" {
		fmt.Fprintf(&b, ", %s employees", c.Employees)
	}
	return b.String() + "."
}
