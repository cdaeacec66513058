package mailer

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"github.com/shopspring/decimal"
)

//go:embed templates/*.html
var templateFS embed.FS

// GroupUpdateKind selects the default body of a group update email.
type GroupUpdateKind string

const (
	GroupJoined    GroupUpdateKind = "joined"
	GroupLeft      GroupUpdateKind = "left"
	GroupCompleted GroupUpdateKind = "completed"
	GroupCancelled GroupUpdateKind = "cancelled"
)

// Templates renders the transactional emails. Links are built on the
// public web URL of the storefront.
type Templates struct {
	baseURL string
	pages   map[string]*template.Template
}

func NewTemplates(baseURL string) (*Templates, error) {
	t := &Templates{baseURL: baseURL, pages: map[string]*template.Template{}}
	for _, name := range []string{"group_invite", "group_update", "vendor_approval", "fee_welcome", "password_reset"} {
		tmpl, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		t.pages[name] = tmpl
	}
	return t, nil
}

func (t *Templates) render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.pages[name].ExecuteTemplate(&buf, "layout", data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

func (t *Templates) GroupInvite(to, groupName, inviterName string) (Message, error) {
	html, err := t.render("group_invite", map[string]string{
		"GroupName":   groupName,
		"InviterName": inviterName,
		"Link":        t.baseURL + "/groups/invites",
	})
	return Message{
		From:    DefaultFrom,
		To:      []string{to},
		Subject: fmt.Sprintf("You've been invited to join %s on Foodrient", groupName),
		HTML:    html,
	}, err
}

// GroupUpdate renders an update; details overrides the default sentence for kind.
func (t *Templates) GroupUpdate(to, groupName string, kind GroupUpdateKind, details string) (Message, error) {
	if details == "" {
		details = defaultUpdateMessage(kind, groupName)
	}
	html, err := t.render("group_update", map[string]string{
		"GroupName": groupName,
		"Details":   details,
		"Link":      t.baseURL + "/groups",
	})
	return Message{
		From:    DefaultFrom,
		To:      []string{to},
		Subject: fmt.Sprintf("Update on your group %q", groupName),
		HTML:    html,
	}, err
}

func defaultUpdateMessage(kind GroupUpdateKind, groupName string) string {
	switch kind {
	case GroupJoined:
		return "A new member has joined the group."
	case GroupLeft:
		return "A member has left the group."
	case GroupCompleted:
		return fmt.Sprintf("The group %q has reached its target size and is now complete!", groupName)
	case GroupCancelled:
		return fmt.Sprintf("The group %q has been cancelled.", groupName)
	default:
		return "There has been an update to your group."
	}
}

func (t *Templates) VendorApproval(to, vendorName, supportName string, feePercent decimal.Decimal) (Message, error) {
	if supportName == "" {
		supportName = "the Foodrient support team"
	}
	html, err := t.render("vendor_approval", map[string]string{
		"VendorName":    vendorName,
		"SupportName":   supportName,
		"FeePercent":    feePercent.String(),
		"VendorPercent": decimal.NewFromInt(100).Sub(feePercent).String(),
		"DashboardURL":  t.baseURL + "/auth",
	})
	return Message{
		From:    DefaultFrom,
		To:      []string{to},
		Subject: "Welcome to Foodrient - Your Vendor Account is Approved!",
		HTML:    html,
	}, err
}

func (t *Templates) FeeWelcome(to, vendorName, bankName, accountLast4 string, feePercent decimal.Decimal) (Message, error) {
	html, err := t.render("fee_welcome", map[string]string{
		"VendorName":    vendorName,
		"BankName":      bankName,
		"AccountLast4":  accountLast4,
		"FeePercent":    feePercent.String(),
		"VendorPercent": decimal.NewFromInt(100).Sub(feePercent).String(),
	})
	return Message{
		From:    DefaultFrom,
		To:      []string{to},
		Subject: "Your Foodrient payout account is ready",
		HTML:    html,
	}, err
}

func (t *Templates) PasswordReset(to, token, expiresIn string) (Message, error) {
	html, err := t.render("password_reset", map[string]string{
		"Link":      t.baseURL + "/auth/reset?token=" + token,
		"ExpiresIn": expiresIn,
	})
	return Message{
		From:    DefaultFrom,
		To:      []string{to},
		Subject: "Reset your Foodrient password",
		HTML:    html,
	}, err
}
