package service

import (
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/kiranshivaraju/taskforge/pkg/models"
)

const (
	minPasswordLen = 8
	maxNameLen     = 255
)

var subdomainPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{1,61}[a-z0-9])?$`)

// required trims s and rejects it when empty or too long.
func required(field, s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", validation("%s is required", field)
	}
	if utf8.RuneCountInString(s) > maxNameLen {
		return "", validation("%s must be at most %d characters", field, maxNameLen)
	}
	return s, nil
}

// normalizeEmail lower-cases and validates an address. Display names are
// rejected: only the bare address is accepted.
func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", validation("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", validation("email is invalid")
	}
	return email, nil
}

func normalizeSubdomain(subdomain string) (string, error) {
	subdomain = strings.ToLower(strings.TrimSpace(subdomain))
	if subdomain == "" {
		return "", validation("subdomain is required")
	}
	if !subdomainPattern.MatchString(subdomain) {
		return "", validation("subdomain must be at most 63 lowercase letters, digits or hyphens and cannot start or end with a hyphen")
	}
	return subdomain, nil
}

func validatePassword(password string) error {
	if password == "" {
		return validation("password is required")
	}
	if utf8.RuneCountInString(password) < minPasswordLen {
		return validation("password must be at least %d characters", minPasswordLen)
	}
	return nil
}

// optionalText trims a nullable text field; blank becomes nil.
func optionalText(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func validateTenantPatch(p *models.TenantPatch) error {
	if p.Name != nil {
		name, err := required("name", *p.Name)
		if err != nil {
			return err
		}
		p.Name = &name
	}
	if p.Status != nil && !p.Status.Valid() {
		return validation("status must be active or suspended")
	}
	if p.SubscriptionPlan != nil && !p.SubscriptionPlan.Valid() {
		return validation("subscriptionPlan must be free, pro or enterprise")
	}
	if p.MaxUsers != nil && *p.MaxUsers < 1 {
		return validation("maxUsers must be positive")
	}
	if p.MaxProjects != nil && *p.MaxProjects < 1 {
		return validation("maxProjects must be positive")
	}
	return nil
}

func validateUserPatch(p *models.UserPatch) error {
	if p.FullName != nil {
		name, err := required("fullName", *p.FullName)
		if err != nil {
			return err
		}
		p.FullName = &name
	}
	if p.Role != nil && !p.Role.Valid() {
		return validation("role must be tenant_admin or user")
	}
	return nil
}

func validateProjectPatch(p *models.ProjectPatch) error {
	if p.Name != nil {
		name, err := required("name", *p.Name)
		if err != nil {
			return err
		}
		p.Name = &name
	}
	if p.Description.Set {
		p.Description.Value = optionalText(p.Description.Value)
	}
	if p.Status != nil && !p.Status.Valid() {
		return validation("status must be active, archived or completed")
	}
	return nil
}

func validateTaskPatch(p *models.TaskPatch) error {
	if p.Title != nil {
		title, err := required("title", *p.Title)
		if err != nil {
			return err
		}
		p.Title = &title
	}
	if p.Description.Set {
		p.Description.Value = optionalText(p.Description.Value)
	}
	if p.Status != nil && !p.Status.Valid() {
		return validation("status must be todo, in_progress or completed")
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return validation("priority must be low, medium or high")
	}
	return nil
}
