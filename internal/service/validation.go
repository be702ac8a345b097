package service

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/GTDGit/gtd_gateway/internal/models"
	"github.com/GTDGit/gtd_gateway/internal/utils"
)

const (
	nameMinLength        = 3
	nameMaxLength        = 64
	displayNameMaxLength = 128
	vhostMaxLength       = 255
	descriptionMaxLength = 500

	defaultPageLimit = 20
	maxPageLimit     = 100
)

var gatewayNamePattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// Page selects a window of a list.
type Page struct {
	Limit  int
	Offset int
}

func (p Page) normalize() (Page, error) {
	verr := &utils.ValidationError{}
	if p.Limit < 0 || p.Limit > maxPageLimit {
		verr.Add("limit", fmt.Sprintf("limit must be between 1 and %d", maxPageLimit))
	}
	if p.Offset < 0 {
		verr.Add("offset", "offset must not be negative")
	}
	if err := verr.OrNil(); err != nil {
		return p, err
	}
	if p.Limit == 0 {
		p.Limit = defaultPageLimit
	}
	return p, nil
}

func validateName(name string, verr *utils.ValidationError) {
	switch {
	case name == "":
		verr.Add("name", "name is required")
	case len(name) < nameMinLength || len(name) > nameMaxLength:
		verr.Add("name", fmt.Sprintf("name must be between %d and %d characters", nameMinLength, nameMaxLength))
	case !gatewayNamePattern.MatchString(name):
		verr.Add("name", "name may only contain lowercase letters, digits and hyphens")
	case strings.HasPrefix(name, "-") || strings.HasSuffix(name, "-"):
		verr.Add("name", "name must not start or end with a hyphen")
	}
}

func validateDisplayName(displayName string, verr *utils.ValidationError) {
	switch {
	case strings.TrimSpace(displayName) == "":
		verr.Add("displayName", "displayName is required")
	case utf8.RuneCountInString(displayName) > displayNameMaxLength:
		verr.Add("displayName", fmt.Sprintf("displayName must be at most %d characters", displayNameMaxLength))
	}
}

func validateDescription(description *string, verr *utils.ValidationError) {
	if description != nil && utf8.RuneCountInString(*description) > descriptionMaxLength {
		verr.Add("description", fmt.Sprintf("description must be at most %d characters", descriptionMaxLength))
	}
}

func validateRegister(req *RegisterGatewayRequest) error {
	verr := &utils.ValidationError{}

	validateName(req.Name, verr)
	validateDisplayName(req.DisplayName, verr)

	switch {
	case strings.TrimSpace(req.Vhost) == "":
		verr.Add("vhost", "vhost is required")
	case len(req.Vhost) > vhostMaxLength:
		verr.Add("vhost", fmt.Sprintf("vhost must be at most %d characters", vhostMaxLength))
	}

	validateDescription(req.Description, verr)

	if !req.FunctionalityType.Valid() {
		verr.Add("functionalityType", "functionalityType must be one of: regular, ai, event")
	}

	return verr.OrNil()
}

// normalizeDescription maps an empty description to NULL.
func normalizeDescription(d *string) *string {
	if d == nil || *d == "" {
		return nil
	}
	return d
}

func isUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil && len(s) == 36
}

// ValidGatewayID reports whether id is a well-formed gateway identifier.
func ValidGatewayID(id string) bool {
	return isUUID(id)
}

func requireOrganization(orgID string) error {
	if strings.TrimSpace(orgID) == "" {
		return utils.NewValidationError("organizationId", "organization id is required")
	}
	return nil
}

// defaultFunctionalityType fills in the default type when none was given.
func defaultFunctionalityType(t models.FunctionalityType) models.FunctionalityType {
	if t == "" {
		return models.FunctionalityRegular
	}
	return t
}
