package middleware

import (
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

type UserToken struct {
	RealmAccess       RealmAccess `json:"realm_access"`
	Email             string      `json:"email"`
	PreferredUsername string      `json:"preferred_username"`
	ClientID          string      `json:"azp"`
	UserID            uuid.UUID   `json:"sub"`
	Scopes            string      `json:"scope"`
	jwt.RegisteredClaims
}

// DisplayName is the name written to the operation log.
func (u UserToken) DisplayName() string {
	if u.PreferredUsername != "" {
		return u.PreferredUsername
	}
	if u.Email != "" {
		return u.Email
	}
	return u.ClientID
}

type RealmAccess struct {
	Roles []UserRole `json:"roles"`
}

type UserRole string

const (
	Admin        UserRole = "admin"
	MedLabSuper  UserRole = "medlabsuper"
	MedLabHead   UserRole = "medlabhead"
	MedLabDoc    UserRole = "medlabdoc"
	MedLabAssist UserRole = "medlabassist"
	Service      UserRole = "service"
)

// QcViewerRoles may open chart pages.
var QcViewerRoles = []UserRole{Admin, MedLabSuper, MedLabHead, MedLabDoc, MedLabAssist, Service}
