package qcgraph

import (
	"context"
	"sync"
	"time"

	"github.com/blutspende/qcgraph/middleware"
	"github.com/blutspende/qcgraph/utils"
	"github.com/rs/zerolog/log"
)

type AssayMetadataLookup interface {
	GetAssayInfo(ctx context.Context, assayName string) (AssayInfo, bool)
}

type Permission string

const (
	PermissionViewQc            Permission = "QC_VIEW"
	PermissionToggleCalculated  Permission = "QC_TOGGLE_CALCULATED"
	PermissionEditDisposition   Permission = "QC_EDIT_OUT_OF_CONTROL"
	PermissionUpdateTargetValue Permission = "QC_UPDATE_TARGET"
	PermissionPrint             Permission = "QC_PRINT"
)

type PermissionLookup interface {
	HasPermission(ctx context.Context, permission Permission) bool
}

type StatusCodeLookup interface {
	StateText(ctx context.Context, state QcState) string
}

type userContextKey struct{}

// ContextWithUser attaches the authenticated user to ctx for the permission lookup.
func ContextWithUser(ctx context.Context, user middleware.UserToken) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

func UserFromContext(ctx context.Context) (middleware.UserToken, bool) {
	user, ok := ctx.Value(userContextKey{}).(middleware.UserToken)
	return user, ok
}

// DefaultRolePermissions grants every QC operation to lab supervisors and only viewing
// and printing to assistants.
var DefaultRolePermissions = map[Permission][]middleware.UserRole{
	PermissionViewQc:            {middleware.Admin, middleware.MedLabSuper, middleware.MedLabHead, middleware.MedLabDoc, middleware.MedLabAssist, middleware.Service},
	PermissionPrint:             {middleware.Admin, middleware.MedLabSuper, middleware.MedLabHead, middleware.MedLabDoc, middleware.MedLabAssist},
	PermissionToggleCalculated:  {middleware.Admin, middleware.MedLabSuper, middleware.MedLabHead},
	PermissionEditDisposition:   {middleware.Admin, middleware.MedLabSuper, middleware.MedLabHead, middleware.MedLabDoc},
	PermissionUpdateTargetValue: {middleware.Admin, middleware.MedLabSuper},
}

type rolePermissionLookup struct {
	rolePermissions map[Permission][]middleware.UserRole
	authorization   bool
}

// NewRolePermissionLookup resolves permissions from the realm roles of the user in the
// context. Without authorization every permission is granted.
func NewRolePermissionLookup(rolePermissions map[Permission][]middleware.UserRole, authorization bool) PermissionLookup {
	return &rolePermissionLookup{
		rolePermissions: rolePermissions,
		authorization:   authorization,
	}
}

func (l *rolePermissionLookup) HasPermission(ctx context.Context, permission Permission) bool {
	if !l.authorization {
		return true
	}
	user, ok := UserFromContext(ctx)
	if !ok {
		return false
	}
	return utils.SliceContainsAny(l.rolePermissions[permission], user.RealmAccess.Roles)
}

const statusCodeRetryInterval = time.Minute

type statusCodeLookup struct {
	client     LogicControlClient
	texts      map[QcState]string
	lastFailed time.Time
	mutex      sync.Mutex
}

// NewStatusCodeLookup loads the state texts from the logic service on first use and
// falls back to the state name while they are unavailable. A failed load is retried
// at most once a minute.
func NewStatusCodeLookup(client LogicControlClient) StatusCodeLookup {
	return &statusCodeLookup{client: client}
}

func (l *statusCodeLookup) StateText(ctx context.Context, state QcState) string {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	if l.texts == nil {
		if time.Since(l.lastFailed) < statusCodeRetryInterval {
			return state.String()
		}
		texts, err := l.client.GetStatusCodes(ctx)
		if err != nil {
			log.Error().Err(err).Msg(MsgGetStatusCodesFailed)
			l.lastFailed = time.Now()
			return state.String()
		}
		l.texts = texts
	}
	if text, ok := l.texts[state]; ok && text != "" {
		return text
	}
	return state.String()
}
