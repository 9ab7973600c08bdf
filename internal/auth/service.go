// Package auth manages operator accounts, sessions and the administrator
// workflows around them.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"carretometro-backend/internal/audit"
	"carretometro-backend/internal/model"
	"carretometro-backend/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("nome de usuário ou senha incorretos")
	ErrUserBlocked        = errors.New("usuário bloqueado")
	ErrUserExists         = errors.New("este nome de usuário já existe")
	ErrUserNotFound       = errors.New("usuário não encontrado")
	ErrForbidden          = errors.New("ação não permitida")
	ErrImmutableUser      = errors.New("este administrador não pode ser alterado")
	ErrInvalidToken       = errors.New("sessão inválida ou expirada")
	ErrInvalidName        = errors.New("insira um nome completo válido")
	ErrMissingIdentity    = errors.New("é necessário fornecer NP ou nome do gestor")
	ErrDuplicateRequest   = errors.New("já existe uma solicitação pendente ou aprovada para este usuário")
	ErrRequestNotFound    = errors.New("solicitação não encontrada")
	ErrRequestNotPending  = errors.New("solicitação já processada")
	ErrInvalidRole        = errors.New("permissão inválida")
	ErrInvalidStatus      = errors.New("status de usuário inválido")
)

// UserPatch lists the user fields an administrator may change.
type UserPatch struct {
	Role   *model.Role       `json:"role"`
	Status *model.UserStatus `json:"status"`
}

// AccessRequestInput is the self-service form for a new account.
type AccessRequestInput struct {
	FullName    string `json:"fullName" binding:"required"`
	Email       string `json:"email"`
	NPNumber    string `json:"npNumber"`
	Workshop    string `json:"workshop"`
	ManagerName string `json:"managerName"`
}

// Service implements login, sessions and user administration.
type Service struct {
	users  store.UserRepository
	audit  audit.Recorder
	tokens *Tokens
	log    logrus.FieldLogger
	now    func() time.Time
}

// NewService wires the auth service.
func NewService(users store.UserRepository, rec audit.Recorder, tokens *Tokens, log logrus.FieldLogger) *Service {
	return &Service{
		users:  users,
		audit:  rec,
		tokens: tokens,
		log:    log.WithField("component", "auth"),
		now:    time.Now,
	}
}

// SeedDefaults creates the built-in administrators when no user exists.
func (s *Service) SeedDefaults(ctx context.Context) error {
	count, err := s.users.CountUsers(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	for _, u := range DefaultUsers() {
		if err := s.users.CreateUser(ctx, u); err != nil && !errors.Is(err, store.ErrAlreadyExists) {
			return fmt.Errorf("failed to seed user %s: %w", u.Name, err)
		}
	}
	s.log.WithField("count", len(DefaultUsers())).Info("seeded default users")
	return nil
}

// Login checks credentials and issues a session. The name is matched
// case-insensitively, the password exactly.
func (s *Service) Login(ctx context.Context, name, password string) (Session, error) {
	user, err := s.users.FindUser(ctx, strings.TrimSpace(name))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}
	if user.Password != password {
		return Session{}, ErrInvalidCredentials
	}
	if user.Status == model.UserBlocked {
		return Session{}, ErrUserBlocked
	}

	session, err := s.tokens.Issue(user)
	if err != nil {
		return Session{}, err
	}
	s.audit.Record(ctx, user.Name, model.AuditLogin, "Usuário realizou login.")
	return session, nil
}

// Logout records the end of a session. Tokens are stateless and simply expire.
func (s *Service) Logout(ctx context.Context, user model.User) {
	s.audit.Record(ctx, user.Name, model.AuditLogout, "Usuário realizou logout.")
}

// Authenticate resolves a session token to the current state of its user.
// Deleted and blocked users are rejected even with an unexpired token.
func (s *Service) Authenticate(ctx context.Context, token string) (model.User, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return model.User{}, err
	}
	user, err := s.users.FindUser(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.User{}, ErrInvalidToken
		}
		return model.User{}, err
	}
	if user.Status == model.UserBlocked {
		return model.User{}, ErrUserBlocked
	}
	return user, nil
}

// ListUsers returns every user.
func (s *Service) ListUsers(ctx context.Context) ([]model.User, error) {
	return s.users.ListUsers(ctx)
}

// RegisterUser creates an active user. An empty role means EDITOR.
func (s *Service) RegisterUser(ctx context.Context, actor model.User, name, password string, role model.Role) (model.User, error) {
	if !CanManageUsers(actor.Role) {
		return model.User{}, ErrForbidden
	}
	return s.register(ctx, actor, name, password, role)
}

func (s *Service) register(ctx context.Context, actor model.User, name, password string, role model.Role) (model.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.User{}, ErrInvalidName
	}
	if password == "" {
		return model.User{}, ErrInvalidCredentials
	}
	if role == "" {
		role = model.RoleEditor
	}
	if !role.Valid() {
		return model.User{}, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	user := model.User{Name: name, Password: password, Role: role, Status: model.UserActive}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return model.User{}, ErrUserExists
		}
		return model.User{}, err
	}
	s.audit.Record(ctx, actor.Name, model.AuditCreate,
		fmt.Sprintf("Criou o usuário %s com a permissão %s.", name, role))
	return user, nil
}

// UpdateUser changes the role or status of a user.
func (s *Service) UpdateUser(ctx context.Context, actor model.User, name string, patch UserPatch) (model.User, error) {
	target, err := s.manageable(ctx, actor, name)
	if err != nil {
		return model.User{}, err
	}
	if patch.Role != nil {
		if !patch.Role.Valid() {
			return model.User{}, fmt.Errorf("%w: %q", ErrInvalidRole, *patch.Role)
		}
		target.Role = *patch.Role
	}
	if patch.Status != nil {
		if *patch.Status != model.UserActive && *patch.Status != model.UserBlocked {
			return model.User{}, fmt.Errorf("%w: %q", ErrInvalidStatus, *patch.Status)
		}
		target.Status = *patch.Status
	}

	if err := s.users.SaveUser(ctx, target); err != nil {
		return model.User{}, err
	}
	s.audit.Record(ctx, actor.Name, model.AuditUpdate, fmt.Sprintf("Atualizou o usuário %s.", target.Name))
	return target, nil
}

// DeleteUser removes a user.
func (s *Service) DeleteUser(ctx context.Context, actor model.User, name string) error {
	target, err := s.manageable(ctx, actor, name)
	if err != nil {
		return err
	}
	if err := s.users.DeleteUser(ctx, target.Name); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	s.audit.Record(ctx, actor.Name, model.AuditDelete, fmt.Sprintf("Removeu o usuário %s.", target.Name))
	return nil
}

// manageable loads the target of an administrative action and enforces the
// super administrator rules.
func (s *Service) manageable(ctx context.Context, actor model.User, name string) (model.User, error) {
	if !CanManageUsers(actor.Role) {
		return model.User{}, ErrForbidden
	}
	target, err := s.users.FindUser(ctx, name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, err
	}
	if target.Name == ImmutableAdmin {
		return model.User{}, ErrImmutableUser
	}
	if target.Role == model.RoleSuperAdmin && actor.Name != ImmutableAdmin {
		return model.User{}, ErrForbidden
	}
	return target, nil
}

// RequestPasswordReset queues a new password for administrator approval,
// replacing any earlier request of the same user.
func (s *Service) RequestPasswordReset(ctx context.Context, name, newPassword string) error {
	if newPassword == "" {
		return ErrInvalidCredentials
	}
	user, err := s.users.FindUser(ctx, strings.TrimSpace(name))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return s.users.SavePasswordReset(ctx, model.PasswordResetRequest{
		Username:    user.Name,
		NewPassword: newPassword,
		RequestedAt: s.now().UnixMilli(),
	})
}

// ListPasswordResets returns the pending password resets.
func (s *Service) ListPasswordResets(ctx context.Context, actor model.User) ([]model.PasswordResetRequest, error) {
	if !CanManageUsers(actor.Role) {
		return nil, ErrForbidden
	}
	return s.users.ListPasswordResets(ctx)
}

// ApprovePasswordReset applies the pending password of name.
func (s *Service) ApprovePasswordReset(ctx context.Context, actor model.User, name string) error {
	if !CanManageUsers(actor.Role) {
		return ErrForbidden
	}
	req, err := s.users.GetPasswordReset(ctx, name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrRequestNotFound
		}
		return err
	}
	user, err := s.users.FindUser(ctx, req.Username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	user.Password = req.NewPassword
	if err := s.users.SaveUser(ctx, user); err != nil {
		return err
	}
	if err := s.users.DeletePasswordReset(ctx, req.Username); err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	s.audit.Record(ctx, actor.Name, model.AuditUpdate, fmt.Sprintf("Aprovou redefinição de senha para %s.", user.Name))
	return nil
}

// DenyPasswordReset drops the pending password of name.
func (s *Service) DenyPasswordReset(ctx context.Context, actor model.User, name string) error {
	if !CanManageUsers(actor.Role) {
		return ErrForbidden
	}
	if err := s.users.DeletePasswordReset(ctx, name); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrRequestNotFound
		}
		return err
	}
	s.audit.Record(ctx, actor.Name, model.AuditUpdate, fmt.Sprintf("Negou redefinição de senha para %s.", name))
	return nil
}

// Credentials derives the username and initial password of an access
// request. With a manager the first name is used, otherwise the first name
// followed by the NP number.
func Credentials(fullName, npNumber, managerName string) (username, password string, err error) {
	fields := strings.Fields(fullName)
	if len(fields) == 0 {
		return "", "", ErrInvalidName
	}
	first := fields[0]
	switch {
	case strings.TrimSpace(managerName) != "":
		username = strings.ToLower(first)
		return username, username + "123", nil
	case strings.TrimSpace(npNumber) != "":
		np := strings.TrimSpace(npNumber)
		return strings.ToLower(first + np), strings.ToLower(np), nil
	default:
		return "", "", ErrMissingIdentity
	}
}

// RequestAccess files a self-service account request.
func (s *Service) RequestAccess(ctx context.Context, in AccessRequestInput) (model.AccessRequest, error) {
	username, _, err := Credentials(in.FullName, in.NPNumber, in.ManagerName)
	if err != nil {
		return model.AccessRequest{}, err
	}

	if _, err := s.users.FindUser(ctx, username); err == nil {
		return model.AccessRequest{}, ErrUserExists
	} else if !errors.Is(err, store.ErrNotFound) {
		return model.AccessRequest{}, err
	}

	existing, err := s.users.ListAccessRequests(ctx)
	if err != nil {
		return model.AccessRequest{}, err
	}
	for _, req := range existing {
		if req.Status == model.AccessDenied {
			continue
		}
		other, _, err := Credentials(req.FullName, req.NPNumber, req.ManagerName)
		if err == nil && other == username {
			return model.AccessRequest{}, ErrDuplicateRequest
		}
	}

	req := model.AccessRequest{
		ID:          uuid.NewString(),
		FullName:    strings.TrimSpace(in.FullName),
		Email:       strings.TrimSpace(in.Email),
		NPNumber:    strings.TrimSpace(in.NPNumber),
		Workshop:    in.Workshop,
		ManagerName: strings.TrimSpace(in.ManagerName),
		RequestedAt: s.now().UnixMilli(),
		Status:      model.AccessPending,
	}
	if err := s.users.SaveAccessRequest(ctx, req); err != nil {
		return model.AccessRequest{}, err
	}
	return req, nil
}

// ListAccessRequests returns every access request, newest first.
func (s *Service) ListAccessRequests(ctx context.Context, actor model.User) ([]model.AccessRequest, error) {
	if !CanManageUsers(actor.Role) {
		return nil, ErrForbidden
	}
	return s.users.ListAccessRequests(ctx)
}

// ApproveAccessRequest creates the requested account with role and records
// the generated credentials on the request.
func (s *Service) ApproveAccessRequest(ctx context.Context, actor model.User, id string, role model.Role) (model.AccessRequest, error) {
	if !CanManageUsers(actor.Role) {
		return model.AccessRequest{}, ErrForbidden
	}
	req, err := s.pendingRequest(ctx, id)
	if err != nil {
		return model.AccessRequest{}, err
	}
	username, password, err := Credentials(req.FullName, req.NPNumber, req.ManagerName)
	if err != nil {
		return model.AccessRequest{}, err
	}

	user, err := s.register(ctx, actor, username, password, role)
	if err != nil {
		return model.AccessRequest{}, err
	}

	req.Status = model.AccessApproved
	req.GeneratedUsername = user.Name
	req.GeneratedPassword = password
	req.AssignedRole = user.Role
	if err := s.users.SaveAccessRequest(ctx, req); err != nil {
		return model.AccessRequest{}, err
	}
	s.audit.Record(ctx, actor.Name, model.AuditCreate, fmt.Sprintf("Aprovou acesso e criou o usuário %s.", user.Name))
	return req, nil
}

// DenyAccessRequest marks a pending request as denied.
func (s *Service) DenyAccessRequest(ctx context.Context, actor model.User, id string) (model.AccessRequest, error) {
	if !CanManageUsers(actor.Role) {
		return model.AccessRequest{}, ErrForbidden
	}
	req, err := s.pendingRequest(ctx, id)
	if err != nil {
		return model.AccessRequest{}, err
	}
	req.Status = model.AccessDenied
	if err := s.users.SaveAccessRequest(ctx, req); err != nil {
		return model.AccessRequest{}, err
	}
	s.audit.Record(ctx, actor.Name, model.AuditDelete, fmt.Sprintf("Negou a solicitação de acesso de %s.", req.FullName))
	return req, nil
}

func (s *Service) pendingRequest(ctx context.Context, id string) (model.AccessRequest, error) {
	req, err := s.users.GetAccessRequest(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.AccessRequest{}, ErrRequestNotFound
		}
		return model.AccessRequest{}, err
	}
	if req.Status != model.AccessPending {
		return model.AccessRequest{}, ErrRequestNotPending
	}
	return req, nil
}
