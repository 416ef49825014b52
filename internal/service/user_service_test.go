package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/doc-review-api/internal/dto"
	"github.com/noah-isme/doc-review-api/internal/models"
	appErrors "github.com/noah-isme/doc-review-api/pkg/errors"
)

type userStoreStub struct {
	byEmail     map[string]*models.User
	byID        map[string]*models.User
	createErr   error
	created     []*models.User
	hardDeleted []string
	deactivated []string
}

func (s *userStoreStub) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if user, ok := s.byEmail[email]; ok {
		cp := *user
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (s *userStoreStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := s.byID[id]; ok {
		cp := *user
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (s *userStoreStub) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	return nil, 0, nil
}

func (s *userStoreStub) Create(ctx context.Context, user *models.User) error {
	if s.createErr != nil {
		return s.createErr
	}
	user.ID = "user-new"
	s.created = append(s.created, user)
	return nil
}

func (s *userStoreStub) HardDelete(ctx context.Context, id string) error {
	s.hardDeleted = append(s.hardDeleted, id)
	return nil
}

func (s *userStoreStub) Deactivate(ctx context.Context, id string) error {
	s.deactivated = append(s.deactivated, id)
	return nil
}

type profileStoreStub struct {
	createErr    error
	created      []*models.Profile
	cedulaExists bool
	byUserID     map[string]*models.Profile
}

func (s *profileStoreStub) Create(ctx context.Context, profile *models.Profile) error {
	if s.createErr != nil {
		return s.createErr
	}
	profile.ID = "profile-new"
	s.created = append(s.created, profile)
	return nil
}

func (s *profileStoreStub) FindByUserID(ctx context.Context, userID string) (*models.Profile, error) {
	if profile, ok := s.byUserID[userID]; ok {
		cp := *profile
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (s *profileStoreStub) ExistsByCedula(ctx context.Context, cedula string) (bool, error) {
	return s.cedulaExists, nil
}

func (s *profileStoreStub) Update(ctx context.Context, profile *models.Profile) error {
	return nil
}

func createUserFixture() dto.CreateUserRequest {
	cedula := "1712345678"
	return dto.CreateUserRequest{
		Email:     "ana.perez@uei.edu.ec",
		Password:  "sup3r-secret",
		Role:      "DOCENTE",
		Cedula:    &cedula,
		Apellidos: "Perez",
		Nombres:   "Ana",
	}
}

func TestUserServiceCreate(t *testing.T) {
	users := &userStoreStub{byEmail: map[string]*models.User{}}
	profiles := &profileStoreStub{}
	audit := &auditStub{}
	svc := NewUserService(users, profiles, audit, nil, nil)

	view, err := svc.Create(context.Background(), createUserFixture(), vicerrectorClaims())
	require.NoError(t, err)
	require.Equal(t, "user-new", view.ID)
	require.Equal(t, models.RoleDocente, view.Role)
	require.Equal(t, "Perez Ana", view.FullName)
	require.Len(t, users.created, 1)
	require.Len(t, profiles.created, 1)
	require.Len(t, audit.logs, 1)
	require.NotEqual(t, "sup3r-secret", users.created[0].PasswordHash)
}

func TestUserServiceCreateRollsBackOnProfileFailure(t *testing.T) {
	users := &userStoreStub{byEmail: map[string]*models.User{}}
	profiles := &profileStoreStub{createErr: errors.New("insert failed")}
	svc := NewUserService(users, profiles, nil, nil, nil)

	_, err := svc.Create(context.Background(), createUserFixture(), vicerrectorClaims())
	require.Error(t, err)
	require.Equal(t, []string{"user-new"}, users.hardDeleted, "identity removed after profile insert failure")
}

func TestUserServiceCreateDuplicateEmail(t *testing.T) {
	users := &userStoreStub{byEmail: map[string]*models.User{
		"ana.perez@uei.edu.ec": {ID: "user-1", Email: "ana.perez@uei.edu.ec"},
	}}
	svc := NewUserService(users, &profileStoreStub{}, nil, nil, nil)

	_, err := svc.Create(context.Background(), createUserFixture(), vicerrectorClaims())
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestUserServiceCreateDuplicateCedula(t *testing.T) {
	users := &userStoreStub{byEmail: map[string]*models.User{}}
	profiles := &profileStoreStub{cedulaExists: true}
	svc := NewUserService(users, profiles, nil, nil, nil)

	_, err := svc.Create(context.Background(), createUserFixture(), vicerrectorClaims())
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	require.Empty(t, users.created)
}

func TestUserServiceCreateRejectsUnknownRole(t *testing.T) {
	svc := NewUserService(&userStoreStub{}, &profileStoreStub{}, nil, nil, nil)

	req := createUserFixture()
	req.Role = "RECTOR"
	_, err := svc.Create(context.Background(), req, vicerrectorClaims())
	require.Error(t, err)
}

func TestUserServiceCreateForbiddenForDocente(t *testing.T) {
	svc := NewUserService(&userStoreStub{}, &profileStoreStub{}, nil, nil, nil)

	_, err := svc.Create(context.Background(), createUserFixture(), docenteClaims())
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestUserServiceDeactivateGuardsSelf(t *testing.T) {
	users := &userStoreStub{byID: map[string]*models.User{
		"vr-1":   {ID: "vr-1", Role: models.RoleVicerrector},
		"user-2": {ID: "user-2", Role: models.RoleDocente},
	}}
	svc := NewUserService(users, &profileStoreStub{}, nil, nil, nil)

	require.Error(t, svc.Deactivate(context.Background(), "vr-1", vicerrectorClaims()))
	require.NoError(t, svc.Deactivate(context.Background(), "user-2", vicerrectorClaims()))
	require.Equal(t, []string{"user-2"}, users.deactivated)
}
