package rest

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/bwise1/geoplaylists/internal/model"
	"github.com/bwise1/geoplaylists/util"
	"github.com/bwise1/geoplaylists/util/values"
	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const tokenTypeAccess = "access"

type TokenClaims struct {
	UserID uuid.UUID `json:"sub"`
	Type   string    `json:"typ"`
	Exp    int64     `json:"exp"`
}

func (api *API) createToken(id uuid.UUID) (string, time.Time, error) {
	expTime, err := time.ParseDuration(api.Config.JwtExpires)
	if err != nil {
		return "", time.Time{}, err
	}
	now := time.Now()
	expiresAt := now.Add(expTime)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": id.String(),
		"exp": expiresAt.Unix(),
		"iat": now.Unix(),
		"typ": tokenTypeAccess,
	})

	tokenString, err := token.SignedString([]byte(api.Config.JwtSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

func (api *API) loginResponse(user model.User) (model.LoginResponse, error) {
	token, _, err := api.createToken(user.ID)
	if err != nil {
		return model.LoginResponse{}, err
	}
	return model.LoginResponse{
		User: &model.LoginUserResponse{
			ID:          user.ID,
			Email:       user.Email,
			DisplayName: user.DisplayName,
		},
		Token: token,
	}, nil
}

func (api *API) CreateNewUser(ctx context.Context, req model.RegisterRequest) (model.LoginResponse, string, string, error) {
	req.Email = util.NormalizeEmail(req.Email)

	if err := util.ValidateStruct(req); err != nil {
		return model.LoginResponse{}, values.BadRequestBody, util.ValidationMessage(err), err
	}

	exists, err := api.EmailExists(ctx, req.Email)
	if err != nil {
		return model.LoginResponse{}, values.Error, "Error checking email", err
	}
	if exists {
		return model.LoginResponse{}, values.Conflict, "Email already exists", errors.New("email already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), api.Config.BcryptCost)
	if err != nil {
		return model.LoginResponse{}, values.Error, "Error hashing password", err
	}

	user := model.User{
		ID:           uuid.New(),
		Email:        req.Email,
		DisplayName:  req.DisplayName,
		PasswordHash: string(hash),
	}

	if err := api.CreateNewUserRepo(ctx, user); err != nil {
		return model.LoginResponse{}, values.Error, "Error creating new user", err
	}

	resp, err := api.loginResponse(user)
	if err != nil {
		return model.LoginResponse{}, values.Error, "Error creating token", err
	}

	log.Printf("[Auth]: registered user %s", user.ID)
	return resp, values.Created, "User created successfully", nil
}

func (api *API) LoginUser(ctx context.Context, req model.LoginRequest) (model.LoginResponse, string, string, error) {
	req.Email = util.NormalizeEmail(req.Email)

	if err := util.ValidateStruct(req); err != nil {
		return model.LoginResponse{}, values.BadRequestBody, util.ValidationMessage(err), err
	}

	user, err := api.GetUserByEmail(ctx, req.Email)
	if errors.Is(err, ErrUserNotFound) {
		return model.LoginResponse{}, values.NotAuthorised, "Invalid email or password", err
	}
	if err != nil {
		return model.LoginResponse{}, values.Error, "Error fetching user", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return model.LoginResponse{}, values.NotAuthorised, "Invalid email or password", err
	}

	resp, err := api.loginResponse(user)
	if err != nil {
		return model.LoginResponse{}, values.Error, "Error creating token", err
	}
	return resp, values.Success, "Login successful", nil
}
