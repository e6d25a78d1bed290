package spotify

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

const (
	stateTTL     = 10 * time.Minute
	stateTokenTy = "spotify_state"
)

var Scopes = []string{
	"user-read-playback-state",
	"user-modify-playback-state",
	"playlist-read-private",
	"playlist-modify-public",
	"playlist-modify-private",
}

var Endpoint = oauth2.Endpoint{
	AuthURL:  "https://accounts.spotify.com/authorize",
	TokenURL: "https://accounts.spotify.com/api/token",
}

var (
	// ErrNoToken is returned by a TokenStore when the user has no stored token.
	ErrNoToken      = errors.New("spotify: no stored token")
	ErrInvalidState = errors.New("spotify: invalid oauth state")
)

type TokenStore interface {
	GetSpotifyToken(ctx context.Context, userID uuid.UUID) (*oauth2.Token, error)
	SaveSpotifyToken(ctx context.Context, userID uuid.UUID, token *oauth2.Token) error
	DeleteSpotifyToken(ctx context.Context, userID uuid.UUID) error
}

type AuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	StateSecret  string
	// Endpoint defaults to the Spotify accounts service.
	Endpoint oauth2.Endpoint
}

// Auth runs the authorization code flow and keeps stored tokens fresh.
type Auth struct {
	oauth       *oauth2.Config
	store       TokenStore
	stateSecret []byte
}

func NewAuth(cfg AuthConfig, store TokenStore) *Auth {
	endpoint := cfg.Endpoint
	if endpoint.TokenURL == "" {
		endpoint = Endpoint
	}
	return &Auth{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       Scopes,
			Endpoint:     endpoint,
		},
		store:       store,
		stateSecret: []byte(cfg.StateSecret),
	}
}

// AuthURL returns the consent page URL. The state parameter is a short lived
// signed token naming the user, checked again on callback.
func (a *Auth) AuthURL(userID uuid.UUID) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID.String(),
		"exp": now.Add(stateTTL).Unix(),
		"iat": now.Unix(),
		"typ": stateTokenTy,
	})
	state, err := token.SignedString(a.stateSecret)
	if err != nil {
		return "", errors.Wrap(err, "sign oauth state")
	}
	return a.oauth.AuthCodeURL(state), nil
}

// ParseState returns the user the state was issued for.
func (a *Auth) ParseState(state string) (uuid.UUID, error) {
	token, err := jwt.Parse(state, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return a.stateSecret, nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, ErrInvalidState
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, ErrInvalidState
	}
	if typ, _ := claims["typ"].(string); typ != stateTokenTy {
		return uuid.Nil, ErrInvalidState
	}
	sub, _ := claims["sub"].(string)
	userID, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, ErrInvalidState
	}
	return userID, nil
}

// Connect exchanges an authorization code and stores the resulting token for the
// user named by state.
func (a *Auth) Connect(ctx context.Context, state, code string) (uuid.UUID, error) {
	userID, err := a.ParseState(state)
	if err != nil {
		return uuid.Nil, err
	}

	token, err := a.oauth.Exchange(ctx, code)
	if err != nil {
		return uuid.Nil, errors.Wrap(err, "exchange authorization code")
	}

	if err := a.store.SaveSpotifyToken(ctx, userID, token); err != nil {
		return uuid.Nil, errors.Wrap(err, "save token")
	}
	return userID, nil
}

func (a *Auth) Disconnect(ctx context.Context, userID uuid.UUID) error {
	return a.store.DeleteSpotifyToken(ctx, userID)
}

// ValidCredential returns an access token that is valid now, refreshing and
// persisting it when it expired. A nil token with a nil error means the user is
// not connected, including when the refresh token was revoked.
func (a *Auth) ValidCredential(ctx context.Context, userID uuid.UUID) (*oauth2.Token, error) {
	stored, err := a.store.GetSpotifyToken(ctx, userID)
	if errors.Is(err, ErrNoToken) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "load token")
	}

	fresh, err := a.oauth.TokenSource(ctx, stored).Token()
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.ErrorCode == "invalid_grant" {
			log.Printf("[Spotify]: refresh token revoked for user %s", userID)
			if delErr := a.store.DeleteSpotifyToken(ctx, userID); delErr != nil {
				log.Printf("[Spotify]: deleting revoked token for user %s: %v", userID, delErr)
			}
			return nil, nil
		}
		return nil, errors.Wrap(err, "refresh token")
	}

	if fresh.AccessToken != stored.AccessToken {
		if fresh.RefreshToken == "" {
			fresh.RefreshToken = stored.RefreshToken
		}
		if err := a.store.SaveSpotifyToken(ctx, userID, fresh); err != nil {
			return nil, errors.Wrap(err, "save refreshed token")
		}
	}
	return fresh, nil
}
