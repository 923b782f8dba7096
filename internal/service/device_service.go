package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kingsleycodes247/poshlounge/internal/entity"
)

const sessionTTL = 24 * time.Hour

// SessionStore keeps issued tokens server-side so a logout invalidates
// them before expiry.
type SessionStore interface {
	StoreSession(ctx context.Context, username, token string, ttl time.Duration) error
	GetSession(ctx context.Context, username string) (string, error)
	DropSession(ctx context.Context, username string) error
}

// Claims is the JWT payload issued at login.
type Claims struct {
	UserID   int         `json:"user_id"`
	Username string      `json:"username"`
	Role     entity.Role `json:"role"`
	jwt.RegisteredClaims
}

// DeviceService binds users to physical terminals and runs the POS login.
// Binding is per-user and write-once; only an admin override can rebind.
type DeviceService struct {
	users    UserStore
	sessions SessionStore
	audit    Recorder
	secret   []byte
}

func NewDeviceService(users UserStore, sessions SessionStore, audit Recorder, secret []byte) *DeviceService {
	return &DeviceService{
		users:    users,
		sessions: sessions,
		audit:    audit,
		secret:   secret,
	}
}

// BindOrVerify enforces the device binding for a user. Admins are exempt.
// The first check for an unbound user binds it (audited); every later
// check must present exactly the stored id.
func (s *DeviceService) BindOrVerify(ctx context.Context, user entity.User, presentedDeviceID string) error {
	if user.Role == entity.RoleAdmin {
		return nil
	}
	if presentedDeviceID == "" {
		return fmt.Errorf("missing device id: %w", entity.ErrValidation)
	}

	if user.DeviceID == "" {
		if err := s.users.BindDevice(ctx, user.ID, presentedDeviceID); err != nil {
			// Lost a bind race: re-read and fall through to the comparison.
			if !errors.Is(err, entity.ErrStateConflict) {
				return err
			}
			fresh, ferr := s.users.GetByID(ctx, user.ID)
			if ferr != nil {
				return ferr
			}
			user = fresh
		} else {
			s.audit.Record(ctx, entity.ActorContext{UserID: user.ID, Username: user.Username, Role: user.Role, DeviceID: presentedDeviceID},
				entity.ActionUserAction,
				fmt.Sprintf("Device binding created for %s", user.Username),
				map[string]interface{}{"device_id": presentedDeviceID})
			return nil
		}
	}

	if user.DeviceID != presentedDeviceID {
		logger.Warn().
			Str("user", user.Username).
			Str("bound", user.DeviceID).
			Str("presented", presentedDeviceID).
			Msg("Device mismatch")
		return fmt.Errorf("device mismatch for %s: %w", user.Username, entity.ErrAccessDenied)
	}
	return nil
}

// Login authenticates a terminal user by PIN, enforces the device binding
// and issues a JWT kept server-side for the session TTL.
func (s *DeviceService) Login(ctx context.Context, username, pin, deviceID, ip string) (string, entity.User, error) {
	if username == "" || pin == "" {
		return "", entity.User{}, fmt.Errorf("username and pin are required: %w", entity.ErrValidation)
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return "", entity.User{}, err
	}
	if user.PinCode == "" || user.PinCode != pin {
		return "", entity.User{}, fmt.Errorf("invalid credentials: %w", entity.ErrAccessDenied)
	}

	if err := s.BindOrVerify(ctx, user, deviceID); err != nil {
		return "", entity.User{}, err
	}

	claims := &Claims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(sessionTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", entity.User{}, err
	}

	if err := s.sessions.StoreSession(ctx, user.Username, token, sessionTTL); err != nil {
		logger.Error().Err(err).Str("user", user.Username).Msg("Failed to store session")
	}

	s.audit.Record(ctx, entity.ActorContext{UserID: user.ID, Username: user.Username, Role: user.Role, DeviceID: deviceID, IP: ip},
		entity.ActionLogin,
		fmt.Sprintf("%s logged in", user.Username), nil)

	return token, user, nil
}

// Logout drops the server-side session.
func (s *DeviceService) Logout(ctx context.Context, actor entity.ActorContext) error {
	if err := s.sessions.DropSession(ctx, actor.Username); err != nil {
		logger.Error().Err(err).Str("user", actor.Username).Msg("Failed to drop session")
	}
	s.audit.Record(ctx, actor, entity.ActionLogout,
		fmt.Sprintf("%s logged out", actor.Username), nil)
	return nil
}

// ResetDevice clears a user's binding. This is the administrative rebind
// override; the next login binds the new terminal.
func (s *DeviceService) ResetDevice(ctx context.Context, actor entity.ActorContext, userID int) error {
	if err := requireRole(actor, entity.RoleAdmin); err != nil {
		return err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.users.ResetDevice(ctx, userID); err != nil {
		return err
	}

	s.audit.Record(ctx, actor, entity.ActionUserAction,
		fmt.Sprintf("Device binding reset for %s", user.Username),
		map[string]interface{}{"user_id": userID})
	return nil
}

// VerifyRequest re-checks the binding for an authenticated request. The
// web layer calls this on every request that carries a session.
func (s *DeviceService) VerifyRequest(ctx context.Context, actor entity.ActorContext) error {
	user, err := s.users.GetByID(ctx, actor.UserID)
	if err != nil {
		return err
	}
	return s.BindOrVerify(ctx, user, actor.DeviceID)
}
