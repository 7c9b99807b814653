package service

import (
	"context"

	"github.com/wfunc/founder-game/internal/errors"
	"github.com/wfunc/founder-game/internal/game"
	"github.com/wfunc/founder-game/internal/identity"
	"github.com/wfunc/founder-game/internal/utils"
)

// LoginResult 登录/身份切换的返回结果
// 身份每次变化都签发新令牌，旧令牌对应的身份不再有效
type LoginResult struct {
	SessionID  string            `json:"session_id"`
	Identity   identity.Identity `json:"identity"`
	Token      string            `json:"token"`
	ExpiresIn  int64             `json:"expires_in"`
	GuestToken string            `json:"guest_token,omitempty"` // 客户端应保存，下次登录带回
	State      game.StateView    `json:"state"`
}

// AuthService 认证服务接口
type AuthService interface {
	GuestLogin(ctx context.Context, priorGuestToken string) (*LoginResult, error)
	ConnectWallet(ctx context.Context, sessionID, address string) (*LoginResult, error)
	DisconnectWallet(ctx context.Context, sessionID string) (*LoginResult, error)
	ValidateToken(ctx context.Context, token string) (*utils.JWTClaims, error)
	Logout(ctx context.Context, sessionID string)
}

// authService 认证服务实现
type authService struct {
	manager *game.Manager
	jwt     *utils.JWTManager
}

// NewAuthService 创建认证服务
func NewAuthService(manager *game.Manager, jwtManager *utils.JWTManager) AuthService {
	return &authService{
		manager: manager,
		jwt:     jwtManager,
	}
}

// GuestLogin 访客登录
// 客户端带回上次的访客令牌则复用，否则由解析器生成或读取本机令牌
func (s *authService) GuestLogin(ctx context.Context, priorGuestToken string) (*LoginResult, error) {
	session, err := s.manager.CreateSession(ctx, priorGuestToken)
	if err != nil {
		return nil, err
	}
	return s.result(session)
}

// ConnectWallet 连接钱包
// 身份切换由会话完成：旧身份计时器停止，状态整体替换为钱包存档
func (s *authService) ConnectWallet(ctx context.Context, sessionID, address string) (*LoginResult, error) {
	session, err := s.manager.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if _, err := session.ConnectWallet(address); err != nil {
		return nil, err
	}
	return s.result(session)
}

// DisconnectWallet 断开钱包，回落到访客身份
func (s *authService) DisconnectWallet(ctx context.Context, sessionID string) (*LoginResult, error) {
	session, err := s.manager.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if _, err := session.DisconnectWallet(ctx); err != nil {
		return nil, err
	}
	return s.result(session)
}

// ValidateToken 验证令牌并确认会话仍然存在
func (s *authService) ValidateToken(ctx context.Context, token string) (*utils.JWTClaims, error) {
	claims, err := s.jwt.ValidateToken(token)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTokenInvalid, "令牌验证失败")
	}
	if _, err := s.manager.Get(claims.SessionID); err != nil {
		return nil, err
	}
	return claims, nil
}

// Logout 关闭会话
func (s *authService) Logout(ctx context.Context, sessionID string) {
	s.manager.Close(ctx, sessionID)
}

// result 按会话当前身份签发令牌
func (s *authService) result(session *game.PlayerSession) (*LoginResult, error) {
	ident := session.Identity()

	token, err := s.jwt.GenerateToken(session.ID(), ident.Token, string(ident.Kind))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrAuthentication, "令牌签发失败")
	}

	result := &LoginResult{
		SessionID: session.ID(),
		Identity:  ident,
		Token:     token,
		ExpiresIn: int64(s.jwt.GetTokenExpiry().Seconds()),
		State:     session.View(),
	}
	if ident.Kind == identity.KindGuest {
		result.GuestToken = ident.Token
	}
	return result, nil
}
