package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// tokenIssuer は会議管理システムが発行するトークンのiss値。
const tokenIssuer = "cms-gateway"

// JWTClaims は会議管理システムのゲートウェイが発行するトークンのクレーム。
type JWTClaims struct {
	jwt.RegisteredClaims
	// MemberID は操作を行うメンバー（プログラム委員長など）のID。
	MemberID string `json:"member_id"`
	// Email はメンバーのメールアドレス。
	Email string `json:"email"`
}

// GenerateJWT はメンバー情報から有効期限ttlのJWTトークンを生成する。
func GenerateJWT(secret, memberID, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
		MemberID: memberID,
		Email:    email,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("JWTトークンの署名に失敗: %w", err)
	}
	return signed, nil
}

// JWTAuth はBearerトークンを検証するGinミドルウェアを返す。
// HS256以外の署名と発行者の異なるトークンは拒否する。
// 検証に成功した場合、コンテキストに "member_id" を設定する。
func JWTAuth(secret string) gin.HandlerFunc {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
	)

	return func(c *gin.Context) {
		tokenString, found := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !found || tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Bearerトークンが必要です",
			})
			return
		}

		claims := &JWTClaims{}
		token, err := parser.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "トークンが無効です",
			})
			return
		}

		c.Set("member_id", claims.MemberID)
		c.Next()
	}
}

// GetMemberID はGinコンテキストから操作者のメンバーIDを取得する。
// JWTAuthが適用されていない場合は空文字列を返す。
func GetMemberID(c *gin.Context) string {
	return c.GetString("member_id")
}
