// Package middleware は査読管理APIで使用するGinミドルウェアを提供する。
//
// パニックリカバリ、リクエストIDの付与、CORS設定、
// 任意で有効化するJWTトークン検証を含む。
package middleware
