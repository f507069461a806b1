// Package httpclient は外部HTTP APIとJSONでやり取りするクライアントを提供する。
//
// メール配信リレー（HTTP API型のメールプロバイダ）への送信に使用する。
// APIキーによるBearer認証とリクエスト単位のタイムアウトを扱う。
package httpclient
