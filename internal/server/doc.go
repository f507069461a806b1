// Package server は査読割り当てと査読依頼送信のHTTP APIを提供する。
//
// エンドポイントは会議管理フロントエンドが使う既存のパス（/allotments など）と、
// 同じハンドラを /api/v1 配下にも公開する。
//
// エンドポイント:
//   - POST /allotments              : 査読者を論文に一括で割り当てる
//   - POST /sendMails/:trackId      : トラックの全査読者に査読依頼を送る
//   - GET  /getpdf/:authorworkId    : 論文PDFの保存先を返す
//   - GET  /authorworks/:id         : 論文と割り当て済み査読者を返す
//   - GET  /authorworks/:id/events  : 論文の監査イベントを返す
//   - GET  /health                  : ヘルスチェック
package server
