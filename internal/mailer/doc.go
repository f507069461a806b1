// Package mailer は査読依頼メッセージの送信経路（トランスポート）を提供する。
//
// SMTP、HTTPメールリレー、ログ出力の3種類があり、設定で1つを選択する。
// どの実装も1通ずつ送信して成否を返すだけで、再送は行わない。
package mailer
