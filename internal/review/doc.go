// Package review は査読者の割り当て（アロットメント）と査読依頼通知の中核を提供する。
//
// Allotterは (査読者, 論文) の組を並行に処理し、ストアのadd-if-absent更新の結果だけを
// 根拠に「割り当て成功」と「重複」を判定する。Notifierはトラック → 論文 → 査読者を
// 読み出して1組につき1通の依頼メッセージを生成し、全件を並行送信した上で
// 送信結果を1件ずつ報告する。どちらも1件の失敗が他の処理を中断することはない。
//
// 永続化とメール配送はそれぞれStore系インターフェースとTransportで抽象化されており、
// 実装は internal/store と internal/mailer にある。
package review
