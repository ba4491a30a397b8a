// Package cache はTTL付きのキーバリューストアを提供する。
// リフレッシュトークンとハンドオフコードの保管に使用する。
package cache

import "time"

// Store はTTL付きキーバリューストアのインターフェース。
type Store interface {
	// Set はキーに値をTTL付きで格納する。既存の値は上書きされる。
	Set(key, value string, ttl time.Duration)
	// Get はキーの値を返す。未登録または期限切れの場合はfalseを返す。
	Get(key string) (string, bool)
	// Take は値の取得と削除をアトミックに行う。
	// 一度しか使えないハンドオフコードの引き換えに使用する。
	Take(key string) (string, bool)
	// Delete はキーを削除する。未登録のキーは無視される。
	Delete(key string)
}
