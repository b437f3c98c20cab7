// Package model はドメインモデルを定義する。
package model

// User は上流データソースから取得したユーザーを表す。
// IDは上流が採番し、取得後は変更されない。
type User struct {
	ID   int    `json:"userId"`
	Name string `json:"name"`
}

// TopUser は投稿数ランキングの1エントリを表す。
type TopUser struct {
	UserID    int    `json:"userId"`
	Name      string `json:"name"`
	PostCount int    `json:"postCount"`
}
