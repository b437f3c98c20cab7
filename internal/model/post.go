package model

// Post は投稿を表す。
// UserIDは取得時に使用したユーザーIDで上書きされ、ペイロード内の値より優先される。
type Post struct {
	ID      int    `json:"id"`
	UserID  int    `json:"userId"`
	Content string `json:"content"`
}

// Comment は投稿に対するコメントを表す。
type Comment struct {
	ID      int    `json:"id"`
	PostID  int    `json:"postId"`
	Content string `json:"content"`
}

// TrendingPost はコメント数最大の投稿をコメント数付きで表す。
type TrendingPost struct {
	Post
	CommentCount int `json:"commentCount"`
}
