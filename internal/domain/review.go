package domain

import "time"

// Review is a user's rating and comment on a purchased product. Deleted
// reviews stay as rows so the same user cannot repost for the item.
type Review struct {
	ID        int64
	UserID    string
	Nickname  string // author nickname, joined from users on reads
	ItemCode  string
	Rating    int
	Title     string
	Comment   string
	Deleted   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
