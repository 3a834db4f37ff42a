package models

type Department struct {
	ID      int    `db:"id" json:"id"`
	Name    string `db:"name" json:"name" binding:"required"`
	Deleted bool   `db:"deleted" json:"-"`
}
