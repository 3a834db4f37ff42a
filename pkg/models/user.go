package models

type User struct {
	ID             int    `db:"id" json:"id"`
	PersonalNumber int    `db:"personal_number" json:"personal_number"`
	Username       string `db:"username" json:"username"`
	Fullname       string `db:"fullname" json:"fullname"`
	Email          string `db:"email" json:"email"`
	PasswordHash   string `db:"password_hash" json:"-"`
	Role           string `db:"role" json:"role"`
	Deleted        bool   `db:"deleted" json:"-"`
}

type CreateUserRequest struct {
	PersonalNumber int    `json:"personal_number" binding:"required"`
	Username       string `json:"username" binding:"required"`
	Fullname       string `json:"fullname" binding:"required"`
	Email          string `json:"email"`
	Password       string `json:"password" binding:"required"`
	Role           string `json:"role" binding:"required"`
}
