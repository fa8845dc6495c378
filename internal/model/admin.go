package model

// Admin is a staff account scoped to exactly one location.
type Admin struct {
	ID         string `json:"id"`
	Account    string `json:"account"`
	Password   string `json:"password,omitempty"`
	LocationID int64  `json:"location_id"`
}

// Credentials is the body of POST /v1/admin/login.
type Credentials struct {
	ID       string `json:"id" binding:"required"`
	Password string `json:"password" binding:"required"`
}
