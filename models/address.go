package models

import (
	"time"
)

// Address represents a user's shipping address
type Address struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Name      string    `json:"name"`
	Street    string    `json:"street"`
	City      string    `json:"city"`
	State     string    `json:"state"`
	Zipcode   string    `json:"zipcode"`
	Country   string    `json:"country"`
	Phone     string    `json:"phone"`
	IsDefault bool      `json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
}

// AddressInput is used for creating/updating shipping addresses
type AddressInput struct {
	Name      string `json:"name" binding:"required"`
	Street    string `json:"street" binding:"required"`
	City      string `json:"city" binding:"required"`
	State     string `json:"state" binding:"required"`
	Zipcode   string `json:"zipcode" binding:"required"`
	Country   string `json:"country" binding:"required"`
	Phone     string `json:"phone" binding:"required"`
	IsDefault bool   `json:"is_default"`
}
