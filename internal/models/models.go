package models

import (
	"time"
)

const (
	RoleUser   = "user"
	RoleAdmin  = "admin"
	RoleArtist = "artist"
)

const (
	ItemTypeTrack = "track"
	ItemTypeAlbum = "album"
)

const OrderStatusProcessing = "Processing"

type User struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"   json:"id"`
	Username    string    `gorm:"uniqueIndex;not null"       json:"username"`
	Email       string    `gorm:"uniqueIndex;not null"       json:"email"`
	Password    string    `gorm:"not null"                   json:"-"`
	Name        string    `gorm:"not null"                   json:"name"`
	DateOfBirth string    `gorm:"not null"                   json:"date_of_birth"`
	CreatedAt   time.Time `json:"created_at"`
	Role        string    `gorm:"not null;default:user"      json:"role"`
	Disabled    bool      `gorm:"not null;default:false"     json:"disabled"`

	FollowedArtists []Follower          `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Playlists       []Playlist          `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Orders          []Order             `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	PaymentMethods  []UserPaymentMethod `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

type Artist struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"   json:"id"`
	Username  string    `gorm:"uniqueIndex;not null"       json:"username"`
	Email     string    `gorm:"uniqueIndex;not null"       json:"email"`
	Password  string    `gorm:"not null"                   json:"-"`
	Name      string    `gorm:"uniqueIndex"                json:"name"`
	Genre     string    `gorm:"not null"                   json:"genre"`
	Role      string    `gorm:"not null;default:artist"    json:"role"`
	CreatedAt time.Time `json:"created_at"`
	Disabled  bool      `gorm:"not null;default:false"     json:"disabled"`

	Followers []Follower `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Tracks    []Track    `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Albums    []Album    `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

type Follower struct {
	UserID    uint      `gorm:"primaryKey"  json:"user_id"`
	ArtistID  uint      `gorm:"primaryKey"  json:"artist_id"`
	CreatedAt time.Time `json:"created_at"`
}

type Track struct {
	ID          uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	ArtistID    uint    `gorm:"index;not null"           json:"artist_id"`
	AlbumID     uint    `gorm:"index;not null"           json:"album_id"`
	Name        string  `gorm:"not null"                 json:"name"`
	ReleaseDate string  `gorm:"not null"                 json:"release_date"`
	Price       float64 `json:"price"`
	Path        string  `gorm:"not null"                 json:"path"`
}

type Album struct {
	ID          uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	ArtistID    uint    `gorm:"index;not null"           json:"artist_id"`
	Name        string  `gorm:"not null"                 json:"name"`
	ReleaseDate string  `gorm:"not null"                 json:"release_date"`
	Price       float64 `json:"price"`

	Tracks []Track `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

type Playlist struct {
	ID     uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID uint   `gorm:"index;not null"           json:"user_id"`
	Name   string `gorm:"not null"                 json:"name"`

	TrackEntries []PlaylistTrack `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

type PlaylistTrack struct {
	PlaylistID uint `gorm:"primaryKey"  json:"playlist_id"`
	TrackID    uint `gorm:"primaryKey"  json:"track_id"`
	Position   int  `gorm:"not null"    json:"position"`
}

type Order struct {
	ID              uint      `gorm:"primaryKey;autoIncrement"    json:"id"`
	UserID          uint      `gorm:"index;not null"              json:"user_id"`
	OrderDate       time.Time `gorm:"autoCreateTime"              json:"order_date"`
	Status          string    `gorm:"not null;default:Processing" json:"status"`
	Total           float64   `json:"total"`
	PaymentMethodID uint      `gorm:"not null"                    json:"payment_method_id"`

	Items []OrderItem `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// OrderItem references a catalog row polymorphically through (ItemID, Type);
// Type is one of ItemTypeTrack or ItemTypeAlbum and there is no FK on ItemID.
// Price and Subtotal are captured at mutation time, never re-read from the
// live catalog afterwards.
type OrderItem struct {
	ID       uint    `gorm:"primaryKey;autoIncrement"  json:"id"`
	OrderID  uint    `gorm:"index;not null"            json:"order_id"`
	ItemID   uint    `gorm:"not null"                  json:"item_id"`
	Type     string  `gorm:"not null"                  json:"type"`
	Price    float64 `json:"price"`
	Quantity int     `gorm:"not null;check:quantity>0" json:"quantity"`
	Subtotal float64 `json:"subtotal"`
}

type UserPaymentMethod struct {
	ID              uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID          uint   `gorm:"index;not null"           json:"user_id"`
	Type            string `gorm:"not null"                 json:"type"`
	Provider        string `gorm:"not null"                 json:"provider"`
	AccountNumber   string `gorm:"not null"                 json:"account_number"`
	ExpiryDate      string `gorm:"not null"                 json:"expiry_date"`
	CVV             string `gorm:"not null"                 json:"-"`
	ShippingAddress string `gorm:"not null"                 json:"shipping_address"`
	BillingAddress  string `gorm:"not null"                 json:"billing_address"`
	PhoneNumber     string `gorm:"not null"                 json:"phone_number"`
	IsDefault       bool   `json:"is_default"`
}
