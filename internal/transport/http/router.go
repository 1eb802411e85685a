package httpserver

import (
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Tombunzel/HarmonApp/internal/authz"
	"github.com/Tombunzel/HarmonApp/internal/handlers"
)

type Deps struct {
	DB            *gorm.DB
	Guard         *authz.Guard
	Users         *handlers.UserHandler
	Artists       *handlers.ArtistHandler
	Tracks        *handlers.TrackHandler
	Albums        *handlers.AlbumHandler
	Orders        *handlers.OrderHandler
	OrderItems    *handlers.OrderItemHandler
	PaymentMethod *handlers.PaymentMethodHandler
	Playlists     *handlers.PlaylistHandler
	Followers     *handlers.FollowerHandler
	Search        *handlers.SearchHandler
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	v1 := e.Group("/api/v1")

	// public
	v1.POST("/users/register", d.Users.Register)
	v1.POST("/users/login", d.Users.Login)
	v1.POST("/artists/register", d.Artists.Register)
	v1.POST("/artists/login", d.Artists.Login)
	v1.GET("/tracks", d.Tracks.List)
	v1.GET("/albums", d.Albums.List)
	v1.GET("/albums/:id/tracks", d.Albums.Tracks)
	v1.GET("/search", d.Search.Search)

	// authenticated user
	users := v1.Group("/users", d.Guard.RequireActiveUser)
	users.GET("/me", d.Users.Me)
	users.PATCH("/:id", d.Users.Update)
	users.DELETE("/:id", d.Users.Delete)

	// authenticated artist
	artists := v1.Group("/artists", d.Guard.RequireActiveArtist)
	artists.GET("/me", d.Artists.Me)
	artists.PATCH("/:id", d.Artists.Update)
	artists.DELETE("/:id", d.Artists.Delete)

	tracks := v1.Group("/tracks", d.Guard.RequireActiveArtist)
	tracks.POST("", d.Tracks.Create)
	tracks.PATCH("/:id", d.Tracks.Update)
	tracks.DELETE("/:id", d.Tracks.Delete)

	albums := v1.Group("/albums", d.Guard.RequireActiveArtist)
	albums.POST("", d.Albums.Create)
	albums.PATCH("/:id", d.Albums.Update)
	albums.DELETE("/:id", d.Albums.Delete)

	// orders and their items
	orders := v1.Group("/orders", d.Guard.RequireActiveUser)
	orders.POST("", d.Orders.Create)
	orders.GET("/me", d.Orders.Mine)
	orders.PATCH("/:id", d.Orders.Update)
	orders.DELETE("/:id", d.Orders.Delete)

	items := v1.Group("/order_items", d.Guard.RequireActiveUser)
	items.POST("", d.OrderItems.Create)
	items.GET("", d.OrderItems.List)
	items.PATCH("/:id", d.OrderItems.Update)
	items.DELETE("/:id", d.OrderItems.Delete)

	payments := v1.Group("/payment_methods", d.Guard.RequireActiveUser)
	payments.POST("", d.PaymentMethod.Create)
	payments.GET("/me", d.PaymentMethod.Mine)
	payments.PATCH("/:id", d.PaymentMethod.Update)
	payments.DELETE("/:id", d.PaymentMethod.Delete)

	playlists := v1.Group("/playlists", d.Guard.RequireActiveUser)
	playlists.POST("", d.Playlists.Create)
	playlists.GET("/me", d.Playlists.Mine)
	playlists.GET("/:id/tracks", d.Playlists.Tracks)
	playlists.PATCH("/:id", d.Playlists.Rename)
	playlists.DELETE("/:id", d.Playlists.Delete)
	playlists.POST("/:id/tracks", d.Playlists.AddTrack)
	playlists.DELETE("/:id/tracks/:track_id", d.Playlists.RemoveTrack)

	following := v1.Group("/following", d.Guard.RequireActiveUser)
	following.GET("", d.Followers.Following)
	following.POST("/:artist_id", d.Followers.Follow)
	following.DELETE("/:artist_id", d.Followers.Unfollow)

	// admin
	admin := v1.Group("/admin", d.Guard.RequireAdmin)
	admin.POST("/users", d.Users.CreateAdmin)
	admin.GET("/users", d.Users.List)
	admin.GET("/artists", d.Artists.List)
	admin.GET("/orders", d.Orders.List)
}
