package main

import (
	"log"
	"net/http"

	"canteen-be/internal/basket"
	"canteen-be/internal/canteen"
	"canteen-be/internal/config"
	"canteen-be/internal/db"
	"canteen-be/internal/httpapi"
	"canteen-be/internal/logger"
	"canteen-be/internal/menu"
	"canteen-be/internal/middleware"
	"canteen-be/internal/notify"
	"canteen-be/internal/order"
	"canteen-be/internal/user"
	"canteen-be/internal/wallet"
)

func main() {
	cfg := config.LoadConfig()

	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	database := db.InitDB(cfg)
	defer database.Close()

	canteenRepo := canteen.NewRepository(database)
	menuRepo := menu.NewRepository(database)
	walletRepo := wallet.NewRepository(database)

	userRepo := user.NewRepository(database)
	userSvc := user.NewService(userRepo, canteenRepo)

	basketRepo := basket.NewRepository(database)
	basketSvc := basket.NewService(basketRepo, menuRepo)

	walletSvc := wallet.NewService(walletRepo)

	hub := notify.NewHub()

	orderRepo := order.NewRepository(database, canteenRepo, walletRepo)
	orderSvc := order.NewService(orderRepo, canteenRepo, hub)

	handler := httpapi.NewHandler(userSvc, basketSvc, orderSvc, walletSvc, menuRepo, canteenRepo)

	var root http.Handler = handler.Routes()
	root = middleware.RateLimitMiddleware(root)
	root = middleware.AuthMiddleware(root)
	root = logger.LoggingMiddleware(root)
	root = logger.RequestIDMiddleware(root)

	log.Printf("🍛 canteen server running at http://localhost:%s/", cfg.AppPort)
	log.Fatal(http.ListenAndServe(":"+cfg.AppPort, root))
}
