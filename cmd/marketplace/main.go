package main

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/plugin/dbresolver"

	"marketplace_api/constants"
	"marketplace_api/custom/ad"
	"marketplace_api/custom/business"
	"marketplace_api/custom/notification"
	"marketplace_api/custom/order"
	"marketplace_api/custom/product"
	"marketplace_api/custom/promotional"
	"marketplace_api/custom/upload"
	"marketplace_api/custom/user"
	"marketplace_api/custom/util"
	"marketplace_api/model"
)

func buildDsn(cfg util.DbConfig) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.Database)
}

func main() {
	util.LoadDotEnv()
	serverConfig := util.ServerConfig{}
	serverConfig.GetConf("./config/config.yaml")

	db, err := gorm.Open(postgres.Open(buildDsn(serverConfig.Postgres)), &gorm.Config{})
	if err != nil {
		panic("failed to connect database" + err.Error())
	}
	if serverConfig.Postgres_replica != nil {
		err = db.Use(dbresolver.Register(dbresolver.Config{
			Replicas: []gorm.Dialector{postgres.Open(buildDsn(*serverConfig.Postgres_replica))},
		}))
		if err != nil {
			panic("failed to register read replica" + err.Error())
		}
	}
	sqlDB, _ := db.DB()
	if sqlDB != nil {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	// Auto migrate table schemas
	err = db.AutoMigrate(model.ALL_MARKETPLACE_TABLES...)
	if err != nil {
		panic("failed to migrate database" + err.Error())
	}

	// Initialize handler contexts
	businessCtx := business.HandlerContext{}
	businessCtx.InitialHandlerContext(db)
	productCtx := product.HandlerContext{}
	productCtx.InitialHandlerContext(db, nil, util.GetEnv("UNSPLASH_ACCESS_KEY", ""))
	adCtx := ad.HandlerContext{}
	adCtx.InitialHandlerContext(db)
	userCtx := user.HandlerContext{}
	userCtx.InitialHandlerContext(db)
	promotionalCtx := promotional.HandlerContext{}
	promotionalCtx.InitialHandlerContext(db)

	emailSender := &notification.EmailSender{
		ApiKey:    util.GetEnv("SENDGRID_API_KEY", ""),
		FromEmail: util.GetEnv("SENDGRID_FROM_EMAIL", "orders@marketplace.app"),
		FromName:  util.GetEnv("SENDGRID_FROM_NAME", "Marketplace"),
	}
	notificationCtx := notification.HandlerContext{}
	notificationCtx.InitialHandlerContext(db, emailSender)

	orderCtx := order.HandlerContext{}
	orderCtx.InitialHandlerContext(db, func(o *model.Order) error {
		_, errSend := emailSender.SendOrderConfirmation(o)
		return errSend
	})

	uploadCtx := upload.HandlerContext{}
	uploadCtx.InitialHandlerContext()
	uploadCtx.UploadUrl = util.GetEnv("UPLOAD_SERVICE_URL", constants.APPGEN_UPLOAD_URL)

	// Start REST APIs

	http.HandleFunc("/api/businesses", businessCtx.HandleBusinesses)
	http.HandleFunc("/api/businesses/detail", businessCtx.HandleBusinessDetail)
	http.HandleFunc("/api/businesses/promotional", businessCtx.HandlePromotional)
	http.HandleFunc("/api/businesses/products", productCtx.HandleStorefrontProducts)
	http.HandleFunc("/api/products", productCtx.HandleProducts)
	http.HandleFunc("/api/ads", adCtx.HandleAds)
	http.HandleFunc("/api/ads/detail", adCtx.HandleAdDetail)
	http.HandleFunc("/api/offers", adCtx.HandleOffers)
	http.HandleFunc("/api/orders", orderCtx.HandleOrders)
	http.HandleFunc("/api/users", userCtx.HandleUsers)
	http.HandleFunc("/api/promotional/validate", promotionalCtx.HandleValidate)
	http.HandleFunc("/api/promotional/mark-used", promotionalCtx.HandleMarkUsed)
	http.HandleFunc("/api/notifications/email", notificationCtx.HandleEmail)
	http.HandleFunc("/api/notifications/send-push", notificationCtx.HandleSendPush)
	http.HandleFunc("/api/upload", uploadCtx.HandleUpload)

	log.Fatal(http.ListenAndServe(fmt.Sprintf("0.0.0.0:%d", serverConfig.Server_port), nil))
}
