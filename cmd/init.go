package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/kuziva-m/mvp-sub001/internal/application"
	"github.com/kuziva-m/mvp-sub001/internal/application/commands"
	"github.com/kuziva-m/mvp-sub001/internal/application/commands/payment"
	"github.com/kuziva-m/mvp-sub001/internal/application/delivery"
	appInterfaces "github.com/kuziva-m/mvp-sub001/internal/application/interfaces"
	"github.com/kuziva-m/mvp-sub001/internal/application/processors"
	"github.com/kuziva-m/mvp-sub001/internal/application/query"
	"github.com/kuziva-m/mvp-sub001/internal/infra/accounts"
	"github.com/kuziva-m/mvp-sub001/internal/infra/config"
	"github.com/kuziva-m/mvp-sub001/internal/infra/db/repo"
	"github.com/kuziva-m/mvp-sub001/internal/infra/dnsprovider"
	"github.com/kuziva-m/mvp-sub001/internal/infra/hosting"
	"github.com/kuziva-m/mvp-sub001/internal/infra/mail"
	"github.com/kuziva-m/mvp-sub001/internal/infra/registrar"
	"github.com/kuziva-m/mvp-sub001/internal/presentation/rest"
	"github.com/kuziva-m/mvp-sub001/internal/presentation/scheduler"
	"github.com/kuziva-m/mvp-sub001/pkg/db"
)

func Init() {
	_ = godotenv.Load()

	cfg, err := config.New()
	if err != nil {
		log.Panicf("failed to parse config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Panicf("invalid config: %v", err)
	}

	// DB
	dbConfig := db.NewConfig()
	pool, err := pgxpool.New(context.Background(), dbConfig.GetDSN())
	if err != nil {
		log.Panicf("failed to create pool: %v", err)
	}
	err = pool.Ping(context.Background())
	if err != nil {
		log.Panicf("failed to connect to db: %v", err)
	}
	uowFactory := db.NewUoWFactory(pool)
	store := repo.NewStore(uowFactory)

	// Configs
	mailConfig := mail.NewMailConfig()
	paymentConfig := payment.NewPaymentConfig()
	outboxConfig := scheduler.NewOutboxConfig()
	mailServer := mail.NewMailServer(mailConfig)

	dnsRegistrar, dnsProvider, publisher, provisioner := buildProviders(cfg)

	coordinator := delivery.NewCoordinator(cfg, store, dnsRegistrar, dnsProvider, publisher, provisioner)

	handlers := &application.Collection{
		StartDelivery:  commands.NewStartDelivery(store, coordinator),
		ResumeDelivery: commands.NewResumeDelivery(coordinator),
		CancelDelivery: commands.NewCancelDelivery(store),
		Payment:        payment.NewPayment(uowFactory, paymentConfig),
		GetDelivery:    query.NewGetDelivery(store),
		ListDeliveries: query.NewListDeliveries(store),
	}
	procs := &application.Processors{
		RunDelivery:    processors.NewRunDelivery(coordinator),
		NotifyDelivery: processors.NewNotifyDelivery(uowFactory, cfg.Delivery.OperatorEmail),
		SendMail:       commands.NewSendMail(mailServer, uowFactory),
	}

	handler := rest.NewServer(handlers)
	app := fiber.New(fiber.Config{
		IdleTimeout: 5 * time.Second,
	})
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
	}))
	handler.RegisterRoutes(app)

	outboxPoller := scheduler.NewOutboxPoller(procs, uowFactory, outboxConfig)
	go outboxPoller.Start()

	go func() {
		if err := app.Listen(cfg.HTTPAddr); err != nil {
			log.Panic(err)
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	<-c
	fmt.Println("Gracefully shutting down...")
	_ = app.Shutdown()
	outboxPoller.Stop()

	fmt.Println("Running cleanup tasks...")

	uowFactory.Pool.Close()
	fmt.Println("Fiber was successfully shutdown.")
}

func buildProviders(cfg *config.Config) (
	appInterfaces.Registrar, appInterfaces.DNSProvider, appInterfaces.HostingPublisher, appInterfaces.AccountProvisioner,
) {
	if cfg.Providers == config.ProvidersMock {
		return registrar.NewMockRegistrar(cfg.Delivery),
			dnsprovider.NewMockDNSProvider(),
			hosting.NewMockPublisher(),
			accounts.NewMockProvisioner()
	}

	awsCfg, err := awsConfig.LoadDefaultConfig(context.TODO())
	if err != nil {
		log.Panic("can't load aws config", err)
	}
	return registrar.NewRoute53Registrar(awsCfg, cfg.Delivery, cfg.Contact),
		dnsprovider.NewRoute53Provider(awsCfg),
		hosting.NewCloudFrontPublisher(awsCfg, cfg.Hosting),
		accounts.NewPanelProvisioner(cfg.Panel)
}
