package main

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"

	"github.com/freelancehub/freelancehub_backend/internal/config"
	"github.com/freelancehub/freelancehub_backend/internal/db"
	"github.com/freelancehub/freelancehub_backend/internal/engagement"
	"github.com/freelancehub/freelancehub_backend/internal/handlers"
	"github.com/freelancehub/freelancehub_backend/internal/middleware"
	"github.com/freelancehub/freelancehub_backend/internal/models"
	"github.com/freelancehub/freelancehub_backend/internal/notify"
	"github.com/freelancehub/freelancehub_backend/internal/realtime"
	"github.com/freelancehub/freelancehub_backend/internal/services/imagestore"
	"github.com/freelancehub/freelancehub_backend/internal/services/payout"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	gdb, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}

	if err := gdb.AutoMigrate(
		&models.User{},
		&models.Job{},
		&models.Proposal{},
		&models.Hire{},
		&models.WorkAssignment{},
		&models.WorkSubmission{},
		&models.Notification{},
		&models.RoleRequest{},
		&models.PayoutTransaction{},
	); err != nil {
		log.Fatal(err)
	}

	rdb := realtime.NewRedis(cfg.RedisAddr, cfg.RedisPassword)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Printf("redis unavailable, unread counters fall back to the database: %v", err)
	}

	hub := realtime.NewHub()
	go hub.Run()

	dispatcher := notify.NewDispatcher(gdb, rdb, hub)
	go dispatcher.RelayFeed(context.Background())

	payouts := payout.NewClient(cfg.PayoutAPIKey, cfg.PayoutSecret, cfg.PayoutBaseURL)
	images := imagestore.NewClient(cfg.ImageStoreKey, cfg.ImageStoreURL)

	coordinator := engagement.New(gdb, dispatcher, payouts)

	authH := &handlers.AuthHandler{
		DB:        gdb,
		JWTSecret: cfg.JWTSecret,
		Expires:   cfg.JWTExpiresMin,
	}
	googleH := &handlers.GoogleOAuthHandler{
		DB:              gdb,
		JWTSecret:       cfg.JWTSecret,
		Expires:         cfg.JWTExpiresMin,
		GoogleClientID:  cfg.GoogleClientID,
		GoogleSecret:    cfg.GoogleSecret,
		GoogleRedirect:  cfg.GoogleRedirect,
		FrontendBaseURL: cfg.FrontendBaseURL,
	}
	userH := handlers.NewUserHandler(gdb)
	jobH := handlers.NewJobHandler(gdb)
	proposalH := handlers.NewProposalHandler(gdb, coordinator)
	hireH := handlers.NewHireHandler(gdb, coordinator)
	workH := handlers.NewWorkHandler(gdb, coordinator)
	notifH := handlers.NewNotificationHandler(gdb, dispatcher, hub)
	roleReqH := handlers.NewRoleRequestHandler(gdb, coordinator)
	uploadH := handlers.NewUploadHandler(images)

	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendBaseURL,
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		ExposeHeaders:    "Content-Length",
		AllowCredentials: true,
	}))

	api := app.Group("/api")

	// public
	api.Post("/auth/register", authH.Register)
	api.Post("/auth/login", authH.Login)
	api.Post("/auth/logout", authH.Logout)
	api.Post("/auth/reset-password", authH.ResetPassword)
	api.Get("/auth/google/start", googleH.GoogleStart)
	api.Get("/auth/google/callback", googleH.GoogleCallback)
	api.Get("/jobs", jobH.List)
	api.Get("/jobs/categories", jobH.Categories)
	api.Get("/jobs/:id", jobH.Get)

	// protected (session cookie)
	protected := api.Group("/",
		middleware.JWTFromCookie(cfg.JWTSecret),
		middleware.AttachJWTLocals(),
	)

	protected.Get("/me", func(c *fiber.Ctx) error {
		uid := c.Locals("userId")

		var user models.User
		if err := gdb.First(&user, "id = ?", uid).Error; err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "user not found",
			})
		}
		return c.JSON(fiber.Map{
			"success": true,
			"data": fiber.Map{
				"id":              user.ID,
				"name":            user.Name,
				"email":           user.Email,
				"role":            user.Role,
				"photoUrl":        user.PhotoURL,
				"isVerified":      user.IsVerified,
				"roleRequestSent": user.RoleRequestSent,
			},
		})
	})

	// users
	protected.Get("/users", middleware.RequireRoles(models.RoleAdmin), userH.List)
	protected.Get("/users/email/:email", userH.GetByEmail)
	protected.Patch("/users/:id", userH.Update)
	protected.Delete("/users/:id", middleware.RequireRoles(models.RoleAdmin), userH.Delete)

	// jobs
	protected.Post("/jobs", middleware.RequireRoles(models.RoleClient), jobH.Create)
	protected.Get("/jobs/client/:email", middleware.RequireRoles(models.RoleClient, models.RoleAdmin), jobH.ListByClient)
	protected.Patch("/admin/jobs/:id", middleware.RequireRoles(models.RoleAdmin), jobH.AdminUpdate)
	protected.Delete("/admin/jobs/:id", middleware.RequireRoles(models.RoleAdmin), jobH.AdminDelete)

	// proposals
	protected.Post("/proposals", middleware.RequireRoles(models.RoleFreelancer), proposalH.Submit)
	protected.Get("/proposals", middleware.RequireRoles(models.RoleAdmin), proposalH.List)
	protected.Get("/proposals/client/:email", middleware.RequireRoles(models.RoleClient, models.RoleAdmin), proposalH.ListByClient)
	protected.Get("/proposals/:email", middleware.RequireRoles(models.RoleFreelancer, models.RoleAdmin), proposalH.ListByFreelancer)
	protected.Patch("/proposals/status/:id", middleware.RequireRoles(models.RoleClient), proposalH.Decide)

	// hires
	protected.Get("/hires/:email", hireH.ListByEmail)
	protected.Get("/hire-details/:id", hireH.Get)
	protected.Patch("/freelancer-hires/add-rating", middleware.RequireRoles(models.RoleClient), hireH.AddRating)
	protected.Patch("/freelancer-hires/make-payment", middleware.RequireRoles(models.RoleClient), hireH.MakePayment)

	// work briefs and submissions
	protected.Post("/add-work", middleware.RequireRoles(models.RoleClient), workH.Assign)
	protected.Get("/works/:email", middleware.RequireRoles(models.RoleFreelancer, models.RoleAdmin), workH.ListFreelancerWorks)
	protected.Post("/work-submissions", middleware.RequireRoles(models.RoleFreelancer), workH.Submit)
	protected.Get("/work-submissions/hire/:hireId", workH.ListSubmissionsByHire)
	protected.Get("/work-submissions/client/:email", middleware.RequireRoles(models.RoleClient, models.RoleAdmin), workH.ListSubmissionsByClient)
	protected.Patch("/work-submissions/complete/:id", middleware.RequireRoles(models.RoleClient), workH.Complete)

	// notifications
	protected.Post("/notifications", notifH.Create)
	protected.Get("/notifications/unread-count", notifH.UnreadCount)
	protected.Get("/notifications/:email", notifH.ListByEmail)
	protected.Patch("/notifications/read/:id", notifH.MarkRead)

	// role requests
	protected.Post("/role-request", middleware.RequireRoles(models.RoleFreelancer), roleReqH.Create)
	protected.Get("/role-requests", middleware.RequireRoles(models.RoleAdmin), roleReqH.List)
	protected.Patch("/role-requests/accept/:id", middleware.RequireRoles(models.RoleAdmin), roleReqH.Approve)

	// uploads
	protected.Post("/uploads/image", uploadH.UploadImage)

	// websocket notification stream, authenticated by the same cookie
	app.Use("/ws/notifications",
		middleware.JWTFromCookie(cfg.JWTSecret),
		middleware.AttachJWTLocals(),
		notifH.WebSocketUpgrade,
	)
	app.Get("/ws/notifications", notifH.WebSocket())

	log.Fatal(app.Listen(":" + cfg.AppPort))
}
