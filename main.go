package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"garment-studio/client"
	"garment-studio/config"
	"garment-studio/core"
	"garment-studio/editor"
	"garment-studio/export"
	"garment-studio/handlers/api/designs"
	"garment-studio/handlers/api/products"
	"garment-studio/handlers/api/uploads"
	"garment-studio/handlers/auth"
	"garment-studio/handlers/websocket"
	authMiddleware "garment-studio/middleware"
	"garment-studio/stores"
	"garment-studio/stores/minio"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

// blobs groups the optional image storage behind the interfaces each consumer needs.
type blobs struct {
	previews designs.PreviewStore
	uploads  uploads.ImageStore
	fetch    export.FetchFunc
}

func newBlobs(images *minio.ImageStore) blobs {
	if images == nil {
		return blobs{}
	}
	return blobs{previews: images, uploads: images, fetch: images.Fetch}
}

func setupRouter(cfg *config.Config, store core.DesignStore, b blobs) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Content-Length", "Origin", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/products/custom-tshirt", products.HandleGetBaseProduct(products.BaseProduct(cfg)))
		r.Post("/uploads", uploads.HandleUpload(b.uploads))

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.AuthJWT(cfg.JWTSecret))
			r.Route("/custom-designs", func(r chi.Router) {
				r.Get("/", designs.HandleList(store))
				r.Post("/", designs.HandleCreate(store, b.previews, designs.Canvas{
					Width:  float64(cfg.CanvasWidth),
					Height: float64(cfg.CanvasHeight),
				}))
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", designs.HandleGet(store))
					r.Delete("/", designs.HandleDelete(store, b.previews))
				})
			})
		})
	})

	return r
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if c.IsSet("listen") {
		cfg.ListenAddr = c.String("listen")
	}
	if c.IsSet("loglevel") {
		cfg.LogLevel = c.String("loglevel")
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	return cfg, nil
}

func serve(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if cfg.JWTSecret == "" {
		logrus.Warn("JWT_SECRET is not set, saving designs is disabled")
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	store := stores.GetStore(cfg)
	images, err := minio.NewImageStore(ctx, cfg)
	if err != nil {
		return err
	}
	b := newBlobs(images)

	r := setupRouter(cfg, store, b)

	hub := websocket.NewHub(websocket.Options{
		Store:    store,
		Previews: b.previews,
		Fetch:    b.fetch,
		Product:  products.BaseProduct(cfg),
		Secret:   cfg.JWTSecret,
		Width:    cfg.CanvasWidth,
		Height:   cfg.CanvasHeight,
		Gesture:  editor.ParseGesture(cfg.GestureMode),
	})
	ioo := hub.SetupSocketIO()
	r.Mount("/socket.io/", ioo.ServeHandler(nil))

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: r}

	logrus.WithFields(logrus.Fields{
		"addr":    cfg.ListenAddr,
		"gesture": cfg.GestureMode,
	}).Info("starting server")
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithField("event", "start server").Fatal(err)
		}
	}()

	<-ctx.Done()
	logrus.WithField("sessions", hub.ActiveSessions()).Info("Shutting down...")
	ioo.Close(nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func preview(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	ctx := c.Context

	var (
		design   *core.SavedDesign
		renderer = export.NewRenderer(cfg.CanvasWidth, cfg.CanvasHeight)
	)
	if api := c.String("api"); api != "" {
		tok := c.String("token")
		if tok == "" && c.String("user") != "" {
			if tok, err = auth.CreateJWT(c.String("user"), c.String("user"), cfg.JWTSecret, time.Minute); err != nil {
				return err
			}
		}
		remote := client.New(api, tok)
		if design, err = remote.GetDesign(ctx, c.String("id")); err != nil {
			return err
		}
		renderer.Fetch = remote.FetchImage
	} else {
		if c.String("user") == "" {
			return errors.New("--user is required without --api")
		}
		if design, err = stores.GetStore(cfg).Get(ctx, c.String("user"), c.String("id")); err != nil {
			return err
		}
		images, err := minio.NewImageStore(ctx, cfg)
		if err != nil {
			return err
		}
		renderer.Fetch = newBlobs(images).fetch
	}

	return writePreviews(ctx, renderer, design, c.String("out"))
}

func writePreviews(ctx context.Context, renderer *export.Renderer, design *core.SavedDesign, out string) error {
	if err := os.MkdirAll(out, 0755); err != nil {
		return err
	}
	for side, elements := range map[core.Side][]core.DesignElement{
		core.SideFront: design.FrontDesign,
		core.SideBack:  design.BackDesign,
	} {
		data, err := renderer.RenderPNG(ctx, elements, "")
		if err != nil {
			return fmt.Errorf("render %s: %w", side, err)
		}
		path := filepath.Join(out, fmt.Sprintf("%s-%s.png", design.ID, side))
		if err := os.WriteFile(path, data, 0644); err != nil {
			return err
		}
		logrus.WithFields(logrus.Fields{"design_id": design.ID, "side": side, "path": path}).Info("Preview written")
	}
	return nil
}

func token(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	tok, err := auth.CreateJWT(c.String("user"), c.String("login"), cfg.JWTSecret, c.Duration("ttl"))
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, tok)
	return nil
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "garment-studio",
		Usage: "custom garment design editor and design storage service",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "listen", Usage: "The address to listen on."},
			&cli.StringFlag{Name: "loglevel", Usage: "The log level (debug, info, warn, error)."},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the REST API and the editor socket",
				Action: serve,
			},
			{
				Name:  "preview",
				Usage: "render a saved design to PNG files",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "user", Usage: "owner of the design; mints a token in --api mode"},
					&cli.StringFlag{Name: "id", Required: true},
					&cli.StringFlag{Name: "out", Value: "."},
					&cli.StringFlag{Name: "api", Usage: "base URL of a running design service to read from"},
					&cli.StringFlag{Name: "token", Usage: "bearer token for --api"},
				},
				Action: preview,
			},
			{
				Name:  "token",
				Usage: "mint a development JWT",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "user", Required: true},
					&cli.StringFlag{Name: "login"},
					&cli.DurationFlag{Name: "ttl", Value: auth.DefaultTTL},
				},
				Action: token,
			},
		},
		DefaultCommand: "serve",
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		logrus.Fatal(err)
	}
}
