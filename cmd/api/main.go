package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"procurio.org/internal/auth"
	"procurio.org/internal/httpapi"
	"procurio.org/internal/identity"
	"procurio.org/internal/obs"
	"procurio.org/internal/procure"
	"procurio.org/internal/record"
	"procurio.org/internal/stream"
)

var version = "0.3.1"

func main() {
	// Local overrides; absence of the file is the normal production case.
	_ = godotenv.Load()

	obs.Init()
	obs.InitBuildInfo(version, os.Getenv("PROCURIO_COMMIT"))

	secret := os.Getenv("PROCURIO_AUTH_SECRET")
	if secret == "" {
		log.Fatal("PROCURIO_AUTH_SECRET is required")
	}

	var (
		records record.Store
		db      *sql.DB
	)
	if dsn := os.Getenv("PROCURIO_PG_DSN"); dsn != "" {
		pg, err := record.OpenPG(dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := pg.EnsureSchema(ctx); err != nil {
			cancel()
			log.Fatalf("ensure schema: %v", err)
		}
		cancel()
		records = pg
		db = pg.DB()
	} else {
		log.Print("PROCURIO_PG_DSN not set, using in-memory record store")
		records = record.NewMemory()
	}

	gateway, err := identity.NewLocal(secret,
		identity.WithAccessTTL(envDuration("PROCURIO_ACCESS_TTL", 15*time.Minute)),
		identity.WithRefreshTTL(envDuration("PROCURIO_REFRESH_TTL", 30*24*time.Hour)),
	)
	if err != nil {
		log.Fatalf("identity gateway: %v", err)
	}

	svc, err := procure.NewService(records, gateway)
	if err != nil {
		log.Fatalf("service: %v", err)
	}

	if err := seedAdmin(gateway, records); err != nil {
		log.Fatalf("seed admin: %v", err)
	}

	api := httpapi.New(svc, gateway, httpapi.ReadyProbe{DB: db}, version)
	api.SetRateLimit(envInt("PROCURIO_RATE_BURST", 20), envInt("PROCURIO_RATE_PER_SEC", 10))
	api.SetEventStream(stream.New())

	srv := &http.Server{
		Addr:              envStr("PROCURIO_ADDR", ":8080"),
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting procurio-api %s on %s", version, srv.Addr)
	obs.SetReady(true)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")
	obs.SetReady(false)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if db != nil {
		_ = db.Close()
	}
	log.Println("Stopped")
}

// seedAdmin bootstraps the first administrator account when both env vars
// are set. An already-registered email leaves the existing account alone.
func seedAdmin(gateway identity.Gateway, records record.Store) error {
	email := os.Getenv("PROCURIO_ADMIN_EMAIL")
	password := os.Getenv("PROCURIO_ADMIN_PASSWORD")
	if email == "" || password == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	subject, err := gateway.CreateIdentity(ctx, email, password, identity.Attributes{Role: auth.RoleAdmin})
	if err != nil {
		if errors.Is(err, identity.ErrIdentityExists) {
			return nil
		}
		return err
	}

	now := time.Now().UTC().Format("2006-01-02T15:04:05.000000Z")
	admin := procure.User{
		ID:          subject,
		Email:       email,
		Role:        auth.RoleAdmin,
		Permissions: []string{procure.PermPurchaseOrderCreate, procure.PermShipmentCreate},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := records.Put(ctx, record.TableUsers, admin.ToItem()); err != nil {
		return err
	}
	log.Printf("Seeded admin account %s", email)
	return nil
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("invalid %s=%q, using default %d", key, raw, def)
		return def
	}
	return v
}

func envDuration(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	log.Printf("invalid %s=%q, using default %s", key, raw, def)
	return def
}
