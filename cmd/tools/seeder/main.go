package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/match-video-api/internal/db"
	"github.com/noah-isme/match-video-api/internal/masters"
)

type option struct {
	Name        string
	Price       int64
	Description string
}

var videoTiers = []option{
	{"0", 0, "0試合"},
	{"1", 9900, "1試合"},
	{"2", 17820, "2試合"},
	{"3", 23760, "3試合"},
	{"4", 29700, "4試合"},
	{"5", 35640, "5試合"},
	{"6", 41580, "6試合"},
}

var editOptions = []option{
	{"不要", 0, "編集不要"},
	{"スコア", 4400, "スコア表示編集"},
	{"カット", 4400, "不要シーンカット"},
	{"両方", 5500, "スコア表示+不要シーンカット"},
}

var holderOptions = []option{
	{"購入する", 1000, "ホルダー購入"},
	{"しない", 0, "ホルダー不要"},
}

var deliveryMethods = []struct {
	option
	Shipping int64
}{
	{option{"DL", 0, "ダウンロード配信"}, 0},
	{option{"SD", 3300, "SDカード（送料別）"}, 550},
	{option{"BD", 5500, "Blu-ray（送料別）"}, 550},
}

func main() {
	withSample := flag.Bool("sample", false, "also create a sample tournament")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	conn, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer conn.Close()

	if err := conn.Ping(); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	tx, err := conn.Begin()
	if err != nil {
		log.Fatalf("Failed to begin transaction: %v", err)
	}
	seedOptions(tx, "video_tiers", videoTiers)
	seedOptions(tx, "edit_options", editOptions)
	seedOptions(tx, "holder_options", holderOptions)
	seedDeliveryMethods(tx)
	if *withSample {
		seedSampleTournament(tx)
	}
	if err := tx.Commit(); err != nil {
		log.Fatalf("Failed to commit seed: %v", err)
	}

	refreshMastersCache(dbURL)
	log.Println("Seeding completed successfully!")
}

// seedOptions inserts missing rows and leaves existing prices untouched.
func seedOptions(tx *sql.Tx, table string, rows []option) {
	log.Printf("Seeding %s...", table)
	query := `INSERT INTO ` + table + ` (name, price, description) VALUES ($1, $2, $3)
		ON CONFLICT (name) DO NOTHING`
	for _, r := range rows {
		if _, err := tx.Exec(query, r.Name, r.Price, r.Description); err != nil {
			_ = tx.Rollback()
			log.Fatalf("Failed to seed %s %q: %v", table, r.Name, err)
		}
	}
}

// seedDeliveryMethods upserts so price corrections reach existing rows.
func seedDeliveryMethods(tx *sql.Tx) {
	log.Println("Seeding delivery_methods...")
	const query = `INSERT INTO delivery_methods (name, price, shipping_price, description) VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE SET price = EXCLUDED.price, shipping_price = EXCLUDED.shipping_price, description = EXCLUDED.description`
	for _, d := range deliveryMethods {
		if _, err := tx.Exec(query, d.Name, d.Price, d.Shipping, d.Description); err != nil {
			_ = tx.Rollback()
			log.Fatalf("Failed to seed delivery method %q: %v", d.Name, err)
		}
	}
}

func seedSampleTournament(tx *sql.Tx) {
	log.Println("Seeding sample tournament...")
	const query = `INSERT INTO tournaments (name, set_type, categories, note, start_date, end_date)
		SELECT $1, 'ONE_SET', $2::text[], $3, $4::date, $5::date
		WHERE NOT EXISTS (SELECT 1 FROM tournaments WHERE name = $1)`
	start := time.Now().AddDate(0, 1, 0)
	_, err := tx.Exec(query,
		"サンプル春季大会",
		"{U12,U15}",
		"動作確認用のサンプル大会",
		start.Format("2006-01-02"),
		start.AddDate(0, 0, 1).Format("2006-01-02"),
	)
	if err != nil {
		_ = tx.Rollback()
		log.Fatalf("Failed to seed sample tournament: %v", err)
	}
}

// refreshMastersCache drops the cached catalogs through the masters service
// and reloads them so the API serves the seeded prices immediately.
func refreshMastersCache(dbURL string) {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		return
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Printf("Skipping cache refresh: %v", err)
		return
	}
	client := redis.NewClient(opts)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.Printf("Skipping cache refresh: %v", err)
		return
	}
	defer pool.Close()

	svc, err := masters.NewService(masters.ServiceConfig{
		Queries: db.New(pool),
		Cache:   masters.NewCache(client, cacheTTL()),
		Logger:  zerolog.New(os.Stderr).With().Timestamp().Logger(),
	})
	if err != nil {
		log.Printf("Skipping cache refresh: %v", err)
		return
	}
	if err := svc.Invalidate(ctx); err != nil {
		log.Printf("Failed to invalidate masters cache: %v", err)
		return
	}
	if _, err := svc.List(ctx); err != nil {
		log.Printf("Masters cache invalidated, warm-up failed: %v", err)
		return
	}
	log.Println("Masters cache refreshed")
}

func cacheTTL() time.Duration {
	if ttl, err := time.ParseDuration(os.Getenv("MASTERS_CACHE_TTL")); err == nil && ttl > 0 {
		return ttl
	}
	return 5 * time.Minute
}
